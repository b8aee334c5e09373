package database

import (
	"database/sql"
	"time"
)

// User represents a registered account. The password is stored only as a
// bcrypt hash and never serialized.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserStore defines the interface for user storage operations.
type UserStore interface {
	Create(user *User) error
	GetByEmail(email string) (*User, error)
	GetByID(id int64) (*User, error)
}

// SQLUserStore implements UserStore on database/sql.
type SQLUserStore struct {
	db *DB
}

// NewUserStore creates a new SQLUserStore.
func NewUserStore(db *DB) *SQLUserStore {
	return &SQLUserStore{db: db}
}

// Create stores a new user. A duplicate email yields ErrDuplicate.
func (s *SQLUserStore) Create(user *User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (email, name, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`
	id, err := s.db.insertID(s.db.conn, query,
		user.Email, user.Name, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	user.ID = id
	return nil
}

// GetByEmail retrieves a user by email.
func (s *SQLUserStore) GetByEmail(email string) (*User, error) {
	query := s.db.Rebind(`
		SELECT id, email, name, password_hash, created_at, updated_at
		FROM users
		WHERE email = ?`)
	return s.scanUser(s.db.conn.QueryRow(query, email))
}

// GetByID retrieves a user by ID.
func (s *SQLUserStore) GetByID(id int64) (*User, error) {
	query := s.db.Rebind(`
		SELECT id, email, name, password_hash, created_at, updated_at
		FROM users
		WHERE id = ?`)
	return s.scanUser(s.db.conn.QueryRow(query, id))
}

func (s *SQLUserStore) scanUser(row *sql.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
