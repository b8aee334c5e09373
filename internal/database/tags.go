package database

import (
	"database/sql"
	"time"
)

// Tag is a per-user label. Names are unique within one user's tags, enforced
// by idx_tags_user_name.
type Tag struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Name      string    `json:"name"`
	NoteCount int64     `json:"noteCount"`
	CreatedAt time.Time `json:"createdAt"`
}

// TagStore defines the interface for tag storage operations. All reads and
// writes are scoped to the owning user.
type TagStore interface {
	List(userID int64) ([]*Tag, error)
	Get(userID, id int64) (*Tag, error)
	Create(tag *Tag) error
	Rename(userID, id int64, name string) error
	Delete(userID, id int64) error
	AllOwned(userID int64, ids []int64) (bool, error)
	CountByUser(userID int64) (int64, error)
}

// SQLTagStore implements TagStore on database/sql.
type SQLTagStore struct {
	db *DB
}

// NewTagStore creates a new SQLTagStore.
func NewTagStore(db *DB) *SQLTagStore {
	return &SQLTagStore{db: db}
}

// List returns the user's tags with note counts, ordered by name.
func (s *SQLTagStore) List(userID int64) ([]*Tag, error) {
	query := s.db.Rebind(`
		SELECT t.id, t.user_id, t.name, t.created_at, COUNT(nt.note_id)
		FROM tags t
		LEFT JOIN note_tags nt ON nt.tag_id = t.id
		WHERE t.user_id = ?
		GROUP BY t.id, t.user_id, t.name, t.created_at
		ORDER BY t.name`)
	rows, err := s.db.conn.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []*Tag{}
	for rows.Next() {
		tag := &Tag{}
		if err := rows.Scan(&tag.ID, &tag.UserID, &tag.Name, &tag.CreatedAt, &tag.NoteCount); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// Get retrieves one of the user's tags. A tag that exists but belongs to a
// different user is ErrNotFound.
func (s *SQLTagStore) Get(userID, id int64) (*Tag, error) {
	query := s.db.Rebind(`
		SELECT id, user_id, name, created_at
		FROM tags
		WHERE id = ? AND user_id = ?`)
	tag := &Tag{}
	err := s.db.conn.QueryRow(query, id, userID).Scan(&tag.ID, &tag.UserID, &tag.Name, &tag.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return tag, nil
}

// Create stores a new tag. A duplicate name for the same user yields
// ErrDuplicate.
func (s *SQLTagStore) Create(tag *Tag) error {
	tag.CreatedAt = time.Now()
	query := `INSERT INTO tags (user_id, name, created_at) VALUES (?, ?, ?)`
	id, err := s.db.insertID(s.db.conn, query, tag.UserID, tag.Name, tag.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	tag.ID = id
	return nil
}

// Rename changes a tag's name, subject to the same uniqueness rule.
func (s *SQLTagStore) Rename(userID, id int64, name string) error {
	query := s.db.Rebind(`UPDATE tags SET name = ? WHERE id = ? AND user_id = ?`)
	result, err := s.db.conn.Exec(query, name, id, userID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a tag and its note associations.
func (s *SQLTagStore) Delete(userID, id int64) error {
	tx, err := s.db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var owned int64
	query := s.db.Rebind(`SELECT id FROM tags WHERE id = ? AND user_id = ?`)
	if err := tx.QueryRow(query, id, userID).Scan(&owned); err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return err
	}

	if _, err := tx.Exec(s.db.Rebind(`DELETE FROM note_tags WHERE tag_id = ?`), id); err != nil {
		return err
	}
	if _, err := tx.Exec(s.db.Rebind(`DELETE FROM tags WHERE id = ?`), id); err != nil {
		return err
	}
	return tx.Commit()
}

// AllOwned reports whether every id refers to a tag owned by the user.
func (s *SQLTagStore) AllOwned(userID int64, ids []int64) (bool, error) {
	if len(ids) == 0 {
		return true, nil
	}
	unique := map[int64]struct{}{}
	args := []interface{}{userID}
	for _, id := range ids {
		if _, seen := unique[id]; seen {
			continue
		}
		unique[id] = struct{}{}
		args = append(args, id)
	}

	query := s.db.Rebind(`SELECT COUNT(*) FROM tags WHERE user_id = ? AND id IN (` +
		inPlaceholders(len(unique)) + `)`)
	var count int
	if err := s.db.conn.QueryRow(query, args...).Scan(&count); err != nil {
		return false, err
	}
	return count == len(unique), nil
}

// CountByUser returns the number of tags the user owns.
func (s *SQLTagStore) CountByUser(userID int64) (int64, error) {
	query := s.db.Rebind(`SELECT COUNT(*) FROM tags WHERE user_id = ?`)
	var count int64
	err := s.db.conn.QueryRow(query, userID).Scan(&count)
	return count, err
}
