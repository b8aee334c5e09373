package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/inkwell-app/inkwell/internal/config"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// DB wraps the sql connection together with the driver it was opened with,
// so stores can adapt placeholders and insert-id handling.
type DB struct {
	conn   *sql.DB
	driver string
}

// Open connects to the configured database, retrying like the rest of the
// stack expects on cold starts, and creates the schema.
func Open(cfg *config.Config) (*DB, error) {
	driver := cfg.Database.Driver
	var dsn string
	switch driver {
	case DriverSQLite:
		dataDir := filepath.Dir(cfg.Database.Path)
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		dsn = cfg.Database.Path + "?_journal=WAL&_foreign_keys=on"
	case DriverPostgres:
		dsn = cfg.Database.DSN
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	attempts := cfg.Database.MaxRetries
	if attempts < 1 {
		attempts = 1
	}
	var conn *sql.DB
	var lastErr error
	for i := 0; i < attempts; i++ {
		var err error
		conn, err = sql.Open(driver, dsn)
		if err == nil {
			err = conn.Ping()
		}
		if err == nil {
			lastErr = nil
			break
		}
		lastErr = err
		log.Printf("Database connection attempt %d/%d failed: %v", i+1, attempts, err)
		time.Sleep(time.Duration(cfg.Database.RetryDelay) * time.Second)
	}
	if lastErr != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", attempts, lastErr)
	}

	if driver == DriverSQLite {
		// SQLite only supports one writer.
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
	}
	conn.SetConnMaxLifetime(time.Hour)

	db := &DB{conn: conn, driver: driver}
	if err := db.createTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	log.Printf("Database initialized (%s)", driver)
	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Driver returns the driver name the connection was opened with.
func (db *DB) Driver() string {
	return db.driver
}

// createTables creates the schema if it does not exist. Uniqueness of user
// emails, per-user tag names and share tokens is enforced here so duplicate
// checks are never a check-then-insert race.
func (db *DB) createTables() error {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	ref := "INTEGER"
	timestamp := "DATETIME"
	if db.driver == DriverPostgres {
		serial = "BIGSERIAL PRIMARY KEY"
		ref = "BIGINT"
		timestamp = "TIMESTAMPTZ"
	}

	stmts := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS users (
				id %s,
				email TEXT NOT NULL,
				name TEXT NOT NULL,
				password_hash TEXT NOT NULL,
				created_at %s NOT NULL,
				updated_at %s NOT NULL
			)`, serial, timestamp, timestamp),
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(email)`,
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS notes (
				id %s,
				user_id %s NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				title TEXT NOT NULL,
				content TEXT NOT NULL DEFAULT '',
				share_token TEXT,
				created_at %s NOT NULL,
				updated_at %s NOT NULL
			)`, serial, ref, timestamp, timestamp),
		`CREATE INDEX IF NOT EXISTS idx_notes_user_id ON notes(user_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_notes_share_token ON notes(share_token)`,
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS tags (
				id %s,
				user_id %s NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				name TEXT NOT NULL,
				created_at %s NOT NULL
			)`, serial, ref, timestamp),
		`CREATE INDEX IF NOT EXISTS idx_tags_user_id ON tags(user_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_tags_user_name ON tags(user_id, name)`,
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS note_tags (
				note_id %s NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
				tag_id %s NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
				PRIMARY KEY (note_id, tag_id)
			)`, ref, ref),
	}

	for _, stmt := range stmts {
		if _, err := db.conn.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Rebind converts ? placeholders to the $n form when the driver is Postgres.
// Queries in this package never contain a literal question mark.
func (db *DB) Rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// execQuerier is satisfied by both *sql.DB and *sql.Tx.
type execQuerier interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// insertID runs an INSERT and returns the generated id, papering over the
// LastInsertId vs RETURNING split between the drivers.
func (db *DB) insertID(eq execQuerier, query string, args ...interface{}) (int64, error) {
	if db.driver == DriverPostgres {
		var id int64
		err := eq.QueryRow(db.Rebind(query+" RETURNING id"), args...).Scan(&id)
		return id, err
	}
	result, err := eq.Exec(query, args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// isUniqueViolation reports whether err is a unique-index violation from
// either driver.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// inPlaceholders returns a comma-separated placeholder list for n values.
func inPlaceholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
