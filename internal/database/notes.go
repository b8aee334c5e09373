package database

import (
	"database/sql"
	"strings"
	"time"
)

// Note is a user-owned text note with optional tag associations and an
// optional public share token.
type Note struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"userId"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	ShareToken *string   `json:"shareToken,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Tags       []*Tag    `json:"tags"`
}

// NoteFilter narrows a note listing. Query matches title or content as a
// substring; TagID restricts to notes carrying that tag.
type NoteFilter struct {
	Query string
	TagID int64
}

// NoteStore defines the interface for note storage operations. All reads and
// writes are scoped to the owning user; a note belonging to a different user
// is indistinguishable from a missing one.
type NoteStore interface {
	List(userID int64, filter NoteFilter) ([]*Note, error)
	Get(userID, id int64) (*Note, error)
	GetByShareToken(token string) (*Note, error)
	Create(note *Note, tagIDs []int64) error
	Update(userID, id int64, title, content string, tagIDs []int64) (*Note, error)
	Delete(userID, id int64) error
	SetShareToken(userID, id int64, token string) error
	ClearShareToken(userID, id int64) error
	CountByUser(userID int64) (int64, error)
	Recent(userID int64, limit int) ([]*Note, error)
}

// SQLNoteStore implements NoteStore on database/sql.
type SQLNoteStore struct {
	db *DB
}

// NewNoteStore creates a new SQLNoteStore.
func NewNoteStore(db *DB) *SQLNoteStore {
	return &SQLNoteStore{db: db}
}

const noteColumns = `id, user_id, title, content, share_token, created_at, updated_at`

// List returns the user's notes, newest-updated first, with tags loaded.
func (s *SQLNoteStore) List(userID int64, filter NoteFilter) ([]*Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE user_id = ?`
	args := []interface{}{userID}

	if filter.Query != "" {
		query += ` AND (title LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\')`
		pattern := "%" + escapeLike(filter.Query) + "%"
		args = append(args, pattern, pattern)
	}
	if filter.TagID != 0 {
		query += ` AND id IN (SELECT note_id FROM note_tags WHERE tag_id = ?)`
		args = append(args, filter.TagID)
	}
	query += ` ORDER BY updated_at DESC, id DESC`

	return s.queryNotes(query, args...)
}

// Get retrieves one of the user's notes with its tags.
func (s *SQLNoteStore) Get(userID, id int64) (*Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE id = ? AND user_id = ?`
	return s.queryNote(query, id, userID)
}

// GetByShareToken retrieves a note by its public share token, regardless of
// owner. Used by the unauthenticated shared-note endpoint.
func (s *SQLNoteStore) GetByShareToken(token string) (*Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE share_token = ?`
	return s.queryNote(query, token)
}

// Create stores a new note and its tag associations in one transaction.
func (s *SQLNoteStore) Create(note *Note, tagIDs []int64) error {
	now := time.Now()
	note.CreatedAt = now
	note.UpdatedAt = now

	tx, err := s.db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO notes (user_id, title, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`
	id, err := s.db.insertID(tx, query, note.UserID, note.Title, note.Content, note.CreatedAt, note.UpdatedAt)
	if err != nil {
		return err
	}
	note.ID = id

	if err := s.replaceTags(tx, id, tagIDs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	loaded, err := s.Get(note.UserID, id)
	if err != nil {
		return err
	}
	*note = *loaded
	return nil
}

// Update rewrites a note's title and content and replaces its tag
// associations as a whole: an empty tagIDs list clears them all.
// Last write wins; there is no version check.
func (s *SQLNoteStore) Update(userID, id int64, title, content string, tagIDs []int64) (*Note, error) {
	tx, err := s.db.conn.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := s.db.Rebind(`
		UPDATE notes SET title = ?, content = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`)
	result, err := tx.Exec(query, title, content, time.Now(), id, userID)
	if err != nil {
		return nil, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrNotFound
	}

	if err := s.replaceTags(tx, id, tagIDs); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return s.Get(userID, id)
}

// Delete removes a note and its tag associations.
func (s *SQLNoteStore) Delete(userID, id int64) error {
	tx, err := s.db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var owned int64
	query := s.db.Rebind(`SELECT id FROM notes WHERE id = ? AND user_id = ?`)
	if err := tx.QueryRow(query, id, userID).Scan(&owned); err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return err
	}

	if _, err := tx.Exec(s.db.Rebind(`DELETE FROM note_tags WHERE note_id = ?`), id); err != nil {
		return err
	}
	if _, err := tx.Exec(s.db.Rebind(`DELETE FROM notes WHERE id = ?`), id); err != nil {
		return err
	}
	return tx.Commit()
}

// SetShareToken marks a note publicly readable under the given token.
func (s *SQLNoteStore) SetShareToken(userID, id int64, token string) error {
	return s.updateShareToken(userID, id, &token)
}

// ClearShareToken revokes a note's share token.
func (s *SQLNoteStore) ClearShareToken(userID, id int64) error {
	return s.updateShareToken(userID, id, nil)
}

func (s *SQLNoteStore) updateShareToken(userID, id int64, token *string) error {
	query := s.db.Rebind(`UPDATE notes SET share_token = ? WHERE id = ? AND user_id = ?`)
	result, err := s.db.conn.Exec(query, token, id, userID)
	if err != nil {
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

// CountByUser returns the number of notes the user owns.
func (s *SQLNoteStore) CountByUser(userID int64) (int64, error) {
	query := s.db.Rebind(`SELECT COUNT(*) FROM notes WHERE user_id = ?`)
	var count int64
	err := s.db.conn.QueryRow(query, userID).Scan(&count)
	return count, err
}

// Recent returns the user's most recently updated notes.
func (s *SQLNoteStore) Recent(userID int64, limit int) ([]*Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE user_id = ?
		ORDER BY updated_at DESC, id DESC LIMIT ?`
	return s.queryNotes(query, userID, limit)
}

// escapeLike neutralizes LIKE wildcards so a search term always matches as a
// literal substring.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}

// replaceTags rewrites the note's association set: remove everything, then
// insert the requested ids.
func (s *SQLNoteStore) replaceTags(tx *sql.Tx, noteID int64, tagIDs []int64) error {
	if _, err := tx.Exec(s.db.Rebind(`DELETE FROM note_tags WHERE note_id = ?`), noteID); err != nil {
		return err
	}
	seen := map[int64]struct{}{}
	for _, tagID := range tagIDs {
		if _, dup := seen[tagID]; dup {
			continue
		}
		seen[tagID] = struct{}{}
		query := s.db.Rebind(`INSERT INTO note_tags (note_id, tag_id) VALUES (?, ?)`)
		if _, err := tx.Exec(query, noteID, tagID); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLNoteStore) queryNote(query string, args ...interface{}) (*Note, error) {
	note := &Note{}
	err := s.db.conn.QueryRow(s.db.Rebind(query), args...).Scan(
		&note.ID,
		&note.UserID,
		&note.Title,
		&note.Content,
		&note.ShareToken,
		&note.CreatedAt,
		&note.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadTags([]*Note{note}); err != nil {
		return nil, err
	}
	return note, nil
}

func (s *SQLNoteStore) queryNotes(query string, args ...interface{}) ([]*Note, error) {
	rows, err := s.db.conn.Query(s.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := []*Note{}
	for rows.Next() {
		note := &Note{}
		err := rows.Scan(
			&note.ID,
			&note.UserID,
			&note.Title,
			&note.Content,
			&note.ShareToken,
			&note.CreatedAt,
			&note.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.loadTags(notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// loadTags attaches each note's tags, ordered by name.
func (s *SQLNoteStore) loadTags(notes []*Note) error {
	byID := make(map[int64]*Note, len(notes))
	args := make([]interface{}, 0, len(notes))
	for _, note := range notes {
		note.Tags = []*Tag{}
		byID[note.ID] = note
		args = append(args, note.ID)
	}
	if len(notes) == 0 {
		return nil
	}

	query := s.db.Rebind(`
		SELECT nt.note_id, t.id, t.user_id, t.name, t.created_at
		FROM note_tags nt
		JOIN tags t ON t.id = nt.tag_id
		WHERE nt.note_id IN (` + inPlaceholders(len(notes)) + `)
		ORDER BY t.name`)
	rows, err := s.db.conn.Query(query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var noteID int64
		tag := &Tag{}
		if err := rows.Scan(&noteID, &tag.ID, &tag.UserID, &tag.Name, &tag.CreatedAt); err != nil {
			return err
		}
		if note, ok := byID[noteID]; ok {
			note.Tags = append(note.Tags, tag)
		}
	}
	return rows.Err()
}
