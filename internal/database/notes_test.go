package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoteStore_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice@example.com")
	notes := NewNoteStore(db)
	tags := NewTagStore(db)

	work := &Tag{UserID: user.ID, Name: "Work"}
	require.NoError(t, tags.Create(work))

	note := &Note{UserID: user.ID, Title: "Standup", Content: "daily notes"}
	require.NoError(t, notes.Create(note, []int64{work.ID}))
	assert.NotZero(t, note.ID)
	require.Len(t, note.Tags, 1)
	assert.Equal(t, "Work", note.Tags[0].Name)

	got, err := notes.Get(user.ID, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "Standup", got.Title)
	assert.Equal(t, "daily notes", got.Content)
	assert.Nil(t, got.ShareToken)
}

func TestNoteStore_OwnershipScoping(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice@example.com")
	bob := createTestUser(t, db, "bob@example.com")
	notes := NewNoteStore(db)

	note := &Note{UserID: alice.ID, Title: "Private", Content: "secret"}
	require.NoError(t, notes.Create(note, nil))

	// Another user's note is indistinguishable from a missing one.
	_, err := notes.Get(bob.ID, note.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = notes.Update(bob.ID, note.ID, "Stolen", "", nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, notes.Delete(bob.ID, note.ID), ErrNotFound)
	assert.ErrorIs(t, notes.SetShareToken(bob.ID, note.ID, "tok"), ErrNotFound)

	// The owner's copy is untouched.
	got, err := notes.Get(alice.ID, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "Private", got.Title)
}

func TestNoteStore_UpdateReplacesTags(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice@example.com")
	notes := NewNoteStore(db)
	tags := NewTagStore(db)

	a := &Tag{UserID: user.ID, Name: "A"}
	require.NoError(t, tags.Create(a))
	b := &Tag{UserID: user.ID, Name: "B"}
	require.NoError(t, tags.Create(b))
	c := &Tag{UserID: user.ID, Name: "C"}
	require.NoError(t, tags.Create(c))

	note := &Note{UserID: user.ID, Title: "T", Content: ""}
	require.NoError(t, notes.Create(note, []int64{a.ID, b.ID}))
	require.Len(t, note.Tags, 2)

	updated, err := notes.Update(user.ID, note.ID, "T", "", []int64{b.ID, c.ID})
	require.NoError(t, err)
	require.Len(t, updated.Tags, 2)
	assert.Equal(t, "B", updated.Tags[0].Name)
	assert.Equal(t, "C", updated.Tags[1].Name)
}

func TestNoteStore_UpdateEmptyTagsClearsAll(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice@example.com")
	notes := NewNoteStore(db)
	tags := NewTagStore(db)

	a := &Tag{UserID: user.ID, Name: "A"}
	require.NoError(t, tags.Create(a))
	b := &Tag{UserID: user.ID, Name: "B"}
	require.NoError(t, tags.Create(b))

	note := &Note{UserID: user.ID, Title: "T"}
	require.NoError(t, notes.Create(note, []int64{a.ID, b.ID}))

	// An empty list clears the association set, it is not "no change".
	updated, err := notes.Update(user.ID, note.ID, "T", "", []int64{})
	require.NoError(t, err)
	assert.Empty(t, updated.Tags)

	got, err := notes.Get(user.ID, note.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Tags)
}

func TestNoteStore_ListFilters(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice@example.com")
	notes := NewNoteStore(db)
	tags := NewTagStore(db)

	work := &Tag{UserID: user.ID, Name: "Work"}
	require.NoError(t, tags.Create(work))

	groceries := &Note{UserID: user.ID, Title: "Groceries", Content: "milk and eggs"}
	require.NoError(t, notes.Create(groceries, nil))
	meeting := &Note{UserID: user.ID, Title: "Meeting", Content: "quarterly review"}
	require.NoError(t, notes.Create(meeting, []int64{work.ID}))

	all, err := notes.List(user.ID, NoteFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byQuery, err := notes.List(user.ID, NoteFilter{Query: "milk"})
	require.NoError(t, err)
	require.Len(t, byQuery, 1)
	assert.Equal(t, "Groceries", byQuery[0].Title)

	byTitle, err := notes.List(user.ID, NoteFilter{Query: "Meet"})
	require.NoError(t, err)
	require.Len(t, byTitle, 1)
	assert.Equal(t, "Meeting", byTitle[0].Title)

	byTag, err := notes.List(user.ID, NoteFilter{TagID: work.ID})
	require.NoError(t, err)
	require.Len(t, byTag, 1)
	assert.Equal(t, "Meeting", byTag[0].Title)

	none, err := notes.List(user.ID, NoteFilter{Query: "nothing matches"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestNoteStore_SearchTermIsLiteral(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice@example.com")
	notes := NewNoteStore(db)

	require.NoError(t, notes.Create(&Note{UserID: user.ID, Title: "Budget", Content: "done 100%"}, nil))
	require.NoError(t, notes.Create(&Note{UserID: user.ID, Title: "snake_case", Content: "naming notes"}, nil))
	require.NoError(t, notes.Create(&Note{UserID: user.ID, Title: "snakeXcase", Content: "decoy"}, nil))

	// LIKE wildcards in the term match themselves, not everything.
	percent, err := notes.List(user.ID, NoteFilter{Query: "100%"})
	require.NoError(t, err)
	require.Len(t, percent, 1)
	assert.Equal(t, "Budget", percent[0].Title)

	underscore, err := notes.List(user.ID, NoteFilter{Query: "snake_case"})
	require.NoError(t, err)
	require.Len(t, underscore, 1)
	assert.Equal(t, "snake_case", underscore[0].Title)

	bare, err := notes.List(user.ID, NoteFilter{Query: "%"})
	require.NoError(t, err)
	require.Len(t, bare, 1)
	assert.Equal(t, "Budget", bare[0].Title)
}

func TestNoteStore_ListScopedToUser(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice@example.com")
	bob := createTestUser(t, db, "bob@example.com")
	notes := NewNoteStore(db)

	require.NoError(t, notes.Create(&Note{UserID: alice.ID, Title: "Alice note"}, nil))
	require.NoError(t, notes.Create(&Note{UserID: bob.ID, Title: "Bob note"}, nil))

	list, err := notes.List(alice.ID, NoteFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Alice note", list[0].Title)
}

func TestNoteStore_Delete(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice@example.com")
	notes := NewNoteStore(db)
	tags := NewTagStore(db)

	work := &Tag{UserID: user.ID, Name: "Work"}
	require.NoError(t, tags.Create(work))

	note := &Note{UserID: user.ID, Title: "Gone soon"}
	require.NoError(t, notes.Create(note, []int64{work.ID}))

	require.NoError(t, notes.Delete(user.ID, note.ID))
	_, err := notes.Get(user.ID, note.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// The tag itself survives.
	_, err = tags.Get(user.ID, work.ID)
	assert.NoError(t, err)

	assert.ErrorIs(t, notes.Delete(user.ID, note.ID), ErrNotFound)
}

func TestNoteStore_ShareToken(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice@example.com")
	notes := NewNoteStore(db)

	note := &Note{UserID: user.ID, Title: "Shared", Content: "public"}
	require.NoError(t, notes.Create(note, nil))

	_, err := notes.GetByShareToken("tok-123")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, notes.SetShareToken(user.ID, note.ID, "tok-123"))

	shared, err := notes.GetByShareToken("tok-123")
	require.NoError(t, err)
	assert.Equal(t, note.ID, shared.ID)
	require.NotNil(t, shared.ShareToken)
	assert.Equal(t, "tok-123", *shared.ShareToken)

	require.NoError(t, notes.ClearShareToken(user.ID, note.ID))
	_, err = notes.GetByShareToken("tok-123")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNoteStore_RecentAndCount(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice@example.com")
	notes := NewNoteStore(db)

	for i := 0; i < 7; i++ {
		require.NoError(t, notes.Create(&Note{UserID: user.ID, Title: "n"}, nil))
		time.Sleep(2 * time.Millisecond)
	}

	count, err := notes.CountByUser(user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 7, count)

	recent, err := notes.Recent(user.ID, 5)
	require.NoError(t, err)
	assert.Len(t, recent, 5)

	// Newest first.
	for i := 1; i < len(recent); i++ {
		assert.False(t, recent[i].UpdatedAt.After(recent[i-1].UpdatedAt))
	}
}
