package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/inkwell-app/inkwell/internal/auth"
	"github.com/inkwell-app/inkwell/internal/database"
)

type noteRequest struct {
	Title   string  `json:"title"`
	Content string  `json:"content"`
	TagIDs  []int64 `json:"tagIds"`
}

func (api *Api) ListNotesHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	filter := database.NoteFilter{Query: r.URL.Query().Get("q")}
	if tag := r.URL.Query().Get("tag"); tag != "" {
		tagID, err := strconv.ParseInt(tag, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid tag filter")
			return
		}
		filter.TagID = tagID
	}

	notes, err := api.notes.List(claims.UserID, filter)
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (api *Api) CreateNoteHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}
	if !api.ownsTags(w, r, claims.UserID, req.TagIDs) {
		return
	}

	// The owner always comes from the token, never from the payload.
	note := &database.Note{
		UserID:  claims.UserID,
		Title:   req.Title,
		Content: req.Content,
	}
	if err := api.notes.Create(note, req.TagIDs); err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

func (api *Api) GetNoteHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	noteID, ok := parseID(w, chi.URLParam(r, "noteID"), "Note")
	if !ok {
		return
	}

	note, err := api.notes.Get(claims.UserID, noteID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Note not found")
			return
		}
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (api *Api) UpdateNoteHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	noteID, ok := parseID(w, chi.URLParam(r, "noteID"), "Note")
	if !ok {
		return
	}

	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}
	if !api.ownsTags(w, r, claims.UserID, req.TagIDs) {
		return
	}

	note, err := api.notes.Update(claims.UserID, noteID, req.Title, req.Content, req.TagIDs)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Note not found")
			return
		}
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (api *Api) DeleteNoteHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	noteID, ok := parseID(w, chi.URLParam(r, "noteID"), "Note")
	if !ok {
		return
	}

	if err := api.notes.Delete(claims.UserID, noteID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Note not found")
			return
		}
		serverError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ShareNoteHandler assigns a public share token to a note. Sharing an
// already-shared note returns the existing token.
func (api *Api) ShareNoteHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	noteID, ok := parseID(w, chi.URLParam(r, "noteID"), "Note")
	if !ok {
		return
	}

	note, err := api.notes.Get(claims.UserID, noteID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Note not found")
			return
		}
		serverError(w, r, err)
		return
	}

	if note.ShareToken != nil {
		writeJSON(w, http.StatusOK, map[string]string{"shareToken": *note.ShareToken})
		return
	}

	token := uuid.NewString()
	if err := api.notes.SetShareToken(claims.UserID, noteID, token); err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"shareToken": token})
}

func (api *Api) UnshareNoteHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	noteID, ok := parseID(w, chi.URLParam(r, "noteID"), "Note")
	if !ok {
		return
	}

	if err := api.notes.ClearShareToken(claims.UserID, noteID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Note not found")
			return
		}
		serverError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type sharedNoteResponse struct {
	Title     string          `json:"title"`
	Content   string          `json:"content"`
	Tags      []*database.Tag `json:"tags"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// SharedNoteHandler serves a shared note to anyone holding its token.
func (api *Api) SharedNoteHandler(w http.ResponseWriter, r *http.Request) {
	note, err := api.notes.GetByShareToken(chi.URLParam(r, "token"))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Note not found")
			return
		}
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sharedNoteResponse{
		Title:     note.Title,
		Content:   note.Content,
		Tags:      note.Tags,
		UpdatedAt: note.UpdatedAt,
	})
}

// ownsTags rejects the request with 400 when any referenced tag does not
// belong to the user. Returns false when it already wrote a response.
func (api *Api) ownsTags(w http.ResponseWriter, r *http.Request, userID int64, tagIDs []int64) bool {
	ownsAll, err := api.tags.AllOwned(userID, tagIDs)
	if err != nil {
		serverError(w, r, err)
		return false
	}
	if !ownsAll {
		writeError(w, http.StatusBadRequest, "Invalid tag id")
		return false
	}
	return true
}

// parseID parses a path id. A non-numeric id behaves like a missing
// resource, since no such row can exist.
func parseID(w http.ResponseWriter, raw, resource string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, resource+" not found")
		return 0, false
	}
	return id, true
}
