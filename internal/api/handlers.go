package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/inkwell-app/inkwell/internal/auth"
	"github.com/inkwell-app/inkwell/internal/database"
)

const dashboardRecentLimit = 5

type dashboardResponse struct {
	NoteCount   int64            `json:"noteCount"`
	TagCount    int64            `json:"tagCount"`
	RecentNotes []*database.Note `json:"recentNotes"`
}

// DashboardHandler aggregates the signed-in user's counts and most recently
// updated notes.
func (api *Api) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	noteCount, err := api.notes.CountByUser(claims.UserID)
	if err != nil {
		serverError(w, r, err)
		return
	}
	tagCount, err := api.tags.CountByUser(claims.UserID)
	if err != nil {
		serverError(w, r, err)
		return
	}
	recent, err := api.notes.Recent(claims.UserID, dashboardRecentLimit)
	if err != nil {
		serverError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		NoteCount:   noteCount,
		TagCount:    tagCount,
		RecentNotes: recent,
	})
}

type exportSnapshot struct {
	ExportedAt time.Time        `json:"exportedAt"`
	UserID     int64            `json:"userId"`
	Email      string           `json:"email"`
	Notes      []*database.Note `json:"notes"`
	Tags       []*database.Tag  `json:"tags"`
}

// ExportHandler serializes the user's notes and tags to a JSON snapshot and
// uploads it to the configured bucket.
func (api *Api) ExportHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if api.exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "Export is not configured")
		return
	}

	notes, err := api.notes.List(claims.UserID, database.NoteFilter{})
	if err != nil {
		serverError(w, r, err)
		return
	}
	tags, err := api.tags.List(claims.UserID)
	if err != nil {
		serverError(w, r, err)
		return
	}

	now := time.Now().UTC()
	body, err := json.Marshal(exportSnapshot{
		ExportedAt: now,
		UserID:     claims.UserID,
		Email:      claims.Email,
		Notes:      notes,
		Tags:       tags,
	})
	if err != nil {
		serverError(w, r, err)
		return
	}

	key := fmt.Sprintf("users/%d/exports/%s.json", claims.UserID, now.Format("20060102T150405Z"))
	result, err := api.exporter.UploadSnapshot(r.Context(), key, body)
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
