package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/inkwell-app/inkwell/internal/auth"
	"github.com/inkwell-app/inkwell/internal/database"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (api *Api) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if !auth.ValidateEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "Invalid email format")
		return
	}
	if !auth.ValidatePassword(req.Password) {
		writeError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		serverError(w, r, err)
		return
	}

	user := &database.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
	}
	if err := api.users.Create(user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			writeError(w, http.StatusConflict, "Email already in use")
			return
		}
		serverError(w, r, err)
		return
	}

	if err := api.issueSession(w, user); err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (api *Api) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := api.users.GetByEmail(strings.TrimSpace(strings.ToLower(creds.Email)))
	if err != nil {
		// Unknown email and bad password answer identically.
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		serverError(w, r, err)
		return
	}
	if !auth.CheckPassword(user.PasswordHash, creds.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	if err := api.issueSession(w, user); err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (api *Api) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// MeHandler returns the fresh user record behind the verified token. A user
// deleted since the token was issued is treated like a missing token.
func (api *Api) MeHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := api.users.GetByID(claims.UserID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			log.Printf("[AUTH] token for vanished user %d", claims.UserID)
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (api *Api) issueSession(w http.ResponseWriter, user *database.User) error {
	token, err := api.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(api.tokens.TTL().Seconds()),
	})
	return nil
}
