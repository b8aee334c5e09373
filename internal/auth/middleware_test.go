package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHandler(t *testing.T, wantUserID int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := GetUserFromContext(r.Context())
		if !ok {
			t.Error("expected claims in context")
			return
		}
		if claims.UserID != wantUserID {
			t.Errorf("expected user %d in context, got %d", wantUserID, claims.UserID)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_NoCookie(t *testing.T) {
	tm, err := NewTokenManager("secret-key", time.Hour)
	require.NoError(t, err)

	handler := Middleware(tm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run without a cookie")
	}))

	req := httptest.NewRequest("GET", "/api/notes", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())
}

func TestMiddleware_InvalidToken(t *testing.T) {
	tm, err := NewTokenManager("secret-key", time.Hour)
	require.NoError(t, err)

	// Expired, garbage, and wrong-key tokens all collapse to the same 401.
	other, err := NewTokenManager("other-key", time.Hour)
	require.NoError(t, err)
	wrongKey, err := other.Issue(1, "a@b.com")
	require.NoError(t, err)

	expiredTM, err := NewTokenManager("secret-key", -time.Minute)
	require.NoError(t, err)
	expired, err := expiredTM.Issue(1, "a@b.com")
	require.NoError(t, err)

	for name, value := range map[string]string{
		"garbage":   "garbage",
		"wrong key": wrongKey,
		"expired":   expired,
	} {
		t.Run(name, func(t *testing.T) {
			handler := Middleware(tm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("handler must not run with an invalid token")
			}))

			req := httptest.NewRequest("GET", "/api/notes", nil)
			req.AddCookie(&http.Cookie{Name: CookieName, Value: value})
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())
		})
	}
}

func TestMiddleware_ValidToken(t *testing.T) {
	tm, err := NewTokenManager("secret-key", time.Hour)
	require.NoError(t, err)

	token, err := tm.Issue(7, "carol@example.com")
	require.NoError(t, err)

	handler := Middleware(tm)(testHandler(t, 7))

	req := httptest.NewRequest("GET", "/api/notes", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
