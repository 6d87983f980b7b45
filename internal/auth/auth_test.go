package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func protected(a *Auth) http.Handler {
	r := chi.NewRouter()
	r.Use(a.Verifier())
	r.Use(jwtauth.Authenticator)
	r.Get("/me", func(w http.ResponseWriter, r *http.Request) {
		name, err := UsernameFromContext(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		w.Write([]byte(name))
	})
	return r
}

func TestIssueTokenRoundTrip(t *testing.T) {
	a := New("secret", time.Hour)
	token, err := a.IssueToken("alice", "id-1")
	require.NoError(t, err)

	srv := protected(a)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "BEARER "+token)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/me?jwt="+token, nil)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, "token in query for websocket upgrades")
	assert.Equal(t, "alice", rec.Body.String())
}

func TestRejectsBadTokens(t *testing.T) {
	a := New("secret", time.Hour)
	other := New("another-secret", time.Hour)
	forged, err := other.IssueToken("mallory", "id-2")
	require.NoError(t, err)

	cases := map[string]string{
		"missing": "/me",
		"garbage": "/me?jwt=not-a-token",
		"forged":  "/me?jwt=" + forged,
	}
	srv := protected(a)
	for name, url := range cases {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
	}
}

func TestRejectsTokenWithoutUsername(t *testing.T) {
	a := New("secret", time.Hour)
	_, token, err := a.TokenAuth.Encode(map[string]interface{}{"service_id": 1})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me?jwt="+token, nil)
	rec := httptest.NewRecorder()
	protected(a).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), ErrNoUsername.Error())
}
