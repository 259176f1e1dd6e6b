package admin

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quiz-funnel-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	return NewAuthenticator(AuthConfig{
		Username:     "admin",
		PasswordHash: string(hash),
		Secret:       "test-secret",
		TokenTTL:     time.Hour,
	})
}

func TestLoginIssuesParsableToken(t *testing.T) {
	a := newTestAuthenticator(t)

	token, err := a.Login("admin", "s3cret")
	require.NoError(t, err)

	claims, err := a.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Sub)
	assert.Equal(t, roleAdmin, claims.Role)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	a := newTestAuthenticator(t)

	_, err := a.Login("admin", "wrong")
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	_, err = a.Login("root", "s3cret")
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))

	unconfigured := NewAuthenticator(AuthConfig{Username: "admin"})
	_, err = unconfigured.Login("admin", "")
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	a := NewAuthenticator(AuthConfig{Username: "admin", PasswordHash: hash, Secret: "x"})
	_, err = a.Login("admin", "hunter2")
	assert.NoError(t, err)
}

func TestParseRejectsExpiredAndForeignTokens(t *testing.T) {
	a := newTestAuthenticator(t)
	token, err := a.Login("admin", "s3cret")
	require.NoError(t, err)

	a.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = a.Parse(token)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))

	other := NewAuthenticator(AuthConfig{Username: "admin", PasswordHash: "x", Secret: "other-secret"})
	foreign, err := other.IssueJWT("admin", roleAdmin)
	require.NoError(t, err)
	_, err = newTestAuthenticator(t).Parse(foreign)
	assert.Error(t, err)

	nonAdmin, err := newTestAuthenticator(t).IssueJWT("visitor", "viewer")
	require.NoError(t, err)
	_, err = newTestAuthenticator(t).Parse(nonAdmin)
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	a := newTestAuthenticator(t)
	var seen string
	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, ok := ClaimsFromContext(r.Context()); ok {
			seen = c.Sub
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := a.Login("admin", "s3cret")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "admin", seen)
}
