package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berealtors/wrapsheet/internal/util"
)

const adminToken = "correct-horse-battery"

func newAuth(t *testing.T) *Authenticator {
	t.Helper()
	hash, err := util.HashSecret(adminToken)
	require.NoError(t, err)
	return New(hash, "test-signing-secret", 8*time.Hour)
}

func TestIssueAndValidateSession(t *testing.T) {
	a := newAuth(t)
	token, exp, err := a.IssueSession(adminToken)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(8*time.Hour), exp, time.Minute)

	claims, err := a.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, adminRole, claims.Role)

	_, _, err = a.IssueSession("wrong-token-value")
	assert.ErrorIs(t, err, ErrBadToken)
}

func TestValidateRejectsExpiredAndForeignTokens(t *testing.T) {
	a := newAuth(t)
	token, _, err := a.IssueSession(adminToken)
	require.NoError(t, err)

	a.now = func() time.Time { return time.Now().Add(9 * time.Hour) }
	_, err = a.Validate(token)
	assert.ErrorIs(t, err, ErrUnauthorized)

	a.now = time.Now
	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role:             adminRole,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer, ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = a.Validate(foreign)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestUnconfiguredLocksEverything(t *testing.T) {
	a := New("", "", time.Hour)
	_, _, err := a.IssueSession(adminToken)
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = a.Validate("anything")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestRequireAdmin(t *testing.T) {
	a := newAuth(t)
	token, _, err := a.IssueSession(adminToken)
	require.NoError(t, err)

	h := a.RequireAdmin(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodDelete, "/api/logs-requests/1", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodDelete, "/api/logs-requests/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCheckUploadKey(t *testing.T) {
	assert.True(t, CheckUploadKey("k3y", "k3y"))
	assert.False(t, CheckUploadKey("k3y", "k3Y"))
	assert.False(t, CheckUploadKey("", ""))
}
