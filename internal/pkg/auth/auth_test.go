package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims *Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func userClaims(userID, role string, expiry time.Duration) *Claims {
	return &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
		},
	}
}

func TestVerifier_Parse(t *testing.T) {
	v := NewVerifier(testSecret)

	claims, err := v.Parse(signToken(t, userClaims("user-1", "", time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.False(t, claims.IsAdmin())

	claims, err = v.Parse(signToken(t, userClaims("admin-1", RoleAdmin, time.Hour)))
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin())
}

func TestVerifier_ParseRejects(t *testing.T) {
	v := NewVerifier(testSecret)

	// Expired token
	_, err := v.Parse(signToken(t, userClaims("user-1", "", -time.Hour)))
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Wrong secret
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, userClaims("user-1", "", time.Hour))
	signed, err := token.SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = v.Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Missing user id
	_, err = v.Parse(signToken(t, userClaims("", "", time.Hour)))
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Garbage
	_, err = v.Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddleware(t *testing.T) {
	v := NewVerifier(testSecret)

	var gotUserID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserIDFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	protected := v.Middleware(next)

	// Valid token passes and exposes the user id
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, userClaims("user-1", "", time.Hour)))
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", gotUserID)

	// Missing header
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Malformed header
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token abc")
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	v := NewVerifier(testSecret)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	protected := v.Middleware(RequireAdmin(next))

	// Admin role passes
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, userClaims("admin-1", RoleAdmin, time.Hour)))
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Plain user is forbidden
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, userClaims("user-1", "", time.Hour)))
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
