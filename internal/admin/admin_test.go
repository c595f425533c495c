package admin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/velstore/storefront-edge/internal/logging"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

type allowAll struct{}

func (allowAll) Allow(context.Context, string) (bool, error) { return true, nil }

type denyAll struct{}

func (denyAll) Allow(context.Context, string) (bool, error) { return false, nil }

type captureLimiter struct {
	keys []string
}

func (l *captureLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.keys = append(l.keys, key)
	return true, nil
}

func TestPasetoRoundTrip(t *testing.T) {
	svc, err := NewPasetoService(testKey)
	require.NoError(t, err)

	token, err := svc.CreateToken(time.Minute)
	require.NoError(t, err)

	claims, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "edge-admin", claims.Subject)
	assert.WithinDuration(t, time.Now().Add(time.Minute), claims.ExpiresAt, 5*time.Second)
}

func TestPasetoRejectsGarbage(t *testing.T) {
	svc, err := NewPasetoService(testKey)
	require.NoError(t, err)

	_, err = svc.VerifyToken("v4.local.not-a-real-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasetoRejectsWrongKey(t *testing.T) {
	svc, err := NewPasetoService(testKey)
	require.NoError(t, err)

	other, err := NewPasetoService([]byte("fedcba9876543210fedcba9876543210"))
	require.NoError(t, err)

	token, err := svc.CreateToken(time.Minute)
	require.NoError(t, err)

	_, err = other.VerifyToken(token)
	assert.Error(t, err)
}

func TestPasetoRequires32ByteKey(t *testing.T) {
	_, err := NewPasetoService([]byte("short"))
	assert.Error(t, err)
}

func newLoginHandler(t *testing.T, limiter Limiter) *Handler {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("super-secret-key"), bcrypt.MinCost)
	require.NoError(t, err)

	svc, err := NewPasetoService(testKey)
	require.NoError(t, err)

	return NewHandler(svc, limiter, logging.NewLogger(true), string(hash), time.Hour)
}

func TestLoginSuccess(t *testing.T) {
	h := newLoginHandler(t, allowAll{})

	r := httptest.NewRequest(http.MethodPost, "/api/admin/login", strings.NewReader(`{"api_key":"super-secret-key"}`))
	w := httptest.NewRecorder()

	h.Login(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"token":"v4.local.`)
}

func TestLoginWrongKey(t *testing.T) {
	h := newLoginHandler(t, allowAll{})

	r := httptest.NewRequest(http.MethodPost, "/api/admin/login", strings.NewReader(`{"api_key":"wrong"}`))
	w := httptest.NewRecorder()

	h.Login(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// The limiter window must be shared by every connection from an IP, not
// reset per source port.
func TestLoginLimiterKeyedByIP(t *testing.T) {
	limiter := &captureLimiter{}
	h := newLoginHandler(t, limiter)

	for _, addr := range []string{"203.0.113.9:50001", "203.0.113.9:50002"} {
		r := httptest.NewRequest(http.MethodPost, "/api/admin/login", strings.NewReader(`{"api_key":"super-secret-key"}`))
		r.RemoteAddr = addr
		w := httptest.NewRecorder()
		h.Login(w, r)
	}

	require.Len(t, limiter.keys, 2)
	assert.Equal(t, "admin-login:203.0.113.9", limiter.keys[0])
	assert.Equal(t, limiter.keys[0], limiter.keys[1])
}

func TestLoginRateLimited(t *testing.T) {
	h := newLoginHandler(t, denyAll{})

	r := httptest.NewRequest(http.MethodPost, "/api/admin/login", strings.NewReader(`{"api_key":"super-secret-key"}`))
	w := httptest.NewRecorder()

	h.Login(w, r)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRequireAdminAcceptsValidToken(t *testing.T) {
	svc, err := NewPasetoService(testKey)
	require.NoError(t, err)
	token, err := svc.CreateToken(time.Minute)
	require.NoError(t, err)

	mw := NewMiddleware(svc)
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	r := httptest.NewRequest(http.MethodGet, "/api/admin/csp-reports", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	mw.RequireAdmin(next).ServeHTTP(w, r)

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAdminRejectsMissingAndMalformed(t *testing.T) {
	svc, err := NewPasetoService(testKey)
	require.NoError(t, err)
	mw := NewMiddleware(svc)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be called")
	})

	for _, header := range []string{"", "Token abc", "Bearer bad-token"} {
		r := httptest.NewRequest(http.MethodGet, "/api/admin/csp-reports", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()

		mw.RequireAdmin(next).ServeHTTP(w, r)

		assert.Equalf(t, http.StatusUnauthorized, w.Code, "header %q", header)
	}
}
