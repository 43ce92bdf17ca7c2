package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestTokenRoundTrip(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewManager("secret", time.Hour, WithClock(fixedNow(now)))

	uid, ok := m.ParseToken(m.Token(42))
	require.True(t, ok)
	assert.Equal(t, uint(42), uid)

	other := NewManager("other", time.Hour, WithClock(fixedNow(now)))
	_, ok = other.ParseToken(m.Token(42))
	assert.False(t, ok, "signature from another secret must fail")

	_, ok = m.ParseToken("42.garbage")
	assert.False(t, ok)
}

func TestTokenExpires(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	issued := NewManager("s", time.Hour, WithClock(fixedNow(now))).Token(7)

	later := NewManager("s", time.Hour, WithClock(fixedNow(now.Add(2*time.Hour))))
	_, ok := later.ParseToken(issued)
	assert.False(t, ok)
}

func TestMiddlewareAndRequireAuth(t *testing.T) {
	m := NewManager("s", time.Hour)
	protected := m.Middleware(m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, _ := UserIDFromContext(r.Context())
		assert.Equal(t, uint(3), uid)
		w.WriteHeader(http.StatusNoContent)
	})))

	w := httptest.NewRecorder()
	protected.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/invoices", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, w.Body.String())

	login := httptest.NewRecorder()
	m.CreateSession(login, 3)
	cookies := login.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/invoices", nil)
	req.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	protected.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequireAuthVerifier(t *testing.T) {
	m := NewManager("s", time.Hour, WithVerifier(func(context.Context, uint) bool { return false }))
	h := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithUserID(req.Context(), 9))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), SessionCookieName+"=;")
}

func TestPassword(t *testing.T) {
	h, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NoError(t, CheckPassword(h, "correct horse"))
	assert.ErrorIs(t, CheckPassword(h, "wrong"), ErrInvalidCredentials)
}
