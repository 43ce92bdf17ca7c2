// Package auth implements signed session cookies and password hashing.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type ctxKey string

const (
	SessionCookieName = "session"
	userIDCtxKey      = ctxKey("userID")
)

// UserVerifier validates that a session's user still exists/is allowed.
type UserVerifier func(ctx context.Context, uid uint) bool

// Manager issues and checks session cookies. The cookie value is
// "<uid>.<unix expiry>.<hmac>".
type Manager struct {
	secret []byte
	ttl    time.Duration
	secure bool
	verify UserVerifier
	now    func() time.Time
}

type Option func(*Manager)

// WithVerifier makes RequireAuth reject sessions of deleted users.
func WithVerifier(v UserVerifier) Option { return func(m *Manager) { m.verify = v } }

func WithSecureCookie(secure bool) Option { return func(m *Manager) { m.secure = secure } }

func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

func NewManager(secret string, ttl time.Duration, opts ...Option) *Manager {
	m := &Manager{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) sign(payload string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Token returns a signed session value for the user.
func (m *Manager) Token(userID uint) string {
	exp := m.now().Add(m.ttl).Unix()
	payload := strconv.FormatUint(uint64(userID), 10) + "." + strconv.FormatInt(exp, 10)
	return payload + "." + m.sign(payload)
}

// CreateSession sets a signed cookie with the user id.
func (m *Manager) CreateSession(w http.ResponseWriter, userID uint) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    m.Token(userID),
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  m.now().Add(m.ttl),
	})
}

// ClearSession deletes the session cookie.
func (m *Manager) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ParseToken validates a session value and returns the user id.
func (m *Manager) ParseToken(value string) (uint, bool) {
	parts := strings.Split(value, ".")
	if len(parts) != 3 {
		return 0, false
	}
	payload := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(parts[2]), []byte(m.sign(payload))) {
		return 0, false
	}
	exp, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || m.now().Unix() >= exp {
		return 0, false
	}
	id64, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil || id64 == 0 {
		return 0, false
	}
	return uint(id64), true
}

// ParseSession validates the cookie and returns the user id.
func (m *Manager) ParseSession(r *http.Request) (uint, bool) {
	c, err := r.Cookie(SessionCookieName)
	if err != nil || c.Value == "" {
		return 0, false
	}
	return m.ParseToken(c.Value)
}

// WithUserID stores user id in context.
func WithUserID(ctx context.Context, userID uint) context.Context {
	return context.WithValue(ctx, userIDCtxKey, userID)
}

// UserIDFromContext extracts user id.
func UserIDFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(userIDCtxKey).(uint)
	return id, ok && id != 0
}

// Middleware attaches user id to request context if present.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if uid, ok := m.ParseSession(r); ok {
			r = r.WithContext(WithUserID(r.Context(), uid))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth answers 401 JSON when no valid session is attached.
func (m *Manager) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, ok := UserIDFromContext(r.Context())
		if ok && m.verify != nil && !m.verify(r.Context(), uid) {
			// Session refers to a non-existing user: clear and treat as unauthorized.
			m.ClearSession(w)
			ok = false
		}
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
