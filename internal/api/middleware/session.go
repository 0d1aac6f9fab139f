package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/duraspace/duplication-policy-manager/internal/auth"
	"github.com/duraspace/duplication-policy-manager/internal/service"
)

type contextKey string

const sessionContextKey contextKey = "session"

// Session binds an issued bearer token to one authenticated credential set
// and its per-session edit service.
type Session struct {
	Token       string
	Credentials *auth.Credentials
	Service     *service.PolicyService
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// SessionRegistry holds the live sessions. Sessions are created at login and
// torn down at logout or expiry; nothing about them is ambient or global.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
}

// NewSessionRegistry creates a registry issuing sessions with the given
// lifetime.
func NewSessionRegistry(ttl time.Duration) *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
}

// Create registers a new session for authenticated credentials and returns
// it with a freshly generated token.
func (r *SessionRegistry) Create(creds *auth.Credentials, svc *service.PolicyService) (*Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := &Session{
		Token:       token,
		Credentials: creds,
		Service:     svc,
		CreatedAt:   now,
		ExpiresAt:   now.Add(r.ttl),
	}

	r.mu.Lock()
	r.sessions[token] = session
	r.mu.Unlock()
	return session, nil
}

// Get resolves a token to its live session. Expired sessions are evicted on
// access.
func (r *SessionRegistry) Get(token string) (*Session, bool) {
	r.mu.RLock()
	session, ok := r.sessions[token]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(session.ExpiresAt) {
		r.Delete(token)
		return nil, false
	}
	return session, true
}

// Delete tears down a session.
func (r *SessionRegistry) Delete(token string) {
	r.mu.Lock()
	delete(r.sessions, token)
	r.mu.Unlock()
}

// generateToken produces an opaque 256-bit session token.
func generateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return "dpm_" + hex.EncodeToString(bytes), nil
}

// SessionAuth creates middleware that resolves the bearer token to a live
// session and rejects unauthenticated requests before they reach a handler.
func SessionAuth(registry *SessionRegistry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"code":401,"message":"missing authorization header"}`, http.StatusUnauthorized)
				return
			}
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				http.Error(w, `{"code":401,"message":"invalid authorization header format"}`, http.StatusUnauthorized)
				return
			}

			session, ok := registry.Get(token)
			if !ok {
				http.Error(w, `{"code":401,"message":"invalid or expired session"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSession retrieves the session from the request context.
func GetSession(ctx context.Context) *Session {
	session, _ := ctx.Value(sessionContextKey).(*Session)
	return session
}
