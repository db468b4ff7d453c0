// Package auth provides cookie-session authentication: an in-memory session
// store with TTL and sliding expiration, plus middleware that resolves the
// request's principal into the context.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"sync"
	"time"
)

// Principal identifies an authenticated user. Every transaction row is scoped
// to exactly one principal.
type Principal struct {
	ID    string
	Email string
	Name  string
}

var ErrUnauthenticated = errors.New("not authenticated")

const SessionCookieName = "dealtrack_session"

type contextKey string

const principalContextKey contextKey = "principal"

type session struct {
	principal Principal
	expiresAt time.Time
}

// SessionStore keeps active sessions in memory. Sessions slide: every
// authenticated request pushes the expiry forward by the TTL.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]session
	ttl      time.Duration
	now      func() time.Time
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create opens a session for the principal and returns its token.
func (s *SessionStore) Create(p Principal) string {
	token := newToken()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = session{
		principal: p,
		expiresAt: s.now().Add(s.ttl),
	}
	return token
}

// Resolve returns the principal for a token and slides its expiry. Expired
// sessions are removed on access.
func (s *SessionStore) Resolve(token string) (Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return Principal{}, ErrUnauthenticated
	}
	if s.now().After(sess.expiresAt) {
		delete(s.sessions, token)
		return Principal{}, ErrUnauthenticated
	}

	sess.expiresAt = s.now().Add(s.ttl)
	s.sessions[token] = sess
	return sess.principal, nil
}

// Destroy ends a session. Unknown tokens are a no-op.
func (s *SessionStore) Destroy(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

// Sweep drops expired sessions. Called periodically; Resolve already handles
// lazily-expired entries, so this only bounds memory.
func (s *SessionStore) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for token, sess := range s.sessions {
		if now.After(sess.expiresAt) {
			delete(s.sessions, token)
		}
	}
}

// Len reports the number of live sessions (including not-yet-swept expired
// ones).
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Middleware resolves the session cookie into a Principal on the context.
// Requests without a valid session are redirected to the login page; HTMX
// partial requests get a 401 with an HX-Redirect instead, so the full page
// reloads rather than swapping a login form into a fragment.
func Middleware(store *SessionStore, loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil {
				deny(w, r, loginPath)
				return
			}
			principal, err := store.Resolve(cookie.Value)
			if err != nil {
				deny(w, r, loginPath)
				return
			}
			ctx := context.WithValue(r.Context(), principalContextKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func deny(w http.ResponseWriter, r *http.Request, loginPath string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", loginPath)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}

// FromContext extracts the authenticated principal.
func FromContext(ctx context.Context) (Principal, error) {
	p, ok := ctx.Value(principalContextKey).(Principal)
	if !ok {
		return Principal{}, ErrUnauthenticated
	}
	return p, nil
}

// WithPrincipal returns a context carrying p. Used by tests and the worker.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

func newToken() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		// crypto/rand is the kernel; if it fails, nothing else will work.
		panic(err)
	}
	return hex.EncodeToString(bytes)
}
