package http

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"dealtrack/internal/forms"
)

var errWizardNotFound = errors.New("wizard session not found")

// wizardSession is one open wizard: its controller, the principal who opened
// it, and the transaction being edited ("" for the create flow). The session
// is the only owner of the controller; every request for the token mutates
// the same instance.
type wizardSession struct {
	ctrl      *forms.Controller
	userID    string
	txnID     string
	expiresAt time.Time
}

// wizardStore keeps open wizards in memory, keyed by an opaque token the
// client round-trips as a hidden form value. Sessions expire after the TTL
// of inactivity; every access slides the expiry.
type wizardStore struct {
	mu       sync.Mutex
	sessions map[string]*wizardSession
	ttl      time.Duration
	now      func() time.Time
}

func newWizardStore(ttl time.Duration) *wizardStore {
	return &wizardStore{
		sessions: make(map[string]*wizardSession),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Open registers a new wizard session and returns its token.
func (s *wizardStore) Open(userID, txnID string, ctrl *forms.Controller) string {
	token := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = &wizardSession{
		ctrl:      ctrl,
		userID:    userID,
		txnID:     txnID,
		expiresAt: s.now().Add(s.ttl),
	}
	return token
}

// Get resolves a token for the given principal and slides the expiry. A
// token owned by another user resolves exactly like a missing one.
func (s *wizardStore) Get(token, userID string) (*wizardSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok || sess.userID != userID {
		return nil, errWizardNotFound
	}
	if s.now().After(sess.expiresAt) {
		delete(s.sessions, token)
		return nil, errWizardNotFound
	}
	sess.expiresAt = s.now().Add(s.ttl)
	return sess, nil
}

// Close discards a wizard session. Unknown tokens are a no-op.
func (s *wizardStore) Close(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

// CleanExpired drops expired wizards and reports how many were removed.
// Satisfies cache.Cleaner so the shared cleanup manager can drive it.
func (s *wizardStore) CleanExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for token, sess := range s.sessions {
		if now.After(sess.expiresAt) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed
}

// Size reports the number of open wizards.
func (s *wizardStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
