package tradestation

import (
	"sync"
	"time"

	"github.com/flowmindhq/flowmind/internal/models"
)

// tokenStore holds the per-user token cache and the per-user refresh
// locks. Both maps live for the lifetime of the owning AuthClient.
// Expired tokens stay in the map until overwritten or deleted; validity
// is always an ExpiresAt comparison, never map presence.
type tokenStore struct {
	mu     sync.RWMutex
	tokens map[string]*models.Token
	locks  map[string]*sync.Mutex
}

func newTokenStore() *tokenStore {
	return &tokenStore{
		tokens: make(map[string]*models.Token),
		locks:  make(map[string]*sync.Mutex),
	}
}

// get returns the stored token for the user, expired or not.
func (s *tokenStore) get(userID string) *models.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens[userID]
}

// getValid returns the stored token only while it is still usable.
func (s *tokenStore) getValid(userID string, now time.Time) *models.Token {
	tok := s.get(userID)
	if tok.ValidAt(now) {
		return tok
	}
	return nil
}

// set unconditionally replaces the stored token for the user.
func (s *tokenStore) set(userID string, tok *models.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[userID] = tok
}

func (s *tokenStore) delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, userID)
}

// refreshLock returns the per-user refresh mutex, creating it on first
// use. Creation happens under the store mutex so two goroutines racing
// on a never-seen user always end up with the same lock; locks are
// never removed, so repeated lookups reuse the same mutex.
func (s *tokenStore) refreshLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lk, ok := s.locks[userID]
	if !ok {
		lk = &sync.Mutex{}
		s.locks[userID] = lk
	}
	return lk
}
