// Package memory provides in-process implementations of the storage ports.
// The key/value store is used by tests and the "memory" storage driver; the
// session store backs per-visitor state for the HTTP server.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jsamuelsen/quotebook/internal/domain"
)

// Store is a concurrency-safe in-memory ports.KeyValueStore.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Get returns a copy of the value under key or domain.ErrNotFound.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[key]
	if !ok {
		return nil, domain.NewNotFoundError("key", key)
	}

	return append([]byte(nil), value...), nil
}

// Set stores a copy of value under key.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = append([]byte(nil), value...)
	return nil
}

type session struct {
	values    map[string][]byte
	expiresAt time.Time
}

// SessionStore is an in-memory ports.SessionStore. Sessions expire after
// ttl without a write; reads do not extend them.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore creates a SessionStore. A non-positive ttl disables expiry.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the value stored for key in the session, or domain.ErrNotFound
// when the session or key is missing or expired.
func (s *SessionStore) Get(_ context.Context, sessionID, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok || s.expired(sess) {
		delete(s.sessions, sessionID)
		return nil, domain.NewNotFoundError(key, sessionID)
	}

	value, ok := sess.values[key]
	if !ok {
		return nil, domain.NewNotFoundError(key, sessionID)
	}

	return append([]byte(nil), value...), nil
}

// Set stores value for key in the session and refreshes its expiry.
func (s *SessionStore) Set(_ context.Context, sessionID, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok || s.expired(sess) {
		sess = &session{values: make(map[string][]byte)}
		s.sessions[sessionID] = sess
	}

	sess.values[key] = append([]byte(nil), value...)
	if s.ttl > 0 {
		sess.expiresAt = s.now().Add(s.ttl)
	}

	return nil
}

// Cleanup removes expired sessions and returns how many were dropped.
func (s *SessionStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if s.expired(sess) {
			delete(s.sessions, id)
			removed++
		}
	}

	return removed
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (s *SessionStore) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Cleanup()
		}
	}
}

func (s *SessionStore) expired(sess *session) bool {
	return s.ttl > 0 && !sess.expiresAt.IsZero() && s.now().After(sess.expiresAt)
}
