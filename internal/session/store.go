// Package session owns the cache of authenticated storage sessions, keyed by
// account handle. Sessions live in process memory only: a restart drops them
// all and each account re-authenticates on demand.
package session

import (
	"context"
	"sync"

	"github.com/dkorchagin/shareup/internal/logging"
	"github.com/dkorchagin/shareup/internal/storage"
)

type entry struct {
	sess   storage.Session
	secret string
}

// Store caches one session per handle. It is the only owner of sessions;
// callers borrow them for the duration of single calls.
type Store struct {
	provider storage.Provider
	log      logging.Logger

	mu       sync.Mutex
	sessions map[string]entry
}

func NewStore(provider storage.Provider, log logging.Logger) *Store {
	return &Store{
		provider: provider,
		log:      log,
		sessions: make(map[string]entry),
	}
}

// GetOrCreate returns the cached session for handle, authenticating and
// caching on a miss. A cached session established with a different secret is
// dropped and re-authenticated, so a re-added account with a changed password
// never keeps riding a stale session.
//
// The lock is not held across the blocking authenticate call. At most one
// run is live per handle, so concurrent authentication for the same handle
// does not occur in practice; if it ever does, the last result wins.
func (s *Store) GetOrCreate(ctx context.Context, handle, secret string) (storage.Session, error) {
	s.mu.Lock()
	if e, ok := s.sessions[handle]; ok {
		if e.secret == secret {
			s.mu.Unlock()
			return e.sess, nil
		}
		s.log.Info(ctx, "secret changed, dropping cached session", "handle", handle)
		delete(s.sessions, handle)
	}
	s.mu.Unlock()

	sess, err := s.provider.Authenticate(ctx, handle, secret)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sessions[handle] = entry{sess: sess, secret: secret}
	s.mu.Unlock()

	s.log.Info(ctx, "session established", "handle", handle)
	return sess, nil
}

// Invalidate drops the cached session for handle, if any. Must be called on
// account removal.
func (s *Store) Invalidate(handle string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, handle)
}

// Count reports how many sessions are cached, for diagnostics.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
