// Package session owns the per-connection authenticated state: identity,
// subscription table, and the server-side subscription id allocator.
package session

import (
	"sync"
	"sync/atomic"

	"github.com/nats-io/nuid"
	"github.com/rskv-p/meshgate/internal/auth"
)

// Session is created once a connection authenticates and lives until the
// connection closes. All exported methods are safe for concurrent use,
// since requests and fan-in delivery may touch it from different goroutines.
type Session struct {
	ID     string
	Claims auth.Claims

	mu   sync.RWMutex
	subs map[uint64]string // subscription id -> subject pattern

	nextID atomic.Uint64
}

// New constructs a Session for newly validated claims with a fresh,
// globally-unique session id allocated via nuid, the same generator the
// fleet's core.Service uses for its own instance ids.
func New(claims auth.Claims) *Session {
	return &Session{
		ID:     nuid.Next(),
		Claims: claims,
		subs:   make(map[uint64]string),
	}
}

// AddSubscription records that id is subscribed to subject. Overwriting an
// existing id is permitted; the caller is responsible for cancelling any
// prior handle before calling this (see gateway.Handler).
func (s *Session) AddSubscription(id uint64, subject string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[id] = subject
}

// RemoveSubscription deletes id from the table and returns the subject it
// was mapped to, if any.
func (s *Session) RemoveSubscription(id uint64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subject, ok := s.subs[id]
	if ok {
		delete(s.subs, id)
	}
	return subject, ok
}

// GetSubscriptionSubject returns the subject id is currently mapped to.
func (s *Session) GetSubscriptionSubject(id uint64) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subject, ok := s.subs[id]
	return subject, ok
}

// MatchSubscription resolves an inbound bus delivery's subject to a
// subscription id: first by exact subject equality, then by bus-style
// pattern matching against every stored pattern. Returns ok=false when no
// entry matches (a stale delivery after unsubscribe, or a spurious wakeup),
// which callers must silently drop.
func (s *Session) MatchSubscription(deliveredSubject string) (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for id, subject := range s.subs {
		if subject == deliveredSubject {
			return id, true
		}
	}
	for id, pattern := range s.subs {
		if auth.SubjectMatches(pattern, deliveredSubject) {
			return id, true
		}
	}
	return 0, false
}

// SubscriptionIDs returns a snapshot of all currently-held subscription ids.
func (s *Session) SubscriptionIDs() []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]uint64, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	return ids
}

// NextServerID returns a strictly increasing, never-zero id for
// server-initiated allocations. The counter is independent of the
// client-chosen ids in the subscription table, so a value may equal one of
// them.
func (s *Session) NextServerID() uint64 {
	return s.nextID.Add(1)
}
