// Package session provides the in-memory conversation session store.
package session

import (
	"sync"
	"time"

	"github.com/civicpulse/engagement-platform/internal/model"
	"github.com/civicpulse/engagement-platform/pkg/metrics"
)

// DefaultTimeout is the idle threshold after which a session is treated as
// absent on access.
const DefaultTimeout = 30 * time.Minute

// State marks a dialogue state. Concrete states are defined by the dialogue
// engine; the store treats them opaquely.
type State interface {
	DialogueState() string
}

// Session is the per-user conversation state. It is ephemeral: a process
// restart loses all in-flight sessions and the user simply starts over.
type Session struct {
	UserID string
	State  State

	// Verified is the voter snapshot captured at verification. It is never
	// re-fetched for the remaining lifetime of the session.
	Verified *model.VoterRecord

	LastActivity time.Time
}

// Store is an in-memory session table keyed by user identifier, with lazy
// idle eviction and a per-key lock for serializing dialogue steps.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	locks    map[string]*sync.Mutex
	timeout  time.Duration
}

// NewStore creates a session store. A non-positive timeout falls back to
// DefaultTimeout.
func NewStore(timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Store{
		sessions: make(map[string]*Session),
		locks:    make(map[string]*sync.Mutex),
		timeout:  timeout,
	}
}

// Lock returns the mutex serializing all dialogue steps for one user. Two
// near-simultaneous messages from the same user are applied as a strict
// sequence; distinct users proceed in parallel.
func (s *Store) Lock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// Create starts a fresh session for the user, overwriting any existing entry.
func (s *Store) Create(userID string, initial State) *Session {
	sess := &Session{
		UserID:       userID,
		State:        initial,
		LastActivity: time.Now(),
	}

	s.mu.Lock()
	s.sessions[userID] = sess
	metrics.SessionsActive.Set(float64(len(s.sessions)))
	s.mu.Unlock()

	return sess
}

// Get returns the user's session, refreshing its activity timestamp. A
// session idle past the timeout is evicted and reported as absent.
func (s *Store) Get(userID string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return nil, false
	}

	if time.Since(sess.LastActivity) > s.timeout {
		delete(s.sessions, userID)
		metrics.SessionsActive.Set(float64(len(s.sessions)))
		metrics.SessionsEvictedTotal.Inc()
		return nil, false
	}

	sess.LastActivity = time.Now()
	return sess, true
}

// Delete removes the user's session.
func (s *Store) Delete(userID string) {
	s.mu.Lock()
	delete(s.sessions, userID)
	metrics.SessionsActive.Set(float64(len(s.sessions)))
	s.mu.Unlock()
}

// Len returns the number of live sessions, counting idle ones not yet
// evicted.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep removes all idle sessions and returns how many were evicted.
// Eviction is otherwise lazy, so a session for a user who never returns would
// linger until a sweep. Per-key locks with no surviving session are pruned in
// the same pass so the lock table does not grow with every phone number ever
// seen; a lock currently held is left in place.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for userID, sess := range s.sessions {
		if time.Since(sess.LastActivity) > s.timeout {
			delete(s.sessions, userID)
			evicted++
		}
	}

	for userID, l := range s.locks {
		if _, live := s.sessions[userID]; live {
			continue
		}
		if l.TryLock() {
			delete(s.locks, userID)
			l.Unlock()
		}
	}

	if evicted > 0 {
		metrics.SessionsActive.Set(float64(len(s.sessions)))
		metrics.SessionsEvictedTotal.Add(float64(evicted))
	}
	return evicted
}
