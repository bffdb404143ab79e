// Package session keeps per-session dialogue state: whether the greeting was
// issued and the slots of the last successful structured answer.
//
// Turns on one session are serialized by a per-session mutex. Different
// sessions never contend beyond the brief map lookup.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/garyellow/unibot-go/internal/catalog"
)

// State is the dialogue memory of one session. The zero value is the start
// state.
type State struct {
	Greeted   bool
	LastSlots *catalog.Slots
}

// WithGreeted returns a copy of s with the greeting recorded.
func (s State) WithGreeted() State {
	s.Greeted = true
	return s
}

// WithLastSlots returns a copy of s remembering slots.
func (s State) WithLastSlots(slots catalog.Slots) State {
	s.LastSlots = &slots
	return s
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	if s.LastSlots != nil {
		slots := *s.LastSlots
		s.LastSlots = &slots
	}
	return s
}

type entry struct {
	mu       sync.Mutex
	state    State
	lastSeen time.Time
}

// Store holds the state of every live session.
type Store struct {
	mu       sync.Mutex
	entries  map[string]*entry
	ttl      time.Duration
	now      func() time.Time
	onUpdate func(count int)
}

// NewStore creates a store that forgets sessions idle for longer than ttl.
// A ttl of zero keeps sessions until Reset.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		entries: make(map[string]*entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// OnUpdate sets a callback invoked with the live session count after each sweep.
func (s *Store) OnUpdate(fn func(count int)) {
	s.onUpdate = fn
}

func (s *Store) entry(id string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		e = &entry{}
		s.entries[id] = e
	}
	return e
}

// Update runs fn with the session's current state while holding the session
// lock. The returned state is stored only when commit is true.
func (s *Store) Update(id string, fn func(State) (next State, commit bool)) {
	e := s.entry(id)
	e.mu.Lock()
	defer e.mu.Unlock()

	next, commit := fn(e.state.Clone())
	if commit {
		e.state = next.Clone()
	}
	e.lastSeen = s.now()
}

// Get returns a snapshot of the session's state.
func (s *Store) Get(id string) State {
	s.mu.Lock()
	e, ok := s.entries[id]
	s.mu.Unlock()
	if !ok {
		return State{}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Reset returns the session to the start state.
func (s *Store) Reset(id string) {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep drops sessions idle for longer than the TTL and returns how many it dropped.
// A session whose turn is in flight is never dropped.
func (s *Store) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	removed := 0
	for id, e := range s.entries {
		if !e.mu.TryLock() {
			continue
		}
		if !e.lastSeen.IsZero() && e.lastSeen.Before(cutoff) {
			delete(s.entries, id)
			removed++
		}
		e.mu.Unlock()
	}
	count := len(s.entries)
	s.mu.Unlock()

	if s.onUpdate != nil {
		s.onUpdate(count)
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
