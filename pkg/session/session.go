// Package session holds short-lived state for multi-step chat interactions.
//
// A session is created when a flow starts (for example "schedule meeting X"),
// is never patched in place, and ends exactly once: completed, cancelled, or
// expired. Completion and cancellation both remove the entry under the store
// lock, so of two racing transitions only the first observes the session.
package session

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// DefaultTTL is how long a session stays live after creation.
const DefaultTTL = time.Hour

type Kind string

const (
	KindMeetingSchedule Kind = "meeting_schedule"
	KindTaskModify      Kind = "task_modify"
)

// Scope says what a Key is built from.
type Scope string

const (
	// ScopeRoom keys by (room id, actor id). Used by the form flows.
	ScopeRoom Scope = "room"
	// ScopeIdentity keys by (normalized email, normalized title). Used to match
	// provider callbacks, which carry no room or actor context.
	ScopeIdentity Scope = "identity"
)

// Key identifies a session. Room-scoped keys include the flow kind so one
// actor can have a meeting form and a task edit open in the same room.
type Key struct {
	Scope Scope
	Kind  Kind
	A     string
	B     string
}

func RoomKey(kind Kind, roomID, actorID string) Key {
	return Key{Scope: ScopeRoom, Kind: kind, A: roomID, B: actorID}
}

// IdentityKey builds the key used to match meeting-provider callbacks.
func IdentityKey(email, title string) Key {
	return Key{Scope: ScopeIdentity, Kind: KindMeetingSchedule, A: Normalize(email), B: Normalize(title)}
}

func (k Key) IsZero() bool { return k == Key{} }

func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s:%s", k.Scope, k.Kind, k.A, k.B)
}

// Normalize lowercases and trims s.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type Session struct {
	Key            Key
	Kind           Kind
	RequestedTitle string
	RoomID         string
	ActorID        string
	ActorEmail     string
	CreatedAt      time.Time
	// Pair is the key of a sibling session created by the same command.
	Pair  Key
	Extra map[string]string
}

func (s Session) clone() Session {
	if s.Extra != nil {
		extra := make(map[string]string, len(s.Extra))
		for k, v := range s.Extra {
			extra[k] = v
		}
		s.Extra = extra
	}
	return s
}

type entry struct {
	seq     uint64
	session Session
}

// Store is an in-memory, internally synchronized session table. Iteration
// order for TakeFirst is insertion order; Put on an existing key counts as a
// fresh insertion.
type Store struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	seq     uint64
	entries map[Key]entry
}

type Option func(*Store)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(ttl time.Duration, opts ...Option) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[Key]entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) TTL() time.Duration { return s.ttl }

// Put stores sess under sess.Key, replacing any previous session there.
// A zero CreatedAt is filled with the store clock.
func (s *Store) Put(sess Session) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = s.now()
	}
	s.seq++
	s.entries[sess.Key] = entry{seq: s.seq, session: sess.clone()}
	return sess
}

// Get returns the live session for key. An expired entry is purged.
func (s *Store) Get(key Key) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return Session{}, false
	}
	if s.expired(e.session, s.now()) {
		delete(s.entries, key)
		return Session{}, false
	}
	return e.session.clone(), true
}

// Remove deletes key and reports whether a session was there.
func (s *Store) Remove(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	delete(s.entries, key)
	return ok
}

// Take removes and returns the live session for key. Only one caller can
// take a given session.
func (s *Store) Take(key Key) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return Session{}, false
	}
	delete(s.entries, key)
	if s.expired(e.session, s.now()) {
		return Session{}, false
	}
	return e.session, true
}

// TakeFirst sweeps expired sessions, then removes and returns the oldest
// live session for which match returns true. match runs under the store lock
// and must not block.
func (s *Store) TakeFirst(match func(Session) bool) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)

	var (
		found Key
		best  entry
		ok    bool
	)
	for k, e := range s.entries {
		if ok && e.seq > best.seq {
			continue
		}
		if match(e.session) {
			found, best, ok = k, e, true
		}
	}
	if !ok {
		return Session{}, false
	}
	delete(s.entries, found)
	return best.session, true
}

// Sweep removes every session older than the TTL at now and returns how many
// were dropped.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(now)
}

func (s *Store) sweepLocked(now time.Time) int {
	n := 0
	for k, e := range s.entries {
		if s.expired(e.session, now) {
			delete(s.entries, k)
			n++
		}
	}
	return n
}

func (s *Store) expired(sess Session, now time.Time) bool {
	return now.Sub(sess.CreatedAt) > s.ttl
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
