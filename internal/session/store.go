package session

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"bistro/internal/agents"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// DefaultMaxSessions bounds the number of live conversations
const DefaultMaxSessions = 1000

// ErrSessionNotFound is returned for unknown or evicted sessions
var ErrSessionNotFound = errors.New("session not found")

// Factory builds the coordinator for a new session
type Factory func(sessionID string) *agents.Coordinator

// Session is one live conversation. Turns run one at a time.
type Session struct {
	ID      string
	Created time.Time

	mu         sync.Mutex
	coord      *agents.Coordinator
	now        func() time.Time
	lastActive atomic.Int64
}

// Do runs fn with exclusive access to the conversation
func (s *Session) Do(fn func(*agents.Coordinator) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch(s.now())
	return fn(s.coord)
}

// LastActive returns when the session last handled a request
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

func (s *Session) touch(t time.Time) {
	s.lastActive.Store(t.UnixNano())
}

// Stats describes the store for monitoring
type Stats struct {
	Active   int   `json:"active"`
	Capacity int   `json:"capacity"`
	Created  int64 `json:"created"`
	Deleted  int64 `json:"deleted"`
	Evicted  int64 `json:"evicted"`
	Expired  int64 `json:"expired"`
	Misses   int64 `json:"misses"`
	Resumed  int64 `json:"resumed"`
}

// Store keeps live sessions in a bounded LRU cache. The least recently used
// session is dropped when the cache is full.
type Store struct {
	cache    *lru.Cache[string, *Session]
	factory  Factory
	capacity int
	logger   *zap.Logger
	now      func() time.Time

	created atomic.Int64
	deleted atomic.Int64
	evicted atomic.Int64
	expired atomic.Int64
	misses  atomic.Int64
	resumed atomic.Int64
}

// NewStore creates a session store holding at most maxSessions conversations
func NewStore(maxSessions int, factory Factory, logger *zap.Logger) (*Store, error) {
	if factory == nil {
		return nil, errors.New("session factory is required")
	}
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{
		factory:  factory,
		capacity: maxSessions,
		logger:   logger.With(zap.String("component", "sessions")),
		now:      time.Now,
	}
	cache, err := lru.New[string, *Session](maxSessions)
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	s.cache = cache
	return s, nil
}

// Create starts a new session
func (s *Store) Create() *Session {
	id := uuid.NewString()
	now := s.now()
	sess := &Session{ID: id, Created: now, coord: s.factory(id), now: s.now}
	sess.touch(now)

	// Add reports whether it pushed out the least recently used session
	if s.cache.Add(id, sess) {
		s.evicted.Add(1)
		s.logger.Info("least recently used session evicted", zap.Int("active", s.cache.Len()))
	}
	s.created.Add(1)
	s.logger.Debug("session created", zap.String("session_id", id))
	return sess
}

// Get returns a live session and marks it as recently used
func (s *Store) Get(id string) (*Session, error) {
	sess, ok := s.cache.Get(id)
	if !ok {
		s.misses.Add(1)
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.resumed.Add(1)
	return sess, nil
}

// Delete ends a session. It reports whether the session existed.
func (s *Store) Delete(id string) bool {
	if !s.cache.Remove(id) {
		return false
	}
	s.deleted.Add(1)
	return true
}

// Len returns the number of live sessions
func (s *Store) Len() int {
	return s.cache.Len()
}

// IDs lists live sessions from oldest to newest use
func (s *Store) IDs() []string {
	return s.cache.Keys()
}

// SweepIdle drops sessions idle for longer than maxIdle and returns how many went
func (s *Store) SweepIdle(maxIdle time.Duration) int {
	if maxIdle <= 0 {
		return 0
	}
	cutoff := s.now().Add(-maxIdle)

	removed := 0
	for _, id := range s.cache.Keys() {
		sess, ok := s.cache.Peek(id)
		if !ok || !sess.LastActive().Before(cutoff) {
			continue
		}
		// A session mid-turn is still in use
		if !sess.mu.TryLock() {
			continue
		}
		if s.cache.Remove(id) {
			removed++
		}
		sess.mu.Unlock()
	}

	if removed > 0 {
		s.expired.Add(int64(removed))
		s.logger.Info("idle sessions removed", zap.Int("count", removed), zap.Int("active", s.cache.Len()))
	}
	return removed
}

// Stats returns the store counters
func (s *Store) Stats() Stats {
	return Stats{
		Active:   s.cache.Len(),
		Capacity: s.capacity,
		Created:  s.created.Load(),
		Deleted:  s.deleted.Load(),
		Evicted:  s.evicted.Load(),
		Expired:  s.expired.Load(),
		Misses:   s.misses.Load(),
		Resumed:  s.resumed.Load(),
	}
}
