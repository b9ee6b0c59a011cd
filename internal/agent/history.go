package agent

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/nextlevelbuilder/jibot/internal/providers"
)

// DefaultHistoryTurns is the per-user window when none is configured.
const DefaultHistoryTurns = 10

// DefaultMaxSessions bounds how many users keep a window in memory.
const DefaultMaxSessions = 1000

// Turn is one message in a conversation window.
type Turn struct {
	Role      string // "user" or "assistant"
	Content   string
	Timestamp time.Time
}

// History is a fixed-capacity conversation window. Appending past capacity
// drops the oldest turns. Safe for concurrent use.
type History struct {
	mu       sync.Mutex
	turns    []Turn
	capacity int
}

// NewHistory creates an empty window holding at most capacity turns.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryTurns
	}
	return &History{capacity: capacity}
}

// Append records a turn, trimming the oldest ones past capacity.
func (h *History) Append(role, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.turns = append(h.turns, Turn{Role: role, Content: content, Timestamp: time.Now()})
	if over := len(h.turns) - h.capacity; over > 0 {
		h.turns = append(h.turns[:0:0], h.turns[over:]...)
	}
}

// Turns returns a copy of the window, oldest first.
func (h *History) Turns() []Turn {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Len returns the number of turns held.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}

// Capacity returns the window size.
func (h *History) Capacity() int { return h.capacity }

// Reset empties the window.
func (h *History) Reset() {
	h.mu.Lock()
	h.turns = nil
	h.mu.Unlock()
}

// Messages renders the window as chat messages.
func (h *History) Messages() []providers.Message {
	turns := h.Turns()
	msgs := make([]providers.Message, len(turns))
	for i, t := range turns {
		msgs[i] = providers.Message{Role: t.Role, Content: t.Content}
	}
	return msgs
}

// SessionStore owns one History per user key. The least recently used
// windows are evicted once maxSessions is exceeded.
type SessionStore struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *History]
	turns int
}

// NewSessionStore creates a store of windows with the given turn capacity.
func NewSessionStore(maxSessions, turns int) *SessionStore {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	if turns <= 0 {
		turns = DefaultHistoryTurns
	}
	cache, err := lru.New[string, *History](maxSessions)
	if err != nil {
		// only returned for a non-positive size
		panic(err)
	}
	return &SessionStore{cache: cache, turns: turns}
}

// Get returns the window for key, creating it on first use.
func (s *SessionStore) Get(key string) *History {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.cache.Get(key); ok {
		return h
	}
	h := NewHistory(s.turns)
	s.cache.Add(key, h)
	return h
}

// Reset drops the window for key.
func (s *SessionStore) Reset(key string) {
	s.cache.Remove(key)
}

// Len returns the number of tracked users.
func (s *SessionStore) Len() int {
	return s.cache.Len()
}
