// Package channels holds what the platform adapters share: inbound
// de-duplication and outbound message splitting.
package channels

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Dedupe remembers recently seen event keys. Slack delivers a mention
// both as app_mention and as message, and retries unacknowledged events,
// so adapters drop anything already seen inside the TTL.
type Dedupe struct {
	mu   sync.Mutex
	seen *expirable.LRU[string, struct{}]
}

// NewDedupe creates a cache holding at most maxSize keys for ttl.
func NewDedupe(ttl time.Duration, maxSize int) *Dedupe {
	if maxSize <= 0 {
		maxSize = 5000
	}
	return &Dedupe{seen: expirable.NewLRU[string, struct{}](maxSize, nil, ttl)}
}

// IsDuplicate reports whether key was seen within the TTL and records it otherwise.
func (d *Dedupe) IsDuplicate(key string) bool {
	if key == "" {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	// Contains ignores expiry; Peek does not.
	if _, ok := d.seen.Peek(key); ok {
		return true
	}
	d.seen.Add(key, struct{}{})
	return false
}
