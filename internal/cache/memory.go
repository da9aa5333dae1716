package cache

import (
	"sort"
	"strings"
	"sync"
	"time"
)

type entry struct {
	value   []byte
	expires time.Time
	score   int64
}

func (e *entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

// InMemory is a mutex-guarded map backend. Expired entries are purged lazily
// on Get; variants tracking per-entry accounting hook the purge.
type InMemory struct {
	mu      sync.Mutex
	entries map[string]*entry
	purged  func(*entry)
}

// NewInMemory returns an unbounded in-memory backend.
func NewInMemory() *InMemory {
	return &InMemory{entries: make(map[string]*entry)}
}

func (c *InMemory) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.get(key)
}

func (c *InMemory) get(key string) ([]byte, bool) {
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if e.expired(time.Now()) {
		delete(c.entries, key)
		if c.purged != nil {
			c.purged(e)
		}
		return nil, false
	}
	e.score++
	return e.value, true
}

func (c *InMemory) Set(key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(key, value, ttl)
}

func (c *InMemory) set(key string, value []byte, ttl time.Duration) {
	e := &entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = time.Now().Add(ttl)
	}
	c.entries[key] = e
}

func (c *InMemory) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *InMemory) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

// Invalidate removes every key beginning with prefix in a single call.
func (c *InMemory) Invalidate(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}

// ScoredInMemory bounds the entry count, evicting the least-used key when a
// new key arrives at capacity. Ties break on lexical key order so eviction is
// deterministic within a run.
type ScoredInMemory struct {
	InMemory
	limit int
}

// NewScoredInMemory returns a count-capped backend. A limit <= 0 means
// unbounded.
func NewScoredInMemory(limit int) *ScoredInMemory {
	return &ScoredInMemory{InMemory: InMemory{entries: make(map[string]*entry)}, limit: limit}
}

func (c *ScoredInMemory) Set(key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.limit > 0 {
		if _, exists := c.entries[key]; !exists && len(c.entries) >= c.limit {
			c.evict(1)
		}
	}
	c.set(key, value, ttl)
}

// evict removes n entries with the lowest access scores.
func (c *InMemory) evict(n int) {
	if n <= 0 || len(c.entries) == 0 {
		return
	}
	type scored struct {
		key   string
		score int64
	}
	candidates := make([]scored, 0, len(c.entries))
	for key, e := range c.entries {
		candidates = append(candidates, scored{key: key, score: e.score})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score < candidates[j].score
		}
		return candidates[i].key < candidates[j].key
	})
	if n > len(candidates) {
		n = len(candidates)
	}
	for _, victim := range candidates[:n] {
		delete(c.entries, victim.key)
	}
}

// SizeScoredInMemory bounds the total stored byte size instead of the entry
// count; eviction policy matches ScoredInMemory.
type SizeScoredInMemory struct {
	InMemory
	maxBytes int64
	used     int64
}

// NewSizeScoredInMemory returns a size-capped backend. A cap <= 0 means
// unbounded.
func NewSizeScoredInMemory(maxBytes int64) *SizeScoredInMemory {
	c := &SizeScoredInMemory{InMemory: InMemory{entries: make(map[string]*entry)}, maxBytes: maxBytes}
	c.purged = func(e *entry) { c.used -= int64(len(e.value)) }
	return c
}

func (c *SizeScoredInMemory) Set(key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.maxBytes > 0 && int64(len(value)) > c.maxBytes {
		return
	}
	if old, exists := c.entries[key]; exists {
		c.used -= int64(len(old.value))
		delete(c.entries, key)
	}
	if c.maxBytes > 0 {
		for c.used+int64(len(value)) > c.maxBytes && len(c.entries) > 0 {
			c.evictLowestTracked()
		}
	}
	c.set(key, value, ttl)
	c.used += int64(len(value))
}

func (c *SizeScoredInMemory) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.used -= int64(len(e.value))
		delete(c.entries, key)
	}
}

func (c *SizeScoredInMemory) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.used = 0
}

func (c *SizeScoredInMemory) Invalidate(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if strings.HasPrefix(key, prefix) {
			c.used -= int64(len(e.value))
			delete(c.entries, key)
		}
	}
}

func (c *SizeScoredInMemory) evictLowestTracked() {
	var victim string
	var victimScore int64 = -1
	for key, e := range c.entries {
		if victimScore < 0 || e.score < victimScore || (e.score == victimScore && key < victim) {
			victim = key
			victimScore = e.score
		}
	}
	if victim != "" {
		c.used -= int64(len(c.entries[victim].value))
		delete(c.entries, victim)
	}
}
