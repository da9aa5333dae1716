package cache

import (
	"sync"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/google/uuid"
)

// generationKey stores the current token for a prefix inside memcached so
// all appliance processes observe the same generation.
const generationKey = "librarian" + Separator + "generation" + Separator

// Memcached caches through a remote memcached cluster. Keys are rewritten to
// include a per-prefix generation token; Invalidate rotates the token, making
// every key under the prefix unreachable rather than enumerating them.
type Memcached struct {
	client *memcache.Client

	mu          sync.Mutex
	generations map[string]string
}

// NewMemcached connects to the given memcached servers.
func NewMemcached(servers ...string) *Memcached {
	return &Memcached{
		client:      memcache.New(servers...),
		generations: make(map[string]string),
	}
}

func (c *Memcached) Get(key string) ([]byte, bool) {
	item, err := c.client.Get(c.rewrite(key))
	if err != nil {
		return nil, false
	}
	return item.Value, true
}

func (c *Memcached) Set(key string, value []byte, ttl time.Duration) {
	item := &memcache.Item{
		Key:   c.rewrite(key),
		Value: value,
	}
	if ttl > 0 {
		item.Expiration = int32(ttl / time.Second)
	}
	_ = c.client.Set(item)
}

func (c *Memcached) Delete(key string) {
	_ = c.client.Delete(c.rewrite(key))
}

func (c *Memcached) Clear() {
	_ = c.client.FlushAll()
	c.mu.Lock()
	c.generations = make(map[string]string)
	c.mu.Unlock()
}

// Invalidate rotates the generation token for prefix. Old keys stay in
// memcached until their TTLs expire but can no longer be addressed.
func (c *Memcached) Invalidate(prefix string) {
	token := uuid.NewString()
	_ = c.client.Set(&memcache.Item{Key: generationKey + prefix, Value: []byte(token)})
	c.mu.Lock()
	c.generations[prefix] = token
	c.mu.Unlock()
}

// rewrite injects the prefix generation token into a "<prefix>:<rest>" key.
func (c *Memcached) rewrite(key string) string {
	prefix := KeyPrefix(key)
	return prefix + Separator + c.generation(prefix) + key[len(prefix):]
}

func (c *Memcached) generation(prefix string) string {
	if item, err := c.client.Get(generationKey + prefix); err == nil {
		token := string(item.Value)
		c.mu.Lock()
		c.generations[prefix] = token
		c.mu.Unlock()
		return token
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if token, ok := c.generations[prefix]; ok {
		return token
	}
	token := uuid.NewString()
	c.generations[prefix] = token
	_ = c.client.Set(&memcache.Item{Key: generationKey + prefix, Value: []byte(token)})
	return token
}
