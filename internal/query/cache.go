package query

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
)

type entry struct {
	value   any
	expires time.Time
}

// cache is a size and TTL bounded store of read results, partitioned by the acting user. Entries
// of a key are dropped for every user at once on invalidation.
type cache struct {
	entries *lru.Cache
	ttl     time.Duration
	now     func() time.Time

	mu          sync.Mutex
	generations map[Key]uint64
	scopes      map[string]uint64
}

type generation struct {
	key   uint64
	scope uint64
}

func newCache(size int, ttl time.Duration) (*cache, error) {
	entries, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &cache{
		entries:     entries,
		ttl:         ttl,
		now:         time.Now,
		generations: make(map[Key]uint64),
		scopes:      make(map[string]uint64),
	}, nil
}

func entryKey(user uuid.UUID, key Key) string {
	return user.String() + "|" + key.String()
}

func (c *cache) get(user uuid.UUID, key Key) (any, bool) {
	raw, ok := c.entries.Get(entryKey(user, key))
	if !ok {
		return nil, false
	}
	e := raw.(entry)
	if c.now().After(e.expires) {
		c.entries.Remove(entryKey(user, key))
		return nil, false
	}
	return e.value, true
}

func (c *cache) generation(key Key) generation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return generation{key: c.generations[key], scope: c.scopes[key.Scope]}
}

// put stores value unless the key was invalidated after gen was read, so a fetch racing a write
// never repopulates the cache with pre-write data.
func (c *cache) put(user uuid.UUID, key Key, gen generation, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[key] != gen.key || c.scopes[key.Scope] != gen.scope {
		return
	}
	c.entries.Add(entryKey(user, key), entry{value: value, expires: c.now().Add(c.ttl)})
}

func (c *cache) invalidate(key Key) {
	c.mu.Lock()
	c.generations[key]++
	c.mu.Unlock()

	suffix := "|" + key.String()
	for _, k := range c.entries.Keys() {
		if s, ok := k.(string); ok && strings.HasSuffix(s, suffix) {
			c.entries.Remove(k)
		}
	}
}

func (c *cache) invalidateScope(scope string) {
	c.mu.Lock()
	c.scopes[scope]++
	c.mu.Unlock()

	marker := "|" + scope + "/"
	for _, k := range c.entries.Keys() {
		if s, ok := k.(string); ok && strings.Contains(s, marker) {
			c.entries.Remove(k)
		}
	}
}
