package memo

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"
)

const defaultShards = 16

// Cache holds one entry per namespaced key for the lifetime of the process.
// Entries are never evicted; Reset exists for tests.
type Cache struct {
	shards []*shard
	logger *logrus.Entry

	mu    sync.Mutex
	names map[string]struct{}
}

type shard struct {
	mu sync.RWMutex
	m  map[string]*entry
}

type entry struct {
	once  sync.Once
	value any
}

// Option configures a Cache.
type Option func(*Cache)

// WithShards sets the number of lock shards. Values below one are ignored.
func WithShards(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.shards = makeShards(n)
		}
	}
}

// WithLogger sets the logger used for trace output.
func WithLogger(l *logrus.Entry) Option {
	return func(c *Cache) {
		c.logger = l
	}
}

// NewCache returns an empty cache.
func NewCache(opts ...Option) *Cache {
	c := &Cache{
		shards: makeShards(defaultShards),
		names:  make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = logrus.NewEntry(logrus.StandardLogger())
	}
	c.logger = c.logger.WithField("component", "memo")

	return c
}

func makeShards(n int) []*shard {
	shards := make([]*shard, n)
	for i := range shards {
		shards[i] = &shard{m: make(map[string]*entry)}
	}
	return shards
}

func (c *Cache) shardFor(key string) *shard {
	return c.shards[xxhash.Sum64String(key)%uint64(len(c.shards))]
}

// register claims a factory namespace. Two factories sharing a name on one
// cache would hand each other's streams out, so that is a setup bug.
func (c *Cache) register(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.names[name]; ok {
		panic(fmt.Sprintf("memo: factory %q registered twice", name))
	}
	c.names[name] = struct{}{}
}

// load returns the value stored under key, running build exactly once per key.
// build runs outside the shard lock so it may call other memoized factories.
func (c *Cache) load(key string, build func() any) any {
	sh := c.shardFor(key)

	sh.mu.RLock()
	e, ok := sh.m[key]
	sh.mu.RUnlock()

	if !ok {
		// Slow path: publish an empty entry under the write lock (double-checked)
		sh.mu.Lock()
		if e, ok = sh.m[key]; !ok {
			e = &entry{}
			sh.m[key] = e
		}
		sh.mu.Unlock()
	}

	e.once.Do(func() {
		trace(c.logger, "building entry %s", key)
		e.value = build()
	})

	return e.value
}

// Len returns the number of entries across all factories.
func (c *Cache) Len() int {
	n := 0
	for _, sh := range c.shards {
		sh.mu.RLock()
		n += len(sh.m)
		sh.mu.RUnlock()
	}
	return n
}

// Namespaces returns the registered factory names, sorted.
func (c *Cache) Namespaces() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.names))
	for name := range c.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset drops every entry and namespace.
func (c *Cache) Reset() {
	for _, sh := range c.shards {
		sh.mu.Lock()
		sh.m = make(map[string]*entry)
		sh.mu.Unlock()
	}

	c.mu.Lock()
	c.names = make(map[string]struct{})
	c.mu.Unlock()
}

func trace(l *logrus.Entry, msg string, args ...any) {
	if l.Logger.IsLevelEnabled(logrus.TraceLevel) {
		l.Tracef(msg, args...)
	}
}
