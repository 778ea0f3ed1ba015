package cache

import (
	"container/list"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/jonwraymond/respcache/observe"
)

// entryOverhead approximates the bookkeeping bytes per entry (list element,
// map slots, timestamps) for the memory estimate.
const entryOverhead = 96

// genStripes is the number of invalidation counters tags are hashed onto.
// A collision only makes a conditional write skip spuriously.
const genStripes = 256

// Generation is an opaque snapshot of the invalidation state of a tag set,
// taken with TagGeneration and checked by SetWithTagsIfCurrent.
type Generation uint64

// StoreConfig configures a Store.
type StoreConfig struct {
	// Name identifies the pool in stats, hooks and logs.
	// Default: "general"
	Name string

	// Policy controls default and maximum TTLs.
	// Default: DefaultPolicy()
	Policy Policy

	// MaxEntries bounds the number of entries. When a write pushes the store
	// past the bound, expired entries are dropped first, then the least
	// recently used. Zero means unbounded.
	MaxEntries int

	// CleanupInterval enables a background sweep of expired entries.
	// Zero disables it; lazy expiry on read still applies.
	CleanupInterval time.Duration

	// Clock returns the current time. Default: time.Now
	Clock func() time.Time

	// Hooks receives cache events. Default: NopHooks
	Hooks Hooks

	// Logger receives sweep and eviction logs. Default: no-op
	Logger observe.Logger
}

// entry is the value held by the LRU list elements. The key is kept here
// because eviction starts from list nodes.
type entry struct {
	key       string
	value     []byte
	tags      []string
	createdAt time.Time
	expiresAt time.Time
	size      int64
}

// Store is a concurrency-safe in-memory key/value store with per-entry TTL,
// a tag index and hit/miss statistics.
//
// Every mutating operation updates the primary map, the recency list, the
// tag index and the counters inside one critical section, so a reader never
// sees an entry without its tags or a tag pointing at a missing key.
type Store struct {
	name       string
	policy     Policy
	maxEntries int
	now        func() time.Time
	hooks      Hooks
	logger     observe.Logger

	mu          sync.Mutex
	items       map[string]*list.Element
	lru         *list.List // Front = most recently used
	tags        map[string]map[string]struct{}
	memory      int64
	hits        uint64
	misses      uint64
	evictions   uint64
	expirations uint64
	tagGens     [genStripes]uint64
	clearGen    uint64

	cleanupEvery time.Duration
	stop         context.CancelFunc
	wg           sync.WaitGroup
	closeOnce    sync.Once
}

// NewStore creates a store and starts the background sweep if configured.
// Call Close to stop it.
func NewStore(cfg StoreConfig) *Store {
	if cfg.Name == "" {
		cfg.Name = "general"
	}
	if cfg.Policy == (Policy{}) {
		cfg.Policy = DefaultPolicy()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Hooks == nil {
		cfg.Hooks = NopHooks{}
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NewNopLogger()
	}

	s := &Store{
		name:         cfg.Name,
		policy:       cfg.Policy,
		maxEntries:   cfg.MaxEntries,
		now:          cfg.Clock,
		hooks:        cfg.Hooks,
		logger:       cfg.Logger,
		items:        make(map[string]*list.Element),
		lru:          list.New(),
		tags:         make(map[string]map[string]struct{}),
		cleanupEvery: cfg.CleanupInterval,
	}

	if s.cleanupEvery > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		s.stop = cancel
		s.wg.Add(1)
		go s.expiryLoop(ctx)
	}

	return s
}

// Name returns the pool name.
func (s *Store) Name() string {
	return s.name
}

// Policy returns the store's TTL policy.
func (s *Store) Policy() Policy {
	return s.policy
}

// Get retrieves a value. An expired entry found here is removed and counted
// as a miss.
func (s *Store) Get(_ context.Context, key string) ([]byte, bool) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.items[key]
	if !ok {
		s.misses++
		s.hooks.Miss(s.name)
		return nil, false
	}

	e := el.Value.(*entry)
	if !now.Before(e.expiresAt) {
		s.removeLocked(el)
		s.expirations++
		s.misses++
		s.hooks.Evicted(s.name, "expired")
		s.hooks.Miss(s.name)
		return nil, false
	}

	s.lru.MoveToFront(el)
	s.hits++
	s.hooks.Hit(s.name)

	// Never hand out the stored slice.
	return cloneBytes(e.value), true
}

// Contains reports whether key holds a live entry. It does not touch the
// counters or the recency order.
func (s *Store) Contains(key string) bool {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.items[key]
	if !ok {
		return false
	}
	return now.Before(el.Value.(*entry).expiresAt)
}

// Set stores an untagged value. ttl <= 0 selects the policy default.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	s.SetWithTags(ctx, key, value, nil, ttl)
}

// SetWithTags stores a value indexed under tags, replacing any previous
// value, TTL and tag set for key.
func (s *Store) SetWithTags(_ context.Context, key string, value []byte, tags []string, ttl time.Duration) {
	now := s.now()
	e := s.newEntry(now, key, value, tags, ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertLocked(now, e)
}

// TagGeneration snapshots the invalidation state of tags. Any
// InvalidateByTag of one of them, or a Clear, moves it on.
func (s *Store) TagGeneration(tags []string) Generation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generationLocked(normalizeTags(tags))
}

// SetWithTagsIfCurrent stores like SetWithTags only when no tag in tags was
// invalidated, and the store not cleared, since gen was taken. A value read
// from its source before a concurrent invalidation is thereby never cached
// after it. Reports whether the value was stored.
func (s *Store) SetWithTagsIfCurrent(_ context.Context, key string, value []byte, tags []string, ttl time.Duration, gen Generation) bool {
	now := s.now()
	e := s.newEntry(now, key, value, tags, ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generationLocked(e.tags) != gen {
		return false
	}
	s.insertLocked(now, e)
	return true
}

// newEntry builds an entry outside the lock to keep the critical section short.
func (s *Store) newEntry(now time.Time, key string, value []byte, tags []string, ttl time.Duration) *entry {
	e := &entry{
		key:       key,
		value:     cloneBytes(value),
		tags:      normalizeTags(tags),
		createdAt: now,
		expiresAt: now.Add(s.policy.EffectiveTTL(ttl)),
	}
	e.size = e.estimateSize()
	return e
}

func (s *Store) insertLocked(now time.Time, e *entry) {
	if el, ok := s.items[e.key]; ok {
		s.removeLocked(el)
	}

	s.items[e.key] = s.lru.PushFront(e)
	for _, tag := range e.tags {
		keys, ok := s.tags[tag]
		if !ok {
			keys = make(map[string]struct{})
			s.tags[tag] = keys
		}
		keys[e.key] = struct{}{}
	}
	s.memory += e.size
	s.hooks.Stored(s.name, len(e.value))

	s.evictIfNeededLocked(now)
}

// generationLocked sums the counters of the distinct stripes tags hash to.
// Counters only grow, so the sum changes whenever one of them does.
func (s *Store) generationLocked(tags []string) Generation {
	gen := s.clearGen
	var seen [genStripes]bool
	for _, tag := range tags {
		i := tagStripe(tag)
		if !seen[i] {
			seen[i] = true
			gen += s.tagGens[i]
		}
	}
	return Generation(gen)
}

func tagStripe(tag string) uint64 {
	return xxhash.Sum64String(tag) % genStripes
}

// Delete removes key. Reports whether it was present.
func (s *Store) Delete(_ context.Context, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.items[key]
	if !ok {
		return false
	}
	s.removeLocked(el)
	return true
}

// InvalidateByTag removes every key indexed under tag and returns how many
// were removed. An unknown tag removes nothing.
func (s *Store) InvalidateByTag(ctx context.Context, tag string) int {
	s.mu.Lock()

	// Bumped even when nothing is indexed: a miss for this tag may be in
	// flight and must not store what it read before now.
	s.tagGens[tagStripe(tag)]++

	indexed, ok := s.tags[tag]
	if !ok {
		s.mu.Unlock()
		return 0
	}

	keys := make([]string, 0, len(indexed))
	for key := range indexed {
		keys = append(keys, key)
	}

	removed := 0
	for _, key := range keys {
		if el, ok := s.items[key]; ok {
			s.removeLocked(el)
			removed++
		}
	}
	s.hooks.Invalidated(s.name, tag, removed)
	s.mu.Unlock()

	s.logger.Debug(ctx, "cache tag invalidated",
		observe.Field{Key: "pool", Value: s.name},
		observe.Field{Key: "tag", Value: tag},
		observe.Field{Key: "removed", Value: removed},
	)
	return removed
}

// Clear empties the store and returns the number of entries it removed,
// counted under the same lock. Cumulative hit and miss counters are kept.
func (s *Store) Clear(ctx context.Context) int {
	s.mu.Lock()
	n := len(s.items)
	s.clearGen++
	s.items = make(map[string]*list.Element)
	s.lru.Init()
	s.tags = make(map[string]map[string]struct{})
	s.memory = 0
	s.mu.Unlock()

	s.logger.Info(ctx, "cache cleared",
		observe.Field{Key: "pool", Value: s.name},
		observe.Field{Key: "removed", Value: n},
	)
	return n
}

// Len returns the number of stored entries, including expired entries that
// have not been swept yet.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Keys returns stored keys from most to least recently used.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, s.lru.Len())
	for el := s.lru.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*entry).key)
	}
	return out
}

// TagKeys returns the sorted keys currently indexed under tag.
func (s *Store) TagKeys(tag string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.tags[tag]))
	for key := range s.tags[tag] {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Stats returns a snapshot of the store counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Pool:        s.name,
		Entries:     len(s.items),
		Tags:        len(s.tags),
		Hits:        s.hits,
		Misses:      s.misses,
		HitRate:     hitRate(s.hits, s.misses),
		MemoryUsage: s.memory,
		Evictions:   s.evictions,
		Expirations: s.expirations,
		Capacity:    s.maxEntries,
	}
}

// ResetStats zeroes the cumulative counters. Entries are untouched.
func (s *Store) ResetStats() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hits = 0
	s.misses = 0
	s.evictions = 0
	s.expirations = 0
}

// Close stops the background sweep. The store stays usable.
// Close is safe to call multiple times.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		if s.stop != nil {
			s.stop()
			s.wg.Wait()
		}
	})
	return nil
}

// removeLocked drops an entry from every structure. Tags left without keys
// are pruned from the index.
func (s *Store) removeLocked(el *list.Element) {
	e := el.Value.(*entry)
	delete(s.items, e.key)
	s.lru.Remove(el)
	for _, tag := range e.tags {
		keys := s.tags[tag]
		delete(keys, e.key)
		if len(keys) == 0 {
			delete(s.tags, tag)
		}
	}
	s.memory -= e.size
}

func (s *Store) evictIfNeededLocked(now time.Time) {
	if s.maxEntries <= 0 || len(s.items) <= s.maxEntries {
		return
	}

	// Expired entries are already dead; reclaim them before live ones.
	s.deleteExpiredLocked(now)

	for len(s.items) > s.maxEntries {
		el := s.lru.Back()
		if el == nil {
			return
		}
		s.removeLocked(el)
		s.evictions++
		s.hooks.Evicted(s.name, "capacity")
	}
}

// deleteExpiredLocked removes all expired entries. O(n).
func (s *Store) deleteExpiredLocked(now time.Time) int {
	removed := 0
	for el := s.lru.Back(); el != nil; {
		prev := el.Prev()
		if !now.Before(el.Value.(*entry).expiresAt) {
			s.removeLocked(el)
			s.expirations++
			s.hooks.Evicted(s.name, "expired")
			removed++
		}
		el = prev
	}
	return removed
}

func (e *entry) estimateSize() int64 {
	size := int64(entryOverhead + 2*len(e.key) + len(e.value))
	for _, tag := range e.tags {
		size += int64(len(tag) + len(e.key))
	}
	return size
}

// normalizeTags drops empty and duplicate tags.
func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Ensure Store implements Cache
var _ Cache = (*Store)(nil)
