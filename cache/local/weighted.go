package local

import (
	"container/list"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gaborage/tilecache/cache"
	"github.com/gaborage/tilecache/tile"
)

// RemovalCause tells a removal listener why an entry left the cache.
type RemovalCause int

const (
	// CauseExplicit means the entry was invalidated by a caller.
	CauseExplicit RemovalCause = iota
	// CauseReplaced means a put overwrote the entry under the same key.
	CauseReplaced
	// CauseSize means the entry was evicted to stay within the weight bound.
	CauseSize
	// CauseExpired means the entry outlived the configured eviction time.
	CauseExpired
)

func (c RemovalCause) String() string {
	switch c {
	case CauseExplicit:
		return "explicit"
	case CauseReplaced:
		return "replaced"
	case CauseSize:
		return "size"
	case CauseExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Evicted reports whether the removal was decided by the cache rather than a caller.
func (c RemovalCause) Evicted() bool {
	return c == CauseSize || c == CauseExpired
}

// RemovalListener receives every entry that leaves the cache. It is invoked
// after the owning segment lock has been released.
type RemovalListener func(key string, value *tile.Object, cause RemovalCause)

type entry struct {
	key      string
	value    *tile.Object
	weight   int64
	written  time.Time
	accessed time.Time
}

type removal struct {
	key   string
	value *tile.Object
	cause RemovalCause
}

// segment is one lock stripe. Its list is ordered most recently used first.
type segment struct {
	mu        sync.Mutex
	items     map[string]*list.Element
	order     *list.List
	weight    int64
	maxWeight int64
}

// weightedCache is a bounded cache whose capacity is the summed byte weight
// of its entries. Keys are spread over independently locked segments; each
// segment enforces its share of the total bound with LRU eviction.
type weightedCache struct {
	segments  []*segment
	policy    cache.EvictionPolicy
	ttl       time.Duration
	onRemoval RemovalListener
	now       func() time.Time

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

type weightedOptions struct {
	maxWeight int64
	segments  int
	policy    cache.EvictionPolicy
	ttl       time.Duration
	onRemoval RemovalListener
	clock     func() time.Time
}

func newWeightedCache(opts weightedOptions) *weightedCache {
	n := max(opts.segments, 1)
	maxWeight := max(opts.maxWeight, 0)

	c := &weightedCache{
		segments:  make([]*segment, n),
		policy:    opts.policy,
		ttl:       opts.ttl,
		onRemoval: opts.onRemoval,
		now:       opts.clock,
	}
	if c.now == nil {
		c.now = time.Now
	}

	// Shares sum exactly to maxWeight
	share, rem := maxWeight/int64(n), maxWeight%int64(n)
	for i := range c.segments {
		limit := share
		if int64(i) < rem {
			limit++
		}
		c.segments[i] = &segment{
			items:     make(map[string]*list.Element),
			order:     list.New(),
			maxWeight: limit,
		}
	}
	return c
}

func (c *weightedCache) segmentFor(key string) *segment {
	if len(c.segments) == 1 {
		return c.segments[0]
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return c.segments[h.Sum32()%uint32(len(c.segments))]
}

func (c *weightedCache) expired(e *entry, now time.Time) bool {
	switch c.policy {
	case cache.PolicyExpireAfterWrite:
		return now.Sub(e.written) >= c.ttl
	case cache.PolicyExpireAfterAccess:
		return now.Sub(e.accessed) >= c.ttl
	default:
		return false
	}
}

// get returns the value for key and records a hit or a miss.
func (c *weightedCache) get(key string) (*tile.Object, bool) {
	s := c.segmentFor(key)
	now := c.now()

	s.mu.Lock()
	el, ok := s.items[key]
	if !ok {
		s.mu.Unlock()
		c.misses.Add(1)
		return nil, false
	}

	e := el.Value.(*entry)
	if c.expired(e, now) {
		s.removeElement(el)
		s.mu.Unlock()
		c.misses.Add(1)
		c.evictions.Add(1)
		c.notify([]removal{{key: key, value: e.value, cause: CauseExpired}})
		return nil, false
	}

	e.accessed = now
	s.order.MoveToFront(el)
	value := e.value
	s.mu.Unlock()

	c.hits.Add(1)
	return value, true
}

// put inserts or overwrites key, then evicts least recently used entries of
// the segment until it is back within its bound. An entry heavier than the
// segment bound is evicted straight away.
func (c *weightedCache) put(key string, value *tile.Object, weight int64) {
	s := c.segmentFor(key)
	now := c.now()
	weight = max(weight, 0)

	var removed []removal

	s.mu.Lock()
	if el, ok := s.items[key]; ok {
		old := el.Value.(*entry)
		s.removeElement(el)
		removed = append(removed, removal{key: key, value: old.value, cause: CauseReplaced})
	}

	s.items[key] = s.order.PushFront(&entry{
		key:      key,
		value:    value,
		weight:   weight,
		written:  now,
		accessed: now,
	})
	s.weight += weight

	removed = append(removed, c.sweepExpired(s, now)...)

	for s.weight > s.maxWeight {
		oldest := s.order.Back()
		if oldest == nil {
			break
		}
		e := oldest.Value.(*entry)
		s.removeElement(oldest)
		removed = append(removed, removal{key: e.key, value: e.value, cause: CauseSize})
	}
	s.mu.Unlock()

	for _, r := range removed {
		if r.cause.Evicted() {
			c.evictions.Add(1)
		}
	}
	c.notify(removed)
}

// sweepExpired drops expired entries from the cold end of the segment and
// stops at the first live one. The caller holds s.mu.
func (c *weightedCache) sweepExpired(s *segment, now time.Time) []removal {
	if !c.policy.Expiring() {
		return nil
	}
	var removed []removal
	for el := s.order.Back(); el != nil; {
		e := el.Value.(*entry)
		if !c.expired(e, now) {
			break
		}
		prev := el.Prev()
		s.removeElement(el)
		removed = append(removed, removal{key: e.key, value: e.value, cause: CauseExpired})
		el = prev
	}
	return removed
}

// invalidate removes key if present.
func (c *weightedCache) invalidate(key string) {
	s := c.segmentFor(key)

	s.mu.Lock()
	el, ok := s.items[key]
	if !ok {
		s.mu.Unlock()
		return
	}
	e := el.Value.(*entry)
	s.removeElement(el)
	s.mu.Unlock()

	c.notify([]removal{{key: key, value: e.value, cause: CauseExplicit}})
}

// invalidateAll removes every entry, one segment at a time.
func (c *weightedCache) invalidateAll() {
	for _, s := range c.segments {
		s.mu.Lock()
		removed := make([]removal, 0, len(s.items))
		for el := s.order.Front(); el != nil; el = el.Next() {
			e := el.Value.(*entry)
			removed = append(removed, removal{key: e.key, value: e.value, cause: CauseExplicit})
		}
		s.items = make(map[string]*list.Element)
		s.order.Init()
		s.weight = 0
		s.mu.Unlock()

		c.notify(removed)
	}
}

// cleanUp drops the expired entries of every segment.
func (c *weightedCache) cleanUp() {
	if !c.policy.Expiring() {
		return
	}
	now := c.now()
	for _, s := range c.segments {
		var removed []removal

		s.mu.Lock()
		for el := s.order.Front(); el != nil; {
			next := el.Next()
			e := el.Value.(*entry)
			if c.expired(e, now) {
				s.removeElement(el)
				removed = append(removed, removal{key: e.key, value: e.value, cause: CauseExpired})
			}
			el = next
		}
		s.mu.Unlock()

		c.evictions.Add(int64(len(removed)))
		c.notify(removed)
	}
}

func (c *weightedCache) notify(removed []removal) {
	if c.onRemoval == nil {
		return
	}
	for _, r := range removed {
		c.onRemoval(r.key, r.value, r.cause)
	}
}

// weight returns the summed weight of all entries.
func (c *weightedCache) weight() int64 {
	var total int64
	for _, s := range c.segments {
		s.mu.Lock()
		total += s.weight
		s.mu.Unlock()
	}
	return total
}

// maxWeight returns the configured bound.
func (c *weightedCache) maxWeight() int64 {
	var total int64
	for _, s := range c.segments {
		total += s.maxWeight
	}
	return total
}

// len returns the number of entries.
func (c *weightedCache) len() int {
	var n int
	for _, s := range c.segments {
		s.mu.Lock()
		n += len(s.items)
		s.mu.Unlock()
	}
	return n
}

func (c *weightedCache) resetStats() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.evictions.Store(0)
}

// removeElement unlinks el. The caller holds s.mu.
func (s *segment) removeElement(el *list.Element) {
	e := el.Value.(*entry)
	s.order.Remove(el)
	delete(s.items, e.key)
	s.weight -= e.weight
}
