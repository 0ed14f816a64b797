package search

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedResults is the payload of one cache entry: the filtered-and-scored
// candidate list (pre-pagination) plus the fetch signals pagination depends
// on. MaybeMore is kept so a cache hit reproduces the same conservative
// hasMore a fresh fetch would.
type CachedResults struct {
	Results   []ScoredResult
	Degraded  bool
	MaybeMore bool
}

// cacheEntry wraps CachedResults with its expiry, so that successive page
// requests for the same query reuse one remote fetch.
type cacheEntry struct {
	CachedResults
	expiresAt time.Time
}

// ResultCache is a short-TTL cache keyed by (normalized query, filters,
// caller). It is purely an optimization: the pipeline behaves identically
// with it disabled. The underlying LRU is safe for concurrent use.
type ResultCache struct {
	entries *lru.Cache[[32]byte, *cacheEntry]
	ttl     time.Duration
	now     func() time.Time
}

// NewResultCache creates a ResultCache holding up to size entries, each
// valid for ttl after insertion.
func NewResultCache(size int, ttl time.Duration) (*ResultCache, error) {
	entries, err := lru.New[[32]byte, *cacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}
	return &ResultCache{
		entries: entries,
		ttl:     ttl,
		now:     time.Now,
	}, nil
}

// Key derives the cache key from every request attribute that affects the
// pre-pagination result set. Offset and limit are deliberately excluded, and
// the filter slices are hashed in sorted order so reordered but logically
// identical filters share one entry.
func (c *ResultCache) Key(q *Query) [32]byte {
	types := make([]string, 0, len(q.TypeFilter))
	for _, t := range q.TypeFilter {
		types = append(types, string(t))
	}
	sort.Strings(types)
	tags := append([]string(nil), q.TagFilter...)
	sort.Strings(tags)

	var b strings.Builder
	b.WriteString("tokens=")
	b.WriteString(strings.Join(q.Tokens, ","))
	b.WriteString(";types=")
	b.WriteString(strings.Join(types, ","))
	b.WriteString(";tags=")
	b.WriteString(strings.Join(tags, ","))
	b.WriteString(";from=")
	if q.DateFrom != nil {
		b.WriteString(q.DateFrom.UTC().Format(time.RFC3339Nano))
	}
	b.WriteString(";to=")
	if q.DateTo != nil {
		b.WriteString(q.DateTo.UTC().Format(time.RFC3339Nano))
	}
	b.WriteString(";container=")
	b.WriteString(q.ContainerTag)
	b.WriteString(";caller=")
	b.WriteString(q.CallerID)
	return sha256.Sum256([]byte(b.String()))
}

// Get returns the cached result set for the query, or ok=false on a miss or
// an expired entry. Expired entries are evicted on read.
func (c *ResultCache) Get(q *Query) (CachedResults, bool) {
	key := c.Key(q)
	entry, ok := c.entries.Get(key)
	if !ok {
		return CachedResults{}, false
	}
	if c.now().After(entry.expiresAt) {
		c.entries.Remove(key)
		return CachedResults{}, false
	}
	return entry.CachedResults, true
}

// Put stores the filtered-and-scored result set for the query.
func (c *ResultCache) Put(q *Query, results CachedResults) {
	c.entries.Add(c.Key(q), &cacheEntry{
		CachedResults: results,
		expiresAt:     c.now().Add(c.ttl),
	})
}

// PurgeExpired evicts every expired entry so stale results don't pin LRU
// slots between reads. Returns the number of entries removed.
func (c *ResultCache) PurgeExpired() int {
	removed := 0
	now := c.now()
	for _, key := range c.entries.Keys() {
		entry, ok := c.entries.Peek(key)
		if ok && now.After(entry.expiresAt) {
			c.entries.Remove(key)
			removed++
		}
	}
	return removed
}

// Len returns the number of live entries, expired or not.
func (c *ResultCache) Len() int {
	return c.entries.Len()
}
