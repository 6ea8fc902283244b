// Package pagecache implements the session-wide chapter page-list cache.
//
// A Cache maps chapter ids to their page locators, keeps at most MaxCached
// chapters (least recently touched first out, pinned chapters never), and
// shares one remote request between every caller waiting on the same chapter.
// Waiters cancel independently: a caller's context only bounds its own wait,
// while the shared request runs under the cache's base context.
package pagecache

import (
	"context"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/user/moku/pkg/pipeline"
	"github.com/user/moku/pkg/ports"
)

// DefaultMaxCached is the default number of chapters kept in memory.
const DefaultMaxCached = 6

// Stats counts cache activity for summaries and tests.
type Stats struct {
	Requests  int // remote ListPages calls issued
	Hits      int // fetches answered from the cache
	Shared    int // fetches that joined a request already in flight
	Failures  int // remote calls that failed
	Evictions int
}

type entry struct {
	pages   pipeline.ChapterPages
	touched uint64
}

// Cache is the chapter page-list cache. It is safe for concurrent use.
type Cache struct {
	base      context.Context
	fetcher   ports.RemoteFetcher
	logger    ports.Logger
	maxCached int

	flight singleflight.Group

	mu       sync.Mutex
	entries  map[pipeline.ChapterID]*entry
	inflight map[pipeline.ChapterID]int // waiters per outstanding request
	pinned   map[pipeline.ChapterID]struct{}
	clock    uint64
	epoch    uint64 // bumped by ClearAll
	stats    Stats
}

// New creates a Cache. Shared requests run under base, so cancelling base
// (session end) aborts them; no single caller can.
func New(base context.Context, fetcher ports.RemoteFetcher, maxCached int, logger ports.Logger) *Cache {
	if maxCached <= 0 {
		maxCached = DefaultMaxCached
	}
	return &Cache{
		base:      base,
		fetcher:   fetcher,
		logger:    logger.WithComponent("pagecache"),
		maxCached: maxCached,
		entries:   make(map[pipeline.ChapterID]*entry),
		inflight:  make(map[pipeline.ChapterID]int),
		pinned:    make(map[pipeline.ChapterID]struct{}),
	}
}

// Fetch returns the pages of chapter, from the cache when present.
//
// Concurrent fetches of the same chapter share one remote request. If ctx is
// cancelled first, Fetch returns ctx.Err() and the request keeps running for
// the other waiters. Remote failures come back as *pipeline.FetchError and
// leave nothing behind, so a later Fetch retries.
func (c *Cache) Fetch(ctx context.Context, chapter pipeline.Chapter) (pipeline.ChapterPages, error) {
	if err := ctx.Err(); err != nil {
		return pipeline.ChapterPages{}, err
	}

	c.mu.Lock()
	if e, ok := c.entries[chapter.ID]; ok {
		c.clock++
		e.touched = c.clock
		c.stats.Hits++
		c.mu.Unlock()
		c.logger.Debug("Cache hit for chapter %s", chapter.ID)
		return e.pages, nil
	}
	if c.inflight[chapter.ID] > 0 {
		c.stats.Shared++
	}
	c.inflight[chapter.ID]++
	epoch := c.epoch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.inflight[chapter.ID]--
		if c.inflight[chapter.ID] <= 0 {
			delete(c.inflight, chapter.ID)
		}
		c.mu.Unlock()
	}()

	key := string(chapter.ID) + "@" + strconv.FormatUint(epoch, 10)
	ch := c.flight.DoChan(key, func() (interface{}, error) {
		return c.load(chapter, epoch)
	})

	select {
	case <-ctx.Done():
		c.logger.Debug("Stopped waiting for chapter %s", chapter.ID)
		return pipeline.ChapterPages{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return pipeline.ChapterPages{}, res.Err
		}
		return res.Val.(pipeline.ChapterPages), nil
	}
}

// load performs the single shared remote request for a chapter and stores
// the result before the flight ends, so the chapter is never in neither place.
// A result from before the last ClearAll reaches its waiters but is not stored.
func (c *Cache) load(chapter pipeline.Chapter, epoch uint64) (pipeline.ChapterPages, error) {
	c.mu.Lock()
	if e, ok := c.entries[chapter.ID]; ok {
		c.mu.Unlock()
		return e.pages, nil
	}
	c.stats.Requests++
	c.mu.Unlock()

	c.logger.Debug("Requesting pages of chapter %s", chapter.ID)
	locators, err := c.fetcher.ListPages(c.base, chapter.ID)
	if err != nil {
		if pipeline.IsCancellation(err) {
			return pipeline.ChapterPages{}, err
		}
		c.mu.Lock()
		c.stats.Failures++
		c.mu.Unlock()
		c.logger.Warn("Failed to fetch chapter %s: %s", chapter.ID, err)
		return pipeline.ChapterPages{}, &pipeline.FetchError{Chapter: chapter.ID, Err: err}
	}
	if len(locators) == 0 {
		return pipeline.ChapterPages{}, &pipeline.FetchError{Chapter: chapter.ID, Err: pipeline.ErrEmptyChapter}
	}

	pages := pipeline.ChapterPages{
		Chapter: chapter,
		Pages:   append([]string(nil), locators...),
	}

	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		c.logger.Debug("Discarding chapter %s fetched before the cache was cleared", chapter.ID)
		return pages, nil
	}
	c.clock++
	c.entries[chapter.ID] = &entry{pages: pages, touched: c.clock}
	c.evictLocked()
	c.mu.Unlock()

	c.logger.Debug("Cached chapter %s with %d pages", chapter.ID, len(pages.Pages))
	return pages, nil
}

// Peek returns a cached chapter without touching its recency or fetching.
func (c *Cache) Peek(id pipeline.ChapterID) (pipeline.ChapterPages, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[id]; ok {
		return e.pages, true
	}
	return pipeline.ChapterPages{}, false
}

// Evict replaces the pinned set and drops least recently touched unpinned
// chapters until at most MaxCached remain. If the pinned chapters alone
// exceed the cap, the cap is exceeded rather than dropping a pinned chapter.
func (c *Cache) Evict(pinned ...pipeline.ChapterID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pinned = make(map[pipeline.ChapterID]struct{}, len(pinned))
	for _, id := range pinned {
		c.pinned[id] = struct{}{}
	}
	c.evictLocked()
}

func (c *Cache) evictLocked() {
	for len(c.entries) > c.maxCached {
		var victim pipeline.ChapterID
		var oldest uint64
		found := false
		for id, e := range c.entries {
			if _, ok := c.pinned[id]; ok {
				continue
			}
			if !found || e.touched < oldest {
				victim, oldest, found = id, e.touched, true
			}
		}
		if !found {
			return
		}
		delete(c.entries, victim)
		c.stats.Evictions++
		c.logger.Debug("Evicted chapter %s", victim)
	}
}

// InFlight reports whether a remote request for the chapter is outstanding.
func (c *Cache) InFlight(id pipeline.ChapterID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight[id] > 0
}

// Len returns the number of cached chapters.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// ClearAll drops every cached chapter and the pinned set.
// Requests already in flight still complete for their waiters, but their
// results are not cached, and later fetches start fresh requests.
func (c *Cache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.entries = make(map[pipeline.ChapterID]*entry)
	c.pinned = make(map[pipeline.ChapterID]struct{})
}
