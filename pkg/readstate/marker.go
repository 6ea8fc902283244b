// Package readstate marks chapters read on the remote as a fire-and-forget
// side effect of reading.
package readstate

import (
	"context"
	"sync"
	"time"

	"github.com/user/moku/pkg/pipeline"
	"github.com/user/moku/pkg/ports"
)

// DefaultTimeout bounds a single mark-read request.
const DefaultTimeout = 15 * time.Second

// Marker sends mark-read requests in the background. Failures are logged and
// forgotten; a chapter is only sent again if it is marked again later.
type Marker struct {
	base    context.Context
	fetcher ports.RemoteFetcher
	logger  ports.Logger
	timeout time.Duration

	wg sync.WaitGroup

	mu       sync.Mutex
	pending  map[pipeline.ChapterID]struct{}
	marked   []pipeline.ChapterID
	done     map[pipeline.ChapterID]struct{}
	failures int
}

// New creates a Marker. Requests run under base and end with it.
func New(base context.Context, fetcher ports.RemoteFetcher, timeout time.Duration, logger ports.Logger) *Marker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Marker{
		base:    base,
		fetcher: fetcher,
		logger:  logger.WithComponent("readstate"),
		timeout: timeout,
		pending: make(map[pipeline.ChapterID]struct{}),
		done:    make(map[pipeline.ChapterID]struct{}),
	}
}

// Mark requests that chapter be marked read and returns immediately.
// Chapters already marked or being marked are skipped.
func (m *Marker) Mark(chapter pipeline.ChapterID) {
	m.mu.Lock()
	if _, ok := m.done[chapter]; ok {
		m.mu.Unlock()
		return
	}
	if _, ok := m.pending[chapter]; ok {
		m.mu.Unlock()
		return
	}
	m.pending[chapter] = struct{}{}
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ctx, cancel := context.WithTimeout(m.base, m.timeout)
		defer cancel()

		err := m.fetcher.MarkRead(ctx, chapter)

		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.pending, chapter)
		if err != nil {
			if !pipeline.IsCancellation(err) || m.base.Err() == nil {
				m.failures++
				m.logger.Warn("Failed to mark chapter %s read: %s", chapter, err)
			}
			return
		}
		m.done[chapter] = struct{}{}
		m.marked = append(m.marked, chapter)
		m.logger.Debug("Marked chapter %s read", chapter)
	}()
}

// Wait blocks until every request sent so far has finished.
func (m *Marker) Wait() {
	m.wg.Wait()
}

// Marked returns the chapters successfully marked read, in completion order.
func (m *Marker) Marked() []pipeline.ChapterID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]pipeline.ChapterID(nil), m.marked...)
}

// Failures returns how many mark-read requests failed.
func (m *Marker) Failures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures
}
