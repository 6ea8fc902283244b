// Package tracker derives the reader's position from page visibility in
// continuous-scroll mode.
package tracker

import (
	"sync"

	"github.com/user/moku/pkg/pipeline"
	"github.com/user/moku/pkg/ports"
)

// Tracker keeps the set of visible pages and reports the canonical position:
// the visible page with the smallest local page number, the lower global
// index winning ties between chapters.
type Tracker struct {
	logger ports.Logger

	// emit serializes batches so callbacks see positions in order.
	emit sync.Mutex

	mu              sync.Mutex
	visible         map[pipeline.PageKey]int
	current         pipeline.PageKey
	tracking        bool
	onChapterChange func(prev, next pipeline.ChapterID)
	onPosition      func(pipeline.PageKey)
}

// New creates a Tracker.
func New(logger ports.Logger) *Tracker {
	return &Tracker{
		logger:  logger.WithComponent("tracker"),
		visible: make(map[pipeline.PageKey]int),
	}
}

// OnChapterChange sets the handler called when the tracked chapter changes.
// It runs before the new position is reported.
func (t *Tracker) OnChapterChange(fn func(prev, next pipeline.ChapterID)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChapterChange = fn
}

// OnPosition sets the handler called when the canonical position changes.
func (t *Tracker) OnPosition(fn func(pipeline.PageKey)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onPosition = fn
}

// Attach subscribes the tracker to an observer.
func (t *Tracker) Attach(observer ports.VisibilityObserver) (unsubscribe func()) {
	return observer.Subscribe(t.HandleBatch)
}

// HandleBatch applies a batch of visibility changes. Any visible fraction
// counts as intersecting.
func (t *Tracker) HandleBatch(entries []ports.VisibilityEntry) {
	t.emit.Lock()
	defer t.emit.Unlock()

	t.mu.Lock()
	for _, e := range entries {
		if e.Intersecting() {
			t.visible[e.Key] = e.GlobalIndex
		} else {
			delete(t.visible, e.Key)
		}
	}
	t.reportLocked()
}

// Retain forgets visible pages of chapters that are no longer rendered and
// renumbers the rest from the surviving chunks. Surfaces never report pages
// removed by a trim as hidden, so the window calls this after every trim.
func (t *Tracker) Retain(chunks []pipeline.StripChunk) {
	starts := make(map[pipeline.ChapterID]int, len(chunks))
	for _, c := range chunks {
		starts[c.ID] = c.StartGlobalIndex
	}

	t.emit.Lock()
	defer t.emit.Unlock()

	t.mu.Lock()
	for key := range t.visible {
		start, ok := starts[key.Chapter]
		if !ok {
			delete(t.visible, key)
			continue
		}
		t.visible[key] = start + key.Page - 1
	}
	t.reportLocked()
}

// reportLocked publishes the canonical position if it moved. It is called
// with mu and emit held and releases mu.
func (t *Tracker) reportLocked() {
	best, found := t.pickLocked()
	if !found || (t.tracking && best == t.current) {
		t.mu.Unlock()
		return
	}

	prev := t.current
	changed := t.tracking && prev.Chapter != best.Chapter
	onChapterChange := t.onChapterChange
	onPosition := t.onPosition
	t.mu.Unlock()

	if changed {
		t.logger.Debug("Chapter changed from %s to %s", prev.Chapter, best.Chapter)
		if onChapterChange != nil {
			onChapterChange(prev.Chapter, best.Chapter)
		}
	}

	t.mu.Lock()
	t.current = best
	t.tracking = true
	t.mu.Unlock()

	if onPosition != nil {
		onPosition(best)
	}
}

func (t *Tracker) pickLocked() (pipeline.PageKey, bool) {
	var best pipeline.PageKey
	bestGlobal := 0
	found := false
	for key, global := range t.visible {
		if !found || key.Page < best.Page || (key.Page == best.Page && global < bestGlobal) {
			best, bestGlobal, found = key, global, true
		}
	}
	return best, found
}

// Current returns the tracked position.
func (t *Tracker) Current() (pipeline.PageKey, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current, t.tracking
}

// Reset forgets visible pages and sets the position without callbacks.
// Hosts call it after the window is replaced.
func (t *Tracker) Reset(position pipeline.PageKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.visible = make(map[pipeline.PageKey]int)
	t.current = position
	t.tracking = position.Chapter != ""
}
