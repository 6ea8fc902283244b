// Package strip implements the bounded continuous-scroll window.
//
// The window holds at most Size consecutive chapters. When the end-of-content
// sentinel comes within the lead distance of the viewport, the chapter after
// the last chunk is fetched and appended. Appending past Size drops the oldest
// chunk, and the scroll position is adjusted by the height that vanished from
// the top so the visible content stays put.
package strip

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/user/moku/pkg/pipeline"
	"github.com/user/moku/pkg/ports"
)

const (
	// DefaultSize is the maximum number of chapters in the window.
	DefaultSize = 3
	// DefaultLeadDistance is how close, in pixels, the sentinel must come
	// to the viewport before the next chapter is appended.
	DefaultLeadDistance = 1500.0
)

// PageSource provides chapter page lists.
type PageSource interface {
	Fetch(ctx context.Context, chapter pipeline.Chapter) (pipeline.ChapterPages, error)
}

// Prewarmer measures page aspects ahead of time.
type Prewarmer interface {
	Prewarm(locators []string) <-chan struct{}
}

// AdvanceFunc changes the active chapter when the sentinel is reached
// outside append mode.
type AdvanceFunc func(ctx context.Context, next pipeline.Chapter) error

// TrimFunc receives the chunks that survived a trim, with rebased start
// indices. Pages of dropped chapters are gone from the surface.
type TrimFunc func(kept []pipeline.StripChunk)

// Config holds window parameters.
type Config struct {
	Size         int
	LeadDistance float64
	// Append grows the window at the sentinel. Without it the window holds
	// only the active chapter and the sentinel calls the AdvanceFunc.
	Append bool
}

// DefaultConfig returns Config with default values.
func DefaultConfig() Config {
	return Config{
		Size:         DefaultSize,
		LeadDistance: DefaultLeadDistance,
		Append:       true,
	}
}

// Snapshot is the debug view of the window.
type Snapshot struct {
	Chunks    []pipeline.StripChunk `json:"chunks"`
	ScrollTop float64               `json:"scroll_top"`
}

// Window is the continuous-scroll window. It is safe for concurrent use;
// appends and renders are serialized.
type Window struct {
	source  PageSource
	warm    Prewarmer
	surface ports.ScrollSurface
	sink    ports.DebugSink
	logger  ports.Logger

	mu         sync.Mutex
	cfg        Config
	chapters   []pipeline.Chapter
	chunks     []pipeline.StripChunk
	claimed    map[pipeline.ChapterID]struct{}
	generation uint64
	onAdvance  AdvanceFunc
	onTrim     TrimFunc
	trims      int
}

// New creates a Window rendering to surface.
func New(source PageSource, warm Prewarmer, surface ports.ScrollSurface, sink ports.DebugSink, cfg Config, logger ports.Logger) *Window {
	if cfg.Size <= 0 {
		cfg.Size = DefaultSize
	}
	if cfg.LeadDistance <= 0 {
		cfg.LeadDistance = DefaultLeadDistance
	}
	return &Window{
		source:  source,
		warm:    warm,
		surface: surface,
		sink:    sink,
		logger:  logger.WithComponent("strip"),
		cfg:     cfg,
		claimed: make(map[pipeline.ChapterID]struct{}),
	}
}

// SetChapters replaces the ordered chapter list used to find the next chapter.
func (w *Window) SetChapters(chapters []pipeline.Chapter) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.chapters = append([]pipeline.Chapter(nil), chapters...)
}

// SetAppend switches between append mode and single-chapter mode.
// It takes effect at the next Reset.
func (w *Window) SetAppend(enabled bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cfg.Append = enabled
}

// OnAdvance sets the handler used at the sentinel outside append mode.
func (w *Window) OnAdvance(fn AdvanceFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onAdvance = fn
}

// OnTrim sets the handler called after chapters are dropped from the window.
// It runs outside the window lock.
func (w *Window) OnTrim(fn TrimFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onTrim = fn
}

// Reset makes pages the only chunk, renders it and scrolls to page.
// Appends still waiting for a fetch are discarded when they complete.
// Nothing is rendered once ctx has ended.
func (w *Window) Reset(ctx context.Context, pages pipeline.ChapterPages, page int) error {
	w.mu.Lock()
	if err := ctx.Err(); err != nil {
		w.mu.Unlock()
		return err
	}
	w.generation++
	w.claimed = map[pipeline.ChapterID]struct{}{pages.ID: {}}
	w.chunks = []pipeline.StripChunk{{
		Chapter: pages.Chapter,
		Pages:   pages.Pages,
	}}
	if err := w.surface.Render(w.chunks); err != nil {
		w.mu.Unlock()
		return err
	}
	top := 0.0
	if page > 1 {
		if y, ok := w.surface.ElementOffset(pipeline.PageKey{Chapter: pages.ID, Page: page}); ok {
			top = y
		}
	}
	w.surface.SetScrollTop(top)
	appendMode := w.cfg.Append
	w.saveLocked()
	w.mu.Unlock()

	w.logger.Debug("Window reset to chapter %s page %d", pages.ID, page)

	if !appendMode {
		return nil
	}
	return w.CheckSentinel(ctx)
}

// CheckSentinel measures the sentinel directly and triggers when it is
// within the lead distance. Hosts call it after mounting content and on scroll.
func (w *Window) CheckSentinel(ctx context.Context) error {
	w.mu.Lock()
	if len(w.chunks) == 0 {
		w.mu.Unlock()
		return nil
	}
	near := w.surface.SentinelDistance() <= w.cfg.LeadDistance
	w.mu.Unlock()

	if !near {
		return nil
	}
	return w.OnSentinel(ctx)
}

// OnSentinel handles the sentinel entering the lead distance.
//
// In append mode the next chapter is appended, repeatedly while the sentinel
// stays near. Otherwise the AdvanceFunc is called once for the next chapter.
// A chapter already claimed by an earlier trigger is never fetched again.
func (w *Window) OnSentinel(ctx context.Context) error {
	for {
		next, gen, ok := w.claimNext()
		if !ok {
			return nil
		}

		w.mu.Lock()
		appendMode := w.cfg.Append
		advance := w.onAdvance
		w.mu.Unlock()

		if !appendMode {
			if advance == nil {
				return nil
			}
			w.logger.Debug("Sentinel reached, advancing to chapter %s", next.ID)
			err := advance(ctx, next)
			if err != nil {
				w.release(next.ID, gen)
			}
			return err
		}

		appended, kept, err := w.appendChapter(ctx, next, gen)
		if kept != nil {
			w.mu.Lock()
			onTrim := w.onTrim
			w.mu.Unlock()
			if onTrim != nil {
				onTrim(kept)
			}
		}
		if err != nil || !appended {
			return err
		}

		w.mu.Lock()
		near := w.surface.SentinelDistance() <= w.cfg.LeadDistance
		w.mu.Unlock()
		if !near {
			return nil
		}
	}
}

// claimNext finds the chapter after the last chunk and claims it.
// The claim happens before any fetch, so concurrent triggers cannot both pass.
func (w *Window) claimNext() (pipeline.Chapter, uint64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.chunks) == 0 {
		return pipeline.Chapter{}, 0, false
	}
	last := w.chunks[len(w.chunks)-1]
	idx := pipeline.IndexOf(w.chapters, last.ID)
	if idx < 0 || idx+1 >= len(w.chapters) {
		return pipeline.Chapter{}, 0, false
	}
	next := w.chapters[idx+1]
	if _, ok := w.claimed[next.ID]; ok {
		return pipeline.Chapter{}, 0, false
	}
	w.claimed[next.ID] = struct{}{}
	return next, w.generation, true
}

func (w *Window) release(id pipeline.ChapterID, gen uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.generation == gen {
		delete(w.claimed, id)
	}
}

// appendChapter fetches next and adds it to the window. When the window had
// to be trimmed, kept holds a copy of the surviving chunks.
func (w *Window) appendChapter(ctx context.Context, next pipeline.Chapter, gen uint64) (appended bool, kept []pipeline.StripChunk, err error) {
	w.logger.Debug("Appending chapter %s", next.ID)

	pages, err := w.source.Fetch(ctx, next)
	if err != nil {
		w.release(next.ID, gen)
		return false, nil, err
	}
	if w.warm != nil {
		w.warm.Prewarm(pages.Pages)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.generation != gen {
		w.logger.Debug("Dropping chapter %s, window was reset", next.ID)
		return false, nil, nil
	}

	last := w.chunks[len(w.chunks)-1]
	chunks := make([]pipeline.StripChunk, len(w.chunks), len(w.chunks)+1)
	copy(chunks, w.chunks)
	chunks = append(chunks, pipeline.StripChunk{
		Chapter:          pages.Chapter,
		Pages:            pages.Pages,
		StartGlobalIndex: last.StartGlobalIndex + last.PageCount(),
	})

	if len(chunks) <= w.cfg.Size {
		if err := w.surface.Render(chunks); err != nil {
			w.release(next.ID, gen)
			return false, nil, err
		}
		w.chunks = chunks
		w.saveLocked()
		return true, nil, nil
	}

	if err := w.trimLocked(chunks); err != nil {
		return false, nil, err
	}
	return true, append([]pipeline.StripChunk(nil), w.chunks...), nil
}

// trimLocked renders chunks without the oldest ones and moves the viewport
// up by exactly the height that disappeared above the first survivor.
func (w *Window) trimLocked(chunks []pipeline.StripChunk) error {
	drop := len(chunks) - w.cfg.Size
	survivor := pipeline.PageKey{Chapter: chunks[drop].ID, Page: 1}

	top := w.surface.ScrollTop()
	before, measured := w.surface.ElementOffset(survivor)

	kept := append([]pipeline.StripChunk(nil), chunks[drop:]...)
	pipeline.Rebase(kept)

	if err := w.surface.Render(kept); err != nil {
		return err
	}

	if measured {
		after, _ := w.surface.ElementOffset(survivor)
		w.surface.SetScrollTop(top - (before - after))
	} else {
		w.logger.Warn("Could not measure chapter %s before trimming", survivor.Chapter)
	}

	for _, c := range chunks[:drop] {
		w.logger.Debug("Trimmed chapter %s from window", c.ID)
	}
	w.chunks = kept
	w.trims += drop
	w.saveLocked()
	return nil
}

func (w *Window) saveLocked() {
	if w.sink == nil || !w.sink.Enabled() {
		return
	}
	data, err := json.MarshalIndent(Snapshot{
		Chunks:    w.chunks,
		ScrollTop: w.surface.ScrollTop(),
	}, "", "  ")
	if err != nil {
		w.logger.Warn("Failed to encode window snapshot: %s", err)
		return
	}
	if err := w.sink.SaveWindowJSON(data); err != nil {
		w.logger.Warn("Failed to save window snapshot: %s", err)
	}
}

// Chunks returns a copy of the current chunks.
func (w *Window) Chunks() []pipeline.StripChunk {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]pipeline.StripChunk(nil), w.chunks...)
}

// Trims returns how many chunks have been dropped from the window.
func (w *Window) Trims() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.trims
}

// Locate maps a continuous global page index to its chapter page.
func (w *Window) Locate(globalIndex int) (pipeline.PageKey, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, c := range w.chunks {
		if globalIndex >= c.StartGlobalIndex && globalIndex < c.StartGlobalIndex+c.PageCount() {
			return pipeline.PageKey{Chapter: c.ID, Page: globalIndex - c.StartGlobalIndex + 1}, true
		}
	}
	return pipeline.PageKey{}, false
}

// GlobalIndex maps a chapter page to its continuous global page index.
func (w *Window) GlobalIndex(key pipeline.PageKey) (int, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, c := range w.chunks {
		if c.ID == key.Chapter && key.Page >= 1 && key.Page <= c.PageCount() {
			return c.StartGlobalIndex + key.Page - 1, true
		}
	}
	return 0, false
}
