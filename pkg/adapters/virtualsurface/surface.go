// Package virtualsurface provides an in-memory scroll surface with a
// deterministic layout. It backs the terminal reader and engine tests.
package virtualsurface

import (
	"math"
	"sync"

	"github.com/user/moku/pkg/pipeline"
	"github.com/user/moku/pkg/ports"
)

// AspectLookup returns the aspect ratio of a page, if known.
type AspectLookup interface {
	Cached(locator string) (float64, bool)
}

// Config holds layout parameters.
type Config struct {
	ViewportWidth  float64
	ViewportHeight float64
	ChapterGap     float64 // space between consecutive chapters
	DefaultAspect  float64 // used for pages without a known aspect
}

// DefaultConfig returns Config with default values.
func DefaultConfig() Config {
	return Config{
		ViewportWidth:  700,
		ViewportHeight: 1000,
		ChapterGap:     0,
		DefaultAspect:  0.7,
	}
}

type placedPage struct {
	key    pipeline.PageKey
	global int
	top    float64
	height float64
}

// Surface lays pages out top to bottom, each as tall as the viewport width
// divided by its aspect ratio, followed by a zero-height sentinel.
type Surface struct {
	cfg     Config
	aspects AspectLookup

	mu        sync.Mutex
	pages     []placedPage
	index     map[pipeline.PageKey]int
	content   float64
	scrollTop float64
	visible   map[pipeline.PageKey]float64
	handlers  map[int]func([]ports.VisibilityEntry)
	nextID    int
	renders   int
}

// New creates a Surface. aspects may be nil.
func New(cfg Config, aspects AspectLookup) *Surface {
	def := DefaultConfig()
	if cfg.ViewportWidth <= 0 {
		cfg.ViewportWidth = def.ViewportWidth
	}
	if cfg.ViewportHeight <= 0 {
		cfg.ViewportHeight = def.ViewportHeight
	}
	if cfg.DefaultAspect <= 0 {
		cfg.DefaultAspect = def.DefaultAspect
	}
	return &Surface{
		cfg:      cfg,
		aspects:  aspects,
		index:    make(map[pipeline.PageKey]int),
		visible:  make(map[pipeline.PageKey]float64),
		handlers: make(map[int]func([]ports.VisibilityEntry)),
	}
}

// Render lays out chunks. The scroll offset is kept, clamped to the new content.
func (s *Surface) Render(chunks []pipeline.StripChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pages = s.pages[:0]
	s.index = make(map[pipeline.PageKey]int)
	y := 0.0
	for i, c := range chunks {
		if i > 0 {
			y += s.cfg.ChapterGap
		}
		for p, loc := range c.Pages {
			key := pipeline.PageKey{Chapter: c.ID, Page: p + 1}
			h := s.pageHeight(loc)
			s.index[key] = len(s.pages)
			s.pages = append(s.pages, placedPage{
				key:    key,
				global: c.StartGlobalIndex + p,
				top:    y,
				height: h,
			})
			y += h
		}
	}
	s.content = y
	s.scrollTop = s.clamp(s.scrollTop)
	s.renders++
	return nil
}

func (s *Surface) pageHeight(locator string) float64 {
	aspect := s.cfg.DefaultAspect
	if s.aspects != nil {
		if a, ok := s.aspects.Cached(locator); ok && a > 0 {
			aspect = a
		}
	}
	return s.cfg.ViewportWidth / aspect
}

func (s *Surface) clamp(y float64) float64 {
	limit := math.Max(0, s.content-s.cfg.ViewportHeight)
	return math.Min(math.Max(0, y), limit)
}

// ScrollTop returns the current viewport offset.
func (s *Surface) ScrollTop() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scrollTop
}

// SetScrollTop moves the viewport without notifying observers.
func (s *Surface) SetScrollTop(y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrollTop = s.clamp(y)
}

// ElementOffset returns the top of a rendered page.
func (s *Surface) ElementOffset(key pipeline.PageKey) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[key]
	if !ok {
		return 0, false
	}
	return s.pages[i].top, true
}

// SentinelDistance returns how far the end of content is below the viewport.
func (s *Surface) SentinelDistance() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content - (s.scrollTop + s.cfg.ViewportHeight)
}

// ContentHeight returns the total laid out height.
func (s *Surface) ContentHeight() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content
}

// Renders returns how many times Render was called.
func (s *Surface) Renders() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renders
}

// Subscribe registers a visibility handler.
func (s *Surface) Subscribe(handler func([]ports.VisibilityEntry)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.handlers[id] = handler
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.handlers, id)
	}
}

// ScrollTo moves the viewport as a user scroll would and notifies observers.
func (s *Surface) ScrollTo(y float64) {
	s.SetScrollTop(y)
	s.Notify()
}

// ScrollBy moves the viewport by dy and notifies observers.
func (s *Surface) ScrollBy(dy float64) {
	s.mu.Lock()
	s.scrollTop = s.clamp(s.scrollTop + dy)
	s.mu.Unlock()
	s.Notify()
}

// Notify recomputes visibility and sends every changed entry to observers.
func (s *Surface) Notify() {
	s.mu.Lock()
	bottom := s.scrollTop + s.cfg.ViewportHeight
	next := make(map[pipeline.PageKey]float64)
	var changed []ports.VisibilityEntry
	for _, p := range s.pages {
		overlap := math.Min(bottom, p.top+p.height) - math.Max(s.scrollTop, p.top)
		ratio := 0.0
		if overlap > 0 && p.height > 0 {
			ratio = overlap / p.height
			next[p.key] = ratio
		}
		if prev, ok := s.visible[p.key]; ok != (ratio > 0) || (ok && prev != ratio) {
			changed = append(changed, ports.VisibilityEntry{Key: p.key, GlobalIndex: p.global, Ratio: ratio})
		}
	}
	s.visible = next
	handlers := make([]func([]ports.VisibilityEntry), 0, len(s.handlers))
	for id := 0; id < s.nextID; id++ {
		if h, ok := s.handlers[id]; ok {
			handlers = append(handlers, h)
		}
	}
	s.mu.Unlock()

	if len(changed) == 0 {
		return
	}
	for _, h := range handlers {
		h(changed)
	}
}

// Visible returns the pages currently intersecting the viewport, top first.
func (s *Surface) Visible() []ports.VisibilityEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	bottom := s.scrollTop + s.cfg.ViewportHeight
	var out []ports.VisibilityEntry
	for _, p := range s.pages {
		overlap := math.Min(bottom, p.top+p.height) - math.Max(s.scrollTop, p.top)
		if overlap > 0 && p.height > 0 {
			out = append(out, ports.VisibilityEntry{Key: p.key, GlobalIndex: p.global, Ratio: overlap / p.height})
		}
	}
	return out
}

var (
	_ ports.ScrollSurface      = (*Surface)(nil)
	_ ports.VisibilityObserver = (*Surface)(nil)
)
