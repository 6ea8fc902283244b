// Package navigator implements page and chapter navigation across the
// single, spread and continuous-scroll presentation styles.
package navigator

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/user/moku/pkg/pipeline"
	"github.com/user/moku/pkg/ports"
	"github.com/user/moku/pkg/stages/spread"
)

// DefaultPreloadDepth is how many pages past the visible group are preloaded.
const DefaultPreloadDepth = 3

// lastPage asks navigate for the final page of the chapter.
const lastPage = -1

// ChapterSource provides cached chapter page lists.
type ChapterSource interface {
	Fetch(ctx context.Context, chapter pipeline.Chapter) (pipeline.ChapterPages, error)
	Peek(id pipeline.ChapterID) (pipeline.ChapterPages, bool)
	Evict(pinned ...pipeline.ChapterID)
}

// AspectSource provides page aspect ratios.
type AspectSource interface {
	Aspects(ctx context.Context, locators []string) ([]float64, error)
	Prewarm(locators []string) <-chan struct{}
}

// Strip renders a chapter in continuous-scroll mode.
type Strip interface {
	Reset(ctx context.Context, pages pipeline.ChapterPages, page int) error
}

// ReadMarker marks chapters read in the background.
type ReadMarker interface {
	Mark(chapter pipeline.ChapterID)
}

// Config holds presentation settings.
type Config struct {
	Style             pipeline.Style
	Direction         pipeline.Direction
	OffsetFirstSpread bool
	WideThreshold     float64
	PreloadDepth      int
	AutoMarkRead      bool
}

// Deps are the collaborators of a Controller. Strip, Marker and Sink are optional.
type Deps struct {
	Chapters ChapterSource
	Aspects  AspectSource
	Decoder  ports.ImageDecoder
	Strip    Strip
	Marker   ReadMarker
	Sink     ports.DebugSink
	Logger   ports.Logger
}

// Controller owns the navigation state. Every navigation cancels the one it
// supersedes; only the latest navigation commits.
type Controller struct {
	base context.Context
	deps Deps

	logger ports.Logger

	mu        sync.Mutex
	cfg       Config
	chapters  []pipeline.Chapter
	current   pipeline.ChapterPages
	page      int
	groups    []pipeline.Group
	seq       uint64
	cancel    context.CancelFunc
	listeners []func(pipeline.NavigationState)
}

// New creates a Controller. Background prefetches run under base.
func New(base context.Context, deps Deps, cfg Config) *Controller {
	if cfg.PreloadDepth < 0 {
		cfg.PreloadDepth = 0
	}
	if cfg.WideThreshold <= 0 {
		cfg.WideThreshold = pipeline.DefaultWideThreshold
	}
	return &Controller{
		base:   base,
		deps:   deps,
		logger: deps.Logger.WithComponent("navigator"),
		cfg:    cfg,
	}
}

// SetChapters replaces the ordered chapter list.
func (c *Controller) SetChapters(chapters []pipeline.Chapter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chapters = append([]pipeline.Chapter(nil), chapters...)
}

// OnChange registers a handler called after every committed navigation.
func (c *Controller) OnChange(fn func(pipeline.NavigationState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Open shows page of chapter id. Pages outside the chapter are clamped.
func (c *Controller) Open(ctx context.Context, id pipeline.ChapterID, page int) error {
	c.mu.Lock()
	idx := pipeline.IndexOf(c.chapters, id)
	if idx < 0 {
		c.mu.Unlock()
		return pipeline.ErrUnknownChapter
	}
	chapter := c.chapters[idx]
	c.mu.Unlock()
	return c.navigate(ctx, chapter, page)
}

// Advance moves to the next or previous presentation group, crossing into
// the adjacent chapter at either end. Going forward lands on the first page,
// going backward on the last. It returns pipeline.ErrEndOfSeries when there
// is no chapter to cross into.
func (c *Controller) Advance(ctx context.Context, forward bool) error {
	c.mu.Lock()
	if c.cfg.Style == pipeline.StyleScroll {
		c.mu.Unlock()
		return pipeline.ErrScrollMode
	}
	if c.current.ID == "" {
		c.mu.Unlock()
		return ErrNotOpen
	}
	cur := c.current.Chapter
	groups := c.groups
	gi := spread.FindGroup(groups, c.page)
	idx := pipeline.IndexOf(c.chapters, cur.ID)
	var neighbor pipeline.Chapter
	hasNeighbor := false
	if forward && idx >= 0 && idx+1 < len(c.chapters) {
		neighbor, hasNeighbor = c.chapters[idx+1], true
	}
	if !forward && idx > 0 {
		neighbor, hasNeighbor = c.chapters[idx-1], true
	}
	c.mu.Unlock()

	if forward {
		if gi >= 0 && gi+1 < len(groups) {
			return c.navigate(ctx, cur, groups[gi+1].First())
		}
		if !hasNeighbor {
			return pipeline.ErrEndOfSeries
		}
		return c.navigate(ctx, neighbor, 1)
	}

	if gi > 0 {
		return c.navigate(ctx, cur, groups[gi-1].First())
	}
	if !hasNeighbor {
		return pipeline.ErrEndOfSeries
	}
	return c.navigate(ctx, neighbor, lastPage)
}

// Step moves toward a physical side, which is forward or backward depending
// on the reading direction.
func (c *Controller) Step(ctx context.Context, side pipeline.Side) error {
	c.mu.Lock()
	forward := c.cfg.Direction.Forward(side)
	c.mu.Unlock()
	return c.Advance(ctx, forward)
}

// JumpToPage shows page of the current chapter, clamped to its length.
func (c *Controller) JumpToPage(ctx context.Context, page int) error {
	c.mu.Lock()
	if c.current.ID == "" {
		c.mu.Unlock()
		return ErrNotOpen
	}
	cur := c.current.Chapter
	n := c.current.PageCount()
	c.mu.Unlock()

	if page < 1 {
		page = 1
	}
	if page > n {
		page = n
	}
	return c.navigate(ctx, cur, page)
}

// SetStyle changes the presentation style and redisplays the current page.
func (c *Controller) SetStyle(ctx context.Context, style pipeline.Style) error {
	return c.reconfigure(ctx, func(cfg *Config) { cfg.Style = style })
}

// SetDirection changes the reading direction and redisplays the current page.
func (c *Controller) SetDirection(ctx context.Context, direction pipeline.Direction) error {
	return c.reconfigure(ctx, func(cfg *Config) { cfg.Direction = direction })
}

// SetOffsetFirstSpread toggles the solo second page and regroups.
func (c *Controller) SetOffsetFirstSpread(ctx context.Context, offset bool) error {
	return c.reconfigure(ctx, func(cfg *Config) { cfg.OffsetFirstSpread = offset })
}

func (c *Controller) reconfigure(ctx context.Context, apply func(*Config)) error {
	c.mu.Lock()
	apply(&c.cfg)
	cur := c.current.Chapter
	page := c.page
	c.mu.Unlock()

	if cur.ID == "" {
		return nil
	}
	return c.navigate(ctx, cur, page)
}

// Config returns the current presentation settings.
func (c *Controller) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// SyncPosition records a position derived from visibility in
// continuous-scroll mode. It waits for nothing and is ignored in paged modes
// or for chapters no longer cached.
func (c *Controller) SyncPosition(key pipeline.PageKey) {
	c.mu.Lock()
	if c.cfg.Style != pipeline.StyleScroll {
		c.mu.Unlock()
		return
	}
	pages := c.current
	if key.Chapter != pages.ID {
		cached, ok := c.deps.Chapters.Peek(key.Chapter)
		if !ok {
			c.mu.Unlock()
			c.logger.Debug("Ignoring position in uncached chapter %s", key.Chapter)
			return
		}
		pages = cached
	}
	prev := c.current.ID
	c.current = pages
	c.page = key.Page
	c.groups = spread.Singles(pages.PageCount())
	cfg := c.cfg
	state := c.stateLocked()
	listeners := append([]func(pipeline.NavigationState){}, c.listeners...)
	c.mu.Unlock()

	c.after(prev, pages, pipeline.Group{key.Page}, cfg, false)
	c.publish(state, listeners)
}

// State returns the committed navigation state.
func (c *Controller) State() pipeline.NavigationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() pipeline.NavigationState {
	state := pipeline.NavigationState{
		Chapter:   c.current.Chapter,
		Page:      c.page,
		PageCount: c.current.PageCount(),
		Style:     c.cfg.Style,
		Direction: c.cfg.Direction,
	}
	if c.cfg.Style != pipeline.StyleScroll {
		if gi := spread.FindGroup(c.groups, c.page); gi >= 0 {
			state.Group = append(pipeline.Group(nil), c.groups[gi]...)
		}
	}
	return state
}

// Groups returns the presentation groups of the current chapter.
func (c *Controller) Groups() []pipeline.Group {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]pipeline.Group(nil), c.groups...)
}

// Close cancels the navigation in progress, if any.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// begin supersedes the previous navigation. The returned context ends when
// ctx or the base context ends, or when a later navigation begins.
func (c *Controller) begin(ctx context.Context) (context.Context, uint64, Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	navCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.base, cancel)
	c.cancel = func() {
		stop()
		cancel()
	}
	c.seq++
	return navCtx, c.seq, c.cfg
}

// navigate fetches the chapter, groups its pages, waits until the target is
// ready to display and then commits. The state never shows a page that has
// not finished decoding.
func (c *Controller) navigate(ctx context.Context, chapter pipeline.Chapter, page int) error {
	navCtx, seq, cfg := c.begin(ctx)

	pages, err := c.deps.Chapters.Fetch(navCtx, chapter)
	if err != nil {
		if !pipeline.IsCancellation(err) {
			c.logger.Error("Failed to open chapter %s: %s", chapter.ID, err)
		}
		return err
	}

	n := pages.PageCount()
	if page == lastPage || page > n {
		page = n
	}
	if page < 1 {
		page = 1
	}

	groups, err := c.group(navCtx, pages, cfg)
	if err != nil {
		return err
	}
	group := pipeline.Group{page}
	if gi := spread.FindGroup(groups, page); gi >= 0 {
		group = groups[gi]
	}

	if err := navCtx.Err(); err != nil {
		return err
	}
	if err := c.ready(navCtx, pages, page, group, cfg); err != nil {
		return err
	}
	if err := navCtx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		return context.Canceled
	}
	prev := c.current.ID
	c.current = pages
	c.page = page
	c.groups = groups
	state := c.stateLocked()
	listeners := append([]func(pipeline.NavigationState){}, c.listeners...)
	c.mu.Unlock()

	c.logger.Debug("Showing chapter %s page %d", chapter.ID, page)
	c.after(prev, pages, group, cfg, true)
	c.publish(state, listeners)
	return nil
}

func (c *Controller) group(ctx context.Context, pages pipeline.ChapterPages, cfg Config) ([]pipeline.Group, error) {
	if cfg.Style != pipeline.StyleSpread {
		return spread.Singles(pages.PageCount()), nil
	}
	aspects, err := c.deps.Aspects.Aspects(ctx, pages.Pages)
	if err != nil {
		return nil, err
	}
	return spread.ComputeGroups(pipeline.SpreadInput{
		PageCount:         pages.PageCount(),
		Aspects:           aspects,
		RightToLeft:       cfg.Direction == pipeline.RightToLeft,
		OffsetFirstSpread: cfg.OffsetFirstSpread,
		WideThreshold:     cfg.WideThreshold,
	}).Groups, nil
}

// ready waits for the target to be displayable. Decode failures leave the
// page displayable-but-broken; only cancellation stops the navigation.
// In continuous-scroll mode the strip is reset once the target page is
// decoded, unless a later navigation has begun.
func (c *Controller) ready(ctx context.Context, pages pipeline.ChapterPages, page int, group pipeline.Group, cfg Config) error {
	for _, p := range group {
		loc := pages.Locator(p)
		if _, err := c.deps.Decoder.Decode(ctx, loc); err != nil {
			if pipeline.IsCancellation(err) {
				return err
			}
			c.logger.Warn("Failed to decode page %d: %s", p, &pipeline.DecodeError{Locator: loc, Err: err})
		}
	}

	if cfg.Style != pipeline.StyleScroll || c.deps.Strip == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err := c.deps.Strip.Reset(ctx, pages, page)
	if err != nil && pipeline.IsCancellation(err) {
		return err
	}
	if err != nil {
		c.logger.Warn("Could not extend the strip after chapter %s: %s", pages.ID, err)
	}
	return nil
}

// after runs the side effects of a position change: cache pinning, page
// preloading, next chapter prefetch and read marking.
func (c *Controller) after(prev pipeline.ChapterID, pages pipeline.ChapterPages, group pipeline.Group, cfg Config, markOnCross bool) {
	c.mu.Lock()
	chapters := c.chapters
	c.mu.Unlock()

	idx := pipeline.IndexOf(chapters, pages.ID)
	pinned := []pipeline.ChapterID{pages.ID}
	var next *pipeline.Chapter
	if idx > 0 {
		pinned = append(pinned, chapters[idx-1].ID)
	}
	if idx >= 0 && idx+1 < len(chapters) {
		next = &chapters[idx+1]
		pinned = append(pinned, next.ID)
	}
	c.deps.Chapters.Evict(pinned...)

	if cfg.PreloadDepth > 0 && len(group) > 0 {
		last := group[0]
		for _, p := range group[1:] {
			if p > last {
				last = p
			}
		}
		for p := last + 1; p <= last+cfg.PreloadDepth && p <= pages.PageCount(); p++ {
			c.deps.Decoder.Preload(pages.Locator(p))
		}
	}

	if next != nil {
		if _, ok := c.deps.Chapters.Peek(next.ID); !ok {
			go c.prefetch(*next, cfg)
		}
	}

	if markOnCross && cfg.AutoMarkRead && c.deps.Marker != nil && prev != "" && prev != pages.ID {
		if pipeline.IndexOf(chapters, prev) < idx {
			c.deps.Marker.Mark(prev)
		}
	}
}

func (c *Controller) prefetch(chapter pipeline.Chapter, cfg Config) {
	pages, err := c.deps.Chapters.Fetch(c.base, chapter)
	if err != nil {
		if !pipeline.IsCancellation(err) {
			c.logger.Debug("Prefetch of chapter %s failed: %s", chapter.ID, err)
		}
		return
	}
	if cfg.Style == pipeline.StyleSpread {
		c.deps.Aspects.Prewarm(pages.Pages)
	}
}

func (c *Controller) publish(state pipeline.NavigationState, listeners []func(pipeline.NavigationState)) {
	if c.deps.Sink != nil && c.deps.Sink.Enabled() {
		if data, err := json.MarshalIndent(state, "", "  "); err == nil {
			if err := c.deps.Sink.SaveNavigationJSON(data); err != nil {
				c.logger.Warn("Failed to save navigation state: %s", err)
			}
		}
	}
	for _, fn := range listeners {
		fn(state)
	}
}
