// Package session owns the lifetime of one reader session and wires the
// engine components together.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ideamans/go-l10n"

	"github.com/user/moku/pkg/aspect"
	"github.com/user/moku/pkg/navigator"
	"github.com/user/moku/pkg/pagecache"
	"github.com/user/moku/pkg/pipeline"
	"github.com/user/moku/pkg/ports"
	"github.com/user/moku/pkg/readstate"
	"github.com/user/moku/pkg/strip"
	"github.com/user/moku/pkg/tracker"
)

// Config contains all configuration for a session.
type Config struct {
	// Cache
	MaxCached int

	// Presentation
	Style             pipeline.Style
	Direction         pipeline.Direction
	OffsetFirstSpread bool
	WideThreshold     float64

	// Continuous scroll
	WindowSize   int
	LeadDistance float64
	AutoAdvance  bool

	// Navigation
	PreloadDepth int
	AutoMarkRead bool

	// Workers and timeouts
	DecodeWorkers     int
	MarkReadTimeoutMs int
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		MaxCached:         pagecache.DefaultMaxCached,
		Style:             pipeline.StyleSingle,
		Direction:         pipeline.LeftToRight,
		WideThreshold:     pipeline.DefaultWideThreshold,
		WindowSize:        strip.DefaultSize,
		LeadDistance:      strip.DefaultLeadDistance,
		AutoAdvance:       true,
		PreloadDepth:      navigator.DefaultPreloadDepth,
		AutoMarkRead:      false,
		DecodeWorkers:     4,
		MarkReadTimeoutMs: 15000,
	}
}

// Deps are the host capabilities a session runs on. Surface and Observer are
// required for continuous-scroll mode only; Sink may be nil.
type Deps struct {
	Fetcher  ports.RemoteFetcher
	Decoder  ports.ImageDecoder
	Surface  ports.ScrollSurface
	Observer ports.VisibilityObserver
	Sink     ports.DebugSink
	Logger   ports.Logger
}

// Session is one reader session: the chapter cache, aspect memo and window
// live exactly as long as it does.
type Session struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc

	chapters []pipeline.Chapter
	logger   ports.Logger

	cache   *pagecache.Cache
	oracle  *aspect.Oracle
	marker  *readstate.Marker
	window  *strip.Window
	tracker *tracker.Tracker
	nav     *navigator.Controller

	unsubscribe []func()

	mu          sync.Mutex
	cfg         Config
	started     time.Time
	visited     []pipeline.Chapter
	seen        map[pipeline.ChapterID]struct{}
	lastErr     error
	closed      bool
	positionCnt int
}

// New creates a session over the ordered chapter list.
func New(parent context.Context, chapters []pipeline.Chapter, deps Deps, cfg Config) (*Session, error) {
	if len(chapters) == 0 {
		return nil, pipeline.ErrNoChapters
	}

	ctx, cancel := context.WithCancel(parent)
	id := uuid.NewString()
	logger := deps.Logger.WithComponent("session")

	s := &Session{
		id:       id,
		ctx:      ctx,
		cancel:   cancel,
		chapters: append([]pipeline.Chapter(nil), chapters...),
		logger:   logger,
		cfg:      cfg,
		started:  time.Now(),
		seen:     make(map[pipeline.ChapterID]struct{}),
	}

	s.cache = pagecache.New(ctx, deps.Fetcher, cfg.MaxCached, deps.Logger)
	s.oracle = aspect.New(ctx, deps.Decoder, cfg.DecodeWorkers, deps.Logger)
	s.marker = readstate.New(ctx, deps.Fetcher, time.Duration(cfg.MarkReadTimeoutMs)*time.Millisecond, deps.Logger)

	var stripHost navigator.Strip
	if deps.Surface != nil {
		s.window = strip.New(s.cache, s.oracle, deps.Surface, deps.Sink, strip.Config{
			Size:         cfg.WindowSize,
			LeadDistance: cfg.LeadDistance,
			Append:       cfg.AutoAdvance,
		}, deps.Logger)
		s.window.SetChapters(s.chapters)
		s.tracker = tracker.New(deps.Logger)
		stripHost = &trackedStrip{window: s.window, tracker: s.tracker}
	}

	s.nav = navigator.New(ctx, navigator.Deps{
		Chapters: s.cache,
		Aspects:  s.oracle,
		Decoder:  deps.Decoder,
		Strip:    stripHost,
		Marker:   s.marker,
		Sink:     deps.Sink,
		Logger:   deps.Logger,
	}, navigator.Config{
		Style:             cfg.Style,
		Direction:         cfg.Direction,
		OffsetFirstSpread: cfg.OffsetFirstSpread,
		WideThreshold:     cfg.WideThreshold,
		PreloadDepth:      cfg.PreloadDepth,
		AutoMarkRead:      cfg.AutoMarkRead,
	})
	s.nav.SetChapters(s.chapters)
	s.nav.OnChange(s.recordVisit)

	if s.window != nil {
		s.window.OnAdvance(func(ctx context.Context, next pipeline.Chapter) error {
			return s.nav.Open(ctx, next.ID, 1)
		})
		s.window.OnTrim(s.tracker.Retain)
		s.tracker.OnPosition(s.nav.SyncPosition)
		s.tracker.OnChapterChange(s.chapterLeft)
		if deps.Observer != nil {
			s.unsubscribe = append(s.unsubscribe,
				s.tracker.Attach(deps.Observer),
				deps.Observer.Subscribe(func([]ports.VisibilityEntry) { s.CheckSentinel() }),
			)
		}
	}

	logger.Info(l10n.F("Session %s started with %d chapters", id, len(chapters)))
	return s, nil
}

// trackedStrip resets the tracker with the window, so visibility left over
// from replaced content never reports a chapter change.
type trackedStrip struct {
	window  *strip.Window
	tracker *tracker.Tracker
}

func (t *trackedStrip) Reset(ctx context.Context, pages pipeline.ChapterPages, page int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.tracker.Reset(pipeline.PageKey{Chapter: pages.ID, Page: page})
	return t.window.Reset(ctx, pages, page)
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Chapters returns the ordered chapter list.
func (s *Session) Chapters() []pipeline.Chapter {
	return append([]pipeline.Chapter(nil), s.chapters...)
}

// Navigator returns the navigation controller.
func (s *Session) Navigator() *navigator.Controller {
	return s.nav
}

// Window returns the continuous-scroll window, or nil without a surface.
func (s *Session) Window() *strip.Window {
	return s.window
}

// Cache returns the chapter cache.
func (s *Session) Cache() *pagecache.Cache {
	return s.cache
}

// Oracle returns the aspect oracle.
func (s *Session) Oracle() *aspect.Oracle {
	return s.oracle
}

// Context returns the session context. It ends when the session closes.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Start opens chapter id at page.
func (s *Session) Start(ctx context.Context, id pipeline.ChapterID, page int) error {
	if s.Config().Style == pipeline.StyleScroll && s.window == nil {
		return pipeline.ErrScrollMode
	}
	return s.report(s.nav.Open(ctx, id, page))
}

// SetStyle switches the presentation style, enabling window appends when
// switching to continuous scroll with auto-advance.
func (s *Session) SetStyle(ctx context.Context, style pipeline.Style) error {
	if style == pipeline.StyleScroll && s.window == nil {
		return pipeline.ErrScrollMode
	}
	if s.window != nil {
		s.window.SetAppend(style == pipeline.StyleScroll && s.Config().AutoAdvance)
	}
	return s.report(s.nav.SetStyle(ctx, style))
}

// SetDirection switches the reading direction.
func (s *Session) SetDirection(ctx context.Context, direction pipeline.Direction) error {
	return s.report(s.nav.SetDirection(ctx, direction))
}

// CheckSentinel lets the window react to the current scroll position.
// Hosts without a visibility observer call it after scrolling.
func (s *Session) CheckSentinel() {
	if s.window == nil || s.Config().Style != pipeline.StyleScroll {
		return
	}
	s.report(s.window.CheckSentinel(s.ctx))
}

// report logs user-visible failures and returns err unchanged.
func (s *Session) report(err error) error {
	if err == nil || pipeline.IsCancellation(err) {
		return err
	}
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	s.logger.Error(l10n.F("Navigation failed: %s", err))
	return err
}

func (s *Session) recordVisit(state pipeline.NavigationState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positionCnt++
	if _, ok := s.seen[state.Chapter.ID]; ok {
		return
	}
	s.seen[state.Chapter.ID] = struct{}{}
	s.visited = append(s.visited, state.Chapter)
	s.logger.Info(l10n.F("Reading %s", state.Chapter.Name))
}

// chapterLeft marks a chapter read when scrolling moves forward past it.
func (s *Session) chapterLeft(prev, next pipeline.ChapterID) {
	cfg := s.Config()
	if !cfg.AutoMarkRead {
		return
	}
	if pipeline.IndexOf(s.chapters, prev) < pipeline.IndexOf(s.chapters, next) {
		s.marker.Mark(prev)
	}
}

// Config returns the current session settings.
func (s *Session) Config() Config {
	s.mu.Lock()
	cfg := s.cfg
	s.mu.Unlock()

	nav := s.nav.Config()
	cfg.Style = nav.Style
	cfg.Direction = nav.Direction
	cfg.OffsetFirstSpread = nav.OffsetFirstSpread
	return cfg
}

// Close ends the session: pending navigation and fetches are cancelled and
// outstanding read marks finish before Close returns.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	for _, unsubscribe := range s.unsubscribe {
		unsubscribe()
	}
	s.nav.Close()
	s.marker.Wait()
	s.cancel()
	s.logger.Info(l10n.F("Session %s closed", s.id))
}
