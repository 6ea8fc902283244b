// Package chromesurface renders the continuous strip in a Chrome page driven
// by chromedp and reports page visibility from an in-page IntersectionObserver.
package chromesurface

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/user/moku/pkg/pipeline"
	"github.com/user/moku/pkg/ports"
)

const (
	DefaultWidth        = 800
	DefaultHeight       = 1000
	DefaultPollInterval = 100 * time.Millisecond
	DefaultAspect       = 0.7

	evalTimeout = 5 * time.Second
)

// AspectLookup returns the aspect ratio of a page, if known.
type AspectLookup interface {
	Cached(locator string) (float64, bool)
}

// Options configures the browser window.
type Options struct {
	ChromePath   string
	Headless     bool
	Width        int // strip width in CSS pixels
	Height       int // window height
	ChapterGap   int
	Background   string
	Headers      map[string]string // sent with every image request
	PollInterval time.Duration
}

// Surface implements ports.ScrollSurface and ports.VisibilityObserver.
type Surface struct {
	opts    Options
	aspects AspectLookup
	logger  ports.Logger

	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	shellPath   string
	done        chan struct{}

	mu       sync.Mutex
	handlers map[int]func([]ports.VisibilityEntry)
	nextID   int
	lastTop  float64
}

// Launch starts Chrome, loads the reader shell and begins polling visibility.
func Launch(ctx context.Context, opts Options, aspects AspectLookup, logger ports.Logger) (*Surface, error) {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Background == "" {
		opts.Background = "#141414"
	}

	chromePath := ResolveChromePath(opts.ChromePath)
	if chromePath == "" {
		return nil, fmt.Errorf("chrome not found: please install Chrome/Chromium, set CHROME_PATH environment variable, or use --chrome-path option")
	}

	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.ExecPath(chromePath),
		chromedp.WindowSize(opts.Width+40, opts.Height),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("allow-file-access-from-files", true),
	}
	if opts.Headless {
		allocOpts = append(allocOpts,
			chromedp.Flag("headless", "new"),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)
	}

	html, err := renderShell(shellVars{Width: opts.Width, ChapterGap: opts.ChapterGap, Background: opts.Background})
	if err != nil {
		return nil, err
	}
	f, err := os.CreateTemp("", "moku-strip-*.html")
	if err != nil {
		return nil, fmt.Errorf("create shell file: %w", err)
	}
	if _, err := f.WriteString(html); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("write shell file: %w", err)
	}
	f.Close()

	s := &Surface{
		opts:      opts,
		aspects:   aspects,
		logger:    logger.WithComponent("chromesurface"),
		shellPath: f.Name(),
		done:      make(chan struct{}),
		handlers:  make(map[int]func([]ports.VisibilityEntry)),
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	s.allocCancel = allocCancel
	s.ctx, s.cancel = chromedp.NewContext(allocCtx)

	actions := []chromedp.Action{network.Enable()}
	if len(opts.Headers) > 0 {
		headers := make(network.Headers, len(opts.Headers))
		for k, v := range opts.Headers {
			headers[k] = v
		}
		actions = append(actions, network.SetExtraHTTPHeaders(headers))
	}
	actions = append(actions,
		chromedp.Navigate("file://"+s.shellPath),
		chromedp.WaitReady("#strip", chromedp.ByID),
	)
	if err := chromedp.Run(s.ctx, actions...); err != nil {
		s.Close()
		return nil, fmt.Errorf("load reader shell: %w", err)
	}

	go s.poll()
	return s, nil
}

type jsPage struct {
	Page   int     `json:"page"`
	Global int     `json:"global"`
	Src    string  `json:"src"`
	Aspect float64 `json:"aspect"`
}

type jsChunk struct {
	ID    string   `json:"id"`
	Pages []jsPage `json:"pages"`
}

// Render replaces the strip content with chunks.
func (s *Surface) Render(chunks []pipeline.StripChunk) error {
	payload := make([]jsChunk, len(chunks))
	for i, c := range chunks {
		jc := jsChunk{ID: string(c.ID), Pages: make([]jsPage, len(c.Pages))}
		for j, loc := range c.Pages {
			jc.Pages[j] = jsPage{
				Page:   j + 1,
				Global: c.StartGlobalIndex + j,
				Src:    imageSource(loc),
				Aspect: s.aspect(loc),
			}
		}
		payload[i] = jc
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal chunks: %w", err)
	}
	return s.eval(fmt.Sprintf("window.moku.render(%s)", data), nil)
}

// ScrollTop returns window.scrollY.
func (s *Surface) ScrollTop() float64 {
	var y float64
	if err := s.eval("window.scrollY", &y); err != nil {
		s.logger.Debug("Failed to read scroll position: %v", err)
	}
	return y
}

// SetScrollTop scrolls the window to y.
func (s *Surface) SetScrollTop(y float64) {
	if err := s.eval(fmt.Sprintf("window.scrollTo(0, %f)", y), nil); err != nil {
		s.logger.Debug("Failed to scroll: %v", err)
	}
}

// ElementOffset returns the document offset of a page element.
func (s *Surface) ElementOffset(key pipeline.PageKey) (float64, bool) {
	chapter, err := json.Marshal(string(key.Chapter))
	if err != nil {
		return 0, false
	}
	var y float64
	if err := s.eval(fmt.Sprintf("window.moku.offset(%s, %d)", chapter, key.Page), &y); err != nil {
		s.logger.Debug("Failed to measure page %s/%d: %v", key.Chapter, key.Page, err)
		return 0, false
	}
	if y < 0 {
		return 0, false
	}
	return y, true
}

// SentinelDistance returns how far the sentinel is below the viewport.
func (s *Surface) SentinelDistance() float64 {
	var d float64
	if err := s.eval("window.moku.sentinelDistance()", &d); err != nil {
		s.logger.Debug("Failed to measure sentinel: %v", err)
		return 1 << 30
	}
	return d
}

// Subscribe registers a visibility handler.
func (s *Surface) Subscribe(handler func([]ports.VisibilityEntry)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.handlers[id] = handler
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.handlers, id)
		s.mu.Unlock()
	}
}

// Done is closed when the browser goes away.
func (s *Surface) Done() <-chan struct{} {
	return s.done
}

// Close shuts the browser down.
func (s *Surface) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
	if s.shellPath != "" {
		os.Remove(s.shellPath)
	}
	return nil
}

type drainResult struct {
	Entries []struct {
		Chapter string  `json:"chapter"`
		Page    int     `json:"page"`
		Global  int     `json:"global"`
		Ratio   float64 `json:"ratio"`
	} `json:"entries"`
	ScrollTop float64 `json:"scrollTop"`
}

// poll drains queued intersection changes and hands them to subscribers.
// A bare scroll with no visibility change still produces an empty batch so
// subscribers can re-check the sentinel.
func (s *Surface) poll() {
	defer close(s.done)
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
		}

		var res drainResult
		if err := s.eval("window.moku.drain()", &res); err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.logger.Debug("Visibility poll failed: %v", err)
			continue
		}

		s.mu.Lock()
		moved := res.ScrollTop != s.lastTop
		s.lastTop = res.ScrollTop
		handlers := make([]func([]ports.VisibilityEntry), 0, len(s.handlers))
		for id := 0; id < s.nextID; id++ {
			if h, ok := s.handlers[id]; ok {
				handlers = append(handlers, h)
			}
		}
		s.mu.Unlock()

		if len(res.Entries) == 0 && !moved {
			continue
		}
		batch := make([]ports.VisibilityEntry, len(res.Entries))
		for i, e := range res.Entries {
			batch[i] = ports.VisibilityEntry{
				Key:         pipeline.PageKey{Chapter: pipeline.ChapterID(e.Chapter), Page: e.Page},
				GlobalIndex: e.Global,
				Ratio:       e.Ratio,
			}
		}
		for _, h := range handlers {
			h(batch)
		}
	}
}

func (s *Surface) eval(expr string, res interface{}) error {
	ctx, cancel := context.WithTimeout(s.ctx, evalTimeout)
	defer cancel()
	return chromedp.Run(ctx, chromedp.Evaluate(expr, res))
}

func (s *Surface) aspect(locator string) float64 {
	if s.aspects != nil {
		if a, ok := s.aspects.Cached(locator); ok && a > 0 {
			return a
		}
	}
	return DefaultAspect
}

// imageSource turns a page locator into an img src.
func imageSource(locator string) string {
	if strings.Contains(locator, "://") {
		return locator
	}
	abs, err := filepath.Abs(locator)
	if err != nil {
		abs = locator
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}

var (
	_ ports.ScrollSurface      = (*Surface)(nil)
	_ ports.VisibilityObserver = (*Surface)(nil)
)
