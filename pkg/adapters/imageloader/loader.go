// Package imageloader implements ports.ImageDecoder for HTTP and file locators.
package imageloader

import (
	"bytes"
	"container/list"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/user/moku/pkg/pipeline"
	"github.com/user/moku/pkg/ports"
)

const (
	// DefaultCacheBytes bounds the preload cache.
	DefaultCacheBytes = 64 << 20
	// maxImageBytes rejects responses larger than any sane page image.
	maxImageBytes = 50 << 20
)

// Options configures a Loader.
type Options struct {
	Client     *http.Client
	Username   string // basic auth for http(s) locators
	Password   string
	CacheBytes int64
}

// Loader loads, measures and decodes page images.
// Fetched bytes are kept in a bounded LRU so Preload speeds up the next Decode.
type Loader struct {
	client   *http.Client
	username string
	password string
	logger   ports.Logger

	mu       sync.Mutex
	limit    int64
	size     int64
	order    *list.List // front is most recent
	entries  map[string]*list.Element
	inflight map[string]struct{}
}

type cached struct {
	locator string
	data    []byte
}

// New creates a Loader.
func New(opts Options, logger ports.Logger) *Loader {
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.CacheBytes <= 0 {
		opts.CacheBytes = DefaultCacheBytes
	}
	return &Loader{
		client:   opts.Client,
		username: opts.Username,
		password: opts.Password,
		logger:   logger.WithComponent("imageloader"),
		limit:    opts.CacheBytes,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
		inflight: make(map[string]struct{}),
	}
}

// Measure reads just the image header.
func (l *Loader) Measure(ctx context.Context, locator string) (ports.ImageInfo, error) {
	data, err := l.bytes(ctx, locator)
	if err != nil {
		return ports.ImageInfo{}, err
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ports.ImageInfo{}, &pipeline.DecodeError{Locator: locator, Err: err}
	}
	return ports.ImageInfo{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// Decode fully decodes the image.
func (l *Loader) Decode(ctx context.Context, locator string) (image.Image, error) {
	data, err := l.bytes(ctx, locator)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &pipeline.DecodeError{Locator: locator, Err: err}
	}
	return img, nil
}

// Preload fetches the image into the cache in the background.
// Failures are logged and forgotten; Decode will retry.
func (l *Loader) Preload(locator string) {
	l.mu.Lock()
	_, hit := l.entries[locator]
	_, busy := l.inflight[locator]
	if hit || busy {
		l.mu.Unlock()
		return
	}
	l.inflight[locator] = struct{}{}
	l.mu.Unlock()

	go func() {
		defer func() {
			l.mu.Lock()
			delete(l.inflight, locator)
			l.mu.Unlock()
		}()
		if _, err := l.bytes(context.Background(), locator); err != nil {
			l.logger.Debug("Preload of %s failed: %v", locator, err)
		}
	}()
}

// Cached reports whether the bytes of locator are in the cache.
func (l *Loader) Cached(locator string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.entries[locator]
	return ok
}

func (l *Loader) bytes(ctx context.Context, locator string) ([]byte, error) {
	if data, ok := l.lookup(locator); ok {
		return data, nil
	}
	data, err := l.load(ctx, locator)
	if err != nil {
		if pipeline.IsCancellation(err) {
			return nil, err
		}
		return nil, &pipeline.DecodeError{Locator: locator, Err: err}
	}
	l.store(locator, data)
	return data, nil
}

func (l *Loader) load(ctx context.Context, locator string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://") {
		return l.fetch(ctx, locator)
	}
	path := locator
	if strings.HasPrefix(locator, "file://") {
		u, err := url.Parse(locator)
		if err != nil {
			return nil, fmt.Errorf("parse locator: %w", err)
		}
		path = u.Path
	}
	return os.ReadFile(path)
}

func (l *Loader) fetch(ctx context.Context, locator string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if l.username != "" {
		req.SetBasicAuth(l.username, l.password)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image larger than %d bytes", maxImageBytes)
	}
	return data, nil
}

func (l *Loader) lookup(locator string) ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	el, ok := l.entries[locator]
	if !ok {
		return nil, false
	}
	l.order.MoveToFront(el)
	return el.Value.(*cached).data, true
}

func (l *Loader) store(locator string, data []byte) {
	size := int64(len(data))
	if size > l.limit {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if el, ok := l.entries[locator]; ok {
		l.order.MoveToFront(el)
		return
	}
	l.entries[locator] = l.order.PushFront(&cached{locator: locator, data: data})
	l.size += size
	for l.size > l.limit {
		back := l.order.Back()
		c := back.Value.(*cached)
		l.order.Remove(back)
		delete(l.entries, c.locator)
		l.size -= int64(len(c.data))
	}
}

var _ ports.ImageDecoder = (*Loader)(nil)
