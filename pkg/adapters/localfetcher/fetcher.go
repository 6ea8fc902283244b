// Package localfetcher implements ports.RemoteFetcher over a downloaded manga
// directory: one sub-directory per chapter, one image file per page.
package localfetcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/user/moku/pkg/pipeline"
	"github.com/user/moku/pkg/ports"
)

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".webp": true, ".bmp": true, ".tif": true, ".tiff": true,
}

// Fetcher reads chapters from the local file system.
type Fetcher struct {
	root   string
	fs     ports.FileSystem
	logger ports.Logger
}

// New creates a Fetcher rooted at a manga directory.
func New(root string, fs ports.FileSystem, logger ports.Logger) *Fetcher {
	return &Fetcher{
		root:   root,
		fs:     fs,
		logger: logger.WithComponent("localfetcher"),
	}
}

// Chapters lists chapter directories in natural order.
func (f *Fetcher) Chapters() ([]pipeline.Chapter, error) {
	entries, err := f.fs.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir && !strings.HasPrefix(e.Name, ".") {
			names = append(names, e.Name)
		}
	}
	sort.Slice(names, func(i, j int) bool { return NaturalLess(names[i], names[j]) })

	chapters := make([]pipeline.Chapter, len(names))
	for i, name := range names {
		chapters[i] = pipeline.Chapter{ID: pipeline.ChapterID(name), Name: name}
	}
	f.logger.Debug("Found %d chapters in %s", len(chapters), f.root)
	return chapters, nil
}

// ListPages returns the image files of a chapter directory in natural order.
func (f *Fetcher) ListPages(ctx context.Context, chapter pipeline.ChapterID) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := string(chapter)
	if name == "" || name != filepath.Base(name) || name == ".." {
		return nil, fmt.Errorf("%w: %q", pipeline.ErrUnknownChapter, chapter)
	}
	dir := filepath.Join(f.root, name)
	entries, err := f.fs.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	var pages []string
	for _, e := range entries {
		if !e.IsDir && imageExts[strings.ToLower(filepath.Ext(e.Name))] {
			pages = append(pages, e.Name)
		}
	}
	sort.Slice(pages, func(i, j int) bool { return NaturalLess(pages[i], pages[j]) })
	for i, p := range pages {
		pages[i] = filepath.Join(dir, p)
	}
	return pages, nil
}

// MarkRead succeeds without doing anything; local files carry no read state.
func (f *Fetcher) MarkRead(ctx context.Context, chapter pipeline.ChapterID) error {
	return ctx.Err()
}

// NaturalLess orders strings with embedded numbers by numeric value,
// so "page2" sorts before "page10".
func NaturalLess(a, b string) bool {
	for a != "" && b != "" {
		da, db := isDigit(a[0]), isDigit(b[0])
		switch {
		case da && db:
			na, ra := splitDigits(a)
			nb, rb := splitDigits(b)
			ta, tb := strings.TrimLeft(na, "0"), strings.TrimLeft(nb, "0")
			if len(ta) != len(tb) {
				return len(ta) < len(tb)
			}
			if ta != tb {
				return ta < tb
			}
			if len(na) != len(nb) {
				return len(na) < len(nb)
			}
			a, b = ra, rb
		case da != db:
			return da
		default:
			ca, cb := lower(a[0]), lower(b[0])
			if ca != cb {
				return ca < cb
			}
			a, b = a[1:], b[1:]
		}
	}
	return len(a) < len(b)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}

func splitDigits(s string) (string, string) {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return s[:i], s[i:]
}

var _ ports.RemoteFetcher = (*Fetcher)(nil)
