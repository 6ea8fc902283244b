package pipeline

import (
	"image"
	"image/color"
	"strings"
)

// =============================================================================
// Chapter Types
// =============================================================================

// ChapterID is the remote identifier of a chapter. It is opaque to the engine.
type ChapterID string

// Chapter identifies a chapter in the externally supplied ordered chapter list.
type Chapter struct {
	ID   ChapterID `json:"id"`
	Name string    `json:"name"`
}

// ChapterPages is a chapter with its ordered page locators.
// It is created on the first successful fetch and never mutated afterwards.
type ChapterPages struct {
	Chapter
	Pages []string `json:"pages"`
}

// PageCount returns the number of pages in the chapter.
func (c ChapterPages) PageCount() int {
	return len(c.Pages)
}

// Locator returns the locator of a 1-based page number, or "" when out of range.
func (c ChapterPages) Locator(page int) string {
	if page < 1 || page > len(c.Pages) {
		return ""
	}
	return c.Pages[page-1]
}

// PageKey addresses one rendered page element: a chapter and a 1-based local page.
type PageKey struct {
	Chapter ChapterID `json:"chapter"`
	Page    int       `json:"page"`
}

// IndexOf returns the position of id in chapters, or -1.
func IndexOf(chapters []Chapter, id ChapterID) int {
	for i, c := range chapters {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// =============================================================================
// Presentation Settings
// =============================================================================

// Style is how pages are presented.
type Style int

const (
	// StyleSingle shows one page at a time.
	StyleSingle Style = iota
	// StyleSpread pairs pages into two-page spreads.
	StyleSpread
	// StyleScroll shows a continuous vertical strip of pages.
	StyleScroll
)

// String returns the config name of the style.
func (s Style) String() string {
	switch s {
	case StyleSingle:
		return "single"
	case StyleSpread:
		return "spread"
	case StyleScroll:
		return "scroll"
	default:
		return "unknown"
	}
}

// MarshalText encodes the style by name.
func (s Style) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a style name.
func (s *Style) UnmarshalText(text []byte) error {
	*s = ParseStyle(string(text))
	return nil
}

// ParseStyle parses a style name. Unknown names fall back to StyleSingle.
func ParseStyle(s string) Style {
	switch strings.ToLower(s) {
	case "spread", "double":
		return StyleSpread
	case "scroll", "longstrip", "webtoon":
		return StyleScroll
	default:
		return StyleSingle
	}
}

// Direction is the reading direction.
type Direction int

const (
	// LeftToRight means forward is to the right.
	LeftToRight Direction = iota
	// RightToLeft means forward is to the left.
	RightToLeft
)

// String returns the config name of the direction.
func (d Direction) String() string {
	if d == RightToLeft {
		return "rtl"
	}
	return "ltr"
}

// MarshalText encodes the direction by name.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a direction name.
func (d *Direction) UnmarshalText(text []byte) error {
	*d = ParseDirection(string(text))
	return nil
}

// ParseDirection parses "rtl" or "ltr". Anything else is LeftToRight.
func ParseDirection(s string) Direction {
	if strings.EqualFold(s, "rtl") {
		return RightToLeft
	}
	return LeftToRight
}

// Side is a physical navigation side (arrow key, tap zone).
type Side int

const (
	SideLeft Side = iota
	SideRight
)

// Forward reports whether pressing side moves forward in direction d.
func (d Direction) Forward(side Side) bool {
	if d == RightToLeft {
		return side == SideLeft
	}
	return side == SideRight
}

// =============================================================================
// Spread Stage Types
// =============================================================================

// DefaultWideThreshold is the aspect ratio (width/height) above which a page is a landscape spread.
const DefaultWideThreshold = 1.2

// Group is a presentation group: one or two 1-based page numbers in display order
// (left to right on screen).
type Group []int

// Contains reports whether the group shows page.
func (g Group) Contains(page int) bool {
	for _, p := range g {
		if p == page {
			return true
		}
	}
	return false
}

// First returns the lowest page number in the group.
func (g Group) First() int {
	first := g[0]
	for _, p := range g[1:] {
		if p < first {
			first = p
		}
	}
	return first
}

// SpreadInput contains parameters for grouping a chapter's pages.
type SpreadInput struct {
	PageCount         int
	Aspects           []float64 // width/height per page, index 0 is page 1; missing entries count as portrait
	RightToLeft       bool
	OffsetFirstSpread bool
	WideThreshold     float64 // default: 1.2
}

// SpreadResult contains the computed presentation groups.
type SpreadResult struct {
	Groups []Group
}

// =============================================================================
// Strip Window Types
// =============================================================================

// StripChunk is one chapter inside the continuous-scroll window.
type StripChunk struct {
	Chapter
	Pages            []string `json:"pages"`
	StartGlobalIndex int      `json:"start_global_index"` // sum of page counts of all earlier chunks
}

// PageCount returns the number of pages in the chunk.
func (c StripChunk) PageCount() int {
	return len(c.Pages)
}

// Rebase recomputes StartGlobalIndex for every chunk from the first one at 0.
func Rebase(chunks []StripChunk) {
	start := 0
	for i := range chunks {
		chunks[i].StartGlobalIndex = start
		start += len(chunks[i].Pages)
	}
}

// =============================================================================
// Navigation Types
// =============================================================================

// NavigationState is the reader's public position.
type NavigationState struct {
	Chapter   Chapter   `json:"chapter"`
	Page      int       `json:"page"` // 1-based local page
	PageCount int       `json:"page_count"`
	Style     Style     `json:"style"`
	Direction Direction `json:"direction"`
	Group     Group     `json:"group,omitempty"` // pages on screen in paged modes
}

// =============================================================================
// Composite Stage Types
// =============================================================================

// CompositeInput contains parameters for rendering presentation groups as images.
type CompositeInput struct {
	Chapter    ChapterPages
	Groups     []Group
	Height     int // output height; pages are scaled to it (default: 1200)
	Gap        int // gap between paired pages (default: 0)
	Background color.Color
}

// DefaultCompositeInput returns CompositeInput with default values.
func DefaultCompositeInput() CompositeInput {
	return CompositeInput{
		Height:     1200,
		Gap:        0,
		Background: color.RGBA{R: 20, G: 20, B: 20, A: 255},
	}
}

// CompositeResult contains the composed spreads in group order.
type CompositeResult struct {
	Spreads []ComposedSpread
}

// ComposedSpread is one rendered presentation group.
type ComposedSpread struct {
	Index int
	Group Group
	Image image.Image
}
