package ports

import (
	"github.com/user/moku/pkg/pipeline"
)

// ScrollSurface abstracts the scrollable container that renders the continuous strip.
// Offsets are in pixels from the top of the rendered content.
type ScrollSurface interface {
	// Render replaces the rendered content with the given chunks.
	// The new layout is measurable as soon as Render returns.
	Render(chunks []pipeline.StripChunk) error

	// ScrollTop returns the current viewport offset.
	ScrollTop() float64

	// SetScrollTop moves the viewport to offset y.
	SetScrollTop(y float64)

	// ElementOffset returns the offset of a rendered page element.
	ElementOffset(key pipeline.PageKey) (float64, bool)

	// SentinelDistance returns how far the end-of-content sentinel is below
	// the bottom edge of the viewport. Zero or negative means it is visible.
	SentinelDistance() float64
}

// VisibilityEntry reports how much of one page element intersects the viewport.
type VisibilityEntry struct {
	Key         pipeline.PageKey
	GlobalIndex int
	Ratio       float64 // visible fraction, 0 when not intersecting
}

// Intersecting reports whether any part of the element is visible.
func (e VisibilityEntry) Intersecting() bool {
	return e.Ratio > 0
}

// VisibilityObserver abstracts intersection-based visibility detection.
type VisibilityObserver interface {
	// Subscribe registers a handler that receives batches of changed entries.
	// It returns a function that removes the handler.
	Subscribe(handler func(entries []VisibilityEntry)) (unsubscribe func())
}
