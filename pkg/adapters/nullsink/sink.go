// Package nullsink provides a debug sink that discards everything.
package nullsink

import (
	"image"

	"github.com/user/moku/pkg/ports"
)

// Sink is used when debug output is off.
type Sink struct{}

// New creates a new Sink.
func New() *Sink {
	return &Sink{}
}

// Enabled returns false, so callers skip encoding snapshots.
func (s *Sink) Enabled() bool {
	return false
}

// SaveWindowJSON does nothing.
func (s *Sink) SaveWindowJSON(data []byte) error {
	return nil
}

// SaveNavigationJSON does nothing.
func (s *Sink) SaveNavigationJSON(data []byte) error {
	return nil
}

// SaveSpread does nothing.
func (s *Sink) SaveSpread(chapter string, index int, img image.Image) error {
	return nil
}

var _ ports.DebugSink = (*Sink)(nil)
