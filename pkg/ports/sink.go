package ports

import (
	"image"
)

// DebugSink abstracts debug output of engine state.
type DebugSink interface {
	// Enabled returns true if debug output is enabled.
	Enabled() bool

	// SaveWindowJSON saves the continuous-scroll window snapshot.
	SaveWindowJSON(data []byte) error

	// SaveNavigationJSON saves the latest committed navigation state.
	SaveNavigationJSON(data []byte) error

	// SaveSpread saves a composed presentation group.
	SaveSpread(chapter string, index int, img image.Image) error
}
