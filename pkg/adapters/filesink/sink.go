// Package filesink writes engine debug output to a directory.
package filesink

import (
	"fmt"
	"image"
	"path/filepath"
	"sync"

	"github.com/user/moku/pkg/ports"
)

// Sink saves debug output to files under baseDir:
//
//	window.json               latest continuous-scroll window
//	windows/window-0001.json  every window change, in order
//	navigation.json           latest committed navigation state
//	spreads/<chapter>/spread-001.png
type Sink struct {
	baseDir  string
	fs       ports.FileSystem
	renderer ports.Renderer

	mu      sync.Mutex
	windows int
}

// New creates a new Sink.
func New(baseDir string, fs ports.FileSystem, renderer ports.Renderer) *Sink {
	return &Sink{
		baseDir:  baseDir,
		fs:       fs,
		renderer: renderer,
	}
}

// Enabled returns true as this sink saves output.
func (s *Sink) Enabled() bool {
	return true
}

// SaveWindowJSON saves the window snapshot as the latest and as a numbered copy.
func (s *Sink) SaveWindowJSON(data []byte) error {
	s.mu.Lock()
	s.windows++
	n := s.windows
	s.mu.Unlock()

	if err := s.fs.WriteFile(filepath.Join(s.baseDir, "window.json"), data); err != nil {
		return err
	}
	path := filepath.Join(s.baseDir, "windows", fmt.Sprintf("window-%04d.json", n))
	return s.fs.WriteFile(path, data)
}

// SaveNavigationJSON saves the navigation state.
func (s *Sink) SaveNavigationJSON(data []byte) error {
	return s.fs.WriteFile(filepath.Join(s.baseDir, "navigation.json"), data)
}

// SaveSpread saves a composed spread as PNG.
func (s *Sink) SaveSpread(chapter string, index int, img image.Image) error {
	dir := filepath.Join(s.baseDir, "spreads", chapter)
	if err := s.fs.MkdirAll(dir); err != nil {
		return err
	}
	data, err := s.renderer.EncodeImage(img, ports.FormatPNG, 0)
	if err != nil {
		return fmt.Errorf("encode spread: %w", err)
	}
	return s.fs.WriteFile(filepath.Join(dir, fmt.Sprintf("spread-%03d.png", index+1)), data)
}

var _ ports.DebugSink = (*Sink)(nil)
