package mocks

import (
	"fmt"
	"image"
	"sync"

	"github.com/user/moku/pkg/ports"
)

// DebugSink is a mock implementation of ports.DebugSink.
type DebugSink struct {
	mu sync.RWMutex

	enabled bool

	WindowJSON     []byte
	WindowSaves    int
	NavigationJSON []byte
	Spreads        map[string]image.Image
}

// NewDebugSink creates a new mock DebugSink.
func NewDebugSink(enabled bool) *DebugSink {
	return &DebugSink{
		enabled: enabled,
		Spreads: make(map[string]image.Image),
	}
}

func (m *DebugSink) Enabled() bool {
	return m.enabled
}

func (m *DebugSink) SaveWindowJSON(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WindowJSON = data
	m.WindowSaves++
	return nil
}

func (m *DebugSink) SaveNavigationJSON(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NavigationJSON = data
	return nil
}

func (m *DebugSink) SaveSpread(chapter string, index int, img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Spreads[fmt.Sprintf("%s/%d", chapter, index)] = img
	return nil
}

// Snapshot returns the last window JSON and the number of window saves.
func (m *DebugSink) Snapshot() ([]byte, int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.WindowJSON, m.WindowSaves
}

var _ ports.DebugSink = (*DebugSink)(nil)
