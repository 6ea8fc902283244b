package mocks

import (
	"context"
	"image"
	"sync"

	"github.com/user/moku/pkg/ports"
)

// ImageDecoder is a mock implementation of ports.ImageDecoder.
// By default every image measures as a 700x1000 portrait page.
type ImageDecoder struct {
	MeasureFunc func(ctx context.Context, locator string) (ports.ImageInfo, error)
	DecodeFunc  func(ctx context.Context, locator string) (image.Image, error)

	// Sizes overrides the default dimensions per locator.
	Sizes map[string]ports.ImageInfo

	mu       sync.Mutex
	measured map[string]int
	decoded  []string
	preload  []string
}

func (m *ImageDecoder) info(locator string) ports.ImageInfo {
	if info, ok := m.Sizes[locator]; ok {
		return info
	}
	return ports.ImageInfo{Width: 700, Height: 1000, Format: "jpeg"}
}

func (m *ImageDecoder) Measure(ctx context.Context, locator string) (ports.ImageInfo, error) {
	m.mu.Lock()
	if m.measured == nil {
		m.measured = make(map[string]int)
	}
	m.measured[locator]++
	m.mu.Unlock()

	if m.MeasureFunc != nil {
		return m.MeasureFunc(ctx, locator)
	}
	return m.info(locator), nil
}

func (m *ImageDecoder) Decode(ctx context.Context, locator string) (image.Image, error) {
	m.mu.Lock()
	m.decoded = append(m.decoded, locator)
	m.mu.Unlock()

	if m.DecodeFunc != nil {
		return m.DecodeFunc(ctx, locator)
	}
	info := m.info(locator)
	return image.NewRGBA(image.Rect(0, 0, info.Width, info.Height)), nil
}

func (m *ImageDecoder) Preload(locator string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.preload = append(m.preload, locator)
}

// MeasureCalls returns how many times Measure was called for a locator.
func (m *ImageDecoder) MeasureCalls(locator string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.measured[locator]
}

// Decoded returns decoded locators in call order.
func (m *ImageDecoder) Decoded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.decoded...)
}

// Preloaded returns preloaded locators in call order.
func (m *ImageDecoder) Preloaded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.preload...)
}

var _ ports.ImageDecoder = (*ImageDecoder)(nil)
