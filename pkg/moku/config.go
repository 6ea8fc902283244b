// Package moku provides a high-level API for configuring reader sessions.
package moku

import (
	"fmt"
	"strings"

	"github.com/user/moku/pkg/pipeline"
	"github.com/user/moku/pkg/session"
)

// Preset is a reading preset name.
type Preset string

const (
	// PresetManga reads right to left in two-page spreads.
	PresetManga Preset = "manga"
	// PresetWebtoon reads as a continuous vertical strip that runs on into the next chapter.
	PresetWebtoon Preset = "webtoon"
	// PresetComic reads left to right one page at a time.
	PresetComic Preset = "comic"
)

// Presets lists every known preset.
var Presets = []Preset{PresetManga, PresetWebtoon, PresetComic}

// ParsePreset parses a preset name.
func ParsePreset(s string) (Preset, error) {
	p := Preset(strings.ToLower(s))
	for _, known := range Presets {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown preset %q", s)
}

// ConfigBuilder provides a fluent interface for building session.Config.
type ConfigBuilder struct {
	config session.Config
}

// NewConfigBuilder creates a ConfigBuilder with the default settings.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{config: session.DefaultConfig()}
}

// NewConfigBuilderFrom creates a ConfigBuilder starting from cfg.
func NewConfigBuilderFrom(cfg session.Config) *ConfigBuilder {
	return &ConfigBuilder{config: cfg}
}

// NewPresetConfigBuilder creates a ConfigBuilder with a preset applied.
func NewPresetConfigBuilder(preset Preset) *ConfigBuilder {
	return NewConfigBuilder().WithPreset(preset)
}

// WithPreset applies the presentation settings of a preset.
func (b *ConfigBuilder) WithPreset(preset Preset) *ConfigBuilder {
	switch preset {
	case PresetManga:
		b.config.Style = pipeline.StyleSpread
		b.config.Direction = pipeline.RightToLeft
		b.config.OffsetFirstSpread = true
	case PresetWebtoon:
		b.config.Style = pipeline.StyleScroll
		b.config.Direction = pipeline.LeftToRight
		b.config.AutoAdvance = true
		b.config.AutoMarkRead = true
	case PresetComic:
		b.config.Style = pipeline.StyleSingle
		b.config.Direction = pipeline.LeftToRight
	}
	return b
}

// Build returns the final Config, clamping values that would break the engine.
func (b *ConfigBuilder) Build() session.Config {
	cfg := b.config
	def := session.DefaultConfig()

	if cfg.MaxCached < 1 {
		cfg.MaxCached = def.MaxCached
	}
	// The window needs the chunk being read plus one on either side.
	if cfg.WindowSize < 2 {
		cfg.WindowSize = 2
	}
	if cfg.LeadDistance < 0 {
		cfg.LeadDistance = 0
	}
	if cfg.WideThreshold <= 0 {
		cfg.WideThreshold = def.WideThreshold
	}
	if cfg.PreloadDepth < 0 {
		cfg.PreloadDepth = 0
	}
	if cfg.DecodeWorkers < 1 {
		cfg.DecodeWorkers = 1
	}
	return cfg
}

// WithStyle sets the presentation style.
func (b *ConfigBuilder) WithStyle(style pipeline.Style) *ConfigBuilder {
	b.config.Style = style
	return b
}

// WithDirection sets the reading direction.
func (b *ConfigBuilder) WithDirection(direction pipeline.Direction) *ConfigBuilder {
	b.config.Direction = direction
	return b
}

// WithOffsetFirstSpread shows page 2 alone as well as page 1.
func (b *ConfigBuilder) WithOffsetFirstSpread(offset bool) *ConfigBuilder {
	b.config.OffsetFirstSpread = offset
	return b
}

// WithWideThreshold sets the aspect ratio above which a page is shown alone.
func (b *ConfigBuilder) WithWideThreshold(threshold float64) *ConfigBuilder {
	b.config.WideThreshold = threshold
	return b
}

// WithMaxCached sets how many chapters stay in memory.
func (b *ConfigBuilder) WithMaxCached(n int) *ConfigBuilder {
	b.config.MaxCached = n
	return b
}

// WithWindowSize sets how many chapters the continuous strip holds.
func (b *ConfigBuilder) WithWindowSize(n int) *ConfigBuilder {
	b.config.WindowSize = n
	return b
}

// WithLeadDistance sets how far ahead of the viewport the next chapter is appended.
func (b *ConfigBuilder) WithLeadDistance(px float64) *ConfigBuilder {
	b.config.LeadDistance = px
	return b
}

// WithAutoAdvance sets whether the strip appends the next chapter on its own.
func (b *ConfigBuilder) WithAutoAdvance(enabled bool) *ConfigBuilder {
	b.config.AutoAdvance = enabled
	return b
}

// WithAutoMarkRead sets whether finished chapters are marked read.
func (b *ConfigBuilder) WithAutoMarkRead(enabled bool) *ConfigBuilder {
	b.config.AutoMarkRead = enabled
	return b
}

// WithPreloadDepth sets how many pages ahead are preloaded.
func (b *ConfigBuilder) WithPreloadDepth(n int) *ConfigBuilder {
	b.config.PreloadDepth = n
	return b
}

// WithDecodeWorkers sets the size of the aspect measuring pool.
func (b *ConfigBuilder) WithDecodeWorkers(n int) *ConfigBuilder {
	b.config.DecodeWorkers = n
	return b
}
