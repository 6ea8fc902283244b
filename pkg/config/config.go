// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"image/color"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/user/moku/pkg/pipeline"
	"github.com/user/moku/pkg/session"
)

// Config represents the full configuration for moku.
type Config struct {
	// Server
	Server           string `yaml:"server"`
	Username         string `yaml:"username"`
	Password         string `yaml:"password"`
	RetryAttempts    int    `yaml:"retry_attempts"`
	RetryDelayMs     int    `yaml:"retry_delay_ms"`
	RequestTimeoutMs int    `yaml:"request_timeout_ms"`
	DownloadsPath    string `yaml:"downloads_path"`

	// Presentation
	Style             pipeline.Style     `yaml:"style"`
	Direction         pipeline.Direction `yaml:"direction"`
	OffsetFirstSpread bool               `yaml:"offset_first_spread"`
	WideThreshold     float64            `yaml:"wide_threshold"`

	// Engine
	MaxCached     int     `yaml:"max_cached"`
	WindowSize    int     `yaml:"window_size"`
	LeadDistance  float64 `yaml:"lead_distance"`
	PreloadDepth  int     `yaml:"preload_depth"`
	AutoMarkRead  bool    `yaml:"auto_mark_read"`
	AutoAdvance   bool    `yaml:"auto_advance"`
	DecodeWorkers int     `yaml:"decode_workers"`

	// Browser strip
	ChromePath    string `yaml:"chrome_path"`
	Headless      bool   `yaml:"headless"`
	ViewportWidth int    `yaml:"viewport_width"`
	ChapterGap    int    `yaml:"chapter_gap"`

	// Export
	ExportHeight int    `yaml:"export_height"`
	ExportGap    int    `yaml:"export_gap"`
	Background   string `yaml:"background"`
	Workers      int    `yaml:"workers"`

	// Logging and debug
	LogLevel string `yaml:"log_level"`
	Debug    bool   `yaml:"debug"`
	DebugDir string `yaml:"debug_dir"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	s := session.DefaultConfig()
	return Config{
		RetryAttempts:    3,
		RetryDelayMs:     500,
		RequestTimeoutMs: 15000,

		Style:         s.Style,
		Direction:     s.Direction,
		WideThreshold: s.WideThreshold,

		MaxCached:     s.MaxCached,
		WindowSize:    s.WindowSize,
		LeadDistance:  s.LeadDistance,
		PreloadDepth:  s.PreloadDepth,
		AutoMarkRead:  s.AutoMarkRead,
		AutoAdvance:   s.AutoAdvance,
		DecodeWorkers: s.DecodeWorkers,

		ViewportWidth: 800,

		ExportHeight: 1200,
		Background:   "#141414",
		Workers:      4,

		LogLevel: "info",
		DebugDir: "./debug",
	}
}

// LoadFromFile loads configuration from a YAML file over the defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// ApplyEnv overrides server credentials from MOKU_SERVER, MOKU_USERNAME and
// MOKU_PASSWORD when they are set.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("MOKU_SERVER"); v != "" {
		c.Server = v
	}
	if v := os.Getenv("MOKU_USERNAME"); v != "" {
		c.Username = v
	}
	if v := os.Getenv("MOKU_PASSWORD"); v != "" {
		c.Password = v
	}
}

// RetryDelay returns RetryDelayMs as a duration.
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

// RequestTimeout returns RequestTimeoutMs as a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// ParseColor parses a #rrggbb color string. Malformed input gives black.
func ParseColor(hex string) color.Color {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) != 6 {
		return color.Black
	}
	var rgb [3]uint8
	for i := range rgb {
		rgb[i] = hexValue(hex[2*i])<<4 | hexValue(hex[2*i+1])
	}
	return color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}
}

func hexValue(c byte) uint8 {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return 0
	}
}

// ToSessionConfig converts Config to session.Config.
func (c Config) ToSessionConfig() session.Config {
	return session.Config{
		MaxCached:         c.MaxCached,
		Style:             c.Style,
		Direction:         c.Direction,
		OffsetFirstSpread: c.OffsetFirstSpread,
		WideThreshold:     c.WideThreshold,
		WindowSize:        c.WindowSize,
		LeadDistance:      c.LeadDistance,
		AutoAdvance:       c.AutoAdvance,
		PreloadDepth:      c.PreloadDepth,
		AutoMarkRead:      c.AutoMarkRead,
		DecodeWorkers:     c.DecodeWorkers,
		MarkReadTimeoutMs: c.RequestTimeoutMs,
	}
}
