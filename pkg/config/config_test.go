package config

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/user/moku/pkg/pipeline"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.MaxCached != 6 {
		t.Errorf("expected max_cached 6, got %d", cfg.MaxCached)
	}
	if cfg.LeadDistance != 1500 {
		t.Errorf("expected lead_distance 1500, got %v", cfg.LeadDistance)
	}
	if cfg.WideThreshold != 1.2 {
		t.Errorf("expected wide_threshold 1.2, got %v", cfg.WideThreshold)
	}
	if cfg.Style != pipeline.StyleSingle || cfg.Direction != pipeline.LeftToRight {
		t.Errorf("unexpected presentation defaults: %v %v", cfg.Style, cfg.Direction)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moku.yaml")
	data := `server: http://127.0.0.1:4567
style: spread
direction: rtl
offset_first_spread: true
max_cached: 10
auto_mark_read: true
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.Server != "http://127.0.0.1:4567" {
		t.Errorf("unexpected server %q", cfg.Server)
	}
	if cfg.Style != pipeline.StyleSpread || cfg.Direction != pipeline.RightToLeft {
		t.Errorf("expected spread rtl, got %v %v", cfg.Style, cfg.Direction)
	}
	if cfg.MaxCached != 10 || !cfg.OffsetFirstSpread || !cfg.AutoMarkRead {
		t.Errorf("unexpected values: %+v", cfg)
	}
	if cfg.WindowSize != 3 {
		t.Errorf("expected unset keys to keep defaults, got window_size %d", cfg.WindowSize)
	}

	sc := cfg.ToSessionConfig()
	if sc.MaxCached != 10 || sc.Style != pipeline.StyleSpread || !sc.OffsetFirstSpread {
		t.Errorf("unexpected session config: %+v", sc)
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("max_cached: [1"), 0644)
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("MOKU_SERVER", "http://env:4567")
	t.Setenv("MOKU_USERNAME", "")
	cfg := Defaults()
	cfg.Username = "file-user"
	cfg.ApplyEnv()
	if cfg.Server != "http://env:4567" {
		t.Errorf("expected server from env, got %q", cfg.Server)
	}
	if cfg.Username != "file-user" {
		t.Errorf("empty env must not override, got %q", cfg.Username)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.Color
	}{
		{"#141414", color.RGBA{R: 20, G: 20, B: 20, A: 255}},
		{"FFaa00", color.RGBA{R: 255, G: 170, B: 0, A: 255}},
		{"#fff", color.Black},
		{"", color.Black},
	}
	for _, tt := range tests {
		if got := ParseColor(tt.in); got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
