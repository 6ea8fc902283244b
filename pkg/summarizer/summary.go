// Package summarizer renders reading session reports.
package summarizer

import (
	"time"

	"github.com/user/moku/pkg/session"
)

// Summary contains everything reported about one reading session.
type Summary struct {
	GeneratedAt time.Time

	Session  SessionInfo
	Settings Settings
	Reading  ReadingInfo
	Cache    CacheInfo
}

// SessionInfo identifies the session.
type SessionInfo struct {
	ID        string
	Source    string // server URL or local directory
	StartedAt time.Time
	Duration  time.Duration
	LastError string
}

// Settings contains the presentation settings in effect at the end.
type Settings struct {
	Preset            string
	Style             string
	Direction         string
	OffsetFirstSpread bool
}

// ReadingInfo describes what was read.
type ReadingInfo struct {
	Chapter          string // chapter shown last
	Page             int
	PageCount        int
	Visited          []string
	Positions        int
	MarkedRead       []string
	MarkReadFailures int
}

// CacheInfo contains page cache, aspect and window counters.
type CacheInfo struct {
	Requests       int
	Hits           int
	Shared         int
	Failures       int
	Evictions      int
	CachedChapters int
	AspectsKnown   int
	AspectFailures int
	WindowChunks   int
	WindowTrims    int
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithSession copies a session snapshot.
func (b *Builder) WithSession(s session.Summary) *Builder {
	b.summary.Session.ID = s.SessionID
	b.summary.Session.StartedAt = s.StartedAt
	b.summary.Session.Duration = s.Duration
	b.summary.Session.LastError = s.LastError

	b.summary.Settings.Style = s.Style.String()
	b.summary.Settings.Direction = s.Direction.String()
	b.summary.Settings.OffsetFirstSpread = s.OffsetFirstSpread

	r := ReadingInfo{
		Chapter:          s.Position.Chapter.Name,
		Page:             s.Position.Page,
		PageCount:        s.Position.PageCount,
		Positions:        s.Positions,
		MarkReadFailures: s.MarkReadFailures,
	}
	if r.Chapter == "" {
		r.Chapter = string(s.Position.Chapter.ID)
	}
	for _, c := range s.Visited {
		name := c.Name
		if name == "" {
			name = string(c.ID)
		}
		r.Visited = append(r.Visited, name)
	}
	for _, id := range s.MarkedRead {
		r.MarkedRead = append(r.MarkedRead, string(id))
	}
	b.summary.Reading = r

	b.summary.Cache = CacheInfo{
		Requests:       s.Cache.Requests,
		Hits:           s.Cache.Hits,
		Shared:         s.Cache.Shared,
		Failures:       s.Cache.Failures,
		Evictions:      s.Cache.Evictions,
		CachedChapters: s.CachedChapters,
		AspectsKnown:   s.AspectsKnown,
		AspectFailures: s.AspectFailures,
		WindowChunks:   s.WindowChunks,
		WindowTrims:    s.WindowTrims,
	}
	return b
}

// WithSource records where chapters came from.
func (b *Builder) WithSource(source string) *Builder {
	b.summary.Session.Source = source
	return b
}

// WithPreset records the preset the session started from.
func (b *Builder) WithPreset(preset string) *Builder {
	b.summary.Settings.Preset = preset
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
