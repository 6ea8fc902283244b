package session

import (
	"time"

	"github.com/user/moku/pkg/pagecache"
	"github.com/user/moku/pkg/pipeline"
)

// Summary describes a session for reports.
type Summary struct {
	SessionID string
	StartedAt time.Time
	Duration  time.Duration

	Style             pipeline.Style
	Direction         pipeline.Direction
	OffsetFirstSpread bool

	Position  pipeline.NavigationState
	Visited   []pipeline.Chapter
	Positions int

	MarkedRead       []pipeline.ChapterID
	MarkReadFailures int

	Cache          pagecache.Stats
	CachedChapters int
	AspectsKnown   int
	AspectFailures int
	WindowChunks   int
	WindowTrims    int

	LastError string
}

// Summary returns a snapshot of the session.
func (s *Session) Summary() Summary {
	cfg := s.Config()
	s.mu.Lock()
	visited := append([]pipeline.Chapter(nil), s.visited...)
	positions := s.positionCnt
	started := s.started
	lastErr := ""
	if s.lastErr != nil {
		lastErr = s.lastErr.Error()
	}
	s.mu.Unlock()

	summary := Summary{
		SessionID:         s.id,
		StartedAt:         started,
		Duration:          time.Since(started),
		Style:             cfg.Style,
		Direction:         cfg.Direction,
		OffsetFirstSpread: cfg.OffsetFirstSpread,
		Position:          s.nav.State(),
		Visited:           visited,
		Positions:         positions,
		MarkedRead:        s.marker.Marked(),
		MarkReadFailures:  s.marker.Failures(),
		Cache:             s.cache.Stats(),
		CachedChapters:    s.cache.Len(),
		AspectsKnown:      s.oracle.Len(),
		AspectFailures:    s.oracle.Failures(),
		LastError:         lastErr,
	}
	if s.window != nil {
		summary.WindowChunks = len(s.window.Chunks())
		summary.WindowTrims = s.window.Trims()
	}
	return summary
}
