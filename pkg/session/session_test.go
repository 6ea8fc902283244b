package session

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/user/moku/pkg/adapters/logger"
	"github.com/user/moku/pkg/adapters/virtualsurface"
	"github.com/user/moku/pkg/mocks"
	"github.com/user/moku/pkg/pipeline"
)

func scenarioChapters() []pipeline.Chapter {
	return []pipeline.Chapter{
		{ID: "1", Name: "Chapter 1"},
		{ID: "2", Name: "Chapter 2"},
		{ID: "3", Name: "Chapter 3"},
		{ID: "4", Name: "Chapter 4"},
	}
}

func scenarioFetcher() *mocks.Fetcher {
	return mocks.NewFetcher(map[pipeline.ChapterID]int{"1": 20, "2": 18, "3": 15, "4": 12})
}

func TestNew_NoChapters(t *testing.T) {
	_, err := New(context.Background(), nil, Deps{Logger: logger.NewNoop()}, DefaultConfig())
	if !errors.Is(err, pipeline.ErrNoChapters) {
		t.Errorf("expected ErrNoChapters, got %v", err)
	}
}

func TestSession_ContinuousScrollScenario(t *testing.T) {
	fetcher := scenarioFetcher()
	surface := virtualsurface.New(virtualsurface.Config{
		ViewportWidth:  500,
		ViewportHeight: 1000,
		DefaultAspect:  0.5,
	}, nil)

	cfg := DefaultConfig()
	cfg.Style = pipeline.StyleScroll
	cfg.AutoAdvance = true
	cfg.AutoMarkRead = true

	s, err := New(context.Background(), scenarioChapters(), Deps{
		Fetcher:  fetcher,
		Decoder:  &mocks.ImageDecoder{},
		Surface:  surface,
		Observer: surface,
		Sink:     mocks.NewDebugSink(true),
		Logger:   logger.NewNoop(),
	}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.Start(ctx, "1", 1); err != nil {
		t.Fatal(err)
	}
	if ids := windowIDs(s); !reflect.DeepEqual(ids, []pipeline.ChapterID{"1"}) {
		t.Fatalf("expected window [1], got %v", ids)
	}

	surface.ScrollTo(18000)
	if ids := windowIDs(s); !reflect.DeepEqual(ids, []pipeline.ChapterID{"1", "2"}) {
		t.Fatalf("expected window [1 2], got %v", ids)
	}
	if starts := windowStarts(s); !reflect.DeepEqual(starts, []int{0, 20}) {
		t.Errorf("expected starts [0 20], got %v", starts)
	}

	surface.ScrollTo(36500)
	surface.ScrollTo(52000)
	if ids := windowIDs(s); !reflect.DeepEqual(ids, []pipeline.ChapterID{"2", "3", "4"}) {
		t.Fatalf("expected window [2 3 4], got %v", ids)
	}
	if starts := windowStarts(s); !reflect.DeepEqual(starts, []int{0, 18, 33}) {
		t.Errorf("expected rebased starts [0 18 33], got %v", starts)
	}

	// First page of chapter 3 at the top of the viewport.
	top, ok := surface.ElementOffset(pipeline.PageKey{Chapter: "3", Page: 1})
	if !ok {
		t.Fatal("chapter 3 is not rendered")
	}
	surface.ScrollTo(top)

	state := s.Navigator().State()
	if state.Chapter.ID != "3" || state.Page != 1 {
		t.Errorf("expected chapter 3 page 1, got %s page %d", state.Chapter.ID, state.Page)
	}

	s.Close()
	marked := fetcher.Marked()
	sort.Slice(marked, func(i, j int) bool { return marked[i] < marked[j] })
	if !reflect.DeepEqual(marked, []pipeline.ChapterID{"1", "2"}) {
		t.Errorf("expected chapters 1 and 2 marked read, got %v", marked)
	}

	summary := s.Summary()
	if summary.WindowTrims != 1 || summary.WindowChunks != 3 {
		t.Errorf("unexpected window summary: %+v", summary)
	}
	if len(summary.Visited) != 3 {
		t.Errorf("expected 3 visited chapters, got %v", summary.Visited)
	}
}

func TestSession_TrimmedChapterLeavesPosition(t *testing.T) {
	fetcher := mocks.NewFetcher(map[pipeline.ChapterID]int{"1": 1, "2": 1, "3": 1, "4": 1})
	// Every page is 700/0.7 = 1000px tall in a 1000px viewport.
	surface := virtualsurface.New(virtualsurface.DefaultConfig(), nil)

	cfg := DefaultConfig()
	cfg.Style = pipeline.StyleScroll
	cfg.AutoAdvance = true
	cfg.AutoMarkRead = true
	cfg.LeadDistance = 1500

	s, err := New(context.Background(), scenarioChapters(), Deps{
		Fetcher:  fetcher,
		Decoder:  &mocks.ImageDecoder{},
		Surface:  surface,
		Observer: surface,
		Logger:   logger.NewNoop(),
	}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Start(context.Background(), "1", 1); err != nil {
		t.Fatal(err)
	}
	if ids := windowIDs(s); !reflect.DeepEqual(ids, []pipeline.ChapterID{"1", "2", "3"}) {
		t.Fatalf("expected window [1 2 3], got %v", ids)
	}

	// Chapters 1 and 2 share the viewport; the sentinel then appends
	// chapter 4 and trims chapter 1 while it is still on screen.
	surface.ScrollTo(600)
	if ids := windowIDs(s); !reflect.DeepEqual(ids, []pipeline.ChapterID{"2", "3", "4"}) {
		t.Fatalf("expected window [2 3 4], got %v", ids)
	}
	if got := s.Navigator().State().Chapter.ID; got != "2" {
		t.Errorf("expected chapter 2 once chapter 1 is trimmed, got %s", got)
	}

	surface.ScrollTo(1000)
	visible := surface.Visible()
	if len(visible) != 1 || visible[0].Key != (pipeline.PageKey{Chapter: "3", Page: 1}) {
		t.Fatalf("expected only chapter 3 on screen, got %v", visible)
	}
	state := s.Navigator().State()
	if state.Chapter.ID != "3" || state.Page != 1 {
		t.Errorf("expected chapter 3 page 1, got %s page %d", state.Chapter.ID, state.Page)
	}

	s.Close()
	marked := fetcher.Marked()
	sort.Slice(marked, func(i, j int) bool { return marked[i] < marked[j] })
	if !reflect.DeepEqual(marked, []pipeline.ChapterID{"1", "2"}) {
		t.Errorf("expected chapters 1 and 2 marked read, got %v", marked)
	}
}

func TestSession_PagedReading(t *testing.T) {
	fetcher := mocks.NewFetcher(map[pipeline.ChapterID]int{"1": 3, "2": 2})
	cfg := DefaultConfig()
	cfg.Style = pipeline.StyleSingle
	cfg.AutoMarkRead = true

	s, err := New(context.Background(), []pipeline.Chapter{{ID: "1", Name: "One"}, {ID: "2", Name: "Two"}}, Deps{
		Fetcher: fetcher,
		Decoder: &mocks.ImageDecoder{},
		Logger:  logger.NewNoop(),
	}, cfg)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if err := s.Start(ctx, "1", 3); err != nil {
		t.Fatal(err)
	}
	nav := s.Navigator()
	if err := nav.Advance(ctx, true); err != nil {
		t.Fatal(err)
	}
	_ = nav.Advance(ctx, true)
	if err := nav.Advance(ctx, true); !errors.Is(err, pipeline.ErrEndOfSeries) {
		t.Errorf("expected ErrEndOfSeries, got %v", err)
	}

	if err := s.Start(ctx, "1", 1); err != nil {
		t.Fatal(err)
	}
	if err := s.SetStyle(ctx, pipeline.StyleScroll); !errors.Is(err, pipeline.ErrScrollMode) {
		t.Errorf("expected scroll mode to need a surface, got %v", err)
	}

	s.Close()
	if got := fetcher.Marked(); !reflect.DeepEqual(got, []pipeline.ChapterID{"1"}) {
		t.Errorf("expected chapter 1 marked read, got %v", got)
	}

	summary := s.Summary()
	if summary.SessionID == "" || summary.SessionID != s.ID() {
		t.Errorf("expected session id in summary, got %q", summary.SessionID)
	}
	if summary.Cache.Requests != 2 {
		t.Errorf("expected 2 remote requests, got %d", summary.Cache.Requests)
	}
	if summary.Position.Chapter.ID != "1" || summary.Position.Page != 1 {
		t.Errorf("unexpected final position: %+v", summary.Position)
	}
}

func TestSession_ScrollWithoutAutoAdvanceSwitchesChapters(t *testing.T) {
	fetcher := mocks.NewFetcher(map[pipeline.ChapterID]int{"1": 2, "2": 2})
	surface := virtualsurface.New(virtualsurface.Config{ViewportWidth: 500, ViewportHeight: 1000, DefaultAspect: 0.5}, nil)

	cfg := DefaultConfig()
	cfg.Style = pipeline.StyleScroll
	cfg.AutoAdvance = false

	s, err := New(context.Background(), []pipeline.Chapter{{ID: "1"}, {ID: "2"}}, Deps{
		Fetcher:  fetcher,
		Decoder:  &mocks.ImageDecoder{},
		Surface:  surface,
		Observer: surface,
		Logger:   logger.NewNoop(),
	}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.Start(ctx, "1", 1); err != nil {
		t.Fatal(err)
	}
	surface.ScrollTo(1000)

	if ids := windowIDs(s); !reflect.DeepEqual(ids, []pipeline.ChapterID{"2"}) {
		t.Errorf("expected window replaced by chapter 2, got %v", ids)
	}
	if got := s.Navigator().State().Chapter.ID; got != "2" {
		t.Errorf("expected chapter 2, got %s", got)
	}
	if surface.ScrollTop() != 0 {
		t.Errorf("expected scroll reset to top, got %f", surface.ScrollTop())
	}
}

func TestSession_CloseCancelsContext(t *testing.T) {
	s, err := New(context.Background(), scenarioChapters(), Deps{
		Fetcher: scenarioFetcher(),
		Decoder: &mocks.ImageDecoder{},
		Logger:  logger.NewNoop(),
	}, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	s.Close()
	s.Close()

	select {
	case <-s.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("expected session context to end")
	}
}

func windowIDs(s *Session) []pipeline.ChapterID {
	var ids []pipeline.ChapterID
	for _, c := range s.Window().Chunks() {
		ids = append(ids, c.ID)
	}
	return ids
}

func windowStarts(s *Session) []int {
	var starts []int
	for _, c := range s.Window().Chunks() {
		starts = append(starts, c.StartGlobalIndex)
	}
	return starts
}
