package strip

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/user/moku/pkg/adapters/logger"
	"github.com/user/moku/pkg/adapters/virtualsurface"
	"github.com/user/moku/pkg/mocks"
	"github.com/user/moku/pkg/pagecache"
	"github.com/user/moku/pkg/pipeline"
)

// countingSource wraps a fetcher without deduplication, so duplicate
// fetches by the window are visible.
type countingSource struct {
	fetcher *mocks.Fetcher
}

func (s *countingSource) Fetch(ctx context.Context, chapter pipeline.Chapter) (pipeline.ChapterPages, error) {
	pages, err := s.fetcher.ListPages(ctx, chapter.ID)
	if err != nil {
		return pipeline.ChapterPages{}, err
	}
	return pipeline.ChapterPages{Chapter: chapter, Pages: pages}, nil
}

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

// newSurface lays every page out 1000px tall in a 1000px viewport.
func newSurface(gap float64) *virtualsurface.Surface {
	return virtualsurface.New(virtualsurface.Config{
		ViewportWidth:  500,
		ViewportHeight: 1000,
		ChapterGap:     gap,
		DefaultAspect:  0.5,
	}, nil)
}

func assertStartIndices(t *testing.T, chunks []pipeline.StripChunk) {
	t.Helper()
	sum := 0
	for i, c := range chunks {
		if c.StartGlobalIndex != sum {
			t.Errorf("chunk %d (%s): expected start %d, got %d", i, c.ID, sum, c.StartGlobalIndex)
		}
		sum += c.PageCount()
	}
}

func chunkIDs(chunks []pipeline.StripChunk) []pipeline.ChapterID {
	ids := make([]pipeline.ChapterID, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	return ids
}

func TestWindow_ScrollScenario(t *testing.T) {
	ctx := context.Background()
	fetcher := scenarioFetcher()
	cache := pagecache.New(ctx, fetcher, 6, logger.NewNoop())
	surface := newSurface(0)
	sink := mocks.NewDebugSink(true)
	w := New(cache, nil, surface, sink, DefaultConfig(), logger.NewNoop())
	w.SetChapters(scenarioChapters())

	first, err := cache.Fetch(ctx, scenarioChapters()[0])
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Reset(ctx, first, 1); err != nil {
		t.Fatal(err)
	}
	chunks := w.Chunks()
	if len(chunks) != 1 || chunks[0].ID != "1" || chunks[0].StartGlobalIndex != 0 {
		t.Fatalf("expected [{1,0}], got %+v", chunks)
	}

	// Near the bottom of chapter 1.
	surface.SetScrollTop(18000)
	if err := w.CheckSentinel(ctx); err != nil {
		t.Fatal(err)
	}
	chunks = w.Chunks()
	if len(chunks) != 2 || chunks[1].ID != "2" || chunks[1].StartGlobalIndex != 20 {
		t.Fatalf("expected [{1,0},{2,20}], got %+v", chunks)
	}

	surface.SetScrollTop(36500)
	if err := w.CheckSentinel(ctx); err != nil {
		t.Fatal(err)
	}
	chunks = w.Chunks()
	if len(chunks) != 3 || chunks[2].StartGlobalIndex != 38 {
		t.Fatalf("expected chapter 3 at 38, got %+v", chunks)
	}

	// Viewport shows the last page of chapter 3 (offset 52000).
	surface.SetScrollTop(52000)
	if err := w.CheckSentinel(ctx); err != nil {
		t.Fatal(err)
	}
	chunks = w.Chunks()
	ids := chunkIDs(chunks)
	if len(ids) != 3 || ids[0] != "2" || ids[1] != "3" || ids[2] != "4" {
		t.Fatalf("expected window [2 3 4], got %v", ids)
	}
	assertStartIndices(t, chunks)
	if w.Trims() != 1 {
		t.Errorf("expected 1 trim, got %d", w.Trims())
	}

	// Chapter 1 was 20000px tall, so the viewport moved up by exactly that.
	if got := surface.ScrollTop(); got != 32000 {
		t.Errorf("expected scroll top 32000 after trim, got %f", got)
	}
	top := surface.Visible()[0].Key
	if top != (pipeline.PageKey{Chapter: "3", Page: 15}) {
		t.Errorf("expected chapter 3 page 15 still on screen, got %v", top)
	}

	if sink.WindowSaves == 0 {
		t.Error("expected window snapshots to be saved")
	}
	for _, id := range []pipeline.ChapterID{"1", "2", "3", "4"} {
		if fetcher.ListCalls(id) != 1 {
			t.Errorf("chapter %s: expected 1 fetch, got %d", id, fetcher.ListCalls(id))
		}
	}

	// End of series: nothing left to append.
	surface.SetScrollTop(surface.ContentHeight())
	if err := w.CheckSentinel(ctx); err != nil {
		t.Fatal(err)
	}
	if len(w.Chunks()) != 3 {
		t.Errorf("expected window to stay at 3 chunks, got %d", len(w.Chunks()))
	}
}

func TestWindow_TrimCompensationWithGap(t *testing.T) {
	ctx := context.Background()
	fetcher := mocks.NewFetcher(map[pipeline.ChapterID]int{"1": 2, "2": 2, "3": 2})
	surface := newSurface(250)
	cfg := Config{Size: 2, LeadDistance: 10, Append: true}
	w := New(&countingSource{fetcher: fetcher}, nil, surface, nil, cfg, logger.NewNoop())
	w.SetChapters([]pipeline.Chapter{{ID: "1"}, {ID: "2"}, {ID: "3"}})

	if err := w.Reset(ctx, pipeline.ChapterPages{Chapter: pipeline.Chapter{ID: "1"}, Pages: fetcher.Chapters["1"]}, 1); err != nil {
		t.Fatal(err)
	}
	surface.SetScrollTop(1000)
	if err := w.CheckSentinel(ctx); err != nil {
		t.Fatal(err)
	}
	// Layout: chapter 1 [0,2000), gap, chapter 2 [2250,4250).
	surface.SetScrollTop(3300)
	before := surface.Visible()

	if err := w.CheckSentinel(ctx); err != nil {
		t.Fatal(err)
	}
	if ids := chunkIDs(w.Chunks()); len(ids) != 2 || ids[0] != "2" || ids[1] != "3" {
		t.Fatalf("expected window [2 3], got %v", ids)
	}
	if got := surface.ScrollTop(); got != 1050 {
		t.Errorf("expected scroll top 3300-2250=1050, got %f", got)
	}
	after := surface.Visible()
	if len(after) != len(before) {
		t.Fatalf("expected same visible pages, got %v and %v", before, after)
	}
	for i := range before {
		if before[i].Key != after[i].Key || before[i].Ratio != after[i].Ratio {
			t.Errorf("visible[%d] changed from %+v to %+v", i, before[i], after[i])
		}
	}
}

func TestWindow_OnTrimReceivesSurvivors(t *testing.T) {
	ctx := context.Background()
	fetcher := mocks.NewFetcher(map[pipeline.ChapterID]int{"1": 1, "2": 1, "3": 1})
	surface := newSurface(0)
	w := New(&countingSource{fetcher: fetcher}, nil, surface, nil, Config{Size: 2, LeadDistance: 1500, Append: true}, logger.NewNoop())
	w.SetChapters([]pipeline.Chapter{{ID: "1"}, {ID: "2"}, {ID: "3"}})

	var trims [][]pipeline.StripChunk
	w.OnTrim(func(kept []pipeline.StripChunk) {
		trims = append(trims, kept)
	})

	// Every chapter is within the lead distance, so Reset appends until
	// the series runs out and trims chapter 1 on the way.
	if err := w.Reset(ctx, pipeline.ChapterPages{Chapter: pipeline.Chapter{ID: "1"}, Pages: fetcher.Chapters["1"]}, 1); err != nil {
		t.Fatal(err)
	}

	if len(trims) != 1 {
		t.Fatalf("expected 1 trim notification, got %d", len(trims))
	}
	kept := trims[0]
	if ids := chunkIDs(kept); len(ids) != 2 || ids[0] != "2" || ids[1] != "3" {
		t.Fatalf("expected survivors [2 3], got %v", ids)
	}
	assertStartIndices(t, kept)

	// The handler gets a copy.
	kept[0].StartGlobalIndex = 99
	if w.Chunks()[0].StartGlobalIndex != 0 {
		t.Error("expected window chunks unaffected by the handler")
	}
}

func TestWindow_ResetAfterCancelRendersNothing(t *testing.T) {
	surface := newSurface(0)
	w := New(&countingSource{fetcher: scenarioFetcher()}, nil, surface, nil, DefaultConfig(), logger.NewNoop())
	w.SetChapters(scenarioChapters())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := w.Reset(ctx, pipeline.ChapterPages{Chapter: scenarioChapters()[0], Pages: make([]string, 3)}, 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if surface.Renders() != 0 {
		t.Errorf("expected no render, got %d", surface.Renders())
	}
	if len(w.Chunks()) != 0 {
		t.Errorf("expected empty window, got %v", chunkIDs(w.Chunks()))
	}
}

func TestWindow_DoubleTriggerFetchesOnce(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	fetcher := scenarioFetcher()
	fetcher.ListPagesFunc = func(ctx context.Context, id pipeline.ChapterID) ([]string, error) {
		<-release
		return fetcher.Chapters[id], nil
	}
	surface := newSurface(0)
	w := New(&countingSource{fetcher: fetcher}, nil, surface, nil, Config{Size: 3, LeadDistance: 1500, Append: false}, logger.NewNoop())
	w.SetChapters(scenarioChapters())
	if err := w.Reset(ctx, pipeline.ChapterPages{Chapter: scenarioChapters()[0], Pages: make([]string, 20)}, 1); err != nil {
		t.Fatal(err)
	}
	w.SetAppend(true)
	surface.SetScrollTop(19000)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- w.OnSentinel(ctx)
		}()
	}

	// The trigger that lost the claim returns without fetching.
	if err := <-errs; err != nil {
		t.Fatal(err)
	}
	close(release)
	wg.Wait()
	if err := <-errs; err != nil {
		t.Fatal(err)
	}

	if got := fetcher.ListCalls("2"); got != 1 {
		t.Errorf("expected chapter 2 fetched once, got %d", got)
	}
	ids := chunkIDs(w.Chunks())
	count := 0
	for _, id := range ids {
		if id == "2" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected chapter 2 appended once, got window %v", ids)
	}
}

func TestWindow_FetchFailureReleasesClaim(t *testing.T) {
	ctx := context.Background()
	fetcher := scenarioFetcher()
	failing := true
	fetcher.ListPagesFunc = func(ctx context.Context, id pipeline.ChapterID) ([]string, error) {
		if failing {
			return nil, errors.New("server unavailable")
		}
		return fetcher.Chapters[id], nil
	}
	surface := newSurface(0)
	w := New(&countingSource{fetcher: fetcher}, nil, surface, nil, DefaultConfig(), logger.NewNoop())
	w.SetChapters(scenarioChapters())
	_ = w.Reset(ctx, pipeline.ChapterPages{Chapter: scenarioChapters()[0], Pages: make([]string, 1)}, 1)

	if err := w.CheckSentinel(ctx); err == nil {
		t.Fatal("expected fetch error")
	}
	if len(w.Chunks()) != 1 {
		t.Fatalf("expected window unchanged after failure")
	}

	failing = false
	if err := w.CheckSentinel(ctx); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if len(w.Chunks()) < 2 {
		t.Errorf("expected chapter 2 appended on retry, got %v", chunkIDs(w.Chunks()))
	}
}

func TestWindow_ResetDiscardsPendingAppend(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	fetcher := scenarioFetcher()
	fetcher.ListPagesFunc = func(ctx context.Context, id pipeline.ChapterID) ([]string, error) {
		<-release
		return fetcher.Chapters[id], nil
	}
	surface := newSurface(0)
	w := New(&countingSource{fetcher: fetcher}, nil, surface, nil, Config{Size: 3, LeadDistance: 1500}, logger.NewNoop())
	w.SetChapters(scenarioChapters())
	_ = w.Reset(ctx, pipeline.ChapterPages{Chapter: scenarioChapters()[0], Pages: make([]string, 1)}, 1)
	w.SetAppend(true)

	done := make(chan error, 1)
	go func() { done <- w.OnSentinel(ctx) }()
	waitFor(t, func() bool { return fetcher.ListCalls("2") == 1 })

	w.SetAppend(false)
	_ = w.Reset(ctx, pipeline.ChapterPages{Chapter: scenarioChapters()[2], Pages: make([]string, 15)}, 1)
	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	if ids := chunkIDs(w.Chunks()); len(ids) != 1 || ids[0] != "3" {
		t.Errorf("expected only chapter 3 after reset, got %v", ids)
	}
}

func TestWindow_NonAppendModeAdvances(t *testing.T) {
	ctx := context.Background()
	surface := newSurface(0)
	cfg := Config{Size: 3, LeadDistance: 1500, Append: false}
	w := New(&countingSource{fetcher: scenarioFetcher()}, nil, surface, nil, cfg, logger.NewNoop())
	w.SetChapters(scenarioChapters())

	var advanced []pipeline.ChapterID
	w.OnAdvance(func(ctx context.Context, next pipeline.Chapter) error {
		advanced = append(advanced, next.ID)
		return nil
	})

	if err := w.Reset(ctx, pipeline.ChapterPages{Chapter: scenarioChapters()[0], Pages: make([]string, 2)}, 1); err != nil {
		t.Fatal(err)
	}
	if len(advanced) != 0 {
		t.Fatalf("expected no advance on reset, got %v", advanced)
	}

	surface.SetScrollTop(1000)
	if err := w.CheckSentinel(ctx); err != nil {
		t.Fatal(err)
	}
	if err := w.CheckSentinel(ctx); err != nil {
		t.Fatal(err)
	}
	if len(advanced) != 1 || advanced[0] != "2" {
		t.Errorf("expected one advance to chapter 2, got %v", advanced)
	}
	if len(w.Chunks()) != 1 {
		t.Errorf("expected window to hold only the active chapter, got %d", len(w.Chunks()))
	}
}

func TestWindow_ResetScrollsToPage(t *testing.T) {
	surface := newSurface(0)
	w := New(&countingSource{fetcher: scenarioFetcher()}, nil, surface, nil, Config{Append: false}, logger.NewNoop())
	w.SetChapters(scenarioChapters())
	if err := w.Reset(context.Background(), pipeline.ChapterPages{Chapter: scenarioChapters()[0], Pages: make([]string, 20)}, 5); err != nil {
		t.Fatal(err)
	}
	if got := surface.ScrollTop(); got != 4000 {
		t.Errorf("expected scroll top 4000, got %f", got)
	}
}

func TestWindow_LocateAndGlobalIndex(t *testing.T) {
	ctx := context.Background()
	surface := newSurface(0)
	w := New(&countingSource{fetcher: scenarioFetcher()}, nil, surface, nil, DefaultConfig(), logger.NewNoop())
	w.SetChapters(scenarioChapters())
	pages := pipeline.ChapterPages{Chapter: scenarioChapters()[0], Pages: make([]string, 20)}
	_ = w.Reset(ctx, pages, 1)
	surface.SetScrollTop(19000)
	_ = w.CheckSentinel(ctx)

	key, ok := w.Locate(22)
	if !ok || key != (pipeline.PageKey{Chapter: "2", Page: 3}) {
		t.Errorf("expected chapter 2 page 3, got %v (%v)", key, ok)
	}
	idx, ok := w.GlobalIndex(pipeline.PageKey{Chapter: "2", Page: 1})
	if !ok || idx != 20 {
		t.Errorf("expected global index 20, got %d (%v)", idx, ok)
	}
	if _, ok := w.Locate(999); ok {
		t.Error("expected out of range index to be missing")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for condition")
		}
		time.Sleep(time.Millisecond)
	}
}
