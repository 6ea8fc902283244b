package localfetcher

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/user/moku/pkg/adapters/logger"
	"github.com/user/moku/pkg/mocks"
	"github.com/user/moku/pkg/pipeline"
)

func newFS() *mocks.FileSystem {
	fs := mocks.NewFileSystem()
	for _, p := range []string{
		"/manga/Chapter 10/001.jpg",
		"/manga/Chapter 2/10.png",
		"/manga/Chapter 2/2.png",
		"/manga/Chapter 2/1.png",
		"/manga/Chapter 2/notes.txt",
		"/manga/Chapter 1/a.webp",
	} {
		fs.WriteFile(p, []byte("x"))
	}
	fs.WriteFile("/manga/.thumbs/cover.jpg", []byte("x"))
	return fs
}

func TestFetcher_Chapters(t *testing.T) {
	f := New("/manga", newFS(), logger.NewNoop())
	chapters, err := f.Chapters()
	if err != nil {
		t.Fatalf("Chapters failed: %v", err)
	}
	want := []pipeline.ChapterID{"Chapter 1", "Chapter 2", "Chapter 10"}
	if len(chapters) != len(want) {
		t.Fatalf("expected %d chapters, got %+v", len(want), chapters)
	}
	for i := range want {
		if chapters[i].ID != want[i] {
			t.Errorf("chapter %d: expected %s, got %s", i, want[i], chapters[i].ID)
		}
	}
}

func TestFetcher_ListPages(t *testing.T) {
	f := New("/manga", newFS(), logger.NewNoop())
	pages, err := f.ListPages(context.Background(), "Chapter 2")
	if err != nil {
		t.Fatalf("ListPages failed: %v", err)
	}
	want := []string{"/manga/Chapter 2/1.png", "/manga/Chapter 2/2.png", "/manga/Chapter 2/10.png"}
	if len(pages) != len(want) {
		t.Fatalf("expected %v, got %v", want, pages)
	}
	for i := range want {
		if pages[i] != want[i] {
			t.Errorf("page %d: expected %s, got %s", i, want[i], pages[i])
		}
	}
}

func TestFetcher_ListPages_Errors(t *testing.T) {
	f := New("/manga", newFS(), logger.NewNoop())

	if _, err := f.ListPages(context.Background(), "../etc"); !errors.Is(err, pipeline.ErrUnknownChapter) {
		t.Errorf("expected ErrUnknownChapter for path escape, got %v", err)
	}
	if _, err := f.ListPages(context.Background(), "Missing"); err == nil {
		t.Error("expected error for missing chapter")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.ListPages(ctx, "Chapter 1"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestFetcher_MarkRead(t *testing.T) {
	f := New("/manga", newFS(), logger.NewNoop())
	if err := f.MarkRead(context.Background(), "Chapter 1"); err != nil {
		t.Errorf("MarkRead failed: %v", err)
	}
}

func TestNaturalLess(t *testing.T) {
	tests := []struct {
		in   []string
		want []string
	}{
		{[]string{"10", "9", "1"}, []string{"1", "9", "10"}},
		{[]string{"p10.jpg", "p2.jpg", "P1.jpg"}, []string{"P1.jpg", "p2.jpg", "p10.jpg"}},
		{[]string{"ch1.5", "ch1", "ch1.10"}, []string{"ch1", "ch1.5", "ch1.10"}},
		{[]string{"002", "2", "01"}, []string{"01", "2", "002"}},
		{[]string{"b", "a1", "a"}, []string{"a", "a1", "b"}},
	}
	for _, tt := range tests {
		got := append([]string(nil), tt.in...)
		sort.Slice(got, func(i, j int) bool { return NaturalLess(got[i], got[j]) })
		for i := range tt.want {
			if got[i] != tt.want[i] {
				t.Errorf("sort %v: expected %v, got %v", tt.in, tt.want, got)
				break
			}
		}
	}
}
