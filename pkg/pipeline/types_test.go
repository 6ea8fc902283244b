package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestParseStyle(t *testing.T) {
	tests := []struct {
		input string
		want  Style
	}{
		{"single", StyleSingle},
		{"spread", StyleSpread},
		{"Double", StyleSpread},
		{"scroll", StyleScroll},
		{"webtoon", StyleScroll},
		{"LONGSTRIP", StyleScroll},
		{"", StyleSingle},
		{"unknown", StyleSingle},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseStyle(tt.input); got != tt.want {
				t.Errorf("ParseStyle(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestStyle_TextRoundTrip(t *testing.T) {
	for _, style := range []Style{StyleSingle, StyleSpread, StyleScroll} {
		text, err := style.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var got Style
		if err := got.UnmarshalText(text); err != nil {
			t.Fatal(err)
		}
		if got != style {
			t.Errorf("expected %v, got %v", style, got)
		}
	}
}

func TestDirection_Forward(t *testing.T) {
	tests := []struct {
		direction Direction
		side      Side
		want      bool
	}{
		{LeftToRight, SideRight, true},
		{LeftToRight, SideLeft, false},
		{RightToLeft, SideLeft, true},
		{RightToLeft, SideRight, false},
	}
	for _, tt := range tests {
		if got := tt.direction.Forward(tt.side); got != tt.want {
			t.Errorf("%v.Forward(%v) = %v, want %v", tt.direction, tt.side, got, tt.want)
		}
	}
}

func TestParseDirection(t *testing.T) {
	if ParseDirection("RTL") != RightToLeft {
		t.Error("expected RTL to parse as right to left")
	}
	if ParseDirection("ltr") != LeftToRight || ParseDirection("sideways") != LeftToRight {
		t.Error("expected left to right for anything but rtl")
	}
	if RightToLeft.String() != "rtl" || LeftToRight.String() != "ltr" {
		t.Error("unexpected direction names")
	}
}

func TestGroup(t *testing.T) {
	g := Group{5, 4}
	if g.First() != 4 {
		t.Errorf("expected first page 4, got %d", g.First())
	}
	if !g.Contains(5) || g.Contains(3) {
		t.Error("unexpected Contains result")
	}
}

func TestChapterPages_Locator(t *testing.T) {
	pages := ChapterPages{Pages: []string{"a", "b"}}
	tests := []struct {
		page int
		want string
	}{
		{0, ""},
		{1, "a"},
		{2, "b"},
		{3, ""},
	}
	for _, tt := range tests {
		if got := pages.Locator(tt.page); got != tt.want {
			t.Errorf("Locator(%d) = %q, want %q", tt.page, got, tt.want)
		}
	}
}

func TestIndexOf(t *testing.T) {
	chapters := []Chapter{{ID: "a"}, {ID: "b"}}
	if IndexOf(chapters, "b") != 1 {
		t.Error("expected index 1")
	}
	if IndexOf(chapters, "z") != -1 {
		t.Error("expected -1 for unknown chapter")
	}
}

func TestRebase(t *testing.T) {
	chunks := []StripChunk{
		{Pages: []string{"1", "2", "3"}, StartGlobalIndex: 20},
		{Pages: []string{"1", "2"}, StartGlobalIndex: 23},
		{Pages: []string{"1"}, StartGlobalIndex: 25},
	}
	Rebase(chunks)
	want := []int{0, 3, 5}
	for i, c := range chunks {
		if c.StartGlobalIndex != want[i] {
			t.Errorf("chunk %d: expected start %d, got %d", i, want[i], c.StartGlobalIndex)
		}
	}
}

func TestIsCancellation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, true},
		{"deadline", context.DeadlineExceeded, true},
		{"wrapped", fmt.Errorf("fetch: %w", context.Canceled), true},
		{"fetch error", &FetchError{Chapter: "1", Err: context.Canceled}, true},
		{"failure", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsCancellation(tt.err); got != tt.want {
				t.Errorf("IsCancellation(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestFetchError_Unwrap(t *testing.T) {
	cause := errors.New("timeout")
	err := error(&FetchError{Chapter: "7", Err: cause})
	if !errors.Is(err, cause) {
		t.Error("expected FetchError to unwrap to its cause")
	}
	var fe *FetchError
	if !errors.As(fmt.Errorf("open: %w", err), &fe) || fe.Chapter != "7" {
		t.Error("expected errors.As to find the FetchError")
	}
}
