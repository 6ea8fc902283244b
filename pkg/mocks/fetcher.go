// Package mocks provides mock implementations for testing.
package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/user/moku/pkg/pipeline"
	"github.com/user/moku/pkg/ports"
)

// Fetcher is a mock implementation of ports.RemoteFetcher.
// Without ListPagesFunc it serves Chapters, and fails for unknown ids.
type Fetcher struct {
	ListPagesFunc func(ctx context.Context, chapter pipeline.ChapterID) ([]string, error)
	MarkReadFunc  func(ctx context.Context, chapter pipeline.ChapterID) error

	Chapters map[pipeline.ChapterID][]string

	mu        sync.Mutex
	listCalls map[pipeline.ChapterID]int
	marked    []pipeline.ChapterID
}

// NewFetcher creates a Fetcher serving chapters with the given page counts.
// Locators look like "<chapter>/<page>.jpg".
func NewFetcher(pageCounts map[pipeline.ChapterID]int) *Fetcher {
	chapters := make(map[pipeline.ChapterID][]string, len(pageCounts))
	for id, n := range pageCounts {
		pages := make([]string, n)
		for i := range pages {
			pages[i] = fmt.Sprintf("%s/%d.jpg", id, i+1)
		}
		chapters[id] = pages
	}
	return &Fetcher{Chapters: chapters}
}

func (m *Fetcher) ListPages(ctx context.Context, chapter pipeline.ChapterID) ([]string, error) {
	m.mu.Lock()
	if m.listCalls == nil {
		m.listCalls = make(map[pipeline.ChapterID]int)
	}
	m.listCalls[chapter]++
	m.mu.Unlock()

	if m.ListPagesFunc != nil {
		return m.ListPagesFunc(ctx, chapter)
	}
	pages, ok := m.Chapters[chapter]
	if !ok {
		return nil, fmt.Errorf("chapter not found: %s", chapter)
	}
	return pages, nil
}

func (m *Fetcher) MarkRead(ctx context.Context, chapter pipeline.ChapterID) error {
	m.mu.Lock()
	m.marked = append(m.marked, chapter)
	m.mu.Unlock()

	if m.MarkReadFunc != nil {
		return m.MarkReadFunc(ctx, chapter)
	}
	return nil
}

// ListCalls returns how many times ListPages was called for a chapter.
func (m *Fetcher) ListCalls(chapter pipeline.ChapterID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls[chapter]
}

// Marked returns the chapters passed to MarkRead, in call order.
func (m *Fetcher) Marked() []pipeline.ChapterID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]pipeline.ChapterID(nil), m.marked...)
}

var _ ports.RemoteFetcher = (*Fetcher)(nil)
