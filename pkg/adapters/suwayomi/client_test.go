package suwayomi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/user/moku/pkg/adapters/logger"
	"github.com/user/moku/pkg/pipeline"
)

type graphqlHandler func(w http.ResponseWriter, query string, vars map[string]any)

func newServer(t *testing.T, h graphqlHandler) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/api/graphql" || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var req gqlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		h(w, req.Query, req.Variables)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newClient(t *testing.T, server string) *Client {
	t.Helper()
	c, err := New(Options{Server: server, Delay: time.Millisecond}, logger.NewNoop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func TestNew_InvalidServer(t *testing.T) {
	for _, server := range []string{"", "localhost", "://bad"} {
		if _, err := New(Options{Server: server}, logger.NewNoop()); err == nil {
			t.Errorf("expected error for server %q", server)
		}
	}
}

func TestClient_ListPages(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, query string, vars map[string]any) {
		if !strings.Contains(query, "fetchChapterPages") {
			t.Errorf("unexpected query: %s", query)
		}
		if vars["id"] != float64(42) {
			t.Errorf("expected id 42, got %v", vars["id"])
		}
		w.Write([]byte(`{"data":{"fetchChapterPages":{"pages":[
			"/api/v1/manga/1/chapter/42/page/0",
			"https://cdn.example.com/p1.jpg"]}}}`))
	})

	pages, err := newClient(t, srv.URL).ListPages(context.Background(), "42")
	if err != nil {
		t.Fatalf("ListPages failed: %v", err)
	}
	want := []string{
		srv.URL + "/api/v1/manga/1/chapter/42/page/0",
		"https://cdn.example.com/p1.jpg",
	}
	if len(pages) != len(want) {
		t.Fatalf("expected %d pages, got %d", len(want), len(pages))
	}
	for i := range want {
		if pages[i] != want[i] {
			t.Errorf("page %d: expected %s, got %s", i, want[i], pages[i])
		}
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var n int32
	srv, calls := newServer(t, func(w http.ResponseWriter, query string, vars map[string]any) {
		if atomic.AddInt32(&n, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"data":{"fetchChapterPages":{"pages":["/p/0"]}}}`))
	})

	pages, err := newClient(t, srv.URL).ListPages(context.Background(), "1")
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if len(pages) != 1 {
		t.Errorf("expected 1 page, got %d", len(pages))
	}
	if got := atomic.LoadInt32(calls); got != 3 {
		t.Errorf("expected 3 requests, got %d", got)
	}
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantCalls int32
		check     func(error) bool
	}{
		{
			name:      "client error is not retried",
			status:    http.StatusBadRequest,
			body:      "bad",
			wantCalls: 1,
			check: func(err error) bool {
				var se *StatusError
				return errors.As(err, &se) && se.Status == http.StatusBadRequest
			},
		},
		{
			name:      "unauthorized",
			status:    http.StatusUnauthorized,
			wantCalls: 1,
			check:     func(err error) bool { return errors.Is(err, ErrUnauthorized) },
		},
		{
			name:      "server error exhausts attempts",
			status:    http.StatusInternalServerError,
			wantCalls: DefaultAttempts,
			check: func(err error) bool {
				var se *StatusError
				return errors.As(err, &se) && se.Temporary()
			},
		},
		{
			name:      "graphql errors",
			status:    http.StatusOK,
			body:      `{"errors":[{"message":"chapter not found"}]}`,
			wantCalls: 1,
			check: func(err error) bool {
				var ge *GraphQLError
				return errors.As(err, &ge) && ge.Messages[0] == "chapter not found"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls := newServer(t, func(w http.ResponseWriter, query string, vars map[string]any) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := newClient(t, srv.URL).ListPages(context.Background(), "7")
			if err == nil || !tt.check(err) {
				t.Errorf("unexpected error: %v", err)
			}
			if got := atomic.LoadInt32(calls); got != tt.wantCalls {
				t.Errorf("expected %d requests, got %d", tt.wantCalls, got)
			}
		})
	}
}

func TestClient_InvalidChapterID(t *testing.T) {
	c := newClient(t, "http://127.0.0.1:1")
	if _, err := c.ListPages(context.Background(), "ch-1"); !errors.Is(err, ErrInvalidChapterID) {
		t.Errorf("expected ErrInvalidChapterID, got %v", err)
	}
	if err := c.MarkRead(context.Background(), "ch-1"); !errors.Is(err, ErrInvalidChapterID) {
		t.Errorf("expected ErrInvalidChapterID, got %v", err)
	}
}

func TestClient_Cancelled(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, query string, vars map[string]any) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newClient(t, srv.URL).ListPages(ctx, "1")
	if !pipeline.IsCancellation(err) {
		t.Errorf("expected cancellation, got %v", err)
	}
}

func TestClient_MarkRead(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, query string, vars map[string]any) {
		if !strings.Contains(query, "updateChapter") {
			t.Errorf("unexpected query: %s", query)
		}
		w.Write([]byte(`{"data":{"updateChapter":{"chapter":{"id":5,"isRead":true}}}}`))
	})

	if err := newClient(t, srv.URL).MarkRead(context.Background(), "5"); err != nil {
		t.Errorf("MarkRead failed: %v", err)
	}
}

func TestClient_Chapters(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, query string, vars map[string]any) {
		if vars["mangaId"] != float64(3) {
			t.Errorf("expected mangaId 3, got %v", vars["mangaId"])
		}
		w.Write([]byte(`{"data":{"chapters":{"nodes":[
			{"id":10,"name":"Chapter 1","chapterNumber":1,"sourceOrder":1},
			{"id":11,"name":"","chapterNumber":1.5,"sourceOrder":2}]}}}`))
	})

	chapters, err := newClient(t, srv.URL).Chapters(context.Background(), 3)
	if err != nil {
		t.Fatalf("Chapters failed: %v", err)
	}
	want := []pipeline.Chapter{{ID: "10", Name: "Chapter 1"}, {ID: "11", Name: "1.5"}}
	if len(chapters) != len(want) {
		t.Fatalf("expected %d chapters, got %d", len(want), len(chapters))
	}
	for i := range want {
		if chapters[i] != want[i] {
			t.Errorf("chapter %d: expected %+v, got %+v", i, want[i], chapters[i])
		}
	}
}

func TestClient_BasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u, p, ok := r.BasicAuth(); !ok || u != "me" || p != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"data":{"fetchChapterPages":{"pages":[]}}}`))
	}))
	defer srv.Close()

	c, err := New(Options{Server: srv.URL, Username: "me", Password: "pw"}, logger.NewNoop())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.ListPages(context.Background(), "1"); err != nil {
		t.Errorf("expected credentials to be sent, got %v", err)
	}
}
