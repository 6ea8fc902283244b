// Package suwayomi implements ports.RemoteFetcher against a Suwayomi (Tachidesk)
// server's GraphQL API.
package suwayomi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/user/moku/pkg/pipeline"
	"github.com/user/moku/pkg/ports"
)

const (
	DefaultAttempts = 3
	DefaultDelay    = 500 * time.Millisecond
	DefaultTimeout  = 15 * time.Second

	graphqlPath = "/api/graphql"
)

const (
	fetchPagesMutation = `mutation FetchChapterPages($id: Int!) {
  fetchChapterPages(input: {chapterId: $id}) { pages }
}`
	markReadMutation = `mutation MarkRead($id: Int!) {
  updateChapter(input: {id: $id, patch: {isRead: true}}) { chapter { id isRead } }
}`
	chaptersQuery = `query Chapters($mangaId: Int!) {
  chapters(condition: {mangaId: $mangaId}, orderBy: SOURCE_ORDER) {
    nodes { id name chapterNumber sourceOrder }
  }
}`
)

// Options configures a Client.
type Options struct {
	Server   string // base URL, e.g. http://127.0.0.1:4567
	Username string
	Password string
	Attempts uint
	Delay    time.Duration
	Timeout  time.Duration // per request
	Client   *http.Client
}

// Client talks to one Suwayomi server.
type Client struct {
	server   *url.URL
	username string
	password string
	attempts uint
	delay    time.Duration
	http     *http.Client
	logger   ports.Logger
}

// New creates a Client.
func New(opts Options, logger ports.Logger) (*Client, error) {
	server, err := url.Parse(strings.TrimSuffix(opts.Server, "/"))
	if err != nil || server.Scheme == "" || server.Host == "" {
		return nil, fmt.Errorf("invalid server url %q", opts.Server)
	}
	if opts.Attempts == 0 {
		opts.Attempts = DefaultAttempts
	}
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		server:   server,
		username: opts.Username,
		password: opts.Password,
		attempts: opts.Attempts,
		delay:    opts.Delay,
		http:     opts.Client,
		logger:   logger.WithComponent("suwayomi"),
	}, nil
}

// ListPages returns absolute page URLs of a chapter.
func (c *Client) ListPages(ctx context.Context, chapter pipeline.ChapterID) ([]string, error) {
	id, err := chapterID(chapter)
	if err != nil {
		return nil, err
	}
	var data struct {
		FetchChapterPages struct {
			Pages []string `json:"pages"`
		} `json:"fetchChapterPages"`
	}
	if err := c.execute(ctx, fetchPagesMutation, map[string]any{"id": id}, &data); err != nil {
		return nil, err
	}
	pages := make([]string, 0, len(data.FetchChapterPages.Pages))
	for _, p := range data.FetchChapterPages.Pages {
		pages = append(pages, c.resolve(p))
	}
	return pages, nil
}

// MarkRead flags a chapter as read.
func (c *Client) MarkRead(ctx context.Context, chapter pipeline.ChapterID) error {
	id, err := chapterID(chapter)
	if err != nil {
		return err
	}
	var data struct {
		UpdateChapter struct {
			Chapter struct {
				IsRead bool `json:"isRead"`
			} `json:"chapter"`
		} `json:"updateChapter"`
	}
	if err := c.execute(ctx, markReadMutation, map[string]any{"id": id}, &data); err != nil {
		return err
	}
	if !data.UpdateChapter.Chapter.IsRead {
		return fmt.Errorf("chapter %s not marked read", chapter)
	}
	return nil
}

// Chapters returns the chapters of a manga in source order, oldest first.
func (c *Client) Chapters(ctx context.Context, mangaID int) ([]pipeline.Chapter, error) {
	var data struct {
		Chapters struct {
			Nodes []struct {
				ID            int     `json:"id"`
				Name          string  `json:"name"`
				ChapterNumber float64 `json:"chapterNumber"`
				SourceOrder   int     `json:"sourceOrder"`
			} `json:"nodes"`
		} `json:"chapters"`
	}
	if err := c.execute(ctx, chaptersQuery, map[string]any{"mangaId": mangaID}, &data); err != nil {
		return nil, err
	}
	chapters := make([]pipeline.Chapter, 0, len(data.Chapters.Nodes))
	for _, n := range data.Chapters.Nodes {
		name := n.Name
		if name == "" {
			name = strconv.FormatFloat(n.ChapterNumber, 'f', -1, 64)
		}
		chapters = append(chapters, pipeline.Chapter{ID: pipeline.ChapterID(strconv.Itoa(n.ID)), Name: name})
	}
	return chapters, nil
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// execute posts a GraphQL document, retrying network errors and 5xx responses.
func (c *Client) execute(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(gqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	var resp gqlResponse
	err = retry.Do(
		func() error {
			r, err := c.post(ctx, body)
			if err != nil {
				return err
			}
			resp = r
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("Retrying request (attempt %d): %v", n+2, err)
		}),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}

	if len(resp.Errors) > 0 {
		gqlErr := &GraphQLError{}
		for _, e := range resp.Errors {
			gqlErr.Messages = append(gqlErr.Messages, e.Message)
		}
		return gqlErr
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, body []byte) (gqlResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.server.String()+graphqlPath, bytes.NewReader(body))
	if err != nil {
		return gqlResponse{}, retry.Unrecoverable(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return gqlResponse{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return gqlResponse{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return gqlResponse{}, ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return gqlResponse{}, &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	var out gqlResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return gqlResponse{}, fmt.Errorf("unmarshal response: %w", err)
	}
	return out, nil
}

func retryable(err error) bool {
	if pipeline.IsCancellation(err) || errors.Is(err, ErrUnauthorized) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	return true
}

// resolve turns a server-relative page path into an absolute URL.
func (c *Client) resolve(page string) string {
	ref, err := url.Parse(page)
	if err != nil || ref.IsAbs() {
		return page
	}
	return c.server.ResolveReference(ref).String()
}

func chapterID(id pipeline.ChapterID) (int, error) {
	n, err := strconv.Atoi(string(id))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidChapterID, id)
	}
	return n, nil
}

var _ ports.RemoteFetcher = (*Client)(nil)
