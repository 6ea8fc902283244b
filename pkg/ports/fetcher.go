// Package ports defines interfaces for the collaborators the reader engine talks to.
package ports

import (
	"context"

	"github.com/user/moku/pkg/pipeline"
)

// RemoteFetcher abstracts the remote content API.
type RemoteFetcher interface {
	// ListPages returns the ordered page locators of a chapter.
	// Locators are opaque strings, typically URLs, resolved by the ImageDecoder.
	ListPages(ctx context.Context, chapter pipeline.ChapterID) ([]string, error)

	// MarkRead flags a chapter as read on the remote side.
	MarkRead(ctx context.Context, chapter pipeline.ChapterID) error
}
