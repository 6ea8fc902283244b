package pipeline

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNoChapters is returned when a session is opened without any chapters.
	ErrNoChapters = errors.New("pipeline: no chapters")

	// ErrUnknownChapter is returned when a chapter id is not in the ordered chapter list.
	ErrUnknownChapter = errors.New("pipeline: unknown chapter")

	// ErrEndOfSeries is returned when navigation runs past either end of the chapter list.
	// Hosts treat it as the signal to close the reader.
	ErrEndOfSeries = errors.New("pipeline: no adjacent chapter")

	// ErrScrollMode is returned when a paged operation is requested in continuous-scroll mode.
	ErrScrollMode = errors.New("pipeline: operation not available in continuous-scroll mode")

	// ErrEmptyChapter is returned when the remote lists no pages for a chapter.
	ErrEmptyChapter = errors.New("pipeline: chapter has no pages")
)

// FetchError is a remote or network failure while listing a chapter's pages.
// It is recoverable: the in-flight marker is gone, so the caller may retry.
type FetchError struct {
	Chapter ChapterID
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch chapter %s: %v", e.Chapter, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// DecodeError is an image that failed to load, measure or decode.
// It never halts navigation.
type DecodeError struct {
	Locator string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Locator, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsCancellation reports whether err only means a caller stopped waiting.
// Cancellations are not failures and must not reach the user.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
