package suwayomi

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidChapterID is returned for chapter ids that are not server ids.
	ErrInvalidChapterID = errors.New("suwayomi: chapter id is not numeric")

	// ErrUnauthorized is returned when the server rejects the credentials.
	ErrUnauthorized = errors.New("suwayomi: unauthorized")
)

// StatusError is a non-2xx response from the server.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("suwayomi: server returned status %d: %s", e.Status, e.Body)
}

// Temporary reports whether the request may succeed when retried.
func (e *StatusError) Temporary() bool {
	return e.Status >= 500 || e.Status == 429
}

// GraphQLError carries the errors array of a GraphQL response.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	if len(e.Messages) == 0 {
		return "suwayomi: graphql error"
	}
	return "suwayomi: " + e.Messages[0]
}
