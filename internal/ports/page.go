package ports

import (
	"context"
	"time"
)

// ElementState is the observable state of one element matched by a selector.
type ElementState struct {
	Visible  bool
	Disabled bool
	Text     string
}

// Page is the capability surface the workflow components need from a browser
// page. Selector-based operations address matches in document order, so an
// index obtained from one call stays meaningful for the next as long as the
// page has not changed underneath.
//
// The real implementation drives a headless browser; tests use an in-memory
// fake.
type Page interface {
	Navigate(ctx context.Context, url string) error
	// Location returns the page's current URL, after any redirects.
	Location(ctx context.Context) (string, error)
	// HTML returns the full rendered document for out-of-browser parsing.
	HTML(ctx context.Context) (string, error)

	// Query returns the state of every element matching sel, in document
	// order. A selector with no matches returns an empty slice, not an error.
	Query(ctx context.Context, sel string) ([]ElementState, error)
	Click(ctx context.Context, sel string, index int) error
	Fill(ctx context.Context, sel string, index int, value string) error

	// WaitVisible blocks until a match of sel is visible or the timeout
	// elapses. Expiry is reported as an error the caller may treat as
	// recoverable.
	WaitVisible(ctx context.Context, sel string, timeout time.Duration) error
	// WaitSettled blocks until in-flight navigation has quiesced.
	WaitSettled(ctx context.Context, timeout time.Duration) error

	Screenshot(ctx context.Context, path string) error
}
