// Package browser defines the page-automation capability the disclosure
// scrapers are written against. The portals require a real browser (form
// state, DataTables reloads, printer-friendly PDF rendering), but the
// scraping logic itself only needs a handful of primitives, so it takes
// this interface and never a concrete engine. The production
// implementation is playwright-backed; tests use scripted fakes.
package browser

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrTimeout is returned when an expected element or navigation
	// does not settle within its deadline.
	ErrTimeout = errors.New("browser: timed out")
	// ErrNoSuchElement is returned by element queries that match nothing.
	ErrNoSuchElement = errors.New("browser: no such element")
)

// Page is a single browser tab. Implementations are not safe for
// concurrent use; callers must serialize access.
type Page interface {
	// URL returns the current location, or "" before any navigation.
	URL() string
	Navigate(ctx context.Context, url string) error

	Fill(ctx context.Context, selector, value string) error
	SelectOption(ctx context.Context, selector, value string) error
	Check(ctx context.Context, selector string) error
	Click(ctx context.Context, selector string) error

	// WaitVisible blocks until the selector matches a visible element.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	// WaitHidden blocks until the selector matches nothing visible.
	WaitHidden(ctx context.Context, selector string, timeout time.Duration) error

	// InnerText returns the text of the first match, or
	// ErrNoSuchElement.
	InnerText(ctx context.Context, selector string) (string, error)
	// Content returns the full serialized DOM of the current page.
	Content(ctx context.Context) (string, error)

	// PDF renders the current page to PDF bytes.
	PDF(ctx context.Context) ([]byte, error)
	// Get performs an HTTP GET with the page's session state (cookies),
	// which the disclosure portals require for artifact downloads.
	Get(ctx context.Context, url string) (status int, body []byte, err error)
}
