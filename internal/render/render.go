// Package render loads pages and answers DOM queries against them.
//
// The crawler never evaluates arbitrary scripts: everything it needs from a
// page goes through the Document query methods, so a headless browser and a
// plain HTML parser can be swapped behind the same interface.
package render

import "context"

// Document is the read-only query surface of a loaded page. A selector that
// matches nothing yields "" rather than an error; errors mean the query
// itself could not be evaluated.
type Document interface {
	// SelectText returns the trimmed text content of the first match.
	SelectText(ctx context.Context, selector string) (string, error)
	// SelectHref returns the absolute href of the first match.
	SelectHref(ctx context.Context, selector string) (string, error)
	// Count returns the number of elements matching selector.
	Count(ctx context.Context, selector string) (int, error)
	// SelectHrefs returns, for every container match, the absolute href of
	// the first child match beneath it ("" when the child is missing).
	SelectHrefs(ctx context.Context, container, child string) ([]string, error)
}

// Asset is a binary resource fetched from within a page's context.
type Asset struct {
	Data        []byte
	ContentType string
}

// Session is one page context: a browser tab or an HTTP-backed document.
type Session interface {
	// Navigate loads url and returns once the page has gone network idle.
	Navigate(ctx context.Context, url string) error
	// Document queries the currently loaded page.
	Document() Document
	// FetchAsset retrieves url from the page's context.
	FetchAsset(ctx context.Context, url string) (Asset, error)
	Close() error
}

// Browser hands out sessions. Implementations must allow one session per
// concurrent worker.
type Browser interface {
	NewSession(ctx context.Context) (Session, error)
	Close() error
}
