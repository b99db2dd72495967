// Package dom defines the live-document boundary used by the expansion
// engine. Implementations wrap a real browser page (internal/browser) or an
// in-memory fake (dom/domtest). The engine never caches what it gets from a
// Page: the document is owned by the browser and may change at any time.
package dom

import (
	"context"
	"errors"
)

var (
	// ErrNoMatch is returned by WatchChildList when no element matches the
	// container selector.
	ErrNoMatch = errors.New("dom: no element matches selector")

	// ErrDetached is returned by Element.Activate when the node is no longer
	// attached to the document.
	ErrDetached = errors.New("dom: element is detached")
)

// Page is a live document.
type Page interface {
	// QueryAll returns every element currently matching selector, in
	// document order. No match is an empty slice, not an error.
	QueryAll(ctx context.Context, selector string) ([]Element, error)

	// WatchChildList subscribes to node additions anywhere in the subtree of
	// the first element matching selector. The subscription is active when
	// the call returns. Returns ErrNoMatch when nothing matches.
	WatchChildList(ctx context.Context, selector string) (Watch, error)
}

// Element is a borrowed reference to one node. It may go stale between
// passes.
type Element interface {
	// Activate dispatches a synthetic click on the node.
	Activate(ctx context.Context) error
	// Label returns the trimmed text content, for logs only.
	Label(ctx context.Context) string
}

// Watch is one subscription created by WatchChildList.
type Watch interface {
	// Added is closed on the first qualifying mutation.
	Added() <-chan struct{}
	// Close tears the subscription down. Safe to call more than once.
	Close() error
}
