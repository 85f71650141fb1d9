// Package corpus provides access to the document corpus: streaming stores
// backed by CSV files or PostgreSQL, corpus CSV creation from a directory of
// text files, and directory statistics.
package corpus

import (
	"context"
	"errors"
)

// Document is one corpus entry: an opaque identifier (typically a filename)
// and the raw text content.
type Document struct {
	ID      string
	Content string
}

// ErrStop may be returned from a ForEach callback to end iteration early.
// ForEach treats it as clean termination and returns nil.
var ErrStop = errors.New("stop iteration")

// Store is a read-only document source. Implementations must iterate in a
// stable natural record order.
type Store interface {
	// ForEach calls fn for every document in record order. A fn error aborts
	// iteration; ErrStop aborts without surfacing an error.
	ForEach(ctx context.Context, fn func(Document) error) error
	// Content returns the content for docID, with found=false when the
	// document does not exist.
	Content(ctx context.Context, docID string) (content string, found bool, err error)
	// Count returns the number of documents in the store.
	Count(ctx context.Context) (int, error)
}
