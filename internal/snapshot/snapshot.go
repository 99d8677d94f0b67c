// Package snapshot archives raw fetched pages so extraction bugs can be
// replayed against the original content.
package snapshot

import (
	"context"
	"fmt"
	"io"
)

// Store persists one page artifact and returns a URI locating it.
type Store interface {
	Save(ctx context.Context, key string, contentType string, data io.Reader) (string, error)
}

// PageKey builds the canonical object key for one fetched page.
func PageKey(sourceName, runID string, page int, ext string) string {
	return fmt.Sprintf("%s/%s/page-%04d.%s", sourceName, runID, page, ext)
}

// Nop discards every artifact. Used when snapshotting is disabled.
type Nop struct{}

// Save implements Store.
func (Nop) Save(context.Context, string, string, io.Reader) (string, error) {
	return "", nil
}
