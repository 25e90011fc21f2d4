// Package storage defines where run artifacts are written.
package storage

import (
	"context"
	"io"
)

// BlobStore persists an object under path and returns its URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}
