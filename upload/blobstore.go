package upload

import (
	"context"
	"io"
	"time"
)

// BlobInfo describes one stored object, enough for the orphan sweeper
// to decide whether it's stale.
type BlobInfo struct {
	Key          string
	LastModified time.Time
}

// BlobStore is the binary object collaborator. Put returns a publicly
// retrievable URL for the written object.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
}
