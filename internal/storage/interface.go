package storage

import (
	"context"
	"io"

	"mediad/internal/models"
)

// StoreResult describes one confirmed backend write. SizeBytes is what the
// backend reports, not what the client declared.
type StoreResult struct {
	Location  string
	URL       string
	SizeBytes int64
}

// Backend is the byte-storage capability shared by the local disk and
// remote object-store adapters.
type Backend interface {
	Kind() models.BackendKind
	Store(ctx context.Context, r io.Reader, name string) (StoreResult, error)
	Open(ctx context.Context, location string) (io.ReadCloser, error)
	// Delete removes stored content. It reports false with a nil error when
	// there was nothing to delete.
	Delete(ctx context.Context, location string) (bool, error)
	Exists(ctx context.Context, location string) (bool, error)
	AccessURL(location string) string
}
