package variation

import (
	"context"
	"io"
)

// Loader opens a stored matrix. chunkSize <= 0 loads every field eagerly;
// otherwise fields are deferred with chunks of about chunkSize variants. The
// returned Closer releases the storage once the container is no longer used.
type Loader interface {
	Load(ctx context.Context, path string, chunkSize int) (*Variations, io.Closer, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, path string, chunkSize int) (*Variations, io.Closer, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, path string, chunkSize int) (*Variations, io.Closer, error) {
	return f(ctx, path, chunkSize)
}
