package port

import "context"

// Blob containers. Originals hold uploads as received, processed holds
// pipeline output; both are time-limited by the cleanup policy.
const (
	ContainerOriginals = "originals"
	ContainerProcessed = "processed"
)

type BlobStore interface {
	// Put stores data under container/key and returns its public URL.
	Put(ctx context.Context, container, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, container, key string) ([]byte, error)
	Delete(ctx context.Context, container, key string) error
	URL(container, key string) string
}
