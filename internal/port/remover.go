package port

import "context"

// BackgroundRemover turns image bytes into the same image with background
// pixels made transparent. Implementations wrap an external segmentation
// provider; the mock returns its input unchanged.
type BackgroundRemover interface {
	Remove(ctx context.Context, image []byte) ([]byte, error)

	// Validate reports whether the remover is usable with its current
	// configuration. Called at upload time so a misconfigured credential is
	// rejected before any state is created.
	Validate() error

	Name() string
}
