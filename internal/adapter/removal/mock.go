package removal

import (
	"context"

	"github.com/bnema/backdrop/internal/port"
)

// Mock returns the input unchanged. Deterministic stand-in for tests and
// offline development.
type Mock struct{}

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Remove(_ context.Context, image []byte) ([]byte, error) {
	out := make([]byte, len(image))
	copy(out, image)
	return out, nil
}

func (m *Mock) Validate() error {
	return nil
}

func (m *Mock) Name() string {
	return "mock"
}

var _ port.BackgroundRemover = (*Mock)(nil)
