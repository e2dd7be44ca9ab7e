package model

import (
	"context"
	"errors"
)

var (
	// ErrNotInitialized is returned when inference is requested before the
	// model session finished loading. Callers in the frame hot path skip
	// the frame instead of blocking on initialization.
	ErrNotInitialized = errors.New("model session not initialized")

	// ErrSessionClosed is returned when inference is requested after Close.
	ErrSessionClosed = errors.New("model session closed")
)

// Tensor is a dense float32 tensor in row-major layout.
type Tensor struct {
	Shape []int64   `json:"shape"`
	Data  []float32 `json:"data"`
}

// Elements returns the element count implied by the shape.
func (t Tensor) Elements() int64 {
	if len(t.Shape) == 0 {
		return 0
	}
	n := int64(1)
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// Session is a loaded neural-network model. Implementations own the
// underlying runtime resources; Close releases them and is idempotent.
type Session interface {
	// Initialize loads the model. It must be called once before Run;
	// a failed Initialize is fatal to starting a surveillance session.
	Initialize(ctx context.Context) error

	// IsReady reports whether the model finished loading.
	IsReady() bool

	// Run executes one inference pass.
	Run(ctx context.Context, input Tensor) ([]Tensor, error)

	// Close releases the model session. Closing twice is a no-op.
	Close() error
}
