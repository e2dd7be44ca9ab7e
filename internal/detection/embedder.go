package detection

import (
	"context"
	"fmt"
	"image"

	"lookout/internal/imaging"
	"lookout/internal/model"
)

const (
	// EmbedderInputSize is the embedding model's fixed square input size.
	EmbedderInputSize = 160

	// EmbeddingDim is the embedding model's output dimensionality.
	EmbeddingDim = 512
)

// Embedder runs the face embedding model over cropped face images.
type Embedder struct {
	session model.Session
}

// NewEmbedder wraps an embedding model session.
func NewEmbedder(session model.Session) *Embedder {
	return &Embedder{session: session}
}

// Initialize loads the embedding model.
func (e *Embedder) Initialize(ctx context.Context) error {
	return e.session.Initialize(ctx)
}

// IsReady reports whether the underlying model session finished loading.
func (e *Embedder) IsReady() bool {
	return e.session.IsReady()
}

// Embed produces the face's identity embedding. The model's final layer
// L2-normalizes the vector, so the output is returned as-is without
// re-normalization.
func (e *Embedder) Embed(ctx context.Context, face image.Image) ([]float32, error) {
	if !e.session.IsReady() {
		return nil, model.ErrNotInitialized
	}

	cropped := imaging.CenterCrop(face, EmbedderInputSize)
	input := model.Tensor{
		Shape: []int64{1, 3, EmbedderInputSize, EmbedderInputSize},
		Data:  imaging.ToNormalizedTensor(cropped, imaging.EmbedderNormalization),
	}

	outputs, err := e.session.Run(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("face embedding inference failed: %w", err)
	}
	if len(outputs) < 1 {
		return nil, fmt.Errorf("face embedding returned no outputs")
	}
	if got := len(outputs[0].Data); got != EmbeddingDim {
		return nil, fmt.Errorf("face embedding has %d dimensions, want %d", got, EmbeddingDim)
	}
	return outputs[0].Data, nil
}

// Close releases the embedding model session.
func (e *Embedder) Close() error {
	return e.session.Close()
}

// EmbedReference embeds a single-identity reference image, the enrollment
// path. The image must contain exactly one detectable face: zero faces
// yields ErrNoFaces and more than one yields ErrMultipleFaces, both
// surfaced to the caller as validation failures rather than retried.
func EmbedReference(ctx context.Context, detector *Detector, embedder *Embedder, img image.Image) ([]float32, error) {
	detections, err := detector.Detect(ctx, img)
	if err != nil {
		return nil, err
	}

	faces, _ := CropFaces(img, detections)
	switch {
	case len(faces) == 0:
		return nil, ErrNoFaces
	case len(faces) > 1:
		return nil, fmt.Errorf("%w: found %d", ErrMultipleFaces, len(faces))
	}
	return embedder.Embed(ctx, faces[0])
}
