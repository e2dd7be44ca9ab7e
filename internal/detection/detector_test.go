package detection

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lookout/internal/geometry"
	"lookout/internal/model"
)

// scoresTensor builds a [1,N,2] non-face/face score tensor from face scores.
func scoresTensor(faceScores ...float32) model.Tensor {
	data := make([]float32, 0, len(faceScores)*2)
	for _, s := range faceScores {
		data = append(data, 1-s, s)
	}
	return model.Tensor{Shape: []int64{1, int64(len(faceScores)), 2}, Data: data}
}

// boxesTensor builds a [1,N,4] normalized box tensor from x1,y1,x2,y2 quads.
func boxesTensor(coords ...float32) model.Tensor {
	return model.Tensor{Shape: []int64{1, int64(len(coords) / 4), 4}, Data: coords}
}

func boxAt(x1, y1, x2, y2 float32) geometry.Box {
	return geometry.Box{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

func readySession(t *testing.T, outputs ...[]model.Tensor) *model.StaticSession {
	t.Helper()
	sess := model.NewStaticSession(outputs...)
	require.NoError(t, sess.Initialize(context.Background()))
	return sess
}

func TestDetectNotReady(t *testing.T) {
	det := NewDetector(model.NewStaticSession())
	_, err := det.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 320, 240)))
	assert.ErrorIs(t, err, model.ErrNotInitialized)
}

func TestDetectScalesToFrame(t *testing.T) {
	sess := readySession(t, []model.Tensor{
		scoresTensor(0.9),
		boxesTensor(0.25, 0.5, 0.75, 1.0),
	})
	det := NewDetector(sess)

	frame := image.NewRGBA(image.Rect(0, 0, 640, 480))
	detections, err := det.Detect(context.Background(), frame)
	require.NoError(t, err)
	require.Len(t, detections, 1)

	// Normalized coordinates map to absolute pixels of the 640x480 frame,
	// not the 320x240 model input.
	assert.InDelta(t, 160.0, detections[0].Box.X1, 0.001)
	assert.InDelta(t, 240.0, detections[0].Box.Y1, 0.001)
	assert.InDelta(t, 480.0, detections[0].Box.X2, 0.001)
	assert.InDelta(t, 480.0, detections[0].Box.Y2, 0.001)
	assert.InDelta(t, 0.9, detections[0].Score, 0.001)
}

func TestDetectFiltersLowConfidence(t *testing.T) {
	// 0.5 sits exactly at the threshold and must be dropped; only
	// strictly greater scores survive.
	sess := readySession(t, []model.Tensor{
		scoresTensor(0.4, 0.5, 0.6),
		boxesTensor(
			0.0, 0.0, 0.2, 0.2,
			0.3, 0.3, 0.5, 0.5,
			0.6, 0.6, 0.8, 0.8,
		),
	})
	det := NewDetector(sess)

	detections, err := det.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 100, 100)))
	require.NoError(t, err)
	require.Len(t, detections, 1)
	assert.InDelta(t, 0.6, detections[0].Score, 0.001)
}

func TestDetectSuppressesOverlaps(t *testing.T) {
	// Two near-identical boxes for the same face plus one distinct face.
	sess := readySession(t, []model.Tensor{
		scoresTensor(0.8, 0.95, 0.7),
		boxesTensor(
			0.10, 0.10, 0.30, 0.30,
			0.11, 0.11, 0.31, 0.31,
			0.60, 0.60, 0.80, 0.80,
		),
	})
	det := NewDetector(sess)

	detections, err := det.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 200, 200)))
	require.NoError(t, err)
	require.Len(t, detections, 2)
	// Best score first, duplicate gone.
	assert.InDelta(t, 0.95, detections[0].Score, 0.001)
	assert.InDelta(t, 0.7, detections[1].Score, 0.001)
}

func TestDetectNoCandidates(t *testing.T) {
	sess := readySession(t, []model.Tensor{
		scoresTensor(0.1, 0.2),
		boxesTensor(0, 0, 0.5, 0.5, 0.5, 0.5, 1, 1),
	})
	det := NewDetector(sess)

	detections, err := det.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 100, 100)))
	require.NoError(t, err)
	assert.Empty(t, detections)
}

func TestDetectMalformedOutputs(t *testing.T) {
	sess := readySession(t, []model.Tensor{
		scoresTensor(0.9, 0.9),
		boxesTensor(0, 0, 0.5, 0.5), // one box for two anchors
	})
	det := NewDetector(sess)

	_, err := det.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 100, 100)))
	assert.ErrorContains(t, err, "mismatch")
}

func TestDetectRunError(t *testing.T) {
	boom := errors.New("socket closed")
	sess := readySession(t).Fail(boom)
	det := NewDetector(sess)

	_, err := det.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 100, 100)))
	assert.ErrorIs(t, err, boom)
}

func TestCropFacesDropsDegenerate(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 100, 100))
	detections := []Detection{
		{Box: boxAt(10, 10, 40, 40), Score: 0.9},
		{Box: boxAt(150, 150, 200, 200), Score: 0.8}, // clamps to nothing
		{Box: boxAt(50, 50, 90, 90), Score: 0.7},
	}

	faces, kept := CropFaces(frame, detections)
	require.Len(t, faces, 2)
	require.Len(t, kept, 2)
	assert.InDelta(t, 0.9, kept[0].Score, 0.001)
	assert.InDelta(t, 0.7, kept[1].Score, 0.001)
	assert.Equal(t, 30, faces[0].Bounds().Dx())
	assert.Equal(t, 30, faces[0].Bounds().Dy())
}
