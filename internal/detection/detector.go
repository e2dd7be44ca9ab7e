package detection

import (
	"context"
	"fmt"
	"image"

	"lookout/internal/geometry"
	"lookout/internal/imaging"
	"lookout/internal/model"
)

const (
	// DetectorInputWidth and DetectorInputHeight are the face detection
	// model's fixed input resolution.
	DetectorInputWidth  = 320
	DetectorInputHeight = 240

	defaultConfThreshold = 0.5
	defaultNMSThreshold  = 0.3
)

// Detection is a face bounding box in source-frame pixel coordinates with
// its confidence score.
type Detection struct {
	Box   geometry.Box `json:"box"`
	Score float32      `json:"score"`
}

// Detector runs the face detection model over whole frames.
type Detector struct {
	session       model.Session
	confThreshold float32
	nmsThreshold  float32
}

// NewDetector wraps a detection model session with the reference
// thresholds (confidence 0.5, NMS IoU 0.3).
func NewDetector(session model.Session) *Detector {
	return &Detector{
		session:       session,
		confThreshold: defaultConfThreshold,
		nmsThreshold:  defaultNMSThreshold,
	}
}

// Initialize loads the detection model.
func (d *Detector) Initialize(ctx context.Context) error {
	return d.session.Initialize(ctx)
}

// IsReady reports whether the underlying model session finished loading.
func (d *Detector) IsReady() bool {
	return d.session.IsReady()
}

// Detect finds faces in the frame. Results carry absolute pixel coordinates
// of the original frame and come back in NMS selection order, best score
// first. Returns model.ErrNotInitialized when the model is still loading.
func (d *Detector) Detect(ctx context.Context, frame image.Image) ([]Detection, error) {
	if !d.session.IsReady() {
		return nil, model.ErrNotInitialized
	}

	resized := imaging.ResizeForDetection(frame, DetectorInputWidth, DetectorInputHeight)
	input := model.Tensor{
		Shape: []int64{1, 3, DetectorInputHeight, DetectorInputWidth},
		Data:  imaging.ToNormalizedTensor(resized, imaging.DetectorNormalization),
	}

	outputs, err := d.session.Run(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("face detection inference failed: %w", err)
	}
	if len(outputs) < 2 {
		return nil, fmt.Errorf("face detection returned %d outputs, want 2", len(outputs))
	}

	scores, boxes := outputs[0], outputs[1]
	anchors, err := anchorCount(scores, boxes)
	if err != nil {
		return nil, err
	}

	bounds := frame.Bounds()
	frameW := float32(bounds.Dx())
	frameH := float32(bounds.Dy())

	var candidateBoxes []geometry.Box
	var candidateScores []float32
	for i := 0; i < anchors; i++ {
		faceScore := scores.Data[i*2+1]
		if faceScore <= d.confThreshold {
			continue
		}
		// Box outputs are normalized to [0,1]; convert using the
		// original frame dimensions, not the resized input.
		candidateBoxes = append(candidateBoxes, geometry.Box{
			X1: boxes.Data[i*4+0] * frameW,
			Y1: boxes.Data[i*4+1] * frameH,
			X2: boxes.Data[i*4+2] * frameW,
			Y2: boxes.Data[i*4+3] * frameH,
		})
		candidateScores = append(candidateScores, faceScore)
	}

	if len(candidateBoxes) == 0 {
		return nil, nil
	}

	keep := geometry.NonMaxSuppression(candidateBoxes, candidateScores, d.nmsThreshold)
	detections := make([]Detection, 0, len(keep))
	for _, idx := range keep {
		detections = append(detections, Detection{
			Box:   candidateBoxes[idx],
			Score: candidateScores[idx],
		})
	}
	return detections, nil
}

// CropFaces cuts the detected face regions out of the frame. Boxes are
// clamped to the frame bounds; boxes that clamp to zero or negative area
// are silently dropped. The returned crops parallel the surviving boxes.
func CropFaces(frame image.Image, detections []Detection) ([]image.Image, []Detection) {
	faces := make([]image.Image, 0, len(detections))
	kept := make([]Detection, 0, len(detections))
	for _, det := range detections {
		crop, ok := imaging.Crop(frame, det.Box)
		if !ok {
			continue
		}
		faces = append(faces, crop)
		kept = append(kept, det)
	}
	return faces, kept
}

// Close releases the detection model session.
func (d *Detector) Close() error {
	return d.session.Close()
}

func anchorCount(scores, boxes model.Tensor) (int, error) {
	// Scores arrive as [1, N, 2] face/non-face pairs, boxes as [1, N, 4].
	if len(scores.Data)%2 != 0 || len(boxes.Data)%4 != 0 {
		return 0, fmt.Errorf("malformed detection output: %d scores, %d box values", len(scores.Data), len(boxes.Data))
	}
	n := len(scores.Data) / 2
	if len(boxes.Data)/4 != n {
		return 0, fmt.Errorf("detection output mismatch: %d anchors vs %d boxes", n, len(boxes.Data)/4)
	}
	return n, nil
}
