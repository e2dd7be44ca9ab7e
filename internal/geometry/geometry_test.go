package geometry

import (
	"math"
	"testing"
)

func TestIoU(t *testing.T) {
	tests := []struct {
		name     string
		a        Box
		b        Box
		expected float32
	}{
		{
			name:     "identical boxes",
			a:        Box{0, 0, 10, 10},
			b:        Box{0, 0, 10, 10},
			expected: 1.0,
		},
		{
			name:     "no overlap",
			a:        Box{0, 0, 10, 10},
			b:        Box{20, 20, 30, 30},
			expected: 0.0,
		},
		{
			name:     "partial overlap",
			a:        Box{0, 0, 10, 10},
			b:        Box{5, 5, 15, 15},
			expected: 25.0 / 175.0, // intersection=25, union=100+100-25=175
		},
		{
			name:     "one inside other",
			a:        Box{0, 0, 20, 20},
			b:        Box{5, 5, 15, 15},
			expected: 100.0 / 400.0,
		},
		{
			name:     "touching edges",
			a:        Box{0, 0, 10, 10},
			b:        Box{10, 0, 20, 10},
			expected: 0.0,
		},
		{
			name:     "degenerate boxes",
			a:        Box{5, 5, 5, 5},
			b:        Box{5, 5, 5, 5},
			expected: 0.0, // union area is zero
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IoU(tt.a, tt.b)
			if math.Abs(float64(got-tt.expected)) > 0.0001 {
				t.Errorf("IoU(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestNonMaxSuppression(t *testing.T) {
	tests := []struct {
		name         string
		boxes        []Box
		scores       []float32
		iouThreshold float32
		expected     []int
	}{
		{
			name:     "empty input",
			expected: nil,
		},
		{
			name:         "single box",
			boxes:        []Box{{0, 0, 10, 10}},
			scores:       []float32{0.9},
			iouThreshold: 0.3,
			expected:     []int{0},
		},
		{
			name: "duplicate suppressed",
			boxes: []Box{
				{0, 0, 10, 10},
				{1, 1, 11, 11}, // heavy overlap with first
				{50, 50, 60, 60},
			},
			scores:       []float32{0.8, 0.9, 0.7},
			iouThreshold: 0.3,
			expected:     []int{1, 2},
		},
		{
			name: "selection order is best score first",
			boxes: []Box{
				{0, 0, 10, 10},
				{100, 100, 110, 110},
				{200, 200, 210, 210},
			},
			scores:       []float32{0.5, 0.9, 0.7},
			iouThreshold: 0.3,
			expected:     []int{1, 2, 0},
		},
		{
			name: "tied scores keep insertion order",
			boxes: []Box{
				{0, 0, 10, 10},
				{100, 100, 110, 110},
				{200, 200, 210, 210},
			},
			scores:       []float32{0.6, 0.6, 0.6},
			iouThreshold: 0.3,
			expected:     []int{0, 1, 2},
		},
		{
			name: "overlap at threshold is kept",
			boxes: []Box{
				{0, 0, 10, 10},
				{0, 0, 10, 10},
			},
			scores:       []float32{0.9, 0.8},
			iouThreshold: 1.0, // IoU == 1.0 does not exceed threshold
			expected:     []int{0, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NonMaxSuppression(tt.boxes, tt.scores, tt.iouThreshold)
			if len(got) != len(tt.expected) {
				t.Fatalf("NonMaxSuppression() = %v, want %v", got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("NonMaxSuppression()[%d] = %d, want %d", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

// Kept boxes must never overlap beyond the threshold.
func TestNonMaxSuppressionInvariant(t *testing.T) {
	boxes := []Box{
		{0, 0, 10, 10},
		{2, 2, 12, 12},
		{4, 4, 14, 14},
		{6, 6, 16, 16},
		{30, 30, 40, 40},
		{31, 31, 41, 41},
	}
	scores := []float32{0.9, 0.85, 0.8, 0.75, 0.7, 0.95}
	const threshold = 0.3

	kept := NonMaxSuppression(boxes, scores, threshold)
	for i := 0; i < len(kept); i++ {
		for j := i + 1; j < len(kept); j++ {
			if iou := IoU(boxes[kept[i]], boxes[kept[j]]); iou > threshold {
				t.Errorf("kept boxes %d and %d overlap with IoU %v > %v", kept[i], kept[j], iou, threshold)
			}
		}
	}
}

func TestBoxClamp(t *testing.T) {
	tests := []struct {
		name     string
		box      Box
		width    int
		height   int
		expected Box
	}{
		{
			name:     "inside frame untouched",
			box:      Box{10, 10, 50, 50},
			width:    100,
			height:   100,
			expected: Box{10, 10, 50, 50},
		},
		{
			name:     "negative origin clamped",
			box:      Box{-5, -8, 50, 50},
			width:    100,
			height:   100,
			expected: Box{0, 0, 50, 50},
		},
		{
			name:     "overflow clamped",
			box:      Box{80, 80, 150, 150},
			width:    100,
			height:   100,
			expected: Box{80, 80, 100, 100},
		},
		{
			name:     "fully outside becomes degenerate",
			box:      Box{150, 150, 200, 200},
			width:    100,
			height:   100,
			expected: Box{150, 150, 100, 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.box.Clamp(tt.width, tt.height)
			if got != tt.expected {
				t.Errorf("Clamp() = %v, want %v", got, tt.expected)
			}
		})
	}
}
