package similarity

import (
	"math"
	"testing"
)

func TestDotSelfSimilarity(t *testing.T) {
	// A unit vector against itself scores 1.
	v := []float32{0.6, 0.8}
	if got := Dot(v, v); math.Abs(float64(got-1.0)) > 1e-6 {
		t.Errorf("Dot(v, v) = %v, want 1.0", got)
	}
}

func TestSimilarities(t *testing.T) {
	query := []float32{1, 0}
	candidates := [][]float32{
		{1, 0},  // identical
		{0, 1},  // orthogonal
		{-1, 0}, // opposite
	}
	expected := []float32{1, 0, -1}

	got := Similarities(query, candidates)
	if len(got) != len(expected) {
		t.Fatalf("Similarities() length = %d, want %d", len(got), len(expected))
	}
	for i := range expected {
		if math.Abs(float64(got[i]-expected[i])) > 1e-6 {
			t.Errorf("Similarities()[%d] = %v, want %v", i, got[i], expected[i])
		}
	}
}

func TestTopN(t *testing.T) {
	tests := []struct {
		name     string
		scores   []float32
		n        int
		expected []int
	}{
		{
			name:     "descending order",
			scores:   []float32{0.2, 0.9, 0.5},
			n:        3,
			expected: []int{1, 2, 0},
		},
		{
			name:     "n larger than input",
			scores:   []float32{0.3, 0.1},
			n:        10,
			expected: []int{0, 1},
		},
		{
			name:     "ties keep lower index first",
			scores:   []float32{0.5, 0.7, 0.5, 0.7},
			n:        4,
			expected: []int{1, 3, 0, 2},
		},
		{
			name:     "top one",
			scores:   []float32{0.1, 0.4, 0.3},
			n:        1,
			expected: []int{1},
		},
		{
			name:     "zero n",
			scores:   []float32{0.1},
			n:        0,
			expected: nil,
		},
		{
			name:     "empty scores",
			scores:   nil,
			n:        3,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TopN(tt.scores, tt.n)
			if len(got) != len(tt.expected) {
				t.Fatalf("TopN() = %v, want %v", got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("TopN()[%d] = %d, want %d", i, got[i], tt.expected[i])
				}
			}
		})
	}
}
