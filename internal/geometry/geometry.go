package geometry

import "sort"

// Box is an axis-aligned bounding box in absolute pixel coordinates,
// [x1, y1, x2, y2] with x2 > x1 and y2 > y1 for a non-degenerate box.
type Box struct {
	X1 float32 `json:"x1"`
	Y1 float32 `json:"y1"`
	X2 float32 `json:"x2"`
	Y2 float32 `json:"y2"`
}

// Width returns the box width, negative for inverted boxes.
func (b Box) Width() float32 { return b.X2 - b.X1 }

// Height returns the box height, negative for inverted boxes.
func (b Box) Height() float32 { return b.Y2 - b.Y1 }

// Area returns the box area, treating degenerate boxes as zero.
func (b Box) Area() float32 {
	w := b.Width()
	h := b.Height()
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return w * h
}

// Clamp restricts the box to the [0,0,width,height] frame rectangle.
// The result may be degenerate (zero or negative extent) when the box
// lies entirely outside the frame.
func (b Box) Clamp(width, height int) Box {
	return Box{
		X1: maxf(0, b.X1),
		Y1: maxf(0, b.Y1),
		X2: minf(float32(width), b.X2),
		Y2: minf(float32(height), b.Y2),
	}
}

// IoU computes the Intersection over Union of two boxes.
// Returns 0 when the union area is not positive (degenerate input).
func IoU(a, b Box) float32 {
	x1 := maxf(a.X1, b.X1)
	y1 := maxf(a.Y1, b.Y1)
	x2 := minf(a.X2, b.X2)
	y2 := minf(a.Y2, b.Y2)

	intersection := maxf(0, x2-x1) * maxf(0, y2-y1)
	union := a.Area() + b.Area() - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

// NonMaxSuppression filters overlapping boxes, greedily keeping the
// highest-scoring candidate and discarding every remaining box whose IoU
// with it exceeds iouThreshold. Equal scores preserve input order, so the
// result is deterministic. Kept indices are returned in selection order
// (best score first).
func NonMaxSuppression(boxes []Box, scores []float32, iouThreshold float32) []int {
	if len(boxes) == 0 {
		return nil
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	// SliceStable keeps original insertion order for score ties.
	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})

	keep := make([]int, 0, len(order))
	for len(order) > 0 {
		current := order[0]
		keep = append(keep, current)

		remaining := order[:0]
		for _, idx := range order[1:] {
			if IoU(boxes[current], boxes[idx]) <= iouThreshold {
				remaining = append(remaining, idx)
			}
		}
		order = remaining
	}
	return keep
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
