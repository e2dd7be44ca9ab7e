// Package similarity ranks face embeddings by cosine similarity.
// All embeddings handled here are unit-norm by construction (the embedding
// model L2-normalizes its output), so the plain dot product is the cosine
// similarity in [-1, 1].
package similarity

import "sort"

// Dot returns the dot product of two equal-length vectors.
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Similarities computes the dot product of query against every candidate,
// in candidate input order.
func Similarities(query []float32, candidates [][]float32) []float32 {
	out := make([]float32, len(candidates))
	for i, c := range candidates {
		out[i] = Dot(query, c)
	}
	return out
}

// TopN returns the indices of the n highest scores in descending order.
// Equal scores rank by original index, lowest first, so results are
// deterministic.
func TopN(scores []float32, n int) []int {
	if n <= 0 || len(scores) == 0 {
		return nil
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})

	if n > len(order) {
		n = len(order)
	}
	return order[:n]
}
