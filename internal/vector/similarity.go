// Package vector provides feature-vector similarity and an in-memory similarity index.
package vector

import (
	"fmt"
	"math"
)

// DimensionMismatchError reports that two vectors of different lengths were compared.
type DimensionMismatchError struct {
	Left  int
	Right int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("vector dimension mismatch: %d vs %d", e.Left, e.Right)
}

// Cosine returns the cosine similarity of a and b in [-1, 1].
// Empty vectors, zero-magnitude vectors, and non-finite intermediates yield 0.
// Vectors of different lengths are rejected with *DimensionMismatchError.
func Cosine(a, b []float32) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, nil
	}
	if len(a) != len(b) {
		return 0, &DimensionMismatchError{Left: len(a), Right: len(b)}
	}
	dot := InnerProduct(a, b)
	magA := L2Norm(a)
	magB := L2Norm(b)
	if magA == 0 || magB == 0 {
		return 0, nil
	}
	cos := dot / (magA * magB)
	if math.IsNaN(cos) || math.IsInf(cos, 0) {
		return 0, nil
	}
	return cos, nil
}

// Score maps the cosine similarity of a and b to a percentage in [0, 100].
// Negative similarity collapses to 0. Any input Cosine rejects scores 0.
func Score(a, b []float32) int {
	cos, err := Cosine(a, b)
	if err != nil {
		return 0
	}
	return Percent(cos)
}

// Percent rounds cos*100 to the nearest integer and clamps it to [0, 100].
func Percent(cos float64) int {
	if math.IsNaN(cos) {
		return 0
	}
	pct := math.Round(cos * 100)
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return int(pct)
}

// InnerProduct returns the dot product of a and b, or 0 when lengths differ.
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}
