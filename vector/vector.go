// Package vector holds pure helpers for embedding vectors.
package vector

import (
	"fmt"
	"math"

	"github.com/poiesic/docstore/core"
)

// Truncate keeps the first maxDimensions components of v.
// When v already fits it is returned as is; otherwise the result is a new
// slice and v is left untouched.
func Truncate(v []float32, maxDimensions int) ([]float32, error) {
	if maxDimensions <= 0 {
		return nil, fmt.Errorf("%w: max dimensions must be positive, got %d", core.ErrInvalidConfig, maxDimensions)
	}
	if len(v) <= maxDimensions {
		return v, nil
	}
	out := make([]float32, maxDimensions)
	copy(out, v[:maxDimensions])
	return out, nil
}

// Normalize rescales v to unit length and returns a new vector.
// A zero vector comes back as a zero vector of the same length.
func Normalize(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}
	magnitude := math.Sqrt(sum)

	result := make([]float32, len(v))
	if magnitude == 0 {
		return result
	}
	for i, val := range v {
		result[i] = float32(float64(val) / magnitude)
	}
	return result
}

// Magnitude returns the Euclidean length of v.
func Magnitude(v []float32) float64 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}
	return math.Sqrt(sum)
}
