package corrdist

import (
	"errors"
	"math"
)

// ErrUnknownDistanceKind is returned when an unknown distance kind is provided to NewDistance.
var ErrUnknownDistanceKind = errors.New("unknown distance kind")

// DistanceKind selects the base metric used for neighborhood selection.
//
// This metric only decides WHICH points form an anchor's neighborhood; the
// locally weighted quadratic-form distance built on top of the local PCA is
// a separate concept (see LocallyWeightedDistance).
//   - Euclidean (L2): absolute spatial distance between points
//   - L2Squared: squared Euclidean (faster, preserves ordering — fine for kNN)
//   - Cosine: angular difference, independent of magnitude
type DistanceKind string

const (
	// Euclidean (L2) distance measures the straight-line distance between two points.
	// Formula: sqrt(sum((a[i] - b[i])^2))
	Euclidean DistanceKind = "l2"

	// L2Squared measures the squared straight-line distance between two points.
	// Avoids the sqrt, and ordering is preserved, so kNN neighborhoods come
	// out identical to Euclidean at lower cost.
	// Formula: sum((a[i] - b[i])^2)
	L2Squared DistanceKind = "l2_squared"

	// Cosine distance measures the angular difference between vectors
	// (1 - cosine similarity). Use when direction matters but magnitude does not.
	// Range: [0, 2] where 0 = identical direction, 1 = orthogonal, 2 = opposite
	Cosine DistanceKind = "cosine"
)

// Singleton instances of distance strategies.
// These are stateless and can be safely reused across goroutines.
var (
	euclideanDistanceImpl = euclidean{}
	l2SquaredDistanceImpl = l2Squared{}
	cosineDistanceImpl    = cosine{}
)

// Distance computes the base-metric distance between two vectors.
// Implementations are stateless and safe for concurrent use.
type Distance interface {
	// Calculate computes the distance between two vectors a and b.
	// The vectors must have the same dimensionality.
	// Returns a float32 representing the distance (lower values = more similar).
	Calculate(a, b []float32) float32
}

// NewDistance returns a singleton Distance implementation for the specified metric type.
// Returns ErrUnknownDistanceKind if the distance kind is not recognized.
func NewDistance(t DistanceKind) (Distance, error) {
	switch t {
	case Euclidean:
		return euclideanDistanceImpl, nil
	case L2Squared:
		return l2SquaredDistanceImpl, nil
	case Cosine:
		return cosineDistanceImpl, nil
	default:
		return nil, ErrUnknownDistanceKind
	}
}

// euclidean implements the Distance interface using Euclidean (L2) distance.
type euclidean struct{}

// Calculate computes the Euclidean (L2) distance between two vectors.
// Time complexity: O(n) where n is the vector dimension
func (e euclidean) Calculate(a, b []float32) float32 {
	var sum float32
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return float32(math.Sqrt(float64(sum)))
}

// l2Squared implements the Distance interface using squared Euclidean distance.
type l2Squared struct{}

// Calculate computes the squared Euclidean (L2²) distance between two vectors.
// Time complexity: O(n) where n is the vector dimension
func (l l2Squared) Calculate(a, b []float32) float32 {
	var sum float32
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}

// cosine implements the Distance interface using cosine distance.
//
// Unlike index-backed search libraries that pre-normalize stored vectors,
// neighborhoods here are computed once per point during preprocessing, so
// Calculate pays for the norms inline rather than imposing a normalized-storage
// invariant on the dataset.
type cosine struct{}

// Calculate computes cosine distance between two vectors.
// A zero vector has no direction; its distance to anything is defined as 1
// (the orthogonal value) so that neighborhood selection stays total.
// Time complexity: O(n) where n is the vector dimension
func (c cosine) Calculate(a, b []float32) float32 {
	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 1
	}

	sim := dot / float32(math.Sqrt(float64(normA))*math.Sqrt(float64(normB)))

	// Clamp to [-1, 1] to handle floating point precision errors
	if sim > 1 {
		sim = 1
	} else if sim < -1 {
		sim = -1
	}

	return 1 - sim
}

// Norm computes the L2 norm (Euclidean length/magnitude) of a vector.
// Formula: sqrt(sum(v[i]^2))
func Norm(v []float32) float32 {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	return float32(math.Sqrt(float64(sum)))
}
