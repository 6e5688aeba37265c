package metric

import (
	"fmt"
	"math"
)

// Metric names a distance function between two embeddings of equal dimension.
type Metric string

// Supported metrics.
const (
	// Manhattan is the L1 distance: sum of absolute coordinate differences.
	Manhattan Metric = "manhattan"
	Euclidean Metric = "euclidean"
	// Cosine is 1 - cosine similarity, in [0, 2].
	Cosine Metric = "cosine"
)

// DistanceFunc computes a non-negative distance. Callers guarantee len(a) == len(b).
type DistanceFunc func(a, b []float32) float64

// IsValid checks if the metric is one of the supported values.
func (m Metric) IsValid() bool {
	return m == Manhattan || m == Euclidean || m == Cosine
}

// Func returns the distance function for the metric.
func (m Metric) Func() (DistanceFunc, error) {
	switch m {
	case Manhattan:
		return ManhattanDistance, nil
	case Euclidean:
		return EuclideanDistance, nil
	case Cosine:
		return CosineDistance, nil
	default:
		return nil, fmt.Errorf("unknown distance metric %q", m)
	}
}

// ManhattanDistance returns sum(|a[i] - b[i]|).
func ManhattanDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += math.Abs(float64(a[i]) - float64(b[i]))
	}
	return sum
}

// EuclideanDistance returns sqrt(sum((a[i] - b[i])^2)).
func EuclideanDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// CosineDistance returns 1 - cos(a, b). Zero vectors are at distance 1 from everything.
func CosineDistance(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
