package hnsw

import (
	"fmt"
	"math"

	"github.com/qilbeedb/qilbeedb/internal/qerrors"
)

// Distance computes the configured metric's distance between a and b;
// smaller is closer for every metric (spec §4.7).
func Distance(metric Metric, a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, qerrors.Wrap("hnsw.Distance", fmt.Errorf("%w: dimension mismatch (%d vs %d)", qerrors.ErrValidation, len(a), len(b)))
	}
	switch metric {
	case MetricCosine:
		return cosineDistance(a, b), nil
	case MetricDot:
		return dotDistance(a, b), nil
	case MetricEuclidean:
		return euclideanDistance(a, b), nil
	default:
		return 0, qerrors.Wrap("hnsw.Distance", fmt.Errorf("%w: unknown metric %d", qerrors.ErrValidation, metric))
	}
}

func cosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

func dotDistance(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return -dot
}

func euclideanDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
