package request

import (
	"math"

	"github.com/kailas-cloud/vidsearch/internal/domain"
)

// Params are validated ranking parameters.
//
// TopK <= 0 is accepted and asks for zero results; it is not an error.
type Params struct {
	threshold float64
	topK      int
}

// NewParams validates ranking parameters.
// threshold must be a non-negative number in the units of the configured metric.
// topK has no upper bound: every item passing the threshold is eligible.
func NewParams(threshold float64, topK int) (Params, error) {
	if math.IsNaN(threshold) {
		return Params{}, domain.InvalidParameter("threshold", "must be a number")
	}
	if threshold < 0 {
		return Params{}, domain.InvalidParameter("threshold", "must be >= 0, got %v", threshold)
	}
	return Params{threshold: threshold, topK: topK}, nil
}

// Threshold returns the exclusive upper bound on combined distance.
func (p Params) Threshold() float64 { return p.threshold }

// TopK returns the maximum number of results.
func (p Params) TopK() int { return p.topK }

// WithTopK returns a copy with a different result bound.
func (p Params) WithTopK(topK int) (Params, error) {
	return NewParams(p.threshold, topK)
}

// WithThreshold returns a copy with a different threshold.
func (p Params) WithThreshold(threshold float64) (Params, error) {
	return NewParams(threshold, p.topK)
}

// ValidateQuery checks raw query text before it is embedded.
// Length is not limited here; truncation is left to the model.
func ValidateQuery(query string) error {
	if query == "" {
		return domain.InvalidParameter("query", "is required")
	}
	return nil
}
