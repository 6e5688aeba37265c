// Package scoring defines how per-field distances merge into one combined distance.
package scoring

import "fmt"

// Combiner merges the title and transcript distances of one item.
type Combiner interface {
	Combine(title, transcript float64) float64
}

// Kind names a combiner policy.
type Kind string

// Combiner policies.
const (
	KindSum      Kind = "sum"
	KindWeighted Kind = "weighted"
)

// Sum adds the title and transcript distances.
type Sum struct{}

// Combine implements Combiner.
func (Sum) Combine(title, transcript float64) float64 { return title + transcript }

// Weighted scales each distance before adding them.
type Weighted struct {
	Title      float64
	Transcript float64
}

// NewWeighted validates weights and creates a weighted combiner.
func NewWeighted(title, transcript float64) (Weighted, error) {
	if title < 0 || transcript < 0 {
		return Weighted{}, fmt.Errorf("weights must be >= 0, got title=%v transcript=%v", title, transcript)
	}
	if title == 0 && transcript == 0 {
		return Weighted{}, fmt.Errorf("at least one weight must be positive")
	}
	return Weighted{Title: title, Transcript: transcript}, nil
}

// Combine implements Combiner.
func (w Weighted) Combine(title, transcript float64) float64 {
	return w.Title*title + w.Transcript*transcript
}

// New builds the combiner for a policy name. Weights are ignored for KindSum.
func New(kind Kind, titleWeight, transcriptWeight float64) (Combiner, error) {
	switch kind {
	case "", KindSum:
		return Sum{}, nil
	case KindWeighted:
		return NewWeighted(titleWeight, transcriptWeight)
	default:
		return nil, fmt.Errorf("unknown combiner %q", kind)
	}
}
