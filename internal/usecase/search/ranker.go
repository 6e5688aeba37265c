package search

import (
	"sort"

	"github.com/kailas-cloud/vidsearch/internal/domain"
	"github.com/kailas-cloud/vidsearch/internal/domain/catalog"
	"github.com/kailas-cloud/vidsearch/internal/domain/search/metric"
	"github.com/kailas-cloud/vidsearch/internal/domain/search/request"
	"github.com/kailas-cloud/vidsearch/internal/domain/search/result"
	"github.com/kailas-cloud/vidsearch/internal/domain/search/scoring"
)

// Ranker scores catalog items against a query vector.
// It holds no per-call state and may be shared across goroutines.
type Ranker struct {
	distance metric.DistanceFunc
	combiner scoring.Combiner
}

// NewRanker creates a ranker for one distance metric and one combiner policy.
func NewRanker(m metric.Metric, combiner scoring.Combiner) (*Ranker, error) {
	fn, err := m.Func()
	if err != nil {
		return nil, err
	}
	if combiner == nil {
		combiner = scoring.Sum{}
	}
	return &Ranker{distance: fn, combiner: combiner}, nil
}

// scoredItem pairs a catalog index with its combined distance.
type scoredItem struct {
	index    int
	distance float64
}

// Rank returns up to p.TopK() items whose combined distance is strictly below
// p.Threshold(), ordered by ascending distance with catalog order breaking ties.
// An empty catalog or TopK <= 0 yields an empty result.
func (r *Ranker) Rank(query []float32, cat *catalog.Catalog, p request.Params) ([]result.Result, error) {
	if cat.Len() == 0 {
		return []result.Result{}, nil
	}
	if len(query) != cat.Dimension() {
		return nil, domain.NewDimensionMismatch("query", cat.Dimension(), len(query))
	}
	if p.TopK() <= 0 {
		return []result.Result{}, nil
	}

	scored := r.score(query, cat, p.Threshold())

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].distance < scored[j].distance
	})

	if len(scored) > p.TopK() {
		scored = scored[:p.TopK()]
	}

	results := make([]result.Result, len(scored))
	for i, s := range scored {
		it := cat.At(s.index)
		results[i] = result.New(it.Title(), it.VideoID())
	}
	return results, nil
}

// score computes combined distances in catalog order and keeps those below threshold.
// NaN distances compare false and are dropped.
func (r *Ranker) score(query []float32, cat *catalog.Catalog, threshold float64) []scoredItem {
	var scored []scoredItem
	for i := 0; i < cat.Len(); i++ {
		it := cat.At(i)
		d := r.combiner.Combine(
			r.distance(it.TitleEmbedding(), query),
			r.distance(it.TranscriptEmbedding(), query),
		)
		if d < threshold {
			scored = append(scored, scoredItem{index: i, distance: d})
		}
	}
	return scored
}

