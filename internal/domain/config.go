package domain

// VectorConfig describes the embedding model the catalog was built with.
type VectorConfig struct {
	Model          string
	Dimensions     int
	DistanceMetric string
	Threshold      float64
	TopK           int
}

// DefaultVectorConfig returns the defaults for all-MiniLM-L6-v2 with Manhattan distance.
// The threshold is empirical: it was tuned by eye for this model and metric and
// does not carry over to other models.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		Model:          "all-MiniLM-L6-v2",
		Dimensions:     384,
		DistanceMetric: "manhattan",
		Threshold:      40,
		TopK:           5,
	}
}
