package vector

import "context"

// VectorIndex stores item feature vectors and answers similarity queries.
type VectorIndex interface {
	// Add inserts or replaces vectors by ID.
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Remove(ctx context.Context, ids []string) error
	Size() int
	Close() error
}

// VectorResult is a single similarity hit.
type VectorResult struct {
	ID     string
	Cosine float64
	Score  int // Percent(Cosine)
}
