package retrieval

import (
	"context"
	"errors"
)

// ErrVectorSizeMismatch reports an existing collection built for a different
// embedding dimension.
var ErrVectorSizeMismatch = errors.New("vector size mismatch")

// VectorStore is the similarity index behind the policy search.
type VectorStore interface {
	// EnsureCollection creates the collection when it does not exist yet and
	// fails with ErrVectorSizeMismatch when it exists with another size.
	EnsureCollection(ctx context.Context, name string, vectorSize uint64) error
	Count(ctx context.Context, collection string) (uint64, error)
	Upsert(ctx context.Context, collection string, points []Point) error
	// Search returns at most limit points scoring at or above scoreThreshold,
	// best first.
	Search(ctx context.Context, collection string, vector []float32, limit int, scoreThreshold float32) ([]SearchResult, error)
}

type Point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

type SearchResult struct {
	ID    string  `json:"id"`
	Score float32 `json:"score"`
	Point Point   `json:"point"`
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
