package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryStore is an in-process VectorStore using cosine similarity. It backs
// local runs and tests.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

type memoryCollection struct {
	size   uint64
	points map[string]Point
}

var _ VectorStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

func (m *MemoryStore) EnsureCollection(_ context.Context, name string, vectorSize uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.collections[name]; ok {
		if c.size != vectorSize {
			return fmt.Errorf("%w: collection %s has vector size %d, want %d", ErrVectorSizeMismatch, name, c.size, vectorSize)
		}
		return nil
	}
	m.collections[name] = &memoryCollection{size: vectorSize, points: make(map[string]Point)}
	return nil
}

func (m *MemoryStore) Count(_ context.Context, collection string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.collections[collection]
	if !ok {
		return 0, nil
	}
	return uint64(len(c.points)), nil
}

func (m *MemoryStore) Upsert(_ context.Context, collection string, points []Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.collections[collection]
	if !ok {
		return fmt.Errorf("collection %s does not exist", collection)
	}
	for _, p := range points {
		if uint64(len(p.Vector)) != c.size {
			return fmt.Errorf("point %s has vector size %d, want %d", p.ID, len(p.Vector), c.size)
		}
		c.points[p.ID] = Point{
			ID:      p.ID,
			Vector:  append([]float32(nil), p.Vector...),
			Payload: p.Payload,
		}
	}
	return nil
}

func (m *MemoryStore) Search(_ context.Context, collection string, vector []float32, limit int, scoreThreshold float32) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.collections[collection]
	if !ok || limit <= 0 {
		return nil, nil
	}

	results := make([]SearchResult, 0, len(c.points))
	for _, p := range c.points {
		score := cosine(vector, p.Vector)
		if score < scoreThreshold {
			continue
		}
		results = append(results, SearchResult{
			ID:    p.ID,
			Score: score,
			Point: Point{ID: p.ID, Payload: p.Payload},
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score == results[j].Score {
			return results[i].ID < results[j].ID
		}
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
