package retrieval

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/hr-leave-assistant/agent/contract"
)

const (
	BaselinePolicyText = "Company policy: Employees are entitled to 20 days annual leave per year."
	BaselinePolicyType = "policy"

	payloadText = "text"
	payloadType = "type"
)

// BaselinePolicyID is stable across restarts so re-seeding upserts rather
// than duplicates.
var BaselinePolicyID = uuid.NewSHA1(uuid.NameSpaceURL, []byte("policy1")).String()

// PolicyIndex is the similarity-search adapter over HR policy documents.
type PolicyIndex struct {
	store      VectorStore
	embedder   Embedder
	collection string
	minScore   float32

	seedMu sync.Mutex
	seeded bool
}

var _ contractx.PolicySearcher = (*PolicyIndex)(nil)

func NewPolicyIndex(store VectorStore, embedder Embedder, collection string, minScore float32) (*PolicyIndex, error) {
	if store == nil || embedder == nil {
		return nil, fmt.Errorf("%w: policy index needs a store and an embedder", contractx.ErrValidation)
	}
	if strings.TrimSpace(collection) == "" {
		return nil, fmt.Errorf("%w: policy collection name is empty", contractx.ErrValidation)
	}
	return &PolicyIndex{
		store:      store,
		embedder:   embedder,
		collection: collection,
		minScore:   minScore,
	}, nil
}

// Search returns up to topK documents above the relevance floor, best first.
// An empty result is not an error.
func (p *PolicyIndex) Search(ctx context.Context, query string, topK int) ([]contractx.PolicyDocument, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: policy query is empty", contractx.ErrInvalidArgument)
	}
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive", contractx.ErrInvalidArgument)
	}

	if err := p.ensureSeeded(ctx); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("collection", p.collection).Msg("seed policy index")
		return nil, fmt.Errorf("%w: seed failed", contractx.ErrPolicyIndexUnavailable)
	}

	vec, err := p.embedder.Embed(ctx, query)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("embed policy query")
		return nil, fmt.Errorf("%w: embed query", contractx.ErrPolicyIndexUnavailable)
	}

	hits, err := p.store.Search(ctx, p.collection, vec, topK, p.minScore)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("collection", p.collection).Msg("search policy index")
		return nil, fmt.Errorf("%w: search", contractx.ErrPolicyIndexUnavailable)
	}

	docs := make([]contractx.PolicyDocument, 0, len(hits))
	for _, h := range hits {
		if h.Score < p.minScore {
			continue
		}
		text, _ := h.Point.Payload[payloadText].(string)
		docType, _ := h.Point.Payload[payloadType].(string)
		docs = append(docs, contractx.PolicyDocument{ID: h.ID, Text: text, Type: docType, Score: h.Score})
	}
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].Score > docs[j].Score })
	if len(docs) > topK {
		docs = docs[:topK]
	}
	return docs, nil
}

// Prepare seeds the index ahead of the first search. Errors are returned
// unwrapped so callers can tell a misconfigured collection from an outage.
func (p *PolicyIndex) Prepare(ctx context.Context) error {
	return p.ensureSeeded(ctx)
}

// ensureSeeded writes the baseline document into an empty index. A failed
// attempt is retried on the next search.
func (p *PolicyIndex) ensureSeeded(ctx context.Context) error {
	p.seedMu.Lock()
	defer p.seedMu.Unlock()

	if p.seeded {
		return nil
	}

	vec, err := p.embedder.Embed(ctx, BaselinePolicyText)
	if err != nil {
		return fmt.Errorf("embed baseline policy: %w", err)
	}
	if err := p.store.EnsureCollection(ctx, p.collection, uint64(len(vec))); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	n, err := p.store.Count(ctx, p.collection)
	if err != nil {
		return err
	}
	if n == 0 {
		err = p.store.Upsert(ctx, p.collection, []Point{{
			ID:     BaselinePolicyID,
			Vector: vec,
			Payload: map[string]any{
				payloadText: BaselinePolicyText,
				payloadType: BaselinePolicyType,
			},
		}})
		if err != nil {
			return err
		}
		log.Ctx(ctx).Info().Str("collection", p.collection).Msg("seeded policy index with baseline document")
	}

	p.seeded = true
	return nil
}

func (p *PolicyIndex) Close() error {
	if c, ok := p.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
