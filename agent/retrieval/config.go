package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/hr-leave-assistant/agent/contract"
	openrouterx "github.com/tanpawarit/hr-leave-assistant/pkg/openrouter"
)

const (
	BackendMemory = "memory"
	BackendQdrant = "qdrant"
)

type Config struct {
	Backend          string        `split_words:"true" default:"memory"`
	QdrantAddr       string        `split_words:"true" default:"localhost:6334"`
	Collection       string        `split_words:"true" default:"policies"`
	MinScore         float32       `split_words:"true" default:"0.2"`
	EmbeddingModel   string        `split_words:"true" default:"text-embedding-3-small"`
	EmbeddingAPIKey  string        `envconfig:"EMBEDDING_API_KEY"`
	EmbeddingBaseURL string        `split_words:"true" default:"https://api.openai.com/v1"`
	EmbeddingTimeout time.Duration `split_words:"true" default:"30s"`
}

// NewIndex builds the policy index for the configured backend. Without an
// embedding API key the lexical embedder is used.
func (c Config) NewIndex(ctx context.Context) (*PolicyIndex, error) {
	var embedder Embedder
	if c.EmbeddingAPIKey == "" {
		log.Ctx(ctx).Info().Msg("no embedding api key configured, using lexical embedder")
		embedder = LexicalEmbedder{}
	} else {
		client := openrouterx.NewClient(openrouterx.Config{
			BaseURL: c.EmbeddingBaseURL,
			APIKey:  c.EmbeddingAPIKey,
			Timeout: c.EmbeddingTimeout,
		})
		e, err := NewOpenAIEmbedder(client, c.EmbeddingModel)
		if err != nil {
			return nil, err
		}
		embedder = e
	}

	var store VectorStore
	switch c.Backend {
	case BackendMemory:
		store = NewMemoryStore()
	case BackendQdrant:
		q, err := NewQdrantStore(c.QdrantAddr)
		if err != nil {
			return nil, err
		}
		store = q
	default:
		return nil, fmt.Errorf("%w: unsupported POLICY_BACKEND %q", contractx.ErrValidation, c.Backend)
	}

	return NewPolicyIndex(store, embedder, c.Collection, c.MinScore)
}
