package retrieval

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	openaisdk "github.com/openai/openai-go"
)

// OpenAIEmbedder embeds text through an OpenAI-compatible embeddings API.
type OpenAIEmbedder struct {
	client *openaisdk.Client
	model  string
}

var _ Embedder = (*OpenAIEmbedder)(nil)

func NewOpenAIEmbedder(client *openaisdk.Client, model string) (*OpenAIEmbedder, error) {
	if client == nil {
		return nil, fmt.Errorf("embedder: client is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("embedder: model is required")
	}
	return &OpenAIEmbedder{client: client, model: model}, nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Input: openaisdk.EmbeddingNewParamsInputUnion{OfString: openaisdk.String(text)},
		Model: openaisdk.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embedder: create embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedder: empty embedding response")
	}

	raw := resp.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}
	return vec, nil
}

// LexicalEmbedder hashes lowercased word tokens into a fixed number of
// buckets. It needs no network access and is used when no embedding API key
// is configured.
type LexicalEmbedder struct {
	Dims int
}

var _ Embedder = LexicalEmbedder{}

const defaultLexicalDims = 512

func (e LexicalEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	dims := e.Dims
	if dims <= 0 {
		dims = defaultLexicalDims
	}

	vec := make([]float32, dims)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		if len(tok) < 2 {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[h.Sum32()%uint32(dims)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec, nil
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}
