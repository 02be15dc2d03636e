package openrouter

import (
	"context"
	"fmt"
	"strings"
	"time"

	openaimodel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const DefaultBaseURL = "https://openrouter.ai/api/v1"

// ChatModelBuilder produces the tool-calling chat model the reasoner binds
// capabilities to.
type ChatModelBuilder interface {
	New(ctx context.Context) (model.ToolCallingChatModel, error)
}

var _ ChatModelBuilder = (*Config)(nil)

var (
	// ReasoningBlacklist lists models whose hidden reasoning output must be
	// disabled, otherwise tool-call turns come back without content.
	ReasoningBlacklist = map[string]bool{
		"x-ai/grok-4.1-fast": true,
	}
)

// Config is assembled by llm.Config; it carries no env tags of its own.
type Config struct {
	BaseURL            string
	APIKey             string
	Model              string
	MaxCompletionToken *int
	Temperature        float32
	Timeout            time.Duration
	SiteURL            string
	SiteName           string
}

func (c *Config) New(ctx context.Context) (model.ToolCallingChatModel, error) {
	modelName := strings.TrimSpace(c.Model)
	if modelName == "" {
		return nil, fmt.Errorf("openrouter: model is required")
	}

	conf := &openaimodel.ChatModelConfig{
		BaseURL:     chatBaseURL(c.BaseURL),
		APIKey:      strings.TrimSpace(c.APIKey),
		Model:       modelName,
		MaxTokens:   c.MaxCompletionToken,
		Temperature: &c.Temperature,
		Timeout:     c.Timeout,
	}

	if ReasoningBlacklist[modelName] {
		conf.ExtraFields = map[string]any{
			"reasoning": map[string]any{
				"exclude": true,
				"effort":  "none",
			},
		}
	}

	m, err := openaimodel.NewChatModel(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("openrouter: create chat model: %w", err)
	}

	return m, nil
}

// NewClient creates an OpenAI SDK client against cfg.BaseURL. It returns nil
// when no API key is configured.
func NewClient(cfg Config) *openaisdk.Client {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
	}

	if trimmed := baseURL(cfg.BaseURL); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	// OpenRouter attribution headers
	if cfg.SiteURL != "" {
		opts = append(opts, option.WithHeader("HTTP-Referer", cfg.SiteURL))
	}
	if cfg.SiteName != "" {
		opts = append(opts, option.WithHeader("X-Title", cfg.SiteName))
	}

	client := openaisdk.NewClient(opts...)
	return &client
}

// chatBaseURL falls back to OpenRouter when no base URL is configured.
func chatBaseURL(raw string) string {
	if trimmed := baseURL(raw); trimmed != "" {
		return trimmed
	}
	return DefaultBaseURL
}

func baseURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}
