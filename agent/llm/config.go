package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/hr-leave-assistant/agent/contract"
	openrouterx "github.com/tanpawarit/hr-leave-assistant/pkg/openrouter"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" default:"openai/gpt-4o-mini"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"1000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.1"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	AutoSelect         bool          `envconfig:"AUTO_SELECT" split_words:"true" default:"true"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: llm api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: llm model is required", contractx.ErrValidation)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: temperature must be within [0, 2], got %v", contractx.ErrValidation, c.Temperature)
	}
	return nil
}

func (c Config) OpenRouter() openrouterx.Config {
	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              strings.TrimSpace(c.Model),
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        c.Temperature,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}

func (c Config) Sampling() contractx.Sampling {
	return contractx.Sampling{
		MaxTokens:   c.MaxCompletionToken,
		Temperature: c.Temperature,
		AutoSelect:  c.AutoSelect,
	}
}
