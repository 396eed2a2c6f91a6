package llm

import (
	"fmt"
	"strings"

	"github.com/Veraticus/tender/internal/common"
	"github.com/Veraticus/tender/internal/service"
)

// Supported provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// NewClient creates a raw provider client with no rate limiting or retries.
func NewClient(cfg Config) (service.ReasoningService, error) {
	var (
		client service.ReasoningService
		err    error
	)

	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI, "":
		client, err = newOpenAIClient(cfg)
	case ProviderAnthropic:
		client, err = newAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q: %w", cfg.Provider, common.ErrInvalidConfig)
	}
	if err != nil {
		return nil, err
	}
	return client, nil
}
