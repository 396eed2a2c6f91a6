package llm

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Veraticus/tender/internal/common"
)

// Config holds provider settings.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Timeout     time.Duration
	RetryDelay  time.Duration
	MaxRetries  int
	RateLimit   float64 // requests per second, zero disables limiting
	Burst       int
	Temperature float64
	MaxTokens   int
}

const (
	defaultTimeout     = 60 * time.Second
	defaultTemperature = 0.2
	defaultMaxTokens   = 4096
)

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.Temperature == 0 {
		c.Temperature = defaultTemperature
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	return c
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

var (
	errMissingAPIKey = errors.New("API key is required")
	errTruncated     = errors.New("response truncated")
)

// truncated marks output cut off at the token limit as a permanent failure.
func truncated(provider string, maxTokens int) error {
	return common.Permanent(fmt.Errorf("%s: %w at %d tokens", provider, errTruncated, maxTokens))
}

// statusError classifies an HTTP failure from a provider. Rate limits and
// server errors are retried; other client errors are not.
func statusError(provider string, status int, body string) error {
	err := fmt.Errorf("%s API error (status %d): %s", provider, status, body)
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", common.ErrRateLimit, err)
	case status >= 500:
		return &common.RetryableError{Err: fmt.Errorf("%w: %w", common.ErrExternalService, err), Retryable: true}
	default:
		return &common.RetryableError{Err: fmt.Errorf("%w: %w", common.ErrExternalService, err), Retryable: false}
	}
}
