package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/Veraticus/tender/internal/common"
	"github.com/Veraticus/tender/internal/service"
)

// Reasoner wraps a provider client with rate limiting and retries.
type Reasoner struct {
	client  service.ReasoningService
	limiter *rate.Limiter
	logger  *slog.Logger
	retry   service.RetryOptions
}

// New creates a reasoner for the configured provider.
func New(cfg Config, logger *slog.Logger) (*Reasoner, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return Wrap(client, cfg, logger), nil
}

// Wrap applies the rate limit and retry settings of cfg to an existing client.
func Wrap(client service.ReasoningService, cfg Config, logger *slog.Logger) *Reasoner {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	return &Reasoner{
		client:  client,
		limiter: newLimiter(cfg.RateLimit, cfg.Burst),
		logger:  logger,
		retry: service.RetryOptions{
			MaxAttempts:  cfg.MaxRetries,
			InitialDelay: cfg.RetryDelay,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}
}

// Complete implements service.ReasoningService.
func (r *Reasoner) Complete(ctx context.Context, instruction, input string) (string, error) {
	var text string
	start := time.Now()

	err := common.WithRetry(ctx, func() error {
		if err := waitLimiter(ctx, r.limiter); err != nil {
			return common.Permanent(err)
		}

		var err error
		text, err = r.client.Complete(ctx, instruction, input)
		return err
	}, r.retry)
	if err != nil {
		r.logger.Warn("reasoning service call failed", "error", err, "elapsed", time.Since(start))
		return "", fmt.Errorf("reasoning service: %w", err)
	}

	r.logger.Debug("reasoning service call completed",
		"instruction_chars", len(instruction),
		"response_chars", len(text),
		"elapsed", time.Since(start))
	return text, nil
}
