// Package threshold supplies the published procurement threshold with a
// last-known-good fallback so classification never waits on the network.
package threshold

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/tender/internal/classification"
	"github.com/Veraticus/tender/internal/service"
)

var errNoFetcher = errors.New("no threshold fetcher configured")

// DefaultCacheTTL is how long a fetched value is trusted before refetching.
const DefaultCacheTTL = 30 * 24 * time.Hour

// DefaultRetryInterval spaces background fetch attempts after a failure.
const DefaultRetryInterval = 5 * time.Minute

// Config controls the provider's lookup order.
type Config struct {
	// Override short-circuits every other source when positive.
	Override float64
	// Default is returned when nothing else is available.
	Default float64
	// CacheTTL is how long a fetched value counts as fresh.
	CacheTTL time.Duration
	// FetchTimeout bounds a single fetch attempt.
	FetchTimeout time.Duration
	// RetryInterval is the minimum gap between background fetch attempts.
	RetryInterval time.Duration
}

// Provider implements service.ThresholdProvider. Threshold never waits on
// the fetcher: a stale or missing value starts one background refresh and
// the caller gets the best value already known.
type Provider struct {
	fetcher     Fetcher
	cache       service.ThresholdCache
	now         func() time.Time
	lastGood    *service.Threshold
	lastAttempt time.Time
	config      Config
	refreshes   sync.WaitGroup
	mu          sync.Mutex
	refreshing  bool
}

var _ service.ThresholdProvider = (*Provider)(nil)

// NewProvider creates a provider. fetcher and cache may be nil.
func NewProvider(cfg Config, fetcher Fetcher, cache service.ThresholdCache) *Provider {
	if cfg.Default <= 0 {
		cfg.Default = classification.DefaultPublishedThreshold
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	return &Provider{
		config:  cfg,
		fetcher: fetcher,
		cache:   cache,
		now:     time.Now,
	}
}

// Threshold returns the published threshold. Lookup order is override, fresh
// cache, expired cache, then the built-in default. Anything short of a fresh
// value schedules a background fetch whose result serves later calls.
func (p *Provider) Threshold(ctx context.Context) service.Threshold {
	now := p.now()

	if p.config.Override > 0 {
		return service.Threshold{Amount: p.config.Override, Source: service.ThresholdFromOverride, FetchedAt: now}
	}

	p.mu.Lock()
	cached := p.loadCached(ctx)
	if cached != nil && now.Sub(cached.FetchedAt) < p.config.CacheTTL {
		p.mu.Unlock()
		cached.Source = service.ThresholdFromCache
		return *cached
	}
	p.startRefresh(ctx, now)
	p.mu.Unlock()

	if cached != nil {
		slog.Warn("Using expired published threshold", "amount", cached.Amount, "fetched_at", cached.FetchedAt)
		cached.Source = service.ThresholdFromExpiredCache
		return *cached
	}

	slog.Warn("No published threshold available, using default", "amount", p.config.Default)
	return service.Threshold{Amount: p.config.Default, Source: service.ThresholdFromDefault, FetchedAt: now}
}

// startRefresh launches a background fetch unless one is running or the last
// attempt was within RetryInterval. Callers hold p.mu.
func (p *Provider) startRefresh(ctx context.Context, now time.Time) {
	if p.fetcher == nil || p.refreshing {
		return
	}
	if !p.lastAttempt.IsZero() && now.Sub(p.lastAttempt) < p.config.RetryInterval {
		return
	}
	p.refreshing = true
	p.lastAttempt = now

	fetchCtx := context.WithoutCancel(ctx)
	p.refreshes.Add(1)
	go func() {
		defer p.refreshes.Done()

		attemptCtx, cancel := context.WithTimeout(fetchCtx, p.config.FetchTimeout)
		amount, err := p.fetcher.Fetch(attemptCtx)
		cancel()
		if err == nil && amount <= 0 {
			err = errors.New("fetched threshold is not positive")
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		p.refreshing = false
		if err != nil {
			slog.Warn("Failed to fetch published threshold", "error", err, "retry_after", p.config.RetryInterval)
			return
		}
		p.remember(fetchCtx, service.Threshold{Amount: amount, Source: service.ThresholdFromFetch, FetchedAt: p.now()})
		slog.Info("Fetched published threshold", "amount", amount)
	}()
}

// wait blocks until background refreshes finish.
func (p *Provider) wait() {
	p.refreshes.Wait()
}

// Refresh forces a fetch regardless of cache freshness and reports the result.
func (p *Provider) Refresh(ctx context.Context) (service.Threshold, error) {
	if p.fetcher == nil {
		return service.Threshold{}, errNoFetcher
	}

	fetchCtx, cancel := context.WithTimeout(ctx, p.config.FetchTimeout)
	defer cancel()

	amount, err := p.fetcher.Fetch(fetchCtx)
	if err != nil {
		return service.Threshold{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	fetched := service.Threshold{Amount: amount, Source: service.ThresholdFromFetch, FetchedAt: p.now()}
	p.remember(ctx, fetched)
	return fetched, nil
}

func (p *Provider) loadCached(ctx context.Context) *service.Threshold {
	if p.lastGood != nil {
		t := *p.lastGood
		return &t
	}
	if p.cache == nil {
		return nil
	}

	cached, err := p.cache.LoadThreshold(ctx)
	if err != nil {
		slog.Debug("No cached published threshold", "error", err)
		return nil
	}
	p.lastGood = cached
	t := *cached
	return &t
}

func (p *Provider) remember(ctx context.Context, t service.Threshold) {
	p.lastGood = &t
	if p.cache == nil {
		return
	}
	if err := p.cache.SaveThreshold(ctx, t); err != nil {
		slog.Warn("Failed to persist published threshold", "error", err)
	}
}
