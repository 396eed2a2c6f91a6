package threshold

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tender/internal/classification"
	"github.com/Veraticus/tender/internal/common"
	"github.com/Veraticus/tender/internal/service"
)

type stubFetcher struct {
	err    error
	amount float64
	calls  atomic.Int32
}

func (f *stubFetcher) Fetch(_ context.Context) (float64, error) {
	f.calls.Add(1)
	return f.amount, f.err
}

// blockingFetcher holds every fetch until release is closed or the attempt
// times out.
type blockingFetcher struct {
	release chan struct{}
	calls   atomic.Int32
}

func (f *blockingFetcher) Fetch(ctx context.Context) (float64, error) {
	f.calls.Add(1)
	select {
	case <-f.release:
		return 280_000_000, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

type memoryCache struct {
	stored *service.Threshold
	saves  int
	mu     sync.Mutex
}

func (c *memoryCache) LoadThreshold(_ context.Context) (*service.Threshold, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stored == nil {
		return nil, common.ErrNotFound
	}
	t := *c.stored
	return &t, nil
}

func (c *memoryCache) SaveThreshold(_ context.Context, t service.Threshold) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saves++
	c.stored = &t
	return nil
}

var fixedNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestProvider(cfg Config, f Fetcher, c service.ThresholdCache) *Provider {
	p := NewProvider(cfg, f, c)
	p.now = func() time.Time { return fixedNow }
	return p
}

func TestProvider_OverrideWins(t *testing.T) {
	fetcher := &stubFetcher{amount: 250_000_000}
	p := newTestProvider(Config{Override: 199_000_000}, fetcher, nil)

	got := p.Threshold(context.Background())
	assert.Equal(t, 199_000_000.0, got.Amount)
	assert.Equal(t, service.ThresholdFromOverride, got.Source)
	assert.Zero(t, fetcher.calls.Load())
}

func TestProvider_FreshCacheSkipsFetch(t *testing.T) {
	cache := &memoryCache{stored: &service.Threshold{Amount: 240_000_000, FetchedAt: fixedNow.Add(-24 * time.Hour)}}
	fetcher := &stubFetcher{amount: 250_000_000}
	p := newTestProvider(Config{}, fetcher, cache)

	got := p.Threshold(context.Background())
	assert.Equal(t, 240_000_000.0, got.Amount)
	assert.Equal(t, service.ThresholdFromCache, got.Source)
	assert.Zero(t, fetcher.calls.Load())
}

func TestProvider_ExpiredCacheRefreshesInBackground(t *testing.T) {
	cache := &memoryCache{stored: &service.Threshold{Amount: 240_000_000, FetchedAt: fixedNow.Add(-31 * 24 * time.Hour)}}
	fetcher := &stubFetcher{amount: 250_000_000}
	p := newTestProvider(Config{}, fetcher, cache)

	got := p.Threshold(context.Background())
	assert.Equal(t, 240_000_000.0, got.Amount)
	assert.Equal(t, service.ThresholdFromExpiredCache, got.Source)

	p.wait()
	assert.Equal(t, 1, cache.saves)
	assert.Equal(t, 250_000_000.0, cache.stored.Amount)

	got = p.Threshold(context.Background())
	assert.Equal(t, 250_000_000.0, got.Amount)
	assert.Equal(t, service.ThresholdFromCache, got.Source)
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestProvider_FetchFailureUsesExpiredCache(t *testing.T) {
	cache := &memoryCache{stored: &service.Threshold{Amount: 240_000_000, FetchedAt: fixedNow.Add(-90 * 24 * time.Hour)}}
	fetcher := &stubFetcher{err: errors.New("connection refused")}
	p := newTestProvider(Config{}, fetcher, cache)

	for range 3 {
		got := p.Threshold(context.Background())
		assert.Equal(t, 240_000_000.0, got.Amount)
		assert.Equal(t, service.ThresholdFromExpiredCache, got.Source)
		p.wait()
	}
	assert.Equal(t, int32(1), fetcher.calls.Load(), "failed fetch is retried only after the retry interval")
	assert.Zero(t, cache.saves)
}

func TestProvider_RetriesAfterInterval(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("connection refused")}
	p := newTestProvider(Config{RetryInterval: time.Minute}, fetcher, nil)

	now := fixedNow
	p.now = func() time.Time { return now }

	p.Threshold(context.Background())
	p.wait()
	now = now.Add(30 * time.Second)
	p.Threshold(context.Background())
	p.wait()
	assert.Equal(t, int32(1), fetcher.calls.Load())

	now = now.Add(time.Minute)
	p.Threshold(context.Background())
	p.wait()
	assert.Equal(t, int32(2), fetcher.calls.Load())
}

func TestProvider_HangingFetchDoesNotBlock(t *testing.T) {
	fetcher := &blockingFetcher{release: make(chan struct{})}
	p := newTestProvider(Config{FetchTimeout: 5 * time.Second}, fetcher, nil)

	for range 3 {
		start := time.Now()
		got := p.Threshold(context.Background())
		assert.Less(t, time.Since(start), 100*time.Millisecond)
		assert.Equal(t, service.ThresholdFromDefault, got.Source)
	}

	close(fetcher.release)
	p.wait()
	assert.Equal(t, int32(1), fetcher.calls.Load())

	got := p.Threshold(context.Background())
	assert.Equal(t, 280_000_000.0, got.Amount)
	assert.Equal(t, service.ThresholdFromCache, got.Source)
}

func TestProvider_CancelledCallerDoesNotAbortRefresh(t *testing.T) {
	fetcher := &blockingFetcher{release: make(chan struct{})}
	p := newTestProvider(Config{}, fetcher, nil)

	ctx, cancel := context.WithCancel(context.Background())
	p.Threshold(ctx)
	cancel()

	close(fetcher.release)
	p.wait()
	assert.Equal(t, 280_000_000.0, p.Threshold(context.Background()).Amount)
}

func TestProvider_NothingAvailableUsesDefault(t *testing.T) {
	p := newTestProvider(Config{}, &stubFetcher{err: errors.New("down")}, &memoryCache{})

	got := p.Threshold(context.Background())
	p.wait()
	assert.Equal(t, float64(classification.DefaultPublishedThreshold), got.Amount)
	assert.Equal(t, service.ThresholdFromDefault, got.Source)
}

func TestProvider_RemembersFetchedValueWithoutCache(t *testing.T) {
	fetcher := &stubFetcher{amount: 260_000_000}
	p := newTestProvider(Config{}, fetcher, nil)

	first := p.Threshold(context.Background())
	p.wait()
	second := p.Threshold(context.Background())

	assert.Equal(t, service.ThresholdFromDefault, first.Source)
	assert.Equal(t, service.ThresholdFromCache, second.Source)
	assert.Equal(t, 260_000_000.0, second.Amount)
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestProvider_Refresh(t *testing.T) {
	_, err := newTestProvider(Config{}, nil, nil).Refresh(context.Background())
	assert.Error(t, err)

	cache := &memoryCache{}
	p := newTestProvider(Config{}, &stubFetcher{amount: 270_000_000}, cache)
	got, err := p.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 270_000_000.0, got.Amount)
	assert.Equal(t, 1, cache.saves)
}

func TestExtractAmount(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
		ok   bool
	}{
		{"goods and services line", "○ 공사: 8억 9천만 원\n○ 물품 및 용역: 2억 3천만 원", 230_000_000, true},
		{"generic eok phrase", "고시금액은 2억 5천 만 원으로 한다", 250_000_000, true},
		{"digits", "고시금액 230,000,000원", 230_000_000, true},
		{"nothing", "본 고시는 공포한 날부터 시행한다", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractAmount(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><head><script>var x = "9억 9천만 원";</script></head>
<body><div><p>물품 및 용역:</p><p>2억 3천만 원</p></div></body></html>`))
	}))
	defer server.Close()

	amount, err := NewHTTPFetcher(server.URL, time.Second).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 230_000_000.0, amount)
}

func TestHTTPFetcher_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewHTTPFetcher(server.URL, time.Second).Fetch(context.Background())
	assert.Error(t, err)
}
