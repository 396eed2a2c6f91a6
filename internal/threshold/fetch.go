package threshold

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/tender/internal/common"
)

// DefaultURL is the administrative rule page announcing the threshold.
const DefaultURL = "https://www.law.go.kr/LSW/admRulInfoP.do?admRulSeq=2100000251078"

const userAgent = "Mozilla/5.0 (compatible; tender/1.0)"

// Fetcher retrieves the current published threshold from its source.
type Fetcher interface {
	Fetch(ctx context.Context) (float64, error)
}

// HTTPFetcher scrapes the threshold amount from an HTML page.
type HTTPFetcher struct {
	httpClient *http.Client
	url        string
}

// NewHTTPFetcher creates a fetcher for url, falling back to DefaultURL.
func NewHTTPFetcher(url string, timeout time.Duration) *HTTPFetcher {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPFetcher{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch downloads the page and extracts the goods and services threshold.
func (f *HTTPFetcher) Fetch(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("threshold source returned status %d", resp.StatusCode)
	}

	text, err := common.HTMLText(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return 0, fmt.Errorf("failed to parse page: %w", err)
	}

	amount, ok := ExtractAmount(text)
	if !ok {
		return 0, fmt.Errorf("no threshold amount found on page")
	}
	return amount, nil
}

var (
	goodsAndServicesPattern = regexp.MustCompile(`물품\s*및\s*용역[:\s]*(\d+)\s*억\s*(\d+)\s*천\s*만\s*원`)
	eokCheonmanPattern      = regexp.MustCompile(`(\d+)\s*억\s*(\d+)\s*천\s*만\s*원`)
	digitsPattern           = regexp.MustCompile(`(\d{1,3}(?:,\d{3}){2,})\s*원`)
)

// ExtractAmount finds the threshold in page text. The goods-and-services line is
// preferred, then any "N억 M천만 원" phrase, then a comma-grouped won amount.
func ExtractAmount(text string) (float64, bool) {
	for _, re := range []*regexp.Regexp{goodsAndServicesPattern, eokCheonmanPattern} {
		if m := re.FindStringSubmatch(text); m != nil {
			eok, _ := strconv.Atoi(m[1])
			cheonman, _ := strconv.Atoi(m[2])
			return float64(eok)*100_000_000 + float64(cheonman)*10_000_000, true
		}
	}

	if m := digitsPattern.FindStringSubmatch(text); m != nil {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err == nil && v > 0 {
			return v, true
		}
	}
	return 0, false
}
