package ingest

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dcf_valuation/pkg/core/assumption"

	"github.com/PuerkitoBio/goquery"
)

const (
	// YahooAnalysisURL is the analyst-estimates page; %s is the ticker.
	YahooAnalysisURL = "https://finance.yahoo.com/quote/%s/analysis"
	YahooSource      = "Yahoo Finance"

	browserUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	fiveYearRowLabel = "next 5 years"
)

// GrowthEstimator returns a forward growth estimate for a ticker. A nil
// estimate with a nil error means the source has no estimate.
type GrowthEstimator interface {
	EstimateGrowth(ctx context.Context, ticker string) (*assumption.GrowthEstimate, error)
}

// YahooGrowthEstimator scrapes the "Next 5 Years (per annum)" analyst growth
// estimate from the Yahoo Finance analysis page.
type YahooGrowthEstimator struct {
	httpClient *http.Client
	urlPattern string
}

// NewYahooGrowthEstimator creates an estimator. An empty urlPattern uses
// YahooAnalysisURL.
func NewYahooGrowthEstimator(urlPattern string, timeout time.Duration) *YahooGrowthEstimator {
	if urlPattern == "" {
		urlPattern = YahooAnalysisURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &YahooGrowthEstimator{
		httpClient: &http.Client{Timeout: timeout},
		urlPattern: urlPattern,
	}
}

// EstimateGrowth implements GrowthEstimator.
func (y *YahooGrowthEstimator) EstimateGrowth(ctx context.Context, ticker string) (*assumption.GrowthEstimate, error) {
	url := fmt.Sprintf(y.urlPattern, strings.ToUpper(ticker))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("growth estimate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("growth estimate source returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse analysis page: %w", err)
	}

	rate, ok := findFiveYearGrowth(doc)
	if !ok {
		return nil, nil
	}
	return &assumption.GrowthEstimate{Rate: rate, Source: YahooSource}, nil
}

// findFiveYearGrowth scans every table row for the five-year label and reads
// the first percentage cell after it (the ticker's own column).
func findFiveYearGrowth(doc *goquery.Document) (float64, bool) {
	var (
		rate  float64
		found bool
	)
	doc.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("td, th")
		if cells.Length() < 2 {
			return true
		}
		label := strings.ToLower(strings.TrimSpace(cells.First().Text()))
		if !strings.HasPrefix(label, fiveYearRowLabel) {
			return true
		}
		rate, found = parsePercent(cells.Eq(1).Text())
		return false
	})
	return rate, found
}

// parsePercent turns "12.34%" into 0.1234. "N/A" and "--" are not values.
func parsePercent(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || strings.EqualFold(s, "N/A") || s == "--" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v / 100, true
}
