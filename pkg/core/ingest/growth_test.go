package ingest

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const analysisPage = `<html><body>
<section data-testid="growthEstimate">
<table>
  <thead><tr><th>Currency in USD</th><th>ACME</th><th>Industry</th><th>Sector(s)</th><th>S&amp;P 500</th></tr></thead>
  <tbody>
    <tr><td>Current Qtr.</td><td>4.10%</td><td>--</td><td>--</td><td>5.00%</td></tr>
    <tr><td>Next Year</td><td>9.80%</td><td>--</td><td>--</td><td>12.00%</td></tr>
    <tr><td>Next 5 Years (per annum)</td><td>12.34%</td><td>--</td><td>--</td><td>11.00%</td></tr>
  </tbody>
</table>
</section>
</body></html>`

func newAnalysisServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/quote/") {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("User-Agent") == "" {
			t.Error("expected a User-Agent header")
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestYahooGrowthEstimator(t *testing.T) {
	srv := newAnalysisServer(t, analysisPage, http.StatusOK)
	est := NewYahooGrowthEstimator(srv.URL+"/quote/%s/analysis", time.Second)

	got, err := est.EstimateGrowth(context.Background(), "acme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("expected an estimate, got nil")
	}
	if math.Abs(got.Rate-0.1234) > 1e-12 {
		t.Errorf("expected rate 0.1234, got %f", got.Rate)
	}
	if got.Source != YahooSource {
		t.Errorf("expected source %s, got %s", YahooSource, got.Source)
	}
}

func TestYahooGrowthEstimator_NoEstimate(t *testing.T) {
	page := strings.Replace(analysisPage, "12.34%", "N/A", 1)
	srv := newAnalysisServer(t, page, http.StatusOK)
	est := NewYahooGrowthEstimator(srv.URL+"/quote/%s/analysis", time.Second)

	got, err := est.EstimateGrowth(context.Background(), "ACME")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected no estimate, got %+v", got)
	}
}

func TestYahooGrowthEstimator_UpstreamError(t *testing.T) {
	srv := newAnalysisServer(t, "rate limited", http.StatusTooManyRequests)
	est := NewYahooGrowthEstimator(srv.URL+"/quote/%s/analysis", time.Second)

	if _, err := est.EstimateGrowth(context.Background(), "ACME"); err == nil {
		t.Fatal("expected error for 429, got nil")
	}
}

func TestParsePercent(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"12.34%", 0.1234, true},
		{" -3.5% ", -0.035, true},
		{"1,200.00%", 12, true},
		{"N/A", 0, false},
		{"--", 0, false},
		{"", 0, false},
		{"abc%", 0, false},
	}
	for _, c := range cases {
		got, ok := parsePercent(c.in)
		if ok != c.ok || math.Abs(got-c.want) > 1e-12 {
			t.Errorf("parsePercent(%q) = (%f, %v), want (%f, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}
