// Package ingest provides the company data the DCF engine consumes: historical
// financial snapshots and externally sourced growth estimates.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"dcf_valuation/pkg/core/utils"
)

// ErrCompanyNotFound is returned when no snapshot exists for a ticker.
var ErrCompanyNotFound = errors.New("company not found")

// FinancialYear is one fiscal year of derived statement data. Nil means the
// figure was not reported.
type FinancialYear struct {
	Year    int      `json:"year"`
	Revenue *float64 `json:"revenue"`
	FCF     *float64 `json:"fcf"`
	Cash    *float64 `json:"cash"`
	Debt    *float64 `json:"debt"`
}

// CompanySnapshot is the historical data for one company.
type CompanySnapshot struct {
	Ticker            string          `json:"ticker"`
	Name              string          `json:"name"`
	SharesOutstanding *float64        `json:"shares_outstanding"`
	Years             []FinancialYear `json:"years"`
}

// SnapshotSource loads company snapshots.
type SnapshotSource interface {
	Snapshot(ctx context.Context, ticker string) (*CompanySnapshot, error)
}

// Since returns the years at or after startYear, oldest first.
func (s *CompanySnapshot) Since(startYear int) []FinancialYear {
	out := make([]FinancialYear, 0, len(s.Years))
	for _, y := range s.Years {
		if y.Year >= startYear {
			out = append(out, y)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// LatestFCF returns the most recent finite FCF.
func (s *CompanySnapshot) LatestFCF() *float64 {
	return s.latest(func(y FinancialYear) *float64 { return y.FCF })
}

// LatestCash returns the most recent reported cash balance.
func (s *CompanySnapshot) LatestCash() *float64 {
	return s.latest(func(y FinancialYear) *float64 { return y.Cash })
}

// LatestDebt returns the most recent reported debt balance.
func (s *CompanySnapshot) LatestDebt() *float64 {
	return s.latest(func(y FinancialYear) *float64 { return y.Debt })
}

func (s *CompanySnapshot) latest(field func(FinancialYear) *float64) *float64 {
	var (
		best     *float64
		bestYear = math.MinInt
	)
	for _, y := range s.Years {
		v := field(y)
		if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
			continue
		}
		if y.Year > bestYear {
			best, bestYear = v, y.Year
		}
	}
	return best
}

// =============================================================================
// FILE SOURCE
// =============================================================================

// FileSnapshotSource reads snapshots from <dir>/<TICKER>.hjson or .json.
// Files may be hand edited, so they are decoded leniently.
type FileSnapshotSource struct {
	dir string
}

// NewFileSnapshotSource creates a file-backed source rooted at dir.
func NewFileSnapshotSource(dir string) *FileSnapshotSource {
	return &FileSnapshotSource{dir: dir}
}

var snapshotExtensions = []string{".hjson", ".json"}

// Snapshot implements SnapshotSource.
func (f *FileSnapshotSource) Snapshot(ctx context.Context, ticker string) (*CompanySnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" || strings.ContainsAny(ticker, `/\.`) {
		return nil, fmt.Errorf("invalid ticker %q: %w", ticker, ErrCompanyNotFound)
	}

	for _, ext := range snapshotExtensions {
		path := filepath.Join(f.dir, ticker+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
		}

		var snap CompanySnapshot
		if err := utils.DecodeLenient(data, &snap); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot %s: %w", path, err)
		}
		if snap.Ticker == "" {
			snap.Ticker = ticker
		}
		return &snap, nil
	}
	return nil, fmt.Errorf("%s: %w", ticker, ErrCompanyNotFound)
}
