package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const acmeSnapshot = `{
  # Derived from 10-K filings, $ millions
  ticker: ACME
  name: Acme Corp
  shares_outstanding: 250
  years: [
    { year: 2021, revenue: 900, fcf: 80, cash: 40, debt: 120 }
    { year: 2023, revenue: 1100, fcf: null, cash: 55, debt: null }
    { year: 2022, revenue: 1000, fcf: 95, cash: 50, debt: 110 }
  ]
}`

func writeSnapshot(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
}

func TestFileSnapshotSource_Snapshot(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "ACME.hjson", acmeSnapshot)

	src := NewFileSnapshotSource(dir)
	snap, err := src.Snapshot(context.Background(), "acme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Name != "Acme Corp" {
		t.Errorf("expected name 'Acme Corp', got '%s'", snap.Name)
	}
	if snap.SharesOutstanding == nil || *snap.SharesOutstanding != 250 {
		t.Errorf("expected 250 shares, got %v", snap.SharesOutstanding)
	}
	if len(snap.Years) != 3 {
		t.Fatalf("expected 3 years, got %d", len(snap.Years))
	}

	// 2023 has no FCF, so the latest FCF is 2022's.
	if fcf := snap.LatestFCF(); fcf == nil || *fcf != 95 {
		t.Errorf("expected latest FCF 95, got %v", fcf)
	}
	if cash := snap.LatestCash(); cash == nil || *cash != 55 {
		t.Errorf("expected latest cash 55, got %v", cash)
	}
	if debt := snap.LatestDebt(); debt == nil || *debt != 110 {
		t.Errorf("expected latest debt 110, got %v", debt)
	}

	since := snap.Since(2022)
	if len(since) != 2 || since[0].Year != 2022 || since[1].Year != 2023 {
		t.Errorf("expected [2022 2023], got %+v", since)
	}
}

func TestFileSnapshotSource_JSONFallbackAndDefaultTicker(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "WID.json", `{"name": "Widgets", "years": [{"year": 2020, "fcf": -5}]}`)

	snap, err := NewFileSnapshotSource(dir).Snapshot(context.Background(), "WID")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Ticker != "WID" {
		t.Errorf("expected ticker defaulted to WID, got %s", snap.Ticker)
	}
	if snap.SharesOutstanding != nil {
		t.Errorf("expected absent shares, got %f", *snap.SharesOutstanding)
	}
	if fcf := snap.LatestFCF(); fcf == nil || *fcf != -5 {
		t.Errorf("expected negative FCF to be kept, got %v", fcf)
	}
}

func TestFileSnapshotSource_NotFound(t *testing.T) {
	src := NewFileSnapshotSource(t.TempDir())
	for _, ticker := range []string{"NOPE", "", "../etc"} {
		_, err := src.Snapshot(context.Background(), ticker)
		if !errors.Is(err, ErrCompanyNotFound) {
			t.Errorf("ticker %q: expected ErrCompanyNotFound, got %v", ticker, err)
		}
	}
}
