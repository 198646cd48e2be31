package valuation

import (
	"context"
	"encoding/json"
	"math"
	"testing"
)

func sensitivityInput(shares *float64) SensitivityInput {
	return SensitivityInput{
		ProjectionInput: baseInput(),
		Bridge: EquityBridge{
			Cash:   Float(50),
			Debt:   Float(20),
			Shares: shares,
		},
		Workers: 4,
	}
}

func TestLinspace(t *testing.T) {
	got := Linspace(0.07, 0.13, 7)
	want := []float64{0.07, 0.08, 0.09, 0.10, 0.11, 0.12, 0.13}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("index %d: expected %f, got %f", i, want[i], got[i])
		}
	}
	if got[0] != 0.07 || got[6] != 0.13 {
		t.Errorf("endpoints must be exact, got %v", got)
	}

	rev := Linspace(0.2, 0.1, 3)
	if rev[0] != 0.1 || rev[2] != 0.2 {
		t.Errorf("reversed bounds should be swapped, got %v", rev)
	}
	if one := Linspace(0.3, 0.4, 1); len(one) != 1 || one[0] != 0.3 {
		t.Errorf("single point should be lo, got %v", one)
	}
}

func TestAxes_Clamped(t *testing.T) {
	w := DiscountRateAxis(0.06)
	if w[0] != 0.05 {
		t.Errorf("WACC axis should be floored at 0.05, got %f", w[0])
	}
	if math.Abs(w[6]-0.09) > 1e-12 {
		t.Errorf("WACC axis upper bound: expected 0.09, got %f", w[6])
	}
	w = DiscountRateAxis(0.19)
	if w[6] != 0.20 {
		t.Errorf("WACC axis should be capped at 0.20, got %f", w[6])
	}

	g := TerminalGrowthAxis(0.005)
	if g[0] != 0 {
		t.Errorf("terminal growth axis should be floored at 0, got %f", g[0])
	}
	g = TerminalGrowthAxis(0.045)
	if g[4] != 0.05 {
		t.Errorf("terminal growth axis should be capped at 0.05, got %f", g[4])
	}
}

func TestSensitivity_GridShape(t *testing.T) {
	grid := Sensitivity(context.Background(), sensitivityInput(Float(10)))

	if len(grid.DiscountRates) != 7 {
		t.Errorf("expected 7 WACC values, got %d", len(grid.DiscountRates))
	}
	if len(grid.TerminalGrowths) != 5 {
		t.Errorf("expected 5 terminal growth values, got %d", len(grid.TerminalGrowths))
	}
	if len(grid.Cells) != 35 {
		t.Fatalf("expected 35 cells, got %d", len(grid.Cells))
	}
	if grid.Absent() != 0 {
		t.Errorf("expected no absent cells, got %d", grid.Absent())
	}
	for i := 1; i < len(grid.DiscountRates); i++ {
		if grid.DiscountRates[i] <= grid.DiscountRates[i-1] {
			t.Errorf("WACC axis not ascending: %v", grid.DiscountRates)
		}
	}
}

func TestSensitivity_CellMatchesSingleValuation(t *testing.T) {
	in := sensitivityInput(Float(10))
	grid := Sensitivity(context.Background(), in)

	// Row 3 / column 2 is the base case (0.10, 0.025).
	cell := grid.Cell(3, 2)
	if math.Abs(cell.DiscountRate-0.10) > 1e-12 || math.Abs(cell.TerminalGrowth-0.025) > 1e-12 {
		t.Fatalf("expected centre cell at (0.10, 0.025), got (%f, %f)", cell.DiscountRate, cell.TerminalGrowth)
	}
	p := in.ProjectionInput
	p.DiscountRate = cell.DiscountRate
	p.TerminalGrowth = cell.TerminalGrowth
	res, err := Project(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := (res.EnterpriseValue + 50 - 20) / 10
	if cell.Price == nil || !approxEqual(*cell.Price, want, 1e-12) {
		t.Errorf("Expected price %f, got %v", want, cell.Price)
	}
}

func TestSensitivity_DiagonalCellIsAbsent(t *testing.T) {
	// WACC 0.08 -> axis starts at 0.05; g 0.04 -> axis ends at 0.05.
	in := sensitivityInput(Float(10))
	in.DiscountRate = 0.08
	in.TerminalGrowth = 0.04

	grid := Sensitivity(context.Background(), in)
	if len(grid.Cells) != 35 {
		t.Fatalf("expected 35 cells, got %d", len(grid.Cells))
	}
	cell := grid.Cell(0, 4)
	if cell.DiscountRate != cell.TerminalGrowth {
		t.Fatalf("expected a diagonal cell, got (%f, %f)", cell.DiscountRate, cell.TerminalGrowth)
	}
	if cell.Price != nil {
		t.Errorf("expected absent price on the diagonal, got %f", *cell.Price)
	}
	if cell.Reason == "" {
		t.Error("expected a reason on the absent cell")
	}
	if grid.Absent() != 1 {
		t.Errorf("expected exactly 1 absent cell, got %d", grid.Absent())
	}
}

func TestSensitivity_MissingSharesMarksEveryCellAbsent(t *testing.T) {
	grid := Sensitivity(context.Background(), sensitivityInput(nil))
	if len(grid.Cells) != 35 {
		t.Fatalf("expected 35 cells, got %d", len(grid.Cells))
	}
	for _, c := range grid.Cells {
		if c.Price != nil {
			t.Errorf("expected absent price without shares, got %f", *c.Price)
		}
		if c.Reason != ReasonNoShares {
			t.Errorf("expected reason %q, got %q", ReasonNoShares, c.Reason)
		}
	}
}

func TestSensitivity_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	grid := Sensitivity(ctx, sensitivityInput(Float(10)))
	if len(grid.Cells) != 35 {
		t.Fatalf("expected 35 cells, got %d", len(grid.Cells))
	}
	if grid.Absent() != 35 {
		t.Errorf("expected every cell absent after cancellation, got %d", grid.Absent())
	}
}

func TestSensitivity_Deterministic(t *testing.T) {
	in := sensitivityInput(Float(7))
	in.Workers = 1
	a := Sensitivity(context.Background(), in)
	in.Workers = 16
	b := Sensitivity(context.Background(), in)
	for i := range a.Cells {
		if *a.Cells[i].Price != *b.Cells[i].Price {
			t.Errorf("cell %d differs between worker counts: %f vs %f", i, *a.Cells[i].Price, *b.Cells[i].Price)
		}
	}
}

func TestSensitivityGrid_JSON(t *testing.T) {
	in := sensitivityInput(Float(10))
	in.DiscountRate = 0.08
	in.TerminalGrowth = 0.04
	grid := Sensitivity(context.Background(), in)

	data, err := json.Marshal(grid)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var raw struct {
		WACC []float64          `json:"wacc_values"`
		TGR  []float64          `json:"tgr_values"`
		Grid map[string]*float64 `json:"grid"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(raw.Grid) != 35 {
		t.Errorf("expected 35 grid keys, got %d", len(raw.Grid))
	}
	v, ok := raw.Grid["wacc_0.050_tgr_0.050"]
	if !ok {
		t.Fatal("expected diagonal key wacc_0.050_tgr_0.050")
	}
	if v != nil {
		t.Errorf("expected null for the diagonal cell, got %f", *v)
	}

	var back SensitivityGrid
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal into grid failed: %v", err)
	}
	if len(back.Cells) != 35 || back.Absent() != 1 {
		t.Errorf("round trip lost cells: %d cells, %d absent", len(back.Cells), back.Absent())
	}
}

func TestFiniteOrNil(t *testing.T) {
	if FiniteOrNil(Float(math.Inf(1))) != nil {
		t.Error("Inf should map to nil")
	}
	if FiniteOrNil(Float(math.NaN())) != nil {
		t.Error("NaN should map to nil")
	}
	if v := FiniteOrNil(Float(1.5)); v == nil || *v != 1.5 {
		t.Errorf("finite value should pass through, got %v", v)
	}
}
