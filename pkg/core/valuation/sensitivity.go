package valuation

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Sensitivity axis bounds.
const (
	DiscountRatePoints   = 7
	DiscountRateSpread   = 0.03
	DiscountRateFloor    = 0.05
	DiscountRateCeiling  = 0.20
	TerminalGrowthPoints = 5
	TerminalGrowthSpread = 0.01
	TerminalGrowthFloor  = 0.00
	TerminalGrowthCap    = 0.05
)

// Reasons recorded on absent cells.
const (
	ReasonNoShares  = "shares outstanding unavailable"
	ReasonCancelled = "sweep cancelled"
)

// SensitivityInput is a base valuation plus the equity bridge used to turn
// each cell's enterprise value into a price.
type SensitivityInput struct {
	ProjectionInput
	Bridge  EquityBridge
	Workers int // <= 0 means GOMAXPROCS
}

// SensitivityCell is one (WACC, terminal growth) combination. Price is nil
// when the cell could not be valued.
type SensitivityCell struct {
	DiscountRate   float64  `json:"wacc"`
	TerminalGrowth float64  `json:"tgr"`
	Price          *float64 `json:"price"`
	Reason         string   `json:"reason,omitempty"`
}

// SensitivityGrid holds the sweep. Cells are row-major: all terminal growth
// values for DiscountRates[0] first.
type SensitivityGrid struct {
	DiscountRates   []float64
	TerminalGrowths []float64
	Cells           []SensitivityCell
}

// DiscountRateAxis returns the WACC axis centred on wacc.
func DiscountRateAxis(wacc float64) []float64 {
	return Linspace(
		math.Max(DiscountRateFloor, wacc-DiscountRateSpread),
		math.Min(DiscountRateCeiling, wacc+DiscountRateSpread),
		DiscountRatePoints,
	)
}

// TerminalGrowthAxis returns the terminal growth axis centred on tgr.
func TerminalGrowthAxis(tgr float64) []float64 {
	return Linspace(
		math.Max(TerminalGrowthFloor, tgr-TerminalGrowthSpread),
		math.Min(TerminalGrowthCap, tgr+TerminalGrowthSpread),
		TerminalGrowthPoints,
	)
}

// Linspace returns n evenly spaced values over [lo, hi], both ends exact.
// The result is always ascending; reversed bounds are swapped.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	out := make([]float64, n)
	if n == 1 {
		out[0] = lo
		return out
	}
	step := (hi - lo) / float64(n-1)
	for i := 0; i < n-1; i++ {
		out[i] = lo + step*float64(i)
	}
	out[n-1] = hi
	return out
}

// Sensitivity re-runs Project for every (WACC, terminal growth) pair around
// the base assumptions. It never fails: a cell that cannot be valued keeps a
// nil Price and the reason. Cancelling ctx stops cells that have not started.
func Sensitivity(ctx context.Context, in SensitivityInput) *SensitivityGrid {
	grid := &SensitivityGrid{
		DiscountRates:   DiscountRateAxis(in.DiscountRate),
		TerminalGrowths: TerminalGrowthAxis(in.TerminalGrowth),
	}
	grid.Cells = make([]SensitivityCell, len(grid.DiscountRates)*len(grid.TerminalGrowths))

	workers := in.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g := new(errgroup.Group)
	g.SetLimit(workers)
	for i, w := range grid.DiscountRates {
		for j, t := range grid.TerminalGrowths {
			idx := i*len(grid.TerminalGrowths) + j
			cell := &grid.Cells[idx]
			cell.DiscountRate = w
			cell.TerminalGrowth = t
			if ctx.Err() != nil {
				cell.Reason = ReasonCancelled
				continue
			}
			g.Go(func() error {
				if ctx.Err() != nil {
					cell.Reason = ReasonCancelled
					return nil
				}
				valueCell(cell, in)
				return nil
			})
		}
	}
	_ = g.Wait()
	return grid
}

func valueCell(cell *SensitivityCell, in SensitivityInput) {
	p := in.ProjectionInput
	p.DiscountRate = cell.DiscountRate
	p.TerminalGrowth = cell.TerminalGrowth

	res, err := Project(p)
	if err != nil {
		cell.Reason = err.Error()
		return
	}
	price := in.Bridge.PricePerShare(res.EnterpriseValue)
	if price == nil {
		cell.Reason = ReasonNoShares
		return
	}
	cell.Price = price
}

// Cell returns the cell at (wacc index i, tgr index j).
func (g *SensitivityGrid) Cell(i, j int) SensitivityCell {
	return g.Cells[i*len(g.TerminalGrowths)+j]
}

// Absent counts the cells without a price.
func (g *SensitivityGrid) Absent() int {
	n := 0
	for _, c := range g.Cells {
		if c.Price == nil {
			n++
		}
	}
	return n
}

// CellKey formats the legacy grid key, e.g. "wacc_0.070_tgr_0.015".
func CellKey(wacc, tgr float64) string {
	return fmt.Sprintf("wacc_%.3f_tgr_%.3f", wacc, tgr)
}

// Keyed returns the grid as a key -> price map. Absent and non-finite prices
// map to nil.
func (g *SensitivityGrid) Keyed() map[string]*float64 {
	out := make(map[string]*float64, len(g.Cells))
	for _, c := range g.Cells {
		out[CellKey(c.DiscountRate, c.TerminalGrowth)] = FiniteOrNil(c.Price)
	}
	return out
}

// MarshalJSON emits {"wacc_values", "tgr_values", "grid", "cells"}.
func (g *SensitivityGrid) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		DiscountRates   []*float64          `json:"wacc_values"`
		TerminalGrowths []*float64          `json:"tgr_values"`
		Grid            map[string]*float64 `json:"grid"`
		Cells           []SensitivityCell   `json:"cells"`
	}{finiteSlice(g.DiscountRates), finiteSlice(g.TerminalGrowths), g.Keyed(), g.Cells})
}

// UnmarshalJSON reads the form written by MarshalJSON.
func (g *SensitivityGrid) UnmarshalJSON(data []byte) error {
	var raw struct {
		DiscountRates   []float64         `json:"wacc_values"`
		TerminalGrowths []float64         `json:"tgr_values"`
		Cells           []SensitivityCell `json:"cells"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	g.DiscountRates = raw.DiscountRates
	g.TerminalGrowths = raw.TerminalGrowths
	g.Cells = raw.Cells
	return nil
}

// FiniteOrNil drops NaN and Inf, which JSON cannot carry.
func FiniteOrNil(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return v
}
