// Package pipeline runs a full company valuation: load the snapshot, resolve
// the stage-1 growth rate, run the DCF and the sensitivity sweep, and persist
// the report.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"dcf_valuation/pkg/core/assumption"
	"dcf_valuation/pkg/core/config"
	"dcf_valuation/pkg/core/ingest"
	"dcf_valuation/pkg/core/logging"
	"dcf_valuation/pkg/core/metrics"
	"dcf_valuation/pkg/core/valuation"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInsufficientData means the snapshot has no usable FCF.
var ErrInsufficientData = errors.New("insufficient FCF data for DCF calculation")

// ErrMissingTicker is returned when the request has no ticker.
var ErrMissingTicker = errors.New("ticker is required")

// ReportStore persists finished reports.
type ReportStore interface {
	Save(ctx context.Context, report *Report) error
}

// Request is a company valuation request. Nil pointer fields take the
// configured default.
type Request struct {
	Ticker             string   `json:"ticker"`
	Years              *int     `json:"years,omitempty"`
	Growth             *float64 `json:"growth,omitempty"`
	FadeYears          *int     `json:"fade_years,omitempty"`
	WACC               *float64 `json:"wacc,omitempty"`
	TerminalGrowth     *float64 `json:"terminal_growth,omitempty"`
	StartYear          *int     `json:"start_year,omitempty"`
	UseEstimatedGrowth *bool    `json:"use_yahoo_growth,omitempty"`
	OverrideCash       *float64 `json:"override_cash,omitempty"`
	OverrideDebt       *float64 `json:"override_debt,omitempty"`
}

// resolved is a Request with every default applied.
type resolved struct {
	ticker             string
	years              int
	growth             float64
	fadeYears          int
	wacc               float64
	terminalGrowth     float64
	startYear          int
	useEstimatedGrowth bool
}

func (r Request) resolve(d config.ValuationDefaults) resolved {
	out := resolved{
		ticker:             strings.ToUpper(strings.TrimSpace(r.Ticker)),
		years:              d.Years,
		growth:             d.Growth,
		fadeYears:          d.FadeYears,
		wacc:               d.WACC,
		terminalGrowth:     d.TerminalGrowth,
		startYear:          d.StartYear,
		useEstimatedGrowth: d.UseEstimatedGrowth,
	}
	if r.Years != nil {
		out.years = *r.Years
	}
	if r.Growth != nil {
		out.growth = *r.Growth
	}
	if r.FadeYears != nil {
		out.fadeYears = *r.FadeYears
	}
	if r.WACC != nil {
		out.wacc = *r.WACC
	}
	if r.TerminalGrowth != nil {
		out.terminalGrowth = *r.TerminalGrowth
	}
	if r.StartYear != nil {
		out.startYear = *r.StartYear
	}
	if r.UseEstimatedGrowth != nil {
		out.useEstimatedGrowth = *r.UseEstimatedGrowth
	}
	return out
}

// KPIs are the headline numbers of a report.
type KPIs struct {
	LastFCF           float64  `json:"last_fcf"`
	Cash              float64  `json:"cash"`
	Debt              float64  `json:"debt"`
	EnterpriseValue   float64  `json:"enterprise_value"`
	EquityValue       float64  `json:"equity_value"`
	SharesOutstanding *float64 `json:"shares_outstanding"`
	PricePerShare     *float64 `json:"price_per_share"`
	TerminalValuePV   float64  `json:"terminal_value_pv"`
	WACC              float64  `json:"wacc"`
	TerminalGrowth    float64  `json:"terminal_growth"`
	Stage1Growth      float64  `json:"stage1_growth"`
	Stage1Source      string   `json:"stage1_source"`
	FadeYears         int      `json:"fade_years"`
}

// MarshalJSON writes non-finite figures as null.
func (k KPIs) MarshalJSON() ([]byte, error) {
	f := valuation.Finite
	return json.Marshal(struct {
		LastFCF           *float64 `json:"last_fcf"`
		Cash              *float64 `json:"cash"`
		Debt              *float64 `json:"debt"`
		EnterpriseValue   *float64 `json:"enterprise_value"`
		EquityValue       *float64 `json:"equity_value"`
		SharesOutstanding *float64 `json:"shares_outstanding"`
		PricePerShare     *float64 `json:"price_per_share"`
		TerminalValuePV   *float64 `json:"terminal_value_pv"`
		WACC              *float64 `json:"wacc"`
		TerminalGrowth    *float64 `json:"terminal_growth"`
		Stage1Growth      *float64 `json:"stage1_growth"`
		Stage1Source      string   `json:"stage1_source"`
		FadeYears         int      `json:"fade_years"`
	}{
		LastFCF:           f(k.LastFCF),
		Cash:              f(k.Cash),
		Debt:              f(k.Debt),
		EnterpriseValue:   f(k.EnterpriseValue),
		EquityValue:       f(k.EquityValue),
		SharesOutstanding: valuation.FiniteOrNil(k.SharesOutstanding),
		PricePerShare:     valuation.FiniteOrNil(k.PricePerShare),
		TerminalValuePV:   f(k.TerminalValuePV),
		WACC:              f(k.WACC),
		TerminalGrowth:    f(k.TerminalGrowth),
		Stage1Growth:      f(k.Stage1Growth),
		Stage1Source:      k.Stage1Source,
		FadeYears:         k.FadeYears,
	})
}

// Report is the full output of one valuation run.
type Report struct {
	RunID       string                     `json:"run_id"`
	Ticker      string                     `json:"ticker"`
	CompanyName string                     `json:"company_name,omitempty"`
	KPIs        KPIs                       `json:"kpis"`
	Projection  []valuation.YearProjection `json:"projection"`
	Financials  []ingest.FinancialYear     `json:"financials"`
	Sensitivity *valuation.SensitivityGrid `json:"sensitivity"`
	Footnotes   []string                   `json:"footnotes"`
	CreatedAt   time.Time                  `json:"created_at"`
}

// Orchestrator wires the collaborators of a valuation run.
type Orchestrator struct {
	snapshots ingest.SnapshotSource
	growth    ingest.GrowthEstimator
	store     ReportStore
	defaults  config.ValuationDefaults
	workers   int
	logger    *zap.Logger
	now       func() time.Time
}

// NewOrchestrator creates an orchestrator. growth may be nil when estimates
// are disabled.
func NewOrchestrator(snapshots ingest.SnapshotSource, growth ingest.GrowthEstimator, defaults config.ValuationDefaults, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		snapshots: snapshots,
		growth:    growth,
		defaults:  defaults,
		logger:    logging.OrNop(logger),
		now:       time.Now,
	}
}

// SetStore enables persistence of finished reports.
func (o *Orchestrator) SetStore(s ReportStore) {
	o.store = s
}

// SetWorkers bounds the sensitivity sweep's parallelism.
func (o *Orchestrator) SetWorkers(n int) {
	o.workers = n
}

// Run values one company.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Report, error) {
	start := o.now()
	report, err := o.run(ctx, req)
	status := statusOf(err)
	metrics.ValuationsTotal.WithLabelValues(status).Inc()
	metrics.ValuationDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	return report, err
}

func (o *Orchestrator) run(ctx context.Context, req Request) (*Report, error) {
	r := req.resolve(o.defaults)
	if r.ticker == "" {
		return nil, ErrMissingTicker
	}
	log := o.logger.With(zap.String("ticker", r.ticker))

	// 1. Historical data
	snap, err := o.snapshots.Snapshot(ctx, r.ticker)
	if err != nil {
		return nil, fmt.Errorf("failed to load financials for %s: %w", r.ticker, err)
	}
	lastFCF := snap.LatestFCF()
	if lastFCF == nil {
		return nil, fmt.Errorf("%s: %w", r.ticker, ErrInsufficientData)
	}

	// 2. Balance sheet bridge: override, else latest reported, else zero
	cash := firstOf(req.OverrideCash, snap.LatestCash())
	debt := firstOf(req.OverrideDebt, snap.LatestDebt())
	bridge := valuation.EquityBridge{
		Cash:   valuation.Float(cash),
		Debt:   valuation.Float(debt),
		Shares: snap.SharesOutstanding,
	}

	// 3. Stage-1 growth
	var footnotes []string
	stage1 := assumption.ResolveStage1Growth(r.growth, o.estimateGrowth(ctx, log, r), r.useEstimatedGrowth)
	if stage1.Footnote != "" {
		footnotes = append(footnotes, stage1.Footnote)
	}
	metrics.GrowthEstimatesUsed.WithLabelValues(stage1.Source).Inc()

	// 4. DCF core
	input := valuation.ProjectionInput{
		BaseFCF:        *lastFCF,
		ExplicitYears:  r.years,
		Stage1Growth:   stage1.Rate,
		DiscountRate:   r.wacc,
		TerminalGrowth: r.terminalGrowth,
		FadeYears:      r.fadeYears,
	}
	result, err := valuation.Project(input)
	if err != nil {
		return nil, err
	}

	equity := bridge.EquityValue(result.EnterpriseValue)
	price := bridge.PricePerShare(result.EnterpriseValue)
	if price == nil {
		footnotes = append(footnotes, "Shares outstanding unavailable; per-share values omitted.")
	}

	// 5. Sensitivity
	grid := valuation.Sensitivity(ctx, valuation.SensitivityInput{
		ProjectionInput: input,
		Bridge:          bridge,
		Workers:         o.workers,
	})
	if absent := grid.Absent(); absent > 0 {
		metrics.SensitivityCellsAbsent.Add(float64(absent))
		log.Debug("sensitivity grid has absent cells", zap.Int("absent", absent), zap.Int("cells", len(grid.Cells)))
	}

	report := &Report{
		RunID:       uuid.NewString(),
		Ticker:      r.ticker,
		CompanyName: snap.Name,
		KPIs: KPIs{
			LastFCF:           *lastFCF,
			Cash:              cash,
			Debt:              debt,
			EnterpriseValue:   result.EnterpriseValue,
			EquityValue:       equity,
			SharesOutstanding: snap.SharesOutstanding,
			PricePerShare:     price,
			TerminalValuePV:   result.PVTerminalValue,
			WACC:              r.wacc,
			TerminalGrowth:    r.terminalGrowth,
			Stage1Growth:      stage1.Rate,
			Stage1Source:      stage1.Source,
			FadeYears:         r.fadeYears,
		},
		Projection:  result.Projections,
		Financials:  snap.Since(r.startYear),
		Sensitivity: grid,
		Footnotes:   footnotes,
		CreatedAt:   o.now().UTC(),
	}

	// 6. Persist
	if o.store != nil {
		if err := o.store.Save(ctx, report); err != nil {
			log.Warn("failed to persist valuation report", zap.String("run_id", report.RunID), zap.Error(err))
		}
	}

	log.Info("valuation complete",
		zap.String("run_id", report.RunID),
		zap.Float64("enterprise_value", result.EnterpriseValue),
		zap.Float64("stage1_growth", stage1.Rate),
	)
	return report, nil
}

// estimateGrowth never fails the run: a broken estimator means "no estimate".
func (o *Orchestrator) estimateGrowth(ctx context.Context, log *zap.Logger, r resolved) *assumption.GrowthEstimate {
	if !r.useEstimatedGrowth || o.growth == nil {
		return nil
	}
	est, err := o.growth.EstimateGrowth(ctx, r.ticker)
	if err != nil {
		log.Warn("growth estimate unavailable, using default", zap.Float64("default", r.growth), zap.Error(err))
		return nil
	}
	if est != nil && (math.IsNaN(est.Rate) || math.IsInf(est.Rate, 0)) {
		log.Warn("ignoring non-finite growth estimate", zap.String("source", est.Source))
		return nil
	}
	return est
}

func firstOf(override, reported *float64) float64 {
	if override != nil {
		return *override
	}
	if reported != nil {
		return *reported
	}
	return 0
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return metrics.StatusOK
	case errors.Is(err, ingest.ErrCompanyNotFound):
		return metrics.StatusNotFound
	case errors.Is(err, valuation.ErrArithmeticDomain):
		return metrics.StatusDomainError
	case errors.Is(err, valuation.ErrInvalidInput),
		errors.Is(err, ErrInsufficientData),
		errors.Is(err, ErrMissingTicker):
		return metrics.StatusInvalid
	default:
		return metrics.StatusInternalFail
	}
}
