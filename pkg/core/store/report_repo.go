package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"dcf_valuation/pkg/core/pipeline"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrReportNotFound is returned by the loaders when no row matches.
var ErrReportNotFound = errors.New("valuation report not found")

// ReportRepo stores valuation reports as JSONB, one row per run.
type ReportRepo struct {
	pool *pgxpool.Pool
}

// NewReportRepo creates a repository on pool.
func NewReportRepo(pool *pgxpool.Pool) *ReportRepo {
	return &ReportRepo{pool: pool}
}

// Save upserts the report keyed by its run ID.
func (r *ReportRepo) Save(ctx context.Context, report *pipeline.Report) error {
	if r.pool == nil {
		return fmt.Errorf("database pool not initialized")
	}

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	query := `
		INSERT INTO dcf_runs (run_id, ticker, report_json, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (run_id)
		DO UPDATE SET
			report_json = EXCLUDED.report_json,
			created_at = EXCLUDED.created_at;
	`
	if _, err := r.pool.Exec(ctx, query, report.RunID, report.Ticker, data, report.CreatedAt); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// Load returns the report for runID.
func (r *ReportRepo) Load(ctx context.Context, runID string) (*pipeline.Report, error) {
	return r.loadOne(ctx, `SELECT report_json FROM dcf_runs WHERE run_id = $1`, runID)
}

// Latest returns the most recent report for ticker.
func (r *ReportRepo) Latest(ctx context.Context, ticker string) (*pipeline.Report, error) {
	return r.loadOne(ctx, `
		SELECT report_json FROM dcf_runs
		WHERE ticker = $1
		ORDER BY created_at DESC
		LIMIT 1`, ticker)
}

func (r *ReportRepo) loadOne(ctx context.Context, query string, arg string) (*pipeline.Report, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	var data []byte
	if err := r.pool.QueryRow(ctx, query, arg).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", arg, ErrReportNotFound)
		}
		return nil, fmt.Errorf("failed to load report: %w", err)
	}

	var report pipeline.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}
