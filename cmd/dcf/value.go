package main

import (
	"encoding/json"
	"fmt"
	"io"

	"dcf_valuation/pkg/core/assumption"
	"dcf_valuation/pkg/core/pipeline"
	"dcf_valuation/pkg/core/report"
	"dcf_valuation/pkg/core/valuation"

	"github.com/spf13/cobra"
)

// =============================================================================
// VALUE COMMAND - engine only, no company data
// =============================================================================

var valueFlags struct {
	fcf, growth, wacc, tgr float64
	years, fade, workers   int
	cash, debt, shares     float64
	format                 string
}

var valueCmd = &cobra.Command{
	Use:   "value",
	Short: "Value a cash-flow stream from explicit assumptions",
	Args:  cobra.NoArgs,
	RunE:  runValue,
}

func init() {
	f := valueCmd.Flags()
	f.Float64Var(&valueFlags.fcf, "fcf", 0, "Base free cash flow")
	f.IntVar(&valueFlags.years, "years", 5, "Explicit forecast years")
	f.Float64Var(&valueFlags.growth, "growth", 0.08, "Stage-1 growth rate")
	f.Float64Var(&valueFlags.wacc, "wacc", 0.10, "Discount rate")
	f.Float64Var(&valueFlags.tgr, "tgr", 0.025, "Terminal growth rate")
	f.IntVar(&valueFlags.fade, "fade", 2, "Fade years")
	f.Float64Var(&valueFlags.cash, "cash", 0, "Cash balance")
	f.Float64Var(&valueFlags.debt, "debt", 0, "Debt balance")
	f.Float64Var(&valueFlags.shares, "shares", 0, "Shares outstanding (omit for no per-share values)")
	f.IntVar(&valueFlags.workers, "workers", 0, "Sensitivity workers (0 = GOMAXPROCS)")
	f.StringVar(&valueFlags.format, "format", "markdown", "Output format: markdown or json")
	_ = valueCmd.MarkFlagRequired("fcf")
}

func runValue(cmd *cobra.Command, _ []string) error {
	in := valuation.ProjectionInput{
		BaseFCF:        valueFlags.fcf,
		ExplicitYears:  valueFlags.years,
		Stage1Growth:   valueFlags.growth,
		DiscountRate:   valueFlags.wacc,
		TerminalGrowth: valueFlags.tgr,
		FadeYears:      valueFlags.fade,
	}
	res, err := valuation.Project(in)
	if err != nil {
		return err
	}

	bridge := valuation.EquityBridge{
		Cash: valuation.Float(valueFlags.cash),
		Debt: valuation.Float(valueFlags.debt),
	}
	if cmd.Flags().Changed("shares") {
		bridge.Shares = valuation.Float(valueFlags.shares)
	}

	rep := &pipeline.Report{
		Ticker: "(manual)",
		KPIs: pipeline.KPIs{
			LastFCF:           in.BaseFCF,
			Cash:              valueFlags.cash,
			Debt:              valueFlags.debt,
			EnterpriseValue:   res.EnterpriseValue,
			EquityValue:       bridge.EquityValue(res.EnterpriseValue),
			SharesOutstanding: bridge.Shares,
			PricePerShare:     bridge.PricePerShare(res.EnterpriseValue),
			TerminalValuePV:   res.PVTerminalValue,
			WACC:              in.DiscountRate,
			TerminalGrowth:    in.TerminalGrowth,
			Stage1Growth:      in.Stage1Growth,
			Stage1Source:      assumption.SourceUser,
			FadeYears:         in.FadeYears,
		},
		Projection: res.Projections,
		Sensitivity: valuation.Sensitivity(cmd.Context(), valuation.SensitivityInput{
			ProjectionInput: in,
			Bridge:          bridge,
			Workers:         valueFlags.workers,
		}),
	}
	return writeReport(cmd.OutOrStdout(), rep, valueFlags.format)
}

func writeReport(w io.Writer, rep *pipeline.Report, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case "markdown", "md":
		_, err := fmt.Fprint(w, report.Markdown(rep))
		return err
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
