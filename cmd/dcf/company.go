package main

import (
	"dcf_valuation/pkg/core/config"
	"dcf_valuation/pkg/core/ingest"
	"dcf_valuation/pkg/core/logging"
	"dcf_valuation/pkg/core/pipeline"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMPANY COMMAND - full pipeline against local snapshots
// =============================================================================

var companyFlags struct {
	configPath   string
	snapshotDir  string
	noEstimate   bool
	format       string
	growth, wacc float64
	tgr          float64
	years, fade  int
}

var companyCmd = &cobra.Command{
	Use:   "company TICKER",
	Short: "Value a company from its stored financial snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runCompany,
}

func init() {
	f := companyCmd.Flags()
	f.StringVar(&companyFlags.configPath, "config", config.DefaultPath, "Path to the YAML config file")
	f.StringVar(&companyFlags.snapshotDir, "snapshots", "", "Snapshot directory (overrides config)")
	f.BoolVar(&companyFlags.noEstimate, "no-estimate", false, "Do not fetch an external growth estimate")
	f.StringVar(&companyFlags.format, "format", "markdown", "Output format: markdown or json")
	f.Float64Var(&companyFlags.growth, "growth", 0, "Stage-1 growth rate (default from config)")
	f.Float64Var(&companyFlags.wacc, "wacc", 0, "Discount rate (default from config)")
	f.Float64Var(&companyFlags.tgr, "tgr", 0, "Terminal growth rate (default from config)")
	f.IntVar(&companyFlags.years, "years", 0, "Explicit forecast years (default from config)")
	f.IntVar(&companyFlags.fade, "fade", 0, "Fade years (default from config)")
}

func runCompany(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.Load(companyFlags.configPath)
	if err != nil {
		return err
	}
	if companyFlags.snapshotDir != "" {
		cfg.Data.SnapshotDir = companyFlags.snapshotDir
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	var est ingest.GrowthEstimator
	if cfg.Growth.Enabled && !companyFlags.noEstimate {
		est = ingest.NewYahooGrowthEstimator(cfg.Growth.URLPattern, cfg.Growth.Timeout)
	}
	orch := pipeline.NewOrchestrator(ingest.NewFileSnapshotSource(cfg.Data.SnapshotDir), est, cfg.Defaults, logger)
	orch.SetWorkers(cfg.Sensitivity.Workers)

	req := pipeline.Request{Ticker: args[0]}
	flags := cmd.Flags()
	if flags.Changed("growth") {
		req.Growth = &companyFlags.growth
	}
	if flags.Changed("wacc") {
		req.WACC = &companyFlags.wacc
	}
	if flags.Changed("tgr") {
		req.TerminalGrowth = &companyFlags.tgr
	}
	if flags.Changed("years") {
		req.Years = &companyFlags.years
	}
	if flags.Changed("fade") {
		req.FadeYears = &companyFlags.fade
	}
	if companyFlags.noEstimate {
		useEstimate := false
		req.UseEstimatedGrowth = &useEstimate
	}

	rep, err := orch.Run(cmd.Context(), req)
	if err != nil {
		return err
	}
	return writeReport(cmd.OutOrStdout(), rep, companyFlags.format)
}
