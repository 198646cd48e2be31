package config

import (
	"encoding/json"
	"net/http"

	coreConfig "dcf_valuation/pkg/core/config"
	"dcf_valuation/pkg/core/valuation"
)

// AxisSpec describes one sensitivity axis around a center value.
type AxisSpec struct {
	Points int     `json:"points"`
	Spread float64 `json:"spread"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Response is the payload of GET /api/config.
type Response struct {
	Defaults       coreConfig.ValuationDefaults `json:"defaults"`
	DiscountRates  AxisSpec                     `json:"wacc_axis"`
	TerminalGrowth AxisSpec                     `json:"tgr_axis"`
	GrowthEstimate bool                         `json:"growth_estimate_enabled"`
}

// Handler exposes the defaults the pipeline applies to omitted fields.
type Handler struct {
	resp Response
}

// NewHandler creates a new config handler
func NewHandler(cfg *coreConfig.Config) *Handler {
	return &Handler{
		resp: Response{
			Defaults: cfg.Defaults,
			DiscountRates: AxisSpec{
				Points: valuation.DiscountRatePoints,
				Spread: valuation.DiscountRateSpread,
				Min:    valuation.DiscountRateFloor,
				Max:    valuation.DiscountRateCeiling,
			},
			TerminalGrowth: AxisSpec{
				Points: valuation.TerminalGrowthPoints,
				Spread: valuation.TerminalGrowthSpread,
				Min:    valuation.TerminalGrowthFloor,
				Max:    valuation.TerminalGrowthCap,
			},
			GrowthEstimate: cfg.Growth.Enabled,
		},
	}
}

func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	// Add CORS headers for local dev
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.resp)
}
