// Package valuation implements the two-stage fade DCF engine and the
// WACC x terminal-growth sensitivity sweep built on top of it.
package valuation

import "fmt"

// MaxExplicitYears bounds the forecast horizon. Each year is one allocated row.
const MaxExplicitYears = 100

// ProjectionInput encapsulates all inputs required for a two-stage fade DCF.
type ProjectionInput struct {
	BaseFCF        float64 `json:"base_fcf"`        // Last reported FCF, may be <= 0
	ExplicitYears  int     `json:"explicit_years"`  // Length of the explicit forecast
	Stage1Growth   float64 `json:"stage1_growth"`   // e.g. 0.08
	DiscountRate   float64 `json:"discount_rate"`   // WACC, e.g. 0.10
	TerminalGrowth float64 `json:"terminal_growth"` // e.g. 0.025
	FadeYears      int     `json:"fade_years"`      // 0..ExplicitYears
}

// YearProjection is one explicit forecast year.
type YearProjection struct {
	Year          int     `json:"year"`
	GrowthRate    float64 `json:"growth_rate"`
	FCF           float64 `json:"fcf"`
	DiscountedFCF float64 `json:"pv_fcf"`
}

// DCFResult holds the valuation outputs.
type DCFResult struct {
	EnterpriseValue float64          `json:"enterprise_value"`
	PVExplicitFCF   float64          `json:"pv_explicit_fcf"`
	PVTerminalValue float64          `json:"pv_terminal_value"`
	TerminalValue   float64          `json:"terminal_value"` // Undiscounted, at end of year N
	Projections     []YearProjection `json:"projections"`
}

// Validate checks the structural constraints of the input. Arithmetic
// degeneracies are reported separately by checkDomain.
func (in ProjectionInput) Validate() error {
	if in.ExplicitYears <= 0 {
		return &InputValidationError{Field: "explicit_years", Reason: "must be positive"}
	}
	if in.ExplicitYears > MaxExplicitYears {
		return &InputValidationError{Field: "explicit_years", Reason: fmt.Sprintf("must not exceed %d", MaxExplicitYears)}
	}
	if in.FadeYears < 0 {
		return &InputValidationError{Field: "fade_years", Reason: "must not be negative"}
	}
	if in.FadeYears > in.ExplicitYears {
		return &InputValidationError{Field: "fade_years", Reason: "must not exceed explicit_years"}
	}
	return nil
}

func (in ProjectionInput) checkDomain() error {
	if in.DiscountRate <= -1 {
		return &ArithmeticDomainError{
			DiscountRate:   in.DiscountRate,
			TerminalGrowth: in.TerminalGrowth,
			Reason:         "discount rate must be greater than -100%",
		}
	}
	if in.DiscountRate == in.TerminalGrowth {
		return &ArithmeticDomainError{
			DiscountRate:   in.DiscountRate,
			TerminalGrowth: in.TerminalGrowth,
			Reason:         "discount rate equals terminal growth rate",
		}
	}
	return nil
}

// GrowthSchedule returns the per-year growth rates for the explicit horizon.
//
// Years 1..fadeYears interpolate linearly from stage1 to terminal, both
// endpoints included. A single fade year takes the terminal rate. Years after
// the window grow at the terminal rate. With fadeYears == 0 every year grows
// at stage1.
func GrowthSchedule(years, fadeYears int, stage1, terminal float64) []float64 {
	if years <= 0 {
		return nil
	}
	rates := make([]float64, years)
	if fadeYears == 0 {
		for i := range rates {
			rates[i] = stage1
		}
		return rates
	}
	for i := range rates {
		switch {
		case i >= fadeYears-1:
			rates[i] = terminal
		default:
			// fadeYears >= 2 here
			step := float64(i) / float64(fadeYears-1)
			rates[i] = stage1 + (terminal-stage1)*step
		}
	}
	return rates
}

// Project performs the two-stage fade DCF.
//
// FORMULA:
//
//	FCF_t  = FCF_{t-1} × (1 + g_t)
//	PV_t   = FCF_t / (1 + r)^t
//	TV     = FCF_N × (1 + g_T) / (r - g_T)
//	EV     = Σ PV_t + TV / (1 + r)^N
//
// NaN and Inf inputs are propagated, never clamped.
func Project(in ProjectionInput) (*DCFResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := in.checkDomain(); err != nil {
		return nil, err
	}

	growth := GrowthSchedule(in.ExplicitYears, in.FadeYears, in.Stage1Growth, in.TerminalGrowth)
	projections := make([]YearProjection, in.ExplicitYears)

	fcf := in.BaseFCF
	discountFactor := 1.0
	var pvExplicit float64
	for i, g := range growth {
		fcf *= 1 + g
		discountFactor *= 1 + in.DiscountRate
		pv := fcf / discountFactor
		pvExplicit += pv
		projections[i] = YearProjection{
			Year:          i + 1,
			GrowthRate:    g,
			FCF:           fcf,
			DiscountedFCF: pv,
		}
	}

	// Gordon growth on the final explicit year's FCF
	tv := fcf * (1 + in.TerminalGrowth) / (in.DiscountRate - in.TerminalGrowth)
	pvTerminal := tv / discountFactor

	return &DCFResult{
		EnterpriseValue: pvExplicit + pvTerminal,
		PVExplicitFCF:   pvExplicit,
		PVTerminalValue: pvTerminal,
		TerminalValue:   tv,
		Projections:     projections,
	}, nil
}
