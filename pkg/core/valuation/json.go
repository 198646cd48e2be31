package valuation

import "encoding/json"

// JSON cannot carry NaN or Inf. The marshalers below write them as null so a
// degenerate valuation still reaches the caller.

// Finite returns &v, or nil when v is NaN or Inf.
func Finite(v float64) *float64 {
	return FiniteOrNil(&v)
}

// MarshalJSON implements json.Marshaler.
func (p YearProjection) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Year          int      `json:"year"`
		GrowthRate    *float64 `json:"growth_rate"`
		FCF           *float64 `json:"fcf"`
		DiscountedFCF *float64 `json:"pv_fcf"`
	}{p.Year, Finite(p.GrowthRate), Finite(p.FCF), Finite(p.DiscountedFCF)})
}

// MarshalJSON implements json.Marshaler.
func (r DCFResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		EnterpriseValue *float64         `json:"enterprise_value"`
		PVExplicitFCF   *float64         `json:"pv_explicit_fcf"`
		PVTerminalValue *float64         `json:"pv_terminal_value"`
		TerminalValue   *float64         `json:"terminal_value"`
		Projections     []YearProjection `json:"projections"`
	}{
		Finite(r.EnterpriseValue),
		Finite(r.PVExplicitFCF),
		Finite(r.PVTerminalValue),
		Finite(r.TerminalValue),
		r.Projections,
	})
}

// MarshalJSON implements json.Marshaler.
func (c SensitivityCell) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		DiscountRate   *float64 `json:"wacc"`
		TerminalGrowth *float64 `json:"tgr"`
		Price          *float64 `json:"price"`
		Reason         string   `json:"reason,omitempty"`
	}{Finite(c.DiscountRate), Finite(c.TerminalGrowth), FiniteOrNil(c.Price), c.Reason})
}

func finiteSlice(vs []float64) []*float64 {
	out := make([]*float64, len(vs))
	for i, v := range vs {
		out[i] = Finite(v)
	}
	return out
}
