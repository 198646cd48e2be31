package valuation

// EquityBridge carries the balance-sheet items that turn enterprise value into
// a per-share price. Nil means the figure was not reported.
type EquityBridge struct {
	Cash   *float64 `json:"cash"`
	Debt   *float64 `json:"debt"`
	Shares *float64 `json:"shares_outstanding"`
}

// EquityValue = EV + cash - debt. Missing cash or debt counts as zero.
func (b EquityBridge) EquityValue(ev float64) float64 {
	return ev + deref(b.Cash) - deref(b.Debt)
}

// PricePerShare returns nil when the share count is missing or not positive.
func (b EquityBridge) PricePerShare(ev float64) *float64 {
	if b.Shares == nil || !(*b.Shares > 0) {
		return nil
	}
	price := b.EquityValue(ev) / *b.Shares
	return &price
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// Float returns a pointer to f.
func Float(f float64) *float64 { return &f }
