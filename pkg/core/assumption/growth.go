// Package assumption resolves the stage-1 growth rate used by the DCF and
// records where it came from.
package assumption

import "fmt"

// Source labels for the stage-1 growth rate.
const (
	SourceUser = "USER"
)

// GrowthEstimate is an externally sourced growth rate, e.g. an analyst
// consensus scraped from a quote page.
type GrowthEstimate struct {
	Rate   float64 `json:"rate"`
	Source string  `json:"source"`
}

// Stage1Growth is the growth rate handed to the engine plus its provenance.
type Stage1Growth struct {
	Rate     float64 `json:"rate"`
	Source   string  `json:"source"`
	Footnote string  `json:"footnote,omitempty"`
}

// ResolveStage1Growth picks between the caller's default and an external
// estimate. The estimate wins only when useEstimate is set and one exists; in
// that case a footnote is attached so the override can be audited.
func ResolveStage1Growth(defaultRate float64, estimate *GrowthEstimate, useEstimate bool) Stage1Growth {
	if !useEstimate || estimate == nil {
		return Stage1Growth{Rate: defaultRate, Source: SourceUser}
	}
	return Stage1Growth{
		Rate:     estimate.Rate,
		Source:   estimate.Source,
		Footnote: fmt.Sprintf("Using %s 5y growth estimate: %.2f%%", estimate.Source, estimate.Rate*100),
	}
}
