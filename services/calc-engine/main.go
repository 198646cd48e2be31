package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"dcf_valuation/pkg/core/valuation"
)

// EnginePayload is the JSON accepted on -data.
type EnginePayload struct {
	valuation.ProjectionInput
	Cash   *float64 `json:"cash"`
	Debt   *float64 `json:"debt"`
	Shares *float64 `json:"shares_outstanding"`
}

func main() {
	mode := flag.String("mode", "project", "Mode: project or sensitivity")
	dataStr := flag.String("data", "", "JSON data payload")
	flag.Parse()

	if *dataStr == "" {
		fmt.Println("Error: No data provided")
		os.Exit(1)
	}
	if err := run(os.Stdout, *mode, []byte(*dataStr)); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(w io.Writer, mode string, data []byte) error {
	var payload EnginePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("unmarshaling data: %w", err)
	}

	var out interface{}
	switch mode {
	case "project":
		res, err := valuation.Project(payload.ProjectionInput)
		if err != nil {
			return err
		}
		out = res
	case "sensitivity":
		out = valuation.Sensitivity(context.Background(), valuation.SensitivityInput{
			ProjectionInput: payload.ProjectionInput,
			Bridge:          valuation.EquityBridge{Cash: payload.Cash, Debt: payload.Debt, Shares: payload.Shares},
		})
	default:
		return fmt.Errorf("unknown mode: %s", mode)
	}
	return json.NewEncoder(w).Encode(out)
}
