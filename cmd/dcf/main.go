// Command dcf runs two-stage fade DCF valuations from the command line.
//
// Usage:
//
//	dcf value --fcf 100 --years 5 --growth 0.10 --wacc 0.10 --tgr 0.025 --fade 2 --shares 10
//	dcf company ACME --snapshots data/snapshots
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "dcf",
	Short:         "Two-stage fade DCF valuation",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func main() {
	rootCmd.AddCommand(valueCmd, companyCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
