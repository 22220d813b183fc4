package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"structwriter/internal/diag"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate definition documents without generating anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		bag := diag.NewBag(flagMaxDiagnostics)
		r := diag.NewBagReporter(bag)
		defer flushDiagnostics(bag)

		defs, _, err := loadAndPlan(cmd.Context(), r)
		if err != nil {
			return err
		}
		if !flagQuiet {
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d definitions, %d warnings\n", defs.Len(), bag.Len())
		}
		return nil
	},
}
