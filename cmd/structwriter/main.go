package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	_ "structwriter/internal/backend/c"
	_ "structwriter/internal/backend/rust"
	"structwriter/internal/version"
)

var rootCmd = &cobra.Command{
	Use:          "structwriter",
	Short:        "Schema-driven structure code generator",
	Long:         `structwriter turns declarative structure definitions into fixed-width binary codecs and target-language source files`,
	SilenceUsage: true,
}

var (
	flagColor          string
	flagQuiet          bool
	flagMaxDiagnostics int
	flagInputs         []string
)

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(layoutCmd)
	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().StringVar(&flagColor, "color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().BoolVar(&flagQuiet, "quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().IntVar(&flagMaxDiagnostics, "max-diagnostics", 100, "maximum number of diagnostics to show")
	rootCmd.PersistentFlags().StringSliceVar(&flagInputs, "input-definitions", nil, "definition documents (toml|json|yaml), merged in order")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// isTerminal reports whether the file is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
