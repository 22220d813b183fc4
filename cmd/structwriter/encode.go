package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"structwriter/internal/codec"
	"structwriter/internal/diag"
)

var (
	encodeType   string
	encodeFormat string
	encodeOutput string
)

func init() {
	encodeCmd.Flags().StringVar(&encodeType, "type", "", "definition to encode against")
	encodeCmd.Flags().StringVar(&encodeFormat, "format", "hex", "output format (hex|c|raw)")
	encodeCmd.Flags().StringVar(&encodeOutput, "output", "", "write raw bytes to a file instead of stdout")
	_ = encodeCmd.MarkFlagRequired("type")
}

var encodeCmd = &cobra.Command{
	Use:   "encode <value-document>",
	Short: "Encode a value document to wire bytes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bag := diag.NewBag(flagMaxDiagnostics)
		r := diag.NewBagReporter(bag)
		defer flushDiagnostics(bag)

		defs, plan, err := loadAndPlan(cmd.Context(), r)
		if err != nil {
			return err
		}
		value, err := readValueDocument(args[0])
		if err != nil {
			return err
		}
		data, err := codec.New(defs, plan).Encode(encodeType, value)
		if err != nil {
			return err
		}
		if encodeOutput != "" {
			return os.WriteFile(encodeOutput, data, 0o644)
		}
		out := cmd.OutOrStdout()
		switch encodeFormat {
		case "hex":
			fmt.Fprintf(out, "%x\n", data)
		case "c":
			parts := make([]string, len(data))
			for i, b := range data {
				parts[i] = fmt.Sprintf("0x%02x", b)
			}
			fmt.Fprintf(out, "{%s}\n", strings.Join(parts, ", "))
		case "raw":
			_, err = out.Write(data)
			return err
		default:
			return fmt.Errorf("unsupported format %q (must be hex, c or raw)", encodeFormat)
		}
		return nil
	},
}

// readValueDocument parses one value document, keyed by extension like
// the definition documents.
func readValueDocument(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		v := make(map[string]any)
		if err := toml.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case ".json":
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case ".yaml", ".yml":
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
	return nil, fmt.Errorf("unsupported value document %q (want .toml, .json or .yaml)", path)
}
