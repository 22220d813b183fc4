package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"structwriter/internal/codec"
	"structwriter/internal/diag"
	"structwriter/internal/schema"
)

var (
	decodeType  string
	decodeInput string
)

func init() {
	decodeCmd.Flags().StringVar(&decodeType, "type", "", "definition to decode against")
	decodeCmd.Flags().StringVar(&decodeInput, "input", "", "read raw bytes from a file instead of a hex argument")
	_ = decodeCmd.MarkFlagRequired("type")
}

var decodeCmd = &cobra.Command{
	Use:   "decode [hex-bytes]",
	Short: "Decode wire bytes to a JSON value",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bag := diag.NewBag(flagMaxDiagnostics)
		r := diag.NewBagReporter(bag)
		defer flushDiagnostics(bag)

		defs, plan, err := loadAndPlan(cmd.Context(), r)
		if err != nil {
			return err
		}
		data, err := decodeInputBytes(args)
		if err != nil {
			return err
		}
		c := codec.New(defs, plan)
		value, err := c.Decode(decodeType, data)
		if err != nil {
			return err
		}
		out, err := renderDecoded(c, defs, decodeType, value)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", out)
		return nil
	},
}

func decodeInputBytes(args []string) ([]byte, error) {
	if decodeInput != "" {
		return os.ReadFile(decodeInput)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("no input: pass hex bytes or --input")
	}
	s := strings.TrimPrefix(strings.ToLower(args[0]), "0x")
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, s)
	return hex.DecodeString(s)
}

// renderDecoded prints a decoded value as JSON, keeping declaration
// order for structure and bit field states.
func renderDecoded(c *codec.Codec, defs *schema.Set, typeName string, value any) ([]byte, error) {
	def, ok := defs.Lookup(typeName)
	if !ok {
		return json.Marshal(value)
	}
	switch def.Kind {
	case schema.KindStructure, schema.KindBitField:
		return c.MarshalStateJSON(typeName, value)
	case schema.KindGroup:
		m, isMap := value.(map[string]any)
		if !isMap || len(m) != 1 {
			return json.Marshal(value)
		}
		for payloadType, payload := range m {
			inner, err := c.MarshalStateJSON(payloadType, payload)
			if err != nil {
				return nil, err
			}
			key, err := json.Marshal(payloadType)
			if err != nil {
				return nil, err
			}
			return fmt.Appendf(nil, "{%s:%s}", key, inner), nil
		}
	}
	return json.Marshal(value)
}
