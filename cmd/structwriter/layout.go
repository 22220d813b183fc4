package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"structwriter/internal/diag"
	"structwriter/internal/layout"
	"structwriter/internal/schema"
)

var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Print the computed byte and bit layouts",
	RunE: func(cmd *cobra.Command, args []string) error {
		bag := diag.NewBag(flagMaxDiagnostics)
		r := diag.NewBagReporter(bag)
		defer flushDiagnostics(bag)

		defs, plan, err := loadAndPlan(cmd.Context(), r)
		if err != nil {
			return err
		}
		printPlan(cmd.OutOrStdout(), defs, plan)
		return nil
	},
}

func printPlan(w io.Writer, defs *schema.Set, plan *layout.Plan) {
	for _, name := range defs.Names() {
		def, _ := defs.Lookup(name)
		switch def.Kind {
		case schema.KindStructure:
			printStructLayout(w, def, plan)
		case schema.KindEnum:
			fmt.Fprintf(w, "enum %s (%d bytes, %d symbols)\n", def.Name, def.Size, len(def.Values))
		case schema.KindBitField:
			printBitfieldLayout(w, def, plan)
		case schema.KindGroup:
			printSliceLayout(w, def, plan)
		}
	}
}

func printStructLayout(w io.Writer, def *schema.Definition, plan *layout.Plan) {
	sl, ok := plan.Struct(def.Name)
	if !ok {
		return
	}
	fmt.Fprintf(w, "structure %s (%d bytes)\n", def.Name, sl.Size)
	for _, span := range sl.Spans {
		fmt.Fprintf(w, "  [%d..%d) %s %s\n", span.Start, span.End, span.Name, span.Type)
	}
}

func printBitfieldLayout(w io.Writer, def *schema.Definition, plan *layout.Plan) {
	bl, ok := plan.Bitfield(def.Name)
	if !ok {
		return
	}
	fmt.Fprintf(w, "bit_field %s (%d bytes)\n", def.Name, bl.Size)
	for _, span := range bl.Spans {
		what := span.Type
		if span.Reserved {
			what = "reserved"
		}
		if span.Bits == 1 {
			fmt.Fprintf(w, "  bit %d %s %s\n", span.Start, span.Name, what)
		} else {
			fmt.Fprintf(w, "  bits %d..%d %s %s\n", span.Start, span.Last(), span.Name, what)
		}
	}
}

func printSliceLayout(w io.Writer, def *schema.Definition, plan *layout.Plan) {
	sl, ok := plan.Slice(def.Name)
	if !ok {
		return
	}
	fmt.Fprintf(w, "group %s (%d bytes: %d tag + %d payload)\n",
		def.Name, sl.TotalSize, sl.TagSize, sl.PayloadSize)
	for _, v := range sl.Variants {
		fmt.Fprintf(w, "  %#x %s -> %s (%d bytes)\n", v.Tag, v.Name, v.Type, v.PayloadSize)
	}
}
