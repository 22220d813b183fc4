package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"structwriter/internal/diag"
	"structwriter/internal/diagfmt"
	"structwriter/internal/layout"
	"structwriter/internal/schema"
)

// errDiagnostics signals a failure whose details were already printed as
// diagnostics, so the top-level error stays terse.
var errDiagnostics = errors.New("diagnostics reported")

func colorEnabled() bool {
	switch flagColor {
	case "on":
		return true
	case "off":
		return false
	}
	return isTerminal(os.Stderr)
}

// loadAndPlan runs the schema and layout stages over the definition
// documents named by --input-definitions.
func loadAndPlan(ctx context.Context, r diag.Reporter) (*schema.Set, *layout.Plan, error) {
	if len(flagInputs) == 0 {
		return nil, nil, fmt.Errorf("no definition documents: pass --input-definitions")
	}
	defs, ok := schema.Load(ctx, flagInputs, r)
	if !ok {
		return nil, nil, errDiagnostics
	}
	plan, ok := layout.New(defs).Compute(r)
	if !ok {
		return nil, nil, errDiagnostics
	}
	return defs, plan, nil
}

// flushDiagnostics prints the bag to stderr. With --quiet only errors
// survive.
func flushDiagnostics(bag *diag.Bag) {
	if bag.Len() == 0 {
		return
	}
	bag.Sort()
	printed := bag
	if flagQuiet {
		printed = diag.NewBag(int(bag.Cap()))
		for _, d := range bag.Items() {
			if d.Severity == diag.SevError {
				printed.Add(d)
			}
		}
	}
	diagfmt.Pretty(os.Stderr, printed, diagfmt.PrettyOpts{Color: colorEnabled()})
}
