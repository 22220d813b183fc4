// Package diagfmt renders diagnostics for terminal output.
package diagfmt

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"structwriter/internal/diag"
)

// PrettyOpts controls diagnostic rendering.
type PrettyOpts struct {
	Color bool
}

var (
	errColor  = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow, color.Bold)
	infoColor = color.New(color.FgCyan)
	ctxColor  = color.New(color.Faint)
)

// Pretty formats diagnostics in a human-readable form, one per line:
//
//	<file>: error SW1003: message (entity `name`)
//
// followed by indented notes. Callers are expected to bag.Sort() first.
func Pretty(w io.Writer, bag *diag.Bag, opts PrettyOpts) {
	if bag == nil {
		return
	}
	for _, d := range bag.Items() {
		writeOne(w, d, opts)
	}
}

func writeOne(w io.Writer, d diag.Diagnostic, opts PrettyOpts) {
	sev := severityLabel(d.Severity, opts.Color)
	if d.Primary.File != "" {
		fmt.Fprintf(w, "%s: ", d.Primary.File)
	}
	fmt.Fprintf(w, "%s %s: %s%s\n", sev, d.Code, d.Message, whereSuffix(d.Primary, opts.Color))
	for _, n := range d.Notes {
		fmt.Fprintf(w, "  note: %s%s\n", n.Msg, whereSuffix(n.Context, opts.Color))
	}
}

func severityLabel(sev diag.Severity, colored bool) string {
	var c *color.Color
	var label string
	switch sev {
	case diag.SevError:
		c, label = errColor, "error"
	case diag.SevWarning:
		c, label = warnColor, "warning"
	default:
		c, label = infoColor, "info"
	}
	if !colored {
		return label
	}
	return c.Sprint(label)
}

func whereSuffix(ctx diag.Context, colored bool) string {
	if ctx.Entity == "" {
		return ""
	}
	s := fmt.Sprintf(" (entity `%s`", ctx.Entity)
	if ctx.Member != "" {
		s += fmt.Sprintf(", member `%s`", ctx.Member)
	}
	s += ")"
	if colored {
		return ctxColor.Sprint(s)
	}
	return s
}
