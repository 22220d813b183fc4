// Package render implements the `${...}` template language the generator
// substitutes code fragments with, and the template-tree merge rules.
package render

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
)

// markerPattern matches `$$` escapes and `${expression}` markers.
var markerPattern = regexp.MustCompile(`\$(?:(\$)|\{([^{}]+)\})`)

// formatSuffix recognizes an optional trailing format spec in a marker,
// e.g. `${value.value:#04x}`.
var formatSuffix = regexp.MustCompile(`^(.*?):(#?0?\d*[bdoxX])$`)

// maxPasses bounds the fixpoint loop: markers may expand to text that
// itself contains markers, but never indefinitely.
const maxPasses = 16

// Template is a compiled-enough template string. The zero value renders
// as the empty string.
type Template struct {
	text string
}

// New wraps template text.
func New(text string) Template {
	return Template{text: text}
}

// Render substitutes every marker, re-rendering until the output is
// stable. A marker whose expression cannot be evaluated is an error.
func (t Template) Render(env map[string]any) (string, error) {
	return t.render(env, true)
}

// SafeRender substitutes the markers it can evaluate and leaves the rest
// intact, so partially-bound templates survive staged rendering.
func (t Template) SafeRender(env map[string]any) string {
	s, _ := t.render(env, false)
	return s
}

func (t Template) render(env map[string]any, strict bool) (string, error) {
	var firstErr error
	current := t.text
	for pass := 0; pass < maxPasses; pass++ {
		next := markerPattern.ReplaceAllStringFunc(current, func(match string) string {
			groups := markerPattern.FindStringSubmatch(match)
			if groups[1] == "$" {
				return "$"
			}
			out, err := evalMarker(groups[2], env)
			if err != nil {
				if strict && firstErr == nil {
					firstErr = fmt.Errorf("marker ${%s}: %w", groups[2], err)
				}
				return match
			}
			return out
		})
		if firstErr != nil {
			return current, firstErr
		}
		if next == current {
			break
		}
		current = next
	}
	// Escaped dollars are consumed by the substitution above; a final
	// pass is unnecessary because `$$` already collapsed to `$`.
	return current, nil
}

func evalMarker(expression string, env map[string]any) (string, error) {
	code := expression
	format := ""
	if m := formatSuffix.FindStringSubmatch(expression); m != nil {
		code, format = m[1], m[2]
	}
	value, err := expr.Eval(strings.TrimSpace(code), env)
	if err != nil {
		return "", err
	}
	if value == nil {
		return "", fmt.Errorf("expression evaluated to nil")
	}
	if format == "" {
		return fmt.Sprint(value), nil
	}
	n, ok := toInt64(value)
	if !ok {
		return "", fmt.Errorf("format %q needs an integer, got %T", format, value)
	}
	return fmt.Sprintf("%"+format, n), nil
}

func toInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case uint64:
		return int64(t), true
	case float64:
		n := int64(t)
		if float64(n) != t {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
