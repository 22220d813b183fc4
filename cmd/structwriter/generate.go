package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"structwriter/internal/backend"
	"structwriter/internal/diag"
	"structwriter/internal/render"
)

var (
	generateOutput    string
	generateLanguage  string
	generateTemplates []string
)

func init() {
	generateCmd.Flags().StringVar(&generateOutput, "output-file", "", "path of the generated source file")
	generateCmd.Flags().StringVar(&generateLanguage, "language", "c", "target language")
	generateCmd.Flags().StringSliceVar(&generateTemplates, "template-files", nil, "template trees overlaid onto the language defaults")
	_ = generateCmd.MarkFlagRequired("output-file")
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate target-language source from definition documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		bag := diag.NewBag(flagMaxDiagnostics)
		r := diag.NewBagReporter(bag)
		defer flushDiagnostics(bag)

		defs, plan, err := loadAndPlan(cmd.Context(), r)
		if err != nil {
			return err
		}

		ren, found := backend.Lookup(generateLanguage)
		if !found {
			diag.ReportError(r, diag.GenUnknownLanguage, diag.Context{},
				fmt.Sprintf("unknown language %q (have %s)", generateLanguage, strings.Join(backend.Languages(), ", ")))
			return errDiagnostics
		}

		tree, err := ren.DefaultTemplate()
		if err != nil {
			diag.ReportError(r, diag.GenBadTemplate, diag.Context{},
				fmt.Sprintf("built-in %s template: %v", generateLanguage, err))
			return errDiagnostics
		}
		for _, path := range generateTemplates {
			user, err := loadTemplateTree(path)
			if err != nil {
				diag.ReportError(r, diag.GenBadTemplate, diag.Context{File: path}, err.Error())
				return errDiagnostics
			}
			tree = render.Merge(tree, user)
		}

		out, err := ren.Render(backend.Request{
			Defs:       defs,
			Plan:       plan,
			Templates:  tree,
			OutputPath: generateOutput,
		})
		if err != nil {
			code := diag.GenRenderFailed
			var unknown *backend.UnknownEntityError
			if errors.As(err, &unknown) {
				code = diag.GenUnknownEntity
			}
			diag.ReportError(r, code, diag.Context{}, err.Error())
			return errDiagnostics
		}

		if err := writeFileAtomic(generateOutput, []byte(out)); err != nil {
			diag.ReportError(r, diag.GenWriteFailed, diag.Context{File: generateOutput}, err.Error())
			return errDiagnostics
		}
		if !flagQuiet {
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", generateOutput, len(out))
		}
		return nil
	},
}

// loadTemplateTree reads one user template file, keyed by extension like
// the definition documents.
func loadTemplateTree(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tree := make(map[string]any)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &tree)
	case ".json":
		err = json.Unmarshal(data, &tree)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &tree)
	default:
		return nil, fmt.Errorf("unsupported template format %q (want .toml, .json or .yaml)", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	return tree, nil
}

// writeFileAtomic stages the output next to its destination and renames
// it into place, so readers never observe a half-written file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
