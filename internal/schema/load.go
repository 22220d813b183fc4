package schema

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"
	"golang.org/x/sync/errgroup"

	"structwriter/internal/diag"
)

// Document is one decoded definition or template document. Order holds
// the top-level keys in authored order; the decoded maps alone cannot
// preserve it.
type Document struct {
	Path  string
	Defs  map[string]any
	Order []string
}

// LoadDocuments reads and decodes all paths concurrently, returning the
// documents in argument order. Decode failures are reported per file.
func LoadDocuments(ctx context.Context, paths []string, r diag.Reporter) ([]Document, bool) {
	docs := make([]Document, len(paths))
	errs := make([]error, len(paths))

	g, _ := errgroup.WithContext(ctx)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			docs[i], errs[i] = LoadDocument(path)
			return nil
		})
	}
	_ = g.Wait()

	ok := true
	for i, err := range errs {
		if err == nil {
			continue
		}
		ok = false
		code := diag.SchemaMalformedDocument
		if strings.Contains(err.Error(), "unsupported document format") {
			code = diag.SchemaUnsupportedFormat
		}
		diag.ReportError(r, code, diag.Context{File: paths[i]}, err.Error())
	}
	if !ok {
		return nil, false
	}
	return docs, true
}

// LoadDocument decodes a single markup document, selecting the decoder by
// file extension (.toml, .json, .yml/.yaml).
func LoadDocument(path string) (Document, error) {
	switch ext := filepath.Ext(path); ext {
	case ".toml":
		return loadTOML(path)
	case ".json":
		return loadJSON(path)
	case ".yml", ".yaml":
		return loadYAML(path)
	default:
		return Document{}, fmt.Errorf("%s: unsupported document format %q", path, ext)
	}
}

func loadTOML(path string) (Document, error) {
	var raw map[string]any
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", path, err)
	}
	var order []string
	seen := make(map[string]struct{}, len(raw))
	for _, key := range meta.Keys() {
		top := key[0]
		if _, dup := seen[top]; dup {
			continue
		}
		seen[top] = struct{}{}
		order = append(order, top)
	}
	return Document{Path: path, Defs: raw, Order: order}, nil
}

func loadJSON(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Document{}, fmt.Errorf("%s: %w", path, err)
	}
	order, err := jsonTopLevelKeys(data)
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return Document{Path: path, Defs: raw, Order: order}, nil
}

// jsonTopLevelKeys walks the token stream to recover authored key order,
// which the decoded map discards.
func jsonTopLevelKeys(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("document root must be an object")
	}
	var order []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", keyTok)
		}
		order = append(order, key)
		if err := skipJSONValue(dec); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func skipJSONValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); ok && (d == '{' || d == '[') {
		depth := 1
		for depth > 0 {
			tok, err := dec.Token()
			if err != nil {
				return err
			}
			if d, ok := tok.(json.Delim); ok {
				switch d {
				case '{', '[':
					depth++
				case '}', ']':
					depth--
				}
			}
		}
	}
	return nil
}

func loadYAML(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	var ms yaml.MapSlice
	if err := yaml.Unmarshal(data, &ms); err != nil {
		return Document{}, fmt.Errorf("%s: %w", path, err)
	}
	defs := make(map[string]any, len(ms))
	order := make([]string, 0, len(ms))
	for _, item := range ms {
		key := fmt.Sprint(item.Key)
		defs[key] = normalize(item.Value)
		order = append(order, key)
	}
	return Document{Path: path, Defs: defs, Order: order}, nil
}
