// Package backend hosts the per-language code generators. Each language
// registers a Renderer; the generate pipeline looks one up by its
// identifier and hands it the schema, the layout plan and the merged
// template tree.
package backend

import (
	"fmt"
	"sort"
	"sync"

	"structwriter/internal/layout"
	"structwriter/internal/schema"
)

// Request carries everything a Renderer needs for one generation run.
type Request struct {
	Defs       *schema.Set
	Plan       *layout.Plan
	Templates  map[string]any // backend defaults overlaid with user template files
	OutputPath string
}

// Renderer generates the complete output source for one target language.
type Renderer interface {
	Language() string
	// DefaultTemplate returns the language's built-in template tree.
	// User template files are merged over it.
	DefaultTemplate() (map[string]any, error)
	Render(req Request) (string, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Renderer)
)

// Register installs a renderer under its language identifier. Backends
// call this from init.
func Register(r Renderer) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[r.Language()] = r
}

// Lookup returns the renderer for a language identifier.
func Lookup(language string) (Renderer, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	r, ok := registry[language]
	return r, ok
}

// Languages lists the registered language identifiers, sorted.
func Languages() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnknownEntityError reports a template ordering entry that names an
// entity absent from the merged schema.
type UnknownEntityError struct {
	Name string
}

func (e *UnknownEntityError) Error() string {
	return fmt.Sprintf("template references unknown entity `%s`", e.Name)
}
