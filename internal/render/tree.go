package render

// Tree is a nested template table: fragment text at the leaves, keyed by
// section path (e.g. structure / members / uint).
type Tree map[string]any

// Merge overlays src onto dst, recursing into nested tables so a
// template file can override a single fragment without restating the
// rest. dst is modified and returned.
func Merge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, sv := range src {
		if dv, ok := dst[k]; ok {
			dm, dok := dv.(map[string]any)
			sm, sok := sv.(map[string]any)
			if dok && sok {
				dst[k] = Merge(dm, sm)
				continue
			}
		}
		dst[k] = sv
	}
	return dst
}

// Fragment returns the template text at the given path.
func Fragment(tree map[string]any, path ...string) (Template, bool) {
	v, ok := lookup(tree, path)
	if !ok {
		return Template{}, false
	}
	s, ok := v.(string)
	if !ok {
		return Template{}, false
	}
	return New(s), true
}

// Section returns the nested table at the given path.
func Section(tree map[string]any, path ...string) (map[string]any, bool) {
	v, ok := lookup(tree, path)
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

func lookup(tree map[string]any, path []string) (any, bool) {
	var current any = tree
	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
