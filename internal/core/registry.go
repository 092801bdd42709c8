package core

import "strings"

// DefaultCategories is the reference deployment's fixed category set.
// The set is a configuration parameter, not a hard limit.
var DefaultCategories = []string{"Maquillaje", "Renacer", "Tendencia", "Accesorios", "Zapatos"}

// Registry is the ordered set of valid category tags. Read-only after
// construction.
type Registry struct {
	order []string
	index map[string]struct{}
}

// NewRegistry builds a registry from an ordered tag list, trimming and
// dropping duplicates and blanks. An empty input falls back to
// DefaultCategories.
func NewRegistry(tags []string) *Registry {
	if len(tags) == 0 {
		tags = DefaultCategories
	}
	r := &Registry{index: make(map[string]struct{}, len(tags))}
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := r.index[tag]; ok {
			continue
		}
		r.index[tag] = struct{}{}
		r.order = append(r.order, tag)
	}
	return r
}

// All returns the tags in registration order.
func (r *Registry) All() []string {
	return append([]string(nil), r.order...)
}

// IsValid reports whether the tag belongs to the registry.
func (r *Registry) IsValid(tag string) bool {
	_, ok := r.index[tag]
	return ok
}

// Filter keeps only registered tags, deduplicated, in request order.
// Unknown tags are dropped silently; rejecting mixed requests outright
// is deliberately not done (documented creation policy).
func (r *Registry) Filter(tags []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if !r.IsValid(tag) {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
