// Package provider maps feed sources to field-mapping configurations and
// extracts job candidates from parsed feed items.
package provider

import "regexp"

// GenericID is the fallback provider returned when no URL pattern matches.
const GenericID = "generic"

// FieldMap maps one canonical candidate field to a source tag name.
// Multiple entries may target the same field; the first one that yields a
// value wins, so fallbacks like description → content:encoded stay ordered.
type FieldMap struct {
	Field  string
	Source string
}

// ExtractRule is a provider-specific regex applied to the raw title or
// description when the mapped lookup yields nothing for a field. Rules are
// ordered; the first rule that matches a given field wins.
type ExtractRule struct {
	Field   string
	Source  string // "title" or "description"
	Pattern *regexp.Regexp
}

// Config describes one provider: how to recognize its feeds and how to
// resolve each canonical field from a raw item.
type Config struct {
	ID          string
	DisplayName string
	URLPattern  *regexp.Regexp // nil for the generic fallback
	Mapping     []FieldMap
	Rules       []ExtractRule
}

// Registry holds providers in registration order. Detection walks the
// order and is total: the generic fallback always applies.
type Registry struct {
	order []Config
	byID  map[string]Config
}

// NewRegistry returns a registry preloaded with the built-in providers.
func NewRegistry() *Registry {
	r := &Registry{byID: make(map[string]Config)}
	for _, cfg := range builtinProviders() {
		r.Register(cfg)
	}
	return r
}

// Register appends a provider. Registering an existing id replaces its
// config but keeps the original detection position.
func (r *Registry) Register(cfg Config) {
	if _, ok := r.byID[cfg.ID]; ok {
		for i := range r.order {
			if r.order[i].ID == cfg.ID {
				r.order[i] = cfg
				break
			}
		}
	} else {
		r.order = append(r.order, cfg)
	}
	r.byID[cfg.ID] = cfg
}

// Detect matches url against each provider pattern in registration order.
// The generic provider never pattern-matches; it is the result when nothing
// else does, which makes detection a total function.
func (r *Registry) Detect(url string) string {
	for _, cfg := range r.order {
		if cfg.ID == GenericID || cfg.URLPattern == nil {
			continue
		}
		if cfg.URLPattern.MatchString(url) {
			return cfg.ID
		}
	}
	return GenericID
}

// Get returns the config for id, or the generic config when id is unknown.
func (r *Registry) Get(id string) Config {
	if cfg, ok := r.byID[id]; ok {
		return cfg
	}
	return r.byID[GenericID]
}

// IDs returns the registered provider ids in registration order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.order))
	for _, cfg := range r.order {
		ids = append(ids, cfg.ID)
	}
	return ids
}
