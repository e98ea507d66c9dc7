// backend/src/suppliers/resolver.go
package suppliers

import (
	"strings"

	"github.com/username/bankfolio/backend/src/utils"
)

// Resolver is the read-only matching surface over the registry.
//
// Lookup scans entries in sorted key order and the first entry whose alias
// set matches wins. Patterns generated by the learner are not guaranteed
// disjoint across entries, so an overly generic alias can shadow another
// supplier; the tie-break is deterministic but not semantically meaningful.
type Resolver struct {
	registry *Registry
}

func NewResolver(registry *Registry) *Resolver {
	return &Resolver{registry: registry}
}

// PatternsFor returns the match patterns for term. The registry is scanned
// for an entry with an alias that equals, contains, or is contained by the
// normalized term. When no entry matches, the normalized term itself is
// returned as the single pattern.
func (r *Resolver) PatternsFor(term string) []string {
	normalized := utils.NormalizeText(term)
	if normalized == "" {
		return []string{normalized}
	}

	if _, entry, ok := r.lookup(normalized); ok {
		patterns := make([]string, 0, len(entry.Patterns))
		for _, p := range entry.Patterns {
			patterns = append(patterns, utils.NormalizeText(p))
		}
		if len(patterns) > 0 {
			return patterns
		}
	}
	return []string{normalized}
}

// Matches reports whether description refers to the supplier identified by
// term. Matching is substring-based over normalized text.
func (r *Resolver) Matches(description, term string) bool {
	normalizedDesc := utils.NormalizeText(description)
	if normalizedDesc == "" {
		return false
	}
	for _, pattern := range r.PatternsFor(term) {
		if pattern != "" && strings.Contains(normalizedDesc, pattern) {
			return true
		}
	}
	return false
}

// DisplayName returns a human-friendly name for term: the title-cased first
// alias of the matched entry, or a title-cased form of the input itself when
// no entry matches.
func (r *Resolver) DisplayName(term string) string {
	normalized := utils.NormalizeText(term)
	if normalized != "" {
		if _, entry, ok := r.lookup(normalized); ok && len(entry.Aliases) > 0 {
			return utils.TitleCase(entry.Aliases[0])
		}
	}
	return utils.TitleCase(term)
}

// lookup finds the first registry entry (in sorted key order) with an alias
// that equals, contains, or is contained by the normalized term.
func (r *Resolver) lookup(normalizedTerm string) (string, RegistryEntry, bool) {
	for _, key := range r.registry.Keys() {
		entry, ok := r.registry.Get(key)
		if !ok {
			continue
		}
		for _, alias := range entry.Aliases {
			normalizedAlias := utils.NormalizeText(alias)
			if normalizedAlias == "" {
				continue
			}
			if normalizedAlias == normalizedTerm ||
				strings.Contains(normalizedAlias, normalizedTerm) ||
				strings.Contains(normalizedTerm, normalizedAlias) {
				return key, entry, true
			}
		}
	}
	return "", RegistryEntry{}, false
}
