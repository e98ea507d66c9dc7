// backend/src/suppliers/learner.go
package suppliers

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/username/bankfolio/backend/src/logger"
	"github.com/username/bankfolio/backend/src/utils"
)

const (
	minCandidateLength  = 4
	maxCandidateWords   = 8
	minCandidateLetters = 3
)

// extractionRule is one statement-text grammar the learner understands.
// Rules are evaluated in priority order against a diacritic-folded copy of
// the description; the first rule whose capture passes the sanity check wins.
type extractionRule struct {
	name string
	re   *regexp.Regexp
}

var extractionRules = []extractionRule{
	// Everything before a colon or a long separator run.
	{
		name: "before-separator",
		re:   regexp.MustCompile(`^\s*([^:]{4,}?)\s*(?::(?:\s|$)|\s-{2,}\s|\s{3,})`),
	},
	// Beneficiary of an outgoing transfer, terminated at an IBAN-like
	// country-code+digits token or a long digit run.
	{
		name: "transfer-beneficiary",
		re: regexp.MustCompile(`(?i)\b(?:VIREMENT\s+(?:INSTANTANE\s+)?EN\s+FAVEUR\s+DE|OVERSCHRIJVING\s+NAAR|TRANSFER\s+TO|IN\s+FAVOR\s+OF)\s+(.+?)(?:\s+[A-Z]{2}\d{2}[A-Z0-9]*|\s+\d{4,}|\s+(?:COMMUNICATION|MEDEDELING)\b|\s*$)`),
	},
	// Entity collected from via a SEPA direct debit, terminated before a
	// long digit run.
	{
		name: "direct-debit-creditor",
		re: regexp.MustCompile(`(?i)\b(?:RECOUVREMENT\s+EUROPEEN|DOMICILIATION\s+EUROPEENNE|EUROPESE\s+DOMICILIERING|SEPA\s+DIRECT\s+DEBIT|INCASSO)\s+(.+?)(?:\s+\d{4,}|\s+[A-Z]{2}\d{2}[A-Z0-9]*|\s*$)`),
	},
	// Two or more consecutive all-uppercase words ending in a legal-entity
	// suffix.
	{
		name: "uppercase-legal-entity",
		re:   regexp.MustCompile(`\b([A-Z][A-Z&.']+(?:\s+[A-Z][A-Z&.']+)+\s+(?:SA/NV|NV/SA|SA|NV|BVBA|BV|SPRL|SARL|SRL|GMBH|LTD|ASBL|VZW|AG|SE))(?:\b|$)`),
	},
}

// legalSuffixes are trailing company-form tokens stripped from canonical
// keys (after punctuation is collapsed, "SA/NV" tokenizes as "sa" "nv").
var legalSuffixes = map[string]bool{
	"sa": true, "nv": true, "bv": true, "bvba": true, "sprl": true,
	"sarl": true, "srl": true, "gmbh": true, "ltd": true, "ag": true,
	"se": true, "asbl": true, "vzw": true,
}

var keyStopWords = map[string]bool{
	"de": true, "du": true, "des": true, "la": true, "le": true, "les": true,
	"van": true, "der": true, "den": true, "the": true, "et": true, "en": true,
}

// Learner mines transaction descriptions for previously-unknown supplier
// identities and grows the registry without human input.
//
// Generated aliases can be overly generic (a single common word widens the
// match surface to unrelated transactions); corrections go through AddManual
// and Remove rather than any automatic enforcement.
type Learner struct {
	registry *Registry
	resolver *Resolver
}

func NewLearner(registry *Registry, resolver *Resolver) *Learner {
	return &Learner{registry: registry, resolver: resolver}
}

// Extract applies the rule cascade to description and returns the captured
// supplier name and the name of the rule that produced it. ok is false when
// no rule yields a plausible candidate; that is the expected "nothing to
// learn" outcome, not an error.
func (l *Learner) Extract(description string) (name, rule string, ok bool) {
	folded := utils.FoldMarks(description)
	for _, r := range extractionRules {
		m := r.re.FindStringSubmatch(folded)
		if m == nil {
			continue
		}
		candidate := strings.TrimSpace(m[1])
		if !plausibleName(candidate) {
			continue
		}
		return candidate, r.name, true
	}
	return "", "", false
}

// CanonicalKey derives the registry key for a captured name: lower-case,
// punctuation collapsed to spaces, trailing legal-entity suffix tokens and
// stop words removed, whitespace collapsed.
func CanonicalKey(name string) string {
	fields := cleanNameFields(name)
	for len(fields) > 0 && legalSuffixes[fields[len(fields)-1]] {
		fields = fields[:len(fields)-1]
	}
	kept := fields[:0]
	for _, f := range fields {
		if keyStopWords[f] {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

// IsKnown reports whether name already resolves to an existing registry
// entry. Linear in the registry size.
func (l *Learner) IsKnown(name string) bool {
	for _, key := range l.registry.Keys() {
		if l.resolver.Matches(name, key) {
			return true
		}
	}
	return false
}

// Learn attempts to register a new supplier from a transaction description.
// Returns true only when a previously-unknown identity was added. Calling it
// twice with the same description adds at most one entry.
func (l *Learner) Learn(description string) bool {
	name, rule, ok := l.Extract(description)
	if !ok {
		return false
	}
	if l.IsKnown(name) {
		return false
	}

	key := CanonicalKey(name)
	if key == "" {
		return false
	}

	aliases, pattern := deriveVariants(name)
	if len(aliases) == 0 || pattern == "" {
		return false
	}

	added, status := l.registry.Add(key, utils.TitleCase(aliases[0]), aliases, []string{pattern})
	if added {
		logger.L.Info("Learned new supplier from transaction text", "key", key, "name", name, "rule", rule)
	} else {
		logger.L.Debug("Supplier candidate rejected by registry", "key", key, "status", status)
	}
	return added
}

// AddManual registers a supplier by operator request, sharing the learner's
// key derivation and the registry's persistence contract.
func (l *Learner) AddManual(name string, extraAliases []string) (bool, string) {
	key := CanonicalKey(name)
	if key == "" {
		return false, "could not derive a canonical key from the supplier name"
	}
	aliases, pattern := deriveVariants(name)
	aliases = append(aliases, extraAliases...)
	patterns := []string{pattern}
	for _, alias := range extraAliases {
		if p := utils.NormalizeText(alias); p != "" {
			patterns = append(patterns, p)
		}
	}
	return l.registry.Add(key, strings.TrimSpace(name), aliases, patterns)
}

// Remove deletes a supplier by canonical key.
func (l *Learner) Remove(key string) bool {
	return l.registry.Remove(key)
}

// deriveVariants builds the default alias set and the single concatenated
// match pattern for a captured name: the full cleaned name, the name without
// its legal suffix, the first word, and the first two words.
func deriveVariants(name string) (aliases []string, pattern string) {
	fields := cleanNameFields(name)
	if len(fields) == 0 {
		return nil, ""
	}

	full := strings.Join(fields, " ")
	candidates := []string{full}

	noSuffix := fields
	for len(noSuffix) > 0 && legalSuffixes[noSuffix[len(noSuffix)-1]] {
		noSuffix = noSuffix[:len(noSuffix)-1]
	}
	if len(noSuffix) > 0 && len(noSuffix) < len(fields) {
		candidates = append(candidates, strings.Join(noSuffix, " "))
	}

	candidates = append(candidates, fields[0])
	if len(fields) > 1 {
		candidates = append(candidates, strings.Join(fields[:2], " "))
	}

	return uniqueNonEmpty(candidates), strings.Join(fields, "")
}

// cleanNameFields lower-cases name, strips diacritics, collapses everything
// outside [a-z0-9] to spaces and splits into fields.
func cleanNameFields(name string) []string {
	lowered := strings.ToLower(utils.FoldMarks(name))
	mapped := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return ' '
	}, lowered)
	return strings.Fields(mapped)
}

// plausibleName is the sanity check applied to every rule capture.
func plausibleName(s string) bool {
	if utf8.RuneCountInString(s) < minCandidateLength {
		return false
	}
	words := strings.Fields(s)
	if len(words) == 0 || len(words) > maxCandidateWords {
		return false
	}
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return letters >= minCandidateLetters
}
