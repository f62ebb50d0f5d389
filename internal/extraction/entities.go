// Package extraction turns free-form conversation text into candidate
// memory facts and maintains the runtime entity registry those facts are
// validated against.
package extraction

import (
	"strings"
	"unicode"
)

// deny set: stopwords, pronouns, and common verbs rejected as entity names
// even when they carry proper casing (e.g. a sentence-initial "The").
var denySet = map[string]bool{
	"the": true, "a": true, "an": true, "this": true, "that": true,
	"these": true, "those": true, "it": true, "he": true, "she": true,
	"they": true, "we": true, "you": true, "i": true, "who": true,
	"what": true, "when": true, "where": true, "why": true, "how": true,
	"is": true, "are": true, "was": true, "were": true, "be": true,
	"been": true, "being": true, "do": true, "does": true, "did": true,
	"have": true, "has": true, "had": true, "will": true, "would": true,
	"can": true, "could": true, "should": true, "must": true, "may": true,
	"might": true, "also": true, "please": true, "okay": true, "ok": true,
	"yes": true, "no": true, "thanks": true, "thank": true, "sure": true,
}

// builtinAllow seeds the runtime allow-list with default entity base names.
var builtinAllow = []string{"config", "system", "note", "user", "project", "team"}

// Registry is the runtime in-memory entity set, seeded from built-in
// defaults, configuration, and persisted rows. It is the stateful singleton
// spec's design notes describe: created once at service start, handed
// around as an explicit value rather than reached for as a global.
type Registry struct {
	allow map[string]bool
}

// NewRegistry seeds a registry from built-in defaults plus any configured or
// stored entity names, in that priority order (later entries never remove
// earlier ones; the set only grows).
func NewRegistry(configured, stored []string) *Registry {
	r := &Registry{allow: make(map[string]bool)}
	for _, n := range builtinAllow {
		r.allow[strings.ToLower(n)] = true
	}
	for _, n := range configured {
		r.allow[strings.ToLower(n)] = true
	}
	for _, n := range stored {
		r.allow[strings.ToLower(n)] = true
	}
	return r
}

// Add registers a new entity base name.
func (r *Registry) Add(name string) {
	r.allow[strings.ToLower(name)] = true
}

// Allowed reports whether the lowercased base name (before any dot) is in
// the allow-list.
func (r *Registry) Allowed(base string) bool {
	return r.allow[strings.ToLower(base)]
}

// AcceptEntity applies the entity-acceptance rule: 2-60 chars, and either
// its lowercased base is allow-listed, or it begins with an uppercase
// letter followed by a lowercase letter; known deny-set words are rejected
// even with proper casing.
func AcceptEntity(r *Registry, candidate string) bool {
	base := candidate
	if i := strings.IndexByte(candidate, '.'); i >= 0 {
		base = candidate[:i]
	}
	if len(base) < 2 || len(base) > 60 {
		return false
	}
	if denySet[strings.ToLower(base)] {
		return false
	}
	if r != nil && r.Allowed(base) {
		return true
	}
	runes := []rune(base)
	if len(runes) < 2 {
		return false
	}
	return unicode.IsUpper(runes[0]) && unicode.IsLower(runes[1])
}
