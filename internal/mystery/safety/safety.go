// Package safety is a keyword screen applied to the serialized final package.
package safety

import (
	"strings"
)

// DefaultKeywords is the built-in disallowed list.
var DefaultKeywords = []string{
	"gore",
	"dismember",
	"suicide",
	"self-harm",
	"sexual",
	"rape",
	"racist",
	"hate crime",
}

// Filter matches case-insensitive substrings.
type Filter struct {
	keywords []string
}

// New returns a Filter over DefaultKeywords plus extra. Blank and duplicate entries are
// skipped.
func New(extra ...string) *Filter {
	f := &Filter{}
	seen := map[string]bool{}
	for _, kw := range append(append([]string(nil), DefaultKeywords...), extra...) {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		f.keywords = append(f.keywords, kw)
	}
	return f
}

// Scan returns every keyword found in text, in list order.
func (f *Filter) Scan(text string) []string {
	lowered := strings.ToLower(text)
	var matches []string
	for _, kw := range f.keywords {
		if strings.Contains(lowered, kw) {
			matches = append(matches, kw)
		}
	}
	return matches
}
