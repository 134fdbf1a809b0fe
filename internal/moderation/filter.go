package moderation

import (
	"sort"
	"strings"
)

// DefaultTerms is the keyword list the development stand-in flags on. It
// mirrors the reference service's rule list (Romanized Hindi and Kannada
// insults) plus a few English ones so the stand-in is useful in English.
var DefaultTerms = []string{
	// Romanized Hindi / Kannada.
	"bhenchod", "madarchod", "chutiya", "randi", "saala", "harami",
	"lavda", "gandu", "chodu", "bhadwa", "kutte", "randwa", "lund",
	"chhakke", "hijra", "chusle", "behenchod", "ullu", "kamina", "nalayak",
	"bewakoof", "nikamma", "pagal", "gavar", "gadha", "bakchod", "chutiyapa",
	"lofer", "bevarsi", "bolimagne", "hucha", "lowde", "nin amman", "nin akkan", "keyya",
	"sule", "munde",

	// English.
	"idiot", "stupid", "moron", "imbecile", "shut up",
	"kill yourself", "fuck", "shit", "bitch", "bastard", "asshole",
}

// leetReplacer folds common character substitutions back to letters.
var leetReplacer = strings.NewReplacer(
	"0", "o",
	"1", "i",
	"3", "e",
	"4", "a",
	"5", "s",
	"7", "t",
	"@", "a",
	"$", "s",
	"!", "i",
)

// FilterResult is the outcome of a keyword check.
type FilterResult struct {
	Flagged bool
	Term    string // first matching term, empty when clean
}

// Filter flags text containing any blocked term. Matching is a lowercase
// substring test, applied to the text as typed and to its leetspeak-folded
// form. It is safe for concurrent use.
type Filter struct {
	terms []string
}

// NewFilter returns a Filter over DefaultTerms.
func NewFilter() *Filter {
	return NewFilterWithTerms(DefaultTerms)
}

// NewFilterWithTerms returns a Filter over terms. Terms are lowercased,
// trimmed and de-duplicated; empty terms are dropped.
func NewFilterWithTerms(terms []string) *Filter {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	// Longest first so multi-word terms win over their parts.
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return &Filter{terms: out}
}

// Terms returns the number of terms the filter checks.
func (f *Filter) Terms() int {
	return len(f.terms)
}

// Check reports whether text contains a blocked term.
func (f *Filter) Check(text string) FilterResult {
	if text == "" {
		return FilterResult{}
	}
	lower := strings.ToLower(text)
	folded := leetReplacer.Replace(lower)

	for _, term := range f.terms {
		if strings.Contains(lower, term) || strings.Contains(folded, term) {
			return FilterResult{Flagged: true, Term: term}
		}
	}
	return FilterResult{}
}
