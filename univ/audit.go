package univ

import (
	"sort"
	"strings"
)

// NameGroup is one normalized key with the raw spellings that map onto it.
type NameGroup struct {
	Key      string   `json:"key"`
	Variants []string `json:"variants"`
	Matched  bool     `json:"matched"`
}

// AuditNames groups raw institution names by normalized key. Matched
// reports whether the key has a row in table; a nil table matches nothing.
// Groups are sorted by key and variants by spelling.
func AuditNames(raw []string, n *Normalizer, table *CodeTable) []NameGroup {
	groups := make(map[string]map[string]bool)
	for _, name := range raw {
		if strings.TrimSpace(name) == "" {
			continue
		}
		key := n.Normalize(name)
		if groups[key] == nil {
			groups[key] = make(map[string]bool)
		}
		groups[key][name] = true
	}

	out := make([]NameGroup, 0, len(groups))
	for key, variants := range groups {
		g := NameGroup{Key: key}
		for v := range variants {
			g.Variants = append(g.Variants, v)
		}
		sort.Strings(g.Variants)
		if table != nil {
			_, g.Matched = table.Lookup(key)
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Merged returns the groups with more than one raw spelling.
func Merged(groups []NameGroup) []NameGroup {
	var out []NameGroup
	for _, g := range groups {
		if len(g.Variants) > 1 {
			out = append(out, g)
		}
	}
	return out
}

// Unmatched returns the groups missing from the classification table.
func Unmatched(groups []NameGroup) []NameGroup {
	var out []NameGroup
	for _, g := range groups {
		if !g.Matched {
			out = append(out, g)
		}
	}
	return out
}
