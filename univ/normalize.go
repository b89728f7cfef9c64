package univ

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Rule replaces a whole institution name with Canonical when any of Contains
// occurs in it and Unless (if set) does not.
type Rule struct {
	Contains  []string `yaml:"contains"`
	Unless    string   `yaml:"unless,omitempty"`
	Canonical string   `yaml:"canonical"`
}

func (r Rule) matches(name string) bool {
	if r.Unless != "" && strings.Contains(name, r.Unless) {
		return false
	}
	for _, c := range r.Contains {
		if c != "" && strings.Contains(name, c) {
			return true
		}
	}
	return false
}

// DefaultRules are the built-in renames. Order matters: the first matching
// rule wins.
var DefaultRules = []Rule{
	{Contains: []string{"강릉원주대학교"}, Unless: "국립강릉원주대학교", Canonical: "국립강릉원주대학교"},
	{Contains: []string{"금오공과대학교"}, Unless: "국립금오공과대학교", Canonical: "국립금오공과대학교"},
	{Contains: []string{"안동대학교"}, Unless: "국립경국대학교", Canonical: "국립경국대학교"},
	{Contains: []string{"동국대학교(경주)", "동국대학교(WISE)", "동국대학교(경주캠퍼스)"}, Canonical: "동국대학교(WISE)_분교"},
}

var (
	// ErrRuleNotIdempotent is returned for a rule set in which some rule's
	// canonical name would itself be rewritten.
	ErrRuleNotIdempotent = errors.New("canonical name is not stable under normalization")
	// ErrEmptyCanonical is returned for a rule without a canonical name.
	ErrEmptyCanonical = errors.New("rule has no canonical name")
)

// campusSuffix matches branch-campus markers such as "_제2캠퍼스". Any
// decimal digit counts, full-width ones included.
var campusSuffix = regexp.MustCompile(`_제\p{Nd}+캠퍼스`)

// Normalizer maps raw institution names to a canonical key.
type Normalizer struct {
	rules []Rule
}

// NewNormalizer returns a Normalizer applying rules in order. It fails if a
// rule's canonical output is not a fixed point of the normalizer.
func NewNormalizer(rules []Rule) (*Normalizer, error) {
	n := &Normalizer{rules: append([]Rule(nil), rules...)}
	for i, r := range n.rules {
		if r.Canonical == "" {
			return nil, fmt.Errorf("rule %d: %w", i+1, ErrEmptyCanonical)
		}
		if got := n.Normalize(r.Canonical); got != r.Canonical {
			return nil, fmt.Errorf("rule %d: %q becomes %q: %w", i+1, r.Canonical, got, ErrRuleNotIdempotent)
		}
	}
	return n, nil
}

// Default returns a Normalizer over DefaultRules.
func Default() *Normalizer {
	n, err := NewNormalizer(DefaultRules)
	if err != nil {
		panic(err)
	}
	return n
}

// Rules returns a copy of the rule table.
func (n *Normalizer) Rules() []Rule {
	return append([]Rule(nil), n.rules...)
}

// Normalize strips all whitespace, folds branch-campus suffixes onto the
// parent institution and applies the first matching rename rule. The empty
// string is returned unchanged.
func (n *Normalizer) Normalize(name string) string {
	if name == "" {
		return name
	}
	name = unifyCampus(name)
	for _, r := range n.rules {
		if r.matches(name) {
			return r.Canonical
		}
	}
	return name
}

// unifyCampus runs whitespace removal, NFC composition and suffix removal
// until the name stops changing. Removing a run can bring together jamo or a
// new suffix, so one pass is not always enough.
func unifyCampus(name string) string {
	for {
		next := removeWhitespace(name)
		next = norm.NFC.String(next)
		next = strings.TrimSpace(campusSuffix.ReplaceAllString(next, ""))
		if next == name {
			return name
		}
		name = next
	}
}

func removeWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads a rule table from a YAML file of the form
//
//	rules:
//	  - contains: ["강릉원주대학교"]
//	    unless: 국립강릉원주대학교
//	    canonical: 국립강릉원주대학교
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse rules %s: %w", path, err)
	}
	return rf.Rules, nil
}
