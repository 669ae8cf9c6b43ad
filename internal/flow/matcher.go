package flow

import (
	"strings"

	"github.com/BTreeMap/SivetachiBot/internal/catalog"
)

// Main menu options that do not belong to a catalog category.
const (
	ShortcutReserve  = "5"
	ShortcutDelivery = "6"
	ShortcutHours    = "7"
	ShortcutLocation = "8"
	ShortcutHandoff  = "9"
	ShortcutMenu     = "0"
)

// Match is the result of classifying one normalized input.
type Match struct {
	Rule     Rule
	Default  bool // no rule matched
	Shortcut bool // matched through a numeric main-menu option
}

// Matcher classifies normalized input against an ordered rule table.
// It is immutable after construction and safe for concurrent use.
type Matcher struct {
	rules     []Rule
	shortcuts map[string]int // exact input -> index into rules
}

// NewMatcher builds a matcher over rules. Category shortcuts come from the catalog;
// options 5 to 9 point at the reserve, delivery, hours, location and handoff rules
// when the table contains them. A category shortcut takes precedence on conflict.
func NewMatcher(rules []Rule, cat *catalog.Catalog) *Matcher {
	m := &Matcher{rules: rules, shortcuts: make(map[string]int)}

	index := make(map[string]int, len(rules))
	for i, r := range rules {
		index[r.Key] = i
	}
	fixed := map[string]string{
		ShortcutReserve:  RuleReserve,
		ShortcutDelivery: RuleDelivery,
		ShortcutHours:    RuleHours,
		ShortcutLocation: RuleLocation,
		ShortcutHandoff:  RuleHandoff,
	}
	for shortcut, key := range fixed {
		if i, ok := index[key]; ok {
			m.shortcuts[shortcut] = i
		}
	}
	if cat != nil {
		for _, c := range cat.Categories {
			if c.Shortcut == "" {
				continue
			}
			if i, ok := index[CategoryRuleKey(c.Key)]; ok {
				m.shortcuts[c.Shortcut] = i
			}
		}
	}
	return m
}

// Rules returns the ordered rule table.
func (m *Matcher) Rules() []Rule {
	return m.rules
}

// IsShortcut reports whether normalized is a numeric main-menu option.
func (m *Matcher) IsShortcut(normalized string) bool {
	_, ok := m.shortcuts[normalized]
	return ok
}

// Match returns the numeric shortcut rule when normalized equals a shortcut exactly,
// otherwise the first rule with a keyword contained in normalized.
func (m *Matcher) Match(normalized string) Match {
	if i, ok := m.shortcuts[normalized]; ok {
		return Match{Rule: m.rules[i], Shortcut: true}
	}
	if normalized == "" {
		return Match{Default: true}
	}
	for _, r := range m.rules {
		for _, kw := range r.Keywords {
			if kw != "" && strings.Contains(normalized, kw) {
				return Match{Rule: r}
			}
		}
	}
	return Match{Default: true}
}
