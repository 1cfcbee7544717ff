package domain

import (
	"maps"

	"go.trai.ch/zerr"
)

// RuleSet is the loaded rule base for one run: every exact rule keyed by
// target name, at most one pattern rule, the phony group, and the declared
// variable defaults. It is populated by the loader and read-only afterwards,
// so concurrent lookups need no locking.
type RuleSet struct {
	exact   map[string]*Rule
	order   []string // exact targets in first-declaration order
	pattern *Rule
	phony   map[string]struct{}
	vars    map[string]string
}

// NewRuleSet creates an empty RuleSet.
func NewRuleSet() *RuleSet {
	return &RuleSet{
		exact: make(map[string]*Rule),
		phony: make(map[string]struct{}),
		vars:  make(map[string]string),
	}
}

// Register adds a rule. Declaring the same exact target again merges into the
// existing rule: prerequisites and recipe lines are appended in declaration
// order. A second pattern rule is a conflict.
func (rs *RuleSet) Register(r *Rule) error {
	if r.Kind == RulePattern {
		if rs.pattern != nil {
			err := zerr.With(ErrConflictingPatternRule, "existing", rs.pattern.Pattern.String())
			return zerr.With(err, "conflicting", r.Pattern.String())
		}
		rs.pattern = r
		return nil
	}

	if existing, ok := rs.exact[r.Target]; ok {
		existing.Prereqs = append(existing.Prereqs, r.Prereqs...)
		existing.Recipe = append(existing.Recipe, r.Recipe...)
		return nil
	}
	rs.exact[r.Target] = r
	rs.order = append(rs.order, r.Target)
	return nil
}

// Lookup resolves a target name to its rule. An exact rule always wins; only
// names without one are tried against the pattern rule, whose stem is
// returned alongside. The boolean reports whether any rule matched.
func (rs *RuleSet) Lookup(name string) (*Rule, string, bool) {
	if r, ok := rs.exact[name]; ok {
		return r, "", true
	}
	if rs.pattern != nil {
		if stem, ok := rs.pattern.Pattern.Match(name); ok {
			return rs.pattern, stem, true
		}
	}
	return nil, "", false
}

// MarkPhony records names whose targets are labels rather than artifacts.
func (rs *RuleSet) MarkPhony(names ...string) {
	for _, name := range names {
		rs.phony[name] = struct{}{}
	}
}

// IsPhony reports whether a name is in the phony group.
func (rs *RuleSet) IsPhony(name string) bool {
	_, ok := rs.phony[name]
	return ok
}

// DefineVar declares a substitution variable with its default value.
func (rs *RuleSet) DefineVar(name, value string) {
	rs.vars[name] = value
}

// Vars returns a copy of the declared variable defaults.
func (rs *RuleSet) Vars() map[string]string {
	return maps.Clone(rs.vars)
}

// DefaultTarget returns the first explicitly declared target. Pattern rules
// never provide a default, so an exact-rule-free set has none.
func (rs *RuleSet) DefaultTarget() (string, bool) {
	if len(rs.order) == 0 {
		return "", false
	}
	return rs.order[0], true
}

// Len returns the number of registered rules, the pattern rule included.
func (rs *RuleSet) Len() int {
	n := len(rs.exact)
	if rs.pattern != nil {
		n++
	}
	return n
}
