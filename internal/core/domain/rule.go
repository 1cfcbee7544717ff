package domain

import (
	"strings"

	"go.trai.ch/zerr"
)

// Wildcard is the single substitution marker allowed in pattern targets and
// pattern prerequisites.
const Wildcard = "%"

// RuleKind discriminates the two rule variants a RuleSet can hold.
type RuleKind int

const (
	// RuleExact names one concrete target.
	RuleExact RuleKind = iota
	// RulePattern describes a family of targets through a single wildcard.
	RulePattern
)

// Pattern is a compiled target shape with exactly one wildcard, split into the
// literal text before and after it.
type Pattern struct {
	prefix string
	suffix string
}

// CompilePattern validates and compiles a pattern string.
// Anything other than exactly one wildcard is rejected.
func CompilePattern(s string) (Pattern, error) {
	i := strings.Index(s, Wildcard)
	if i < 0 {
		return Pattern{}, zerr.With(ErrUnsupportedPattern, "pattern", s)
	}
	if strings.Contains(s[i+1:], Wildcard) {
		return Pattern{}, zerr.With(ErrUnsupportedPattern, "pattern", s)
	}
	return Pattern{prefix: s[:i], suffix: s[i+1:]}, nil
}

// Match reports whether name fits the pattern and returns the stem the
// wildcard captured. The stem is never empty: a name consisting of only the
// literal parts does not match.
func (p Pattern) Match(name string) (string, bool) {
	if len(name) <= len(p.prefix)+len(p.suffix) {
		return "", false
	}
	if !strings.HasPrefix(name, p.prefix) || !strings.HasSuffix(name, p.suffix) {
		return "", false
	}
	return name[len(p.prefix) : len(name)-len(p.suffix)], true
}

// Fill substitutes stem for the wildcard and returns the concrete name.
func (p Pattern) Fill(stem string) string {
	return p.prefix + stem + p.suffix
}

// String renders the pattern back to its declared form.
func (p Pattern) String() string {
	return p.prefix + Wildcard + p.suffix
}

// Rule binds a target, or a pattern of targets, to its prerequisites and the
// recipe that produces it. Prereqs and Recipe keep declaration order.
type Rule struct {
	Kind    RuleKind
	Target  string  // concrete target name, RuleExact only
	Pattern Pattern // target shape, RulePattern only
	Prereqs []string
	Recipe  []string
}

// NewRule builds a Rule from its declared form. A wildcard in the target
// makes it the pattern variant; wildcard prerequisites are only meaningful
// there, an exact rule declaring one is rejected because no stem could ever
// substitute it.
func NewRule(target string, prereqs, recipe []string) (*Rule, error) {
	if strings.Contains(target, Wildcard) {
		pat, err := CompilePattern(target)
		if err != nil {
			return nil, err
		}
		for _, req := range prereqs {
			if !strings.Contains(req, Wildcard) {
				continue
			}
			if _, err := CompilePattern(req); err != nil {
				return nil, zerr.With(err, "target", target)
			}
		}
		return &Rule{Kind: RulePattern, Pattern: pat, Prereqs: prereqs, Recipe: recipe}, nil
	}

	for _, req := range prereqs {
		if strings.Contains(req, Wildcard) {
			return nil, zerr.With(zerr.With(ErrUnsupportedPattern, "target", target), "prerequisite", req)
		}
	}
	return &Rule{Kind: RuleExact, Target: target, Prereqs: prereqs, Recipe: recipe}, nil
}

// Name returns the declared left-hand side of the rule.
func (r *Rule) Name() string {
	if r.Kind == RulePattern {
		return r.Pattern.String()
	}
	return r.Target
}

// PrereqsFor returns the concrete prerequisite names for one resolved target.
// For pattern rules the stem replaces the wildcard in each wildcard
// prerequisite; exact rules return their prerequisites as declared.
func (r *Rule) PrereqsFor(stem string) []string {
	if r.Kind == RuleExact || len(r.Prereqs) == 0 {
		return r.Prereqs
	}
	out := make([]string, len(r.Prereqs))
	for i, req := range r.Prereqs {
		out[i] = strings.Replace(req, Wildcard, stem, 1)
	}
	return out
}
