package domain

import (
	"maps"
	"strings"

	"go.trai.ch/zerr"
)

// Bindings holds the effective variable values for one run. Precedence at
// construction: rule-file defaults, then environment overrides for declared
// names only, then command-line assignments, which may introduce new names.
// The environment snapshot is passed in explicitly; nothing here consults
// ambient process state.
type Bindings struct {
	values map[string]string
}

// NewBindings layers the three value sources into one immutable view.
func NewBindings(defaults, env, assigns map[string]string) Bindings {
	values := make(map[string]string, len(defaults)+len(assigns))
	maps.Copy(values, defaults)
	for name := range defaults {
		if v, ok := env[name]; ok {
			values[name] = v
		}
	}
	maps.Copy(values, assigns)
	return Bindings{values: values}
}

// Value returns the bound value for a variable name.
func (b Bindings) Value(name string) (string, bool) {
	v, ok := b.values[name]
	return v, ok
}

// Len returns the number of bound variables.
func (b Bindings) Len() int {
	return len(b.values)
}

// RecipeContext is the per-target scope a recipe line is materialized in.
// An empty Prereq means the prerequisite placeholder is unbound there.
type RecipeContext struct {
	Target string
	Prereq string
	Vars   Bindings
}

// Materialize substitutes placeholders in one recipe template:
//
//	$(NAME)  bound variable value
//	$@       the target being built
//	$<       the first, or pattern-matched, prerequisite
//	$$       a literal dollar sign
//
// The grammar is closed. Any other character after a dollar, an unterminated
// variable reference, or a reference to an unbound name fails with
// ErrUnresolvedPlaceholder; a placeholder never silently becomes the empty
// string.
func Materialize(template string, rc RecipeContext) (string, error) {
	var out strings.Builder
	out.Grow(len(template))

	for i := 0; i < len(template); {
		c := template[i]
		if c != '$' {
			out.WriteByte(c)
			i++
			continue
		}
		if i+1 == len(template) {
			return "", unresolved("$", rc.Target)
		}
		switch template[i+1] {
		case '$':
			out.WriteByte('$')
			i += 2
		case '@':
			out.WriteString(rc.Target)
			i += 2
		case '<':
			if rc.Prereq == "" {
				return "", unresolved("$<", rc.Target)
			}
			out.WriteString(rc.Prereq)
			i += 2
		case '(':
			end := strings.IndexByte(template[i+2:], ')')
			if end < 0 {
				return "", unresolved(template[i:], rc.Target)
			}
			name := template[i+2 : i+2+end]
			v, ok := rc.Vars.Value(name)
			if !ok {
				return "", unresolved("$("+name+")", rc.Target)
			}
			out.WriteString(v)
			i += end + 3
		default:
			return "", unresolved(template[i:i+2], rc.Target)
		}
	}
	return out.String(), nil
}

func unresolved(placeholder, target string) error {
	return zerr.With(zerr.With(ErrUnresolvedPlaceholder, "placeholder", placeholder), "target", target)
}
