package domain

import (
	"fmt"
	"slices"

	"github.com/cespare/xxhash/v2"
)

// PlanID derives a deterministic fingerprint for one invocation from the
// requested targets and the effective bindings. Equal inputs always produce
// the same ID, so log lines and emitted plans from repeated runs correlate.
func PlanID(targets []string, binds Bindings) string {
	d := xxhash.New()
	for _, t := range targets {
		_, _ = d.WriteString(t)
		_, _ = d.WriteString("\x00")
	}
	_, _ = d.WriteString("\x00")

	names := make([]string, 0, len(binds.values))
	for name := range binds.values {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		_, _ = d.WriteString(name)
		_, _ = d.WriteString("=")
		_, _ = d.WriteString(binds.values[name])
		_, _ = d.WriteString("\x00")
	}

	return fmt.Sprintf("%016x", d.Sum64())
}
