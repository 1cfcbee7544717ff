package domain

// Command is one materialized recipe invocation, ready to hand to a shell.
type Command struct {
	// Target is the target the recipe line belongs to, for reporting.
	Target string

	// Line is the fully substituted command text.
	Line string

	// Dir is the working directory. Empty inherits the process's.
	Dir string
}
