package domain

import "go.trai.ch/zerr"

var (
	// ErrUnknownTarget is returned when a requested name has no rule and no existing artifact.
	ErrUnknownTarget = zerr.New("no rule to build target")

	// ErrConflictingPatternRule is returned when a second pattern rule is registered.
	ErrConflictingPatternRule = zerr.New("conflicting pattern rule")

	// ErrUnsupportedPattern is returned when a pattern does not carry exactly one wildcard,
	// or when a wildcard appears where no stem can ever bind it.
	ErrUnsupportedPattern = zerr.New("unsupported pattern")

	// ErrCyclicDependency is returned when target resolution re-enters a target that is
	// still being resolved. The full cycle path is attached as metadata.
	ErrCyclicDependency = zerr.New("cyclic dependency")

	// ErrUnresolvedPlaceholder is returned when a recipe line references a placeholder
	// that is unknown or unbound in the current recipe context.
	ErrUnresolvedPlaceholder = zerr.New("unresolved placeholder")

	// ErrRecipeFailed is returned when a recipe command exits with a non-zero status.
	ErrRecipeFailed = zerr.New("recipe failed")

	// ErrNoTargets is returned when no target was requested and the rule file declares none.
	ErrNoTargets = zerr.New("no targets to build")

	// ErrRuleFileRead is returned when the rule file cannot be read.
	ErrRuleFileRead = zerr.New("cannot read rule file")

	// ErrRuleFileParse is returned when the rule file is not valid YAML or violates the schema.
	ErrRuleFileParse = zerr.New("cannot parse rule file")

	// ErrArtifactStat is returned when an artifact's metadata cannot be read for a reason
	// other than the artifact being absent.
	ErrArtifactStat = zerr.New("cannot stat artifact")

	// ErrCommandStart is returned when a recipe command cannot be started at all,
	// as opposed to starting and exiting non-zero.
	ErrCommandStart = zerr.New("cannot start command")
)
