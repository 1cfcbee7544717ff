// Package mkfile provides the YAML rule file loader for mk.
package mkfile

import (
	"fmt"
	"os"

	"go.trai.ch/mk/internal/core/domain"
	"go.trai.ch/mk/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// DefaultFilename is the rule file mk looks for when none is named.
const DefaultFilename = "mkfile.yaml"

// Loader implements ports.RuleLoader for YAML rule files.
type Loader struct {
	logger ports.Logger
}

// NewLoader creates a new Loader.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{logger: logger}
}

// Load reads the rule file at path into a RuleSet.
func (l *Loader) Load(path string) (*domain.RuleSet, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrRuleFileRead.Error()), "path", path)
	}

	var doc Mkfile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrRuleFileParse.Error()), "path", path)
	}

	rs := domain.NewRuleSet()
	for name, value := range doc.Vars {
		rs.DefineVar(name, value)
	}
	rs.MarkPhony(doc.Phony...)

	if err := registerTargets(rs, &doc.Targets); err != nil {
		return nil, zerr.With(err, "path", path)
	}

	l.logger.Info(fmt.Sprintf("loaded %d rules from %s", rs.Len(), path))
	return rs, nil
}

// registerTargets walks the targets mapping node pairwise. The node's
// Content keeps keys in file order, and a key declared twice simply reaches
// Register twice, which is where the merge semantics live.
func registerTargets(rs *domain.RuleSet, node *yaml.Node) error {
	if node.IsZero() || node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return zerr.With(domain.ErrRuleFileParse, "reason", "targets must be a mapping")
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode := node.Content[i]
		valNode := node.Content[i+1]

		var name string
		if err := keyNode.Decode(&name); err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrRuleFileParse.Error()), "line", keyNode.Line)
		}

		var dto TargetDTO
		if valNode.Tag != "!!null" {
			if err := valNode.Decode(&dto); err != nil {
				return zerr.With(zerr.Wrap(err, domain.ErrRuleFileParse.Error()), "target", name)
			}
		}

		rule, err := domain.NewRule(name, dto.Deps, dto.Run)
		if err != nil {
			return err
		}
		if err := rs.Register(rule); err != nil {
			return err
		}
	}
	return nil
}
