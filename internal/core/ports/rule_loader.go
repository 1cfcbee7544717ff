package ports

import "go.trai.ch/mk/internal/core/domain"

// RuleLoader reads and validates a rule file into the rule base for one run.
//
//go:generate mockgen -source=rule_loader.go -destination=mocks/mock_rule_loader.go -package=mocks
type RuleLoader interface {
	Load(path string) (*domain.RuleSet, error)
}
