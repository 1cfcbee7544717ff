package mkfile

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/mk/internal/adapters/logger"
	"go.trai.ch/mk/internal/core/ports"
)

// NodeID is the unique identifier for the rule loader adapter node.
const NodeID graft.ID = "adapter.rule_loader"

func init() {
	graft.Register(graft.Node[ports.RuleLoader]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.RuleLoader, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewLoader(log), nil
		},
	})
}
