package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/turtacn/Strata/internal/persist"
	"github.com/turtacn/Strata/internal/supervisor"
	"github.com/turtacn/Strata/pkg/consts"
	serrors "github.com/turtacn/Strata/pkg/errors"
	"github.com/turtacn/Strata/pkg/operator"
	"github.com/turtacn/Strata/pkg/protocol"
)

// Builder turns a configured tree into nodes. When Store is set, every leaf
// is restored from it before being attached to its parent. Parents are not
// restored: they derive their state from the restored leaves.
type Builder struct {
	Registry        *operator.Registry
	DefaultOperator string
	Store           persist.Store
}

func (b *Builder) Build(ctx context.Context, n protocol.Node) (Node, error) {
	var node Node
	switch n.Kind {
	case consts.KindSequential, consts.KindParallel, consts.KindServices:
		parent, err := b.composite(n)
		if err != nil {
			return nil, err
		}
		for _, childCfg := range n.Children {
			child, err := b.Build(ctx, childCfg)
			if err != nil {
				parent.Destroy()
				return nil, err
			}
			parent.AddChild(child)
		}
		node = parent
	case consts.KindExec:
		timeout, err := stopTimeout(n)
		if err != nil {
			return nil, err
		}
		node = supervisor.NewExecJob(n.Name, n.Command, timeout)
	case consts.KindService:
		node = supervisor.NewSleepService(n.Name)
	default:
		return nil, serrors.Newf(serrors.ErrCodeConfigInvalid, "Builder.Build", "%s: unknown kind %q", n.Name, n.Kind)
	}

	if _, isParent := node.(Parent); b.Store != nil && !isParent {
		if _, err := persist.Restore(ctx, b.Store, n.Name, node); err != nil {
			node.Destroy()
			return nil, fmt.Errorf("restore %s: %w", n.Name, err)
		}
	}
	return node, nil
}

func (b *Builder) composite(n protocol.Node) (Parent, error) {
	switch n.Kind {
	case consts.KindSequential:
		return NewSequential(n.Name), nil
	case consts.KindServices:
		return NewServiceManager(n.Name), nil
	}

	name := n.Operator
	if name == "" {
		name = b.DefaultOperator
	}
	if name == "" {
		return NewParallel(n.Name, nil), nil
	}
	if b.Registry == nil {
		return nil, serrors.Newf(serrors.ErrCodeUnknownOperator, "Builder.Build", "%s: no registry for operator %s", n.Name, name)
	}
	op, err := b.Registry.Lookup(name)
	if err != nil {
		return nil, err
	}
	return NewParallel(n.Name, op), nil
}

func stopTimeout(n protocol.Node) (time.Duration, error) {
	if n.StopTime == "" {
		return consts.DefaultStopTimeout, nil
	}
	d, err := time.ParseDuration(n.StopTime)
	if err != nil {
		return 0, serrors.New(serrors.ErrCodeConfigInvalid, "Builder.Build",
			fmt.Sprintf("%s: invalid stop_timeout %q", n.Name, n.StopTime), err)
	}
	return d, nil
}

// Walk visits root and its descendants depth first, parents before
// children.
func Walk(root Node, fn func(Node)) {
	fn(root)
	if p, ok := root.(Parent); ok {
		for _, child := range p.Children() {
			Walk(child, fn)
		}
	}
}

// Find returns the node called name.
func Find(root Node, name string) (Node, bool) {
	var found Node
	Walk(root, func(n Node) {
		if found == nil && n.Name() == name {
			found = n
		}
	})
	return found, found != nil
}

// Personal.AI order the ending
