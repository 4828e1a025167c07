package orchestrator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/Strata/pkg/operator"
)

// Sequential runs its children one after another and stops at the first
// child that does not pass. Children that already completed are skipped.
type Sequential struct {
	*composite
}

func NewSequential(name string) *Sequential {
	return &Sequential{composite: newComposite(name, operator.Worst{})}
}

func (s *Sequential) Run(ctx context.Context) error {
	ctx, done := s.begin(ctx)
	defer done()

	for _, child := range s.children.Children() {
		if ctx.Err() != nil {
			s.log.Info("Sequence stopped", "before", child.Name())
			return nil
		}
		if passed(child.LastStateEvent().State()) {
			continue
		}
		if err := child.Run(ctx); err != nil {
			s.log.Warn("Child did not run", "child", child.Name(), "err", err)
			return err
		}
		if st := child.LastStateEvent().State(); !passed(st) {
			s.log.Info("Sequence halted", "child", child.Name(), "state", st.String())
			return nil
		}
	}
	return nil
}

// Parallel runs all of its children at once. Its state is folded with a
// configurable operator.
type Parallel struct {
	*composite
}

// NewParallel uses op to fold child states. A nil op means WORST.
func NewParallel(name string, op operator.Operator) *Parallel {
	if op == nil {
		op = operator.Worst{}
	}
	return &Parallel{composite: newComposite(name, op)}
}

// Run waits for every child. Only failures to run at all are returned,
// the first of which cancels the others.
func (p *Parallel) Run(ctx context.Context) error {
	ctx, done := p.begin(ctx)
	defer done()

	g, gctx := errgroup.WithContext(ctx)
	for _, child := range p.children.Children() {
		if passed(child.LastStateEvent().State()) {
			continue
		}
		child := child
		g.Go(func() error {
			return child.Run(gctx)
		})
	}
	return g.Wait()
}

// ServiceManager starts its children in order and leaves services running.
// Its state follows SERVICES: it is complete once everything is up.
type ServiceManager struct {
	*composite
}

func NewServiceManager(name string) *ServiceManager {
	return &ServiceManager{composite: newComposite(name, operator.ServiceManager{})}
}

func (m *ServiceManager) Run(ctx context.Context) error {
	for _, child := range m.children.Children() {
		if ctx.Err() != nil {
			return nil
		}
		if passed(child.LastStateEvent().State()) {
			continue
		}
		if err := child.Run(ctx); err != nil {
			m.log.Warn("Service did not start", "child", child.Name(), "err", err)
			return err
		}
	}
	return nil
}

// Personal.AI order the ending
