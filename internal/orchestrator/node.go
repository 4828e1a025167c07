// Package orchestrator runs trees of jobs whose parents derive their state
// from their children.
package orchestrator

import (
	"context"
	"sync"

	"github.com/turtacn/Strata/pkg/exchange"
	"github.com/turtacn/Strata/pkg/handler"
	"github.com/turtacn/Strata/pkg/logger"
	"github.com/turtacn/Strata/pkg/operator"
	"github.com/turtacn/Strata/pkg/state"
	"github.com/turtacn/Strata/pkg/structural"
)

// Node is anything that can sit in a job tree.
type Node interface {
	state.Stateful
	Name() string
	// Run executes the node. Services return once started.
	Run(ctx context.Context) error
	Stop() error
	// Reset returns a finished node to its ready state.
	Reset() bool
	Destroy()
	RestoreLastStateEvent(saved state.Persisted) error
}

// Parent is a node with children.
type Parent interface {
	Node
	Children() []Node
	AddChild(child Node) int
	RemoveChild(child Node) bool
}

// composite holds what every parent node shares: its children, the helper
// folding their states, and its own handler mirroring that aggregate.
type composite struct {
	name     string
	children *structural.ChildHelper[Node]
	helper   *structural.StateHelper
	handler  *handler.Handler[state.ParentState]
	exchange *exchange.Exchange
	log      logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

func newComposite(name string, op operator.Operator) *composite {
	children := structural.NewChildHelper[Node]()
	h := handler.NewParent(state.NewSource(name))
	helper := structural.NewStateHelper(state.NewSource(name+"/children"), children, op)

	c := &composite{
		name:     name,
		children: children,
		helper:   helper,
		handler:  h,
		exchange: exchange.NewExchange(helper, exchange.NewOrderedStateChanger(exchange.NewParentChanger(), h)),
		log:      logger.Log.With("node", name),
	}
	c.exchange.Start()
	return c
}

func (c *composite) Name() string { return c.name }

func (c *composite) AddStateListener(l state.Listener)    { c.handler.AddStateListener(l) }
func (c *composite) RemoveStateListener(l state.Listener) { c.handler.RemoveStateListener(l) }
func (c *composite) LastStateEvent() state.Event          { return c.handler.LastStateEvent() }

func (c *composite) RestoreLastStateEvent(saved state.Persisted) error {
	return c.handler.RestoreLastStateEvent(saved)
}

func (c *composite) Children() []Node        { return c.children.Children() }
func (c *composite) AddChild(child Node) int { return c.children.AddChild(child) }

// SetOperator replaces the fold used for the children's states.
func (c *composite) SetOperator(op operator.Operator) {
	c.helper.SetStateOperator(op)
}

func (c *composite) RemoveChild(child Node) bool {
	_, ok := c.children.RemoveChild(child)
	return ok
}

// begin derives the run context and records how to cancel it.
func (c *composite) begin(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	return ctx, func() {
		c.mu.Lock()
		c.cancel = nil
		c.mu.Unlock()
		cancel()
	}
}

// Stop cancels a run in progress and stops the children, last first.
func (c *composite) Stop() error {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()

	children := c.children.Children()
	var firstErr error
	for i := len(children) - 1; i >= 0; i-- {
		if err := children[i].Stop(); err != nil {
			c.log.Warn("Child stop failed", "child", children[i].Name(), "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Reset resets every child. It reports whether any child was reset.
func (c *composite) Reset() bool {
	reset := false
	for _, child := range c.children.Children() {
		if child.Reset() {
			reset = true
		}
	}
	return reset
}

// Destroy tears the subtree down, children first.
func (c *composite) Destroy() {
	c.exchange.Stop()
	c.helper.Destroy()
	for _, child := range c.children.Children() {
		child.Destroy()
	}
	if _, err := c.handler.Destroy(); err != nil {
		c.log.Error("Destroy failed", "err", err)
	}
}

// passed reports whether a sibling may follow a child in this state:
// it completed, or it is a service that is up.
func passed(s state.State) bool {
	return s.IsComplete() || (s.IsStoppable() && !s.IsExecuting())
}

// Personal.AI order the ending
