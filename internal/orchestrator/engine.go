package orchestrator

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/turtacn/Strata/internal/persist"
	"github.com/turtacn/Strata/internal/relay"
	"github.com/turtacn/Strata/pkg/logger"
	"github.com/turtacn/Strata/pkg/operator"
	"github.com/turtacn/Strata/pkg/protocol"
	"github.com/turtacn/Strata/pkg/state"
)

// Engine owns a configured tree together with its persistence and relay.
type Engine struct {
	cfg       *protocol.Config
	registry  *operator.Registry
	store     persist.Store
	root      Node
	publisher *relay.Publisher
}

// NewEngine builds the tree of cfg and restores saved states into it.
func NewEngine(ctx context.Context, cfg *protocol.Config) (*Engine, error) {
	registry, err := operator.NewRegistry(cfg.Operators.Aliases)
	if err != nil {
		return nil, err
	}
	if _, err := registry.Lookup(cfg.Operators.Default); err != nil {
		return nil, err
	}

	store, err := persist.Open(cfg.Persistence.Driver, cfg.Persistence.Path)
	if err != nil {
		return nil, err
	}

	b := &Builder{Registry: registry, DefaultOperator: cfg.Operators.Default, Store: store}
	root, err := b.Build(ctx, cfg.Tree)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	e := &Engine{cfg: cfg, registry: registry, store: store, root: root}
	Walk(root, func(n Node) {
		n.AddStateListener(persist.NewRecorder(store, n.Name()))
	})
	if cfg.Relay.Enabled {
		e.publisher = relay.NewPublisher(cfg.Relay.SocketPath, root)
	}
	return e, nil
}

func (e *Engine) Root() Node { return e.root }

func (e *Engine) Registry() *operator.Registry { return e.registry }

// Run executes the tree. If services are left running it then waits for
// ctx or a stop signal and stops them. It returns the final root state.
func (e *Engine) Run(ctx context.Context) (state.State, error) {
	ctx, stopSignals := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	if e.publisher != nil {
		if err := e.publisher.Start(); err != nil {
			return nil, err
		}
	}

	logger.Log.Info("Running tree", "root", e.root.Name())
	e.prepare()
	if err := e.root.Run(ctx); err != nil {
		return e.root.LastStateEvent().State(), fmt.Errorf("run %s: %w", e.root.Name(), err)
	}

	if e.servicesRunning() {
		logger.Log.Info("Services running, waiting for stop signal")
		<-ctx.Done()
		logger.Log.Info("Signal: Stop received. Shutting down.")
	}
	if err := e.root.Stop(); err != nil {
		logger.Log.Warn("Stop reported an error", "err", err)
	}

	st := e.root.LastStateEvent().State()
	logger.Log.Info("Tree finished", "root", e.root.Name(), "state", st.String())
	return st, nil
}

func (e *Engine) servicesRunning() bool {
	running := false
	Walk(e.root, func(n Node) {
		if _, ok := n.(Parent); !ok && n.LastStateEvent().State().IsStoppable() {
			running = true
		}
	})
	return running
}

// prepare makes the tree runnable. A completed tree starts over; otherwise
// only failed leaves are reset so completed work is not repeated.
func (e *Engine) prepare() {
	if e.root.LastStateEvent().State().IsComplete() {
		e.root.Reset()
		return
	}
	Walk(e.root, func(n Node) {
		if _, ok := n.(Parent); ok {
			return
		}
		if st := n.LastStateEvent().State(); st.IsIncomplete() || st.IsException() {
			n.Reset()
		}
	})
}

// Close shuts the relay and the store. The tree keeps its last states.
func (e *Engine) Close() error {
	if e.publisher != nil {
		if err := e.publisher.Close(); err != nil {
			logger.Log.Warn("Relay close failed", "err", err)
		}
	}
	return e.store.Close()
}

// Personal.AI order the ending
