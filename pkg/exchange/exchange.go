package exchange

import (
	"sync"

	"github.com/turtacn/Strata/pkg/logger"
	"github.com/turtacn/Strata/pkg/state"
)

// Exchange forwards every event of source to a changer. DESTROYED is never
// forwarded: the recipient's lifetime is its own.
type Exchange struct {
	source  state.Stateful
	changer StateChanger
	log     logger.Logger

	mu       sync.Mutex
	listener state.Listener
}

func NewExchange(source state.Stateful, changer StateChanger) *Exchange {
	return &Exchange{
		source:  source,
		changer: changer,
		log:     logger.Log.With("component", "exchange"),
	}
}

// Start subscribes to the source. The current source state is forwarded
// before Start returns. Starting twice is a no-op.
func (e *Exchange) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.listener != nil {
		return
	}
	e.listener = state.NewListener(e.forward)
	e.source.AddStateListener(e.listener)
}

// Stop unsubscribes. Stopping a stopped exchange is a no-op.
func (e *Exchange) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.listener == nil {
		return
	}
	e.source.RemoveStateListener(e.listener)
	e.listener = nil
}

func (e *Exchange) forward(ev state.Event) {
	s := ev.State()
	var err error
	switch {
	case s.IsDestroyed():
		return
	case s.IsException():
		err = e.changer.SetStateException(ev.Cause(), ev.Time())
	default:
		err = e.changer.SetState(s, ev.Time())
	}
	if err != nil {
		e.log.Error("State not forwarded", "source", ev.Source().String(), "state", s.String(), "err", err)
	}
}

// Personal.AI order the ending
