package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"

	serrors "github.com/turtacn/Strata/pkg/errors"
	"github.com/turtacn/Strata/pkg/exchange"
	"github.com/turtacn/Strata/pkg/handler"
	"github.com/turtacn/Strata/pkg/logger"
	"github.com/turtacn/Strata/pkg/state"
)

// Subscriber mirrors a remote publisher into a local parent-state handler.
// DESTROYED is never applied: the local mirror outlives the remote.
type Subscriber struct {
	socketPath string
	handler    *handler.Handler[state.ParentState]
	changer    exchange.StateChanger
	log        logger.Logger
}

func NewSubscriber(socketPath, name string) *Subscriber {
	h := handler.NewParent(state.NewSource(name))
	return &Subscriber{
		socketPath: socketPath,
		handler:    h,
		changer:    exchange.NewOrderedStateChanger(exchange.NewParentChanger(), h),
		log:        logger.Log.With("component", "relay", "socket", socketPath),
	}
}

func (s *Subscriber) AddStateListener(l state.Listener)    { s.handler.AddStateListener(l) }
func (s *Subscriber) RemoveStateListener(l state.Listener) { s.handler.RemoveStateListener(l) }
func (s *Subscriber) LastStateEvent() state.Event          { return s.handler.LastStateEvent() }

// Run connects and applies events until the publisher goes away or ctx is
// cancelled. A clean disconnect returns nil.
func (s *Subscriber) Run(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", s.socketPath)
	if err != nil {
		return serrors.New(serrors.ErrCodeRelayFailed, "Subscriber.Run", "dial "+s.socketPath, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	dec := json.NewDecoder(conn)
	for {
		var p state.Persisted
		if err := dec.Decode(&p); err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return serrors.New(serrors.ErrCodeRelayFailed, "Subscriber.Run", "decode event", err)
		}
		if err := s.apply(p); err != nil {
			s.log.Warn("Remote event not applied", "state", p.State, "err", err)
		}
	}
}

func (s *Subscriber) apply(p state.Persisted) error {
	ev, err := p.Event(s.handler.Source())
	if err != nil {
		return err
	}
	st := ev.State()
	switch {
	case st.IsDestroyed():
		return nil
	case st.IsException():
		return s.changer.SetStateException(ev.Cause(), ev.Time())
	default:
		return s.changer.SetState(st, ev.Time())
	}
}

// Personal.AI order the ending
