package supervisor

import (
	"context"
	"fmt"

	serrors "github.com/turtacn/Strata/pkg/errors"
	"github.com/turtacn/Strata/pkg/handler"
	"github.com/turtacn/Strata/pkg/logger"
	"github.com/turtacn/Strata/pkg/state"
)

// SleepService is a service that does nothing once started. Its goroutine
// parks in the handler until Stop wakes it.
type SleepService struct {
	name    string
	handler *handler.Handler[state.ServiceState]
	log     logger.Logger

	// guarded by the handler lock
	stopRequested bool
	done          chan struct{}
}

type serviceTx = handler.Tx[state.ServiceState]

func NewSleepService(name string) *SleepService {
	return &SleepService{
		name:    name,
		handler: handler.NewService(state.NewSource(name)),
		log:     logger.Log.With("service", name),
	}
}

func (s *SleepService) Name() string { return s.name }

func (s *SleepService) AddStateListener(l state.Listener)    { s.handler.AddStateListener(l) }
func (s *SleepService) RemoveStateListener(l state.Listener) { s.handler.RemoveStateListener(l) }
func (s *SleepService) LastStateEvent() state.Event          { return s.handler.LastStateEvent() }

func (s *SleepService) RestoreLastStateEvent(saved state.Persisted) error {
	return s.handler.RestoreLastStateEvent(saved)
}

// Run moves the service to STARTED and returns. ctx only guards the start:
// once up, the service stays started until Stop.
func (s *SleepService) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var err error
	done := make(chan struct{})
	ok := s.handler.WaitToWhen(state.IsReady, func(tx *serviceTx) {
		s.stopRequested = false
		s.done = done
		err = transition(tx, state.ServiceStarting)
	})
	if !ok {
		return serrors.New(serrors.ErrCodeIllegalTransition, "SleepService.Run",
			fmt.Sprintf("%s is not startable", s.name), nil)
	}
	if err != nil {
		return err
	}

	started := make(chan struct{})
	go s.park(started, done)
	<-started
	return nil
}

func (s *SleepService) park(started, done chan struct{}) {
	defer close(done)
	s.handler.WaitToWhen(state.IsNotDestroyed, func(tx *serviceTx) {
		if err := transition(tx, state.ServiceStarted); err != nil {
			s.log.Error("Start failed", "err", err)
			close(started)
			return
		}
		close(started)

		for !s.stopRequested {
			if err := tx.Sleep(0); err != nil {
				s.log.Error("Sleep failed", "err", err)
				return
			}
		}
		if err := transition(tx, state.ServiceStopped); err != nil {
			s.log.Error("Stop failed", "err", err)
		}
	})
}

func transition(tx *serviceTx, st state.ServiceState) error {
	if err := tx.SetState(st); err != nil {
		return err
	}
	return tx.FireEvent()
}

// Stop wakes the parked goroutine and waits until the service is STOPPED.
func (s *SleepService) Stop() error {
	var (
		done chan struct{}
		err  error
	)
	s.handler.WaitToWhen(state.IsStoppable, func(tx *serviceTx) {
		s.stopRequested = true
		done = s.done
		err = tx.Wake()
	})
	if err != nil {
		return err
	}
	if done != nil {
		<-done
	}
	return nil
}

// Reset returns a stopped or failed service to STARTABLE.
func (s *SleepService) Reset() bool {
	return s.handler.WaitToWhen(state.IsFinished, func(tx *serviceTx) {
		if err := transition(tx, state.ServiceStartable); err != nil {
			s.log.Error("Reset failed", "err", err)
		}
	})
}

// Destroy stops a running service first so no goroutine stays parked.
func (s *SleepService) Destroy() {
	if err := s.Stop(); err != nil {
		s.log.Warn("Stop before destroy failed", "err", err)
	}
	if _, err := s.handler.Destroy(); err != nil {
		s.log.Error("Destroy failed", "err", err)
	}
}

// Personal.AI order the ending
