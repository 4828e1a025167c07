// Package handler owns the current state event and listener list of one
// stateful entity, together with the lock that guards them.
//
// Mutation happens through the Tx handed to an action of WaitToWhen or
// TryToWhen, so only the goroutine holding the lock can mutate:
//
//	h.WaitToWhen(state.IsReady, func(tx *handler.Tx[state.JobState]) {
//		_ = tx.SetState(state.JobExecuting)
//		_ = tx.FireEvent()
//	})
//
// Listeners run synchronously, in registration order, on the goroutine that
// fires. A listener may read LastStateEvent of the handler that notifies it.
// Mutating through a captured Tx fails with ErrIllegalTransition, and
// WaitToWhen, AddStateListener or RemoveStateListener on that handler
// deadlock.
package handler

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/turtacn/Strata/internal/monitor"
	serrors "github.com/turtacn/Strata/pkg/errors"
	"github.com/turtacn/Strata/pkg/logger"
	"github.com/turtacn/Strata/pkg/state"
)

// Variants names the members of a family the handler produces on its own.
type Variants[S state.State] struct {
	Ready     S
	Exception S
	Destroyed S
}

var (
	JobVariants = Variants[state.JobState]{
		Ready: state.JobReady, Exception: state.JobException, Destroyed: state.JobDestroyed,
	}
	ParentVariants = Variants[state.ParentState]{
		Ready: state.ParentReady, Exception: state.ParentException, Destroyed: state.ParentDestroyed,
	}
	ServiceVariants = Variants[state.ServiceState]{
		Ready: state.ServiceStartable, Exception: state.ServiceException, Destroyed: state.ServiceDestroyed,
	}
)

type options struct {
	now func() time.Time
	log logger.Logger
}

// Option customizes a Handler.
type Option func(*options)

// WithClock replaces time.Now for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger replaces the global logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// Handler is the lock-guarded holder of an entity's state.
type Handler[S state.State] struct {
	mu     sync.Mutex
	wakeCh chan struct{}

	// firing is guarded by mu.
	firing bool

	// current is guarded by mu. event is only stored with mu held, so a
	// lock-free load sees the last published event.
	current   S
	event     atomic.Pointer[state.Event]
	listeners []state.Listener

	source   state.Source
	variants Variants[S]
	family   string
	now      func() time.Time
	log      logger.Logger
}

// New creates a handler in the family's ready state.
func New[S state.State](source state.Source, variants Variants[S], opts ...Option) *Handler[S] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Log
	}
	family, _ := state.FamilyOf(variants.Ready)

	h := &Handler[S]{
		wakeCh:   make(chan struct{}),
		current:  variants.Ready,
		source:   source,
		variants: variants,
		family:   family,
		now:      o.now,
		log:      o.log.With("source", source.String()),
	}
	ev := state.NewEvent(source, variants.Ready, o.now(), nil)
	h.event.Store(&ev)
	return h
}

func NewJob(source state.Source, opts ...Option) *Handler[state.JobState] {
	return New(source, JobVariants, opts...)
}

func NewParent(source state.Source, opts ...Option) *Handler[state.ParentState] {
	return New(source, ParentVariants, opts...)
}

func NewService(source state.Source, opts ...Option) *Handler[state.ServiceState] {
	return New(source, ServiceVariants, opts...)
}

// Source returns the identity stamped on every event of this handler.
func (h *Handler[S]) Source() state.Source {
	return h.source
}

// LastStateEvent returns the current event. It does not take the lock, so
// it is safe from inside an action or a listener of this handler.
func (h *Handler[S]) LastStateEvent() state.Event {
	return *h.event.Load()
}

// WaitToWhen blocks until the lock is free, then runs action if condition
// holds for the current state. It reports whether action ran.
func (h *Handler[S]) WaitToWhen(condition state.Condition, action func(tx *Tx[S])) bool {
	h.mu.Lock()
	return h.runLocked(condition, action)
}

// TryToWhen is WaitToWhen without blocking: when another goroutine holds the
// lock it fails with ErrLockAcquisition.
func (h *Handler[S]) TryToWhen(condition state.Condition, action func(tx *Tx[S])) (bool, error) {
	if !h.mu.TryLock() {
		return false, serrors.New(serrors.ErrCodeLockAcquisition, "TryToWhen",
			fmt.Sprintf("lock of %s is held", h.source), nil)
	}
	return h.runLocked(condition, action), nil
}

func (h *Handler[S]) runLocked(condition state.Condition, action func(tx *Tx[S])) bool {
	defer h.mu.Unlock()

	if !condition(h.current) {
		return false
	}
	tx := &Tx[S]{h: h}
	tx.open.Store(true)
	defer tx.open.Store(false)

	action(tx)
	return true
}

// Tx is the proof that the handler lock is held. Each action run by
// WaitToWhen or TryToWhen gets its own Tx, which stops working when the
// action returns and while it sleeps. A Tx must not be handed to another
// goroutine.
type Tx[S state.State] struct {
	h    *Handler[S]
	open atomic.Bool
}

func (tx *Tx[S]) check(op string) error {
	if !tx.open.Load() {
		return serrors.New(serrors.ErrCodeIllegalTransition, op, "lock not held", nil)
	}
	if tx.h.firing {
		return serrors.New(serrors.ErrCodeIllegalTransition, op, "called from a listener callback", nil)
	}
	return nil
}

func (tx *Tx[S]) checkMutable(op string) error {
	if err := tx.check(op); err != nil {
		return err
	}
	if tx.h.current.IsDestroyed() {
		return serrors.New(serrors.ErrCodeIllegalTransition, op,
			fmt.Sprintf("%s is destroyed", tx.h.source), nil)
	}
	return nil
}

// Current returns the current state.
func (tx *Tx[S]) Current() S {
	return tx.h.current
}

// SetState records s as the current state.
func (tx *Tx[S]) SetState(s S) error {
	return tx.SetStateAt(s, tx.h.now())
}

// SetStateAt is SetState with an explicit timestamp.
func (tx *Tx[S]) SetStateAt(s S, at time.Time) error {
	if err := tx.checkMutable("SetState"); err != nil {
		return err
	}
	tx.h.set(state.NewEvent(tx.h.source, s, at, nil), s)
	return nil
}

// SetStateException moves to the family's exception state carrying cause.
func (tx *Tx[S]) SetStateException(cause error) error {
	return tx.SetStateExceptionAt(cause, tx.h.now())
}

// SetStateExceptionAt is SetStateException with an explicit timestamp.
func (tx *Tx[S]) SetStateExceptionAt(cause error, at time.Time) error {
	if err := tx.checkMutable("SetStateException"); err != nil {
		return err
	}
	exc := tx.h.variants.Exception
	tx.h.set(state.NewEvent(tx.h.source, exc, at, cause), exc)
	return nil
}

func (h *Handler[S]) set(ev state.Event, s S) {
	h.current = s
	h.event.Store(&ev)
	monitor.StateTransitions.WithLabelValues(h.family, s.String()).Inc()
	h.log.Debug("State set", "state", s.String())
}

// FireEvent delivers the current event to every listener. No delivery of
// this handler may be in progress.
func (tx *Tx[S]) FireEvent() error {
	if err := tx.check("FireEvent"); err != nil {
		return err
	}
	h := tx.h
	h.firing = true
	defer func() { h.firing = false }()

	ev := *h.event.Load()
	listeners := append([]state.Listener(nil), h.listeners...)
	for _, l := range listeners {
		h.deliver(l, ev)
	}
	return nil
}

// Sleep parks the calling goroutine, releasing the lock, until Wake is
// called or timeout elapses. Zero waits indefinitely. The lock is held
// again when Sleep returns.
func (tx *Tx[S]) Sleep(timeout time.Duration) error {
	if err := tx.check("Sleep"); err != nil {
		return err
	}
	h := tx.h
	wake := h.wakeCh
	tx.open.Store(false)
	h.mu.Unlock()

	if timeout > 0 {
		timer := time.NewTimer(timeout)
		select {
		case <-wake:
		case <-timer.C:
		}
		timer.Stop()
	} else {
		<-wake
	}

	h.mu.Lock()
	tx.open.Store(true)
	return nil
}

// Wake releases every goroutine parked in Sleep.
func (tx *Tx[S]) Wake() error {
	if !tx.open.Load() {
		return serrors.New(serrors.ErrCodeIllegalTransition, "Wake", "lock not held", nil)
	}
	close(tx.h.wakeCh)
	tx.h.wakeCh = make(chan struct{})
	return nil
}

func (h *Handler[S]) deliver(l state.Listener, ev state.Event) {
	defer func() {
		if r := recover(); r != nil {
			monitor.ListenerFailures.Inc()
			h.log.Error("State listener failed", "state", ev.State().String(), "listener", fmt.Sprintf("%T", l), "panic", r)
		}
	}()
	l.StateChanged(ev)
}

// AddStateListener registers l and delivers the current event to it
// before returning.
func (h *Handler[S]) AddStateListener(l state.Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.listeners = append(h.listeners, l)

	prev := h.firing
	h.firing = true
	h.deliver(l, *h.event.Load())
	h.firing = prev
}

// RemoveStateListener unregisters l. Removing an unknown listener is a no-op.
func (h *Handler[S]) RemoveStateListener(l state.Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, existing := range h.listeners {
		if existing == l {
			h.listeners = append(h.listeners[:i:i], h.listeners[i+1:]...)
			return
		}
	}
}

// Destroy moves the handler to its destroyed state and notifies listeners.
// It reports false if the handler was already destroyed.
func (h *Handler[S]) Destroy() (bool, error) {
	var err error
	ran := h.WaitToWhen(state.IsNotDestroyed, func(tx *Tx[S]) {
		if err = tx.SetState(h.variants.Destroyed); err != nil {
			return
		}
		err = tx.FireEvent()
	})
	return ran, err
}

// RestoreLastStateEvent seeds a fresh handler from a persisted event.
// An in-flight (stoppable) state comes back as ready: an interrupted
// execution is never resumed as still running.
func (h *Handler[S]) RestoreLastStateEvent(saved state.Persisted) error {
	ev, err := saved.Event(h.source)
	if err != nil {
		return err
	}
	s, err := state.As[S](ev.State())
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.current.IsDestroyed() {
		return serrors.New(serrors.ErrCodeIllegalTransition, "RestoreLastStateEvent",
			fmt.Sprintf("%s is destroyed", h.source), nil)
	}

	normalized := s.IsStoppable()
	if normalized {
		s = h.variants.Ready
		ev = state.NewEvent(h.source, s, ev.Time(), nil)
	}
	h.current = s
	h.event.Store(&ev)

	monitor.RestoredStates.WithLabelValues(fmt.Sprint(normalized)).Inc()
	h.log.Info("State restored", "saved", saved.State, "state", s.String())
	return nil
}

// Personal.AI order the ending
