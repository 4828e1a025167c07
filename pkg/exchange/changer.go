// Package exchange mirrors the state events of one entity into the handler
// of another.
package exchange

import (
	"time"

	"github.com/turtacn/Strata/pkg/handler"
	"github.com/turtacn/Strata/pkg/state"
)

// StateChanger applies a state to some recipient and announces it.
type StateChanger interface {
	SetState(s state.State, at time.Time) error
	SetStateException(cause error, at time.Time) error
}

// Locker is satisfied by every handler of family S.
type Locker[S state.State] interface {
	WaitToWhen(condition state.Condition, action func(tx *handler.Tx[S])) bool
}

// HandlerChanger sets and fires through the transaction of a held handler
// lock, after converting the incoming state into the handler's family.
type HandlerChanger[S state.State] struct {
	convert func(state.State) (S, error)
}

// NewChanger builds a changer for handlers of S. A nil convert only accepts
// states that already belong to S.
func NewChanger[S state.State](convert func(state.State) (S, error)) *HandlerChanger[S] {
	if convert == nil {
		convert = state.As[S]
	}
	return &HandlerChanger[S]{convert: convert}
}

// NewParentChanger accepts a state of any family.
func NewParentChanger() *HandlerChanger[state.ParentState] {
	return NewChanger(state.ToParentState)
}

// NewJobChanger accepts a state of any family.
func NewJobChanger() *HandlerChanger[state.JobState] {
	return NewChanger(state.ToJobState)
}

func (c *HandlerChanger[S]) SetState(tx *handler.Tx[S], s state.State, at time.Time) error {
	v, err := c.convert(s)
	if err != nil {
		return err
	}
	if err := tx.SetStateAt(v, at); err != nil {
		return err
	}
	return tx.FireEvent()
}

func (c *HandlerChanger[S]) SetStateException(tx *handler.Tx[S], cause error, at time.Time) error {
	if err := tx.SetStateExceptionAt(cause, at); err != nil {
		return err
	}
	return tx.FireEvent()
}

// OrderedStateChanger performs every change of the wrapped changer inside
// WaitToWhen on lock, so changes are ordered with anything else done under
// that lock.
type OrderedStateChanger[S state.State] struct {
	changer *HandlerChanger[S]
	lock    Locker[S]
}

func NewOrderedStateChanger[S state.State](changer *HandlerChanger[S], lock Locker[S]) *OrderedStateChanger[S] {
	return &OrderedStateChanger[S]{changer: changer, lock: lock}
}

func (o *OrderedStateChanger[S]) SetState(s state.State, at time.Time) error {
	var err error
	o.lock.WaitToWhen(state.IsAnyState, func(tx *handler.Tx[S]) {
		err = o.changer.SetState(tx, s, at)
	})
	return err
}

func (o *OrderedStateChanger[S]) SetStateException(cause error, at time.Time) error {
	var err error
	o.lock.WaitToWhen(state.IsAnyState, func(tx *handler.Tx[S]) {
		err = o.changer.SetStateException(tx, cause, at)
	})
	return err
}

// Personal.AI order the ending
