package structural

import (
	"github.com/turtacn/Strata/internal/monitor"
	"github.com/turtacn/Strata/pkg/handler"
	"github.com/turtacn/Strata/pkg/logger"
	"github.com/turtacn/Strata/pkg/operator"
	"github.com/turtacn/Strata/pkg/state"
)

type parentTx = handler.Tx[state.ParentState]

// cell is the last known state of one child. Cells are guarded by the
// helper's handler lock.
type cell struct {
	state    state.State
	stateful state.Stateful
	listener state.Listener
	removed  bool
}

// StateHelper observes a structure and publishes the aggregate of its
// children's states through its own parent-state handler.
//
// Index i of cells always matches index i of the observed child list.
// Locks are only ever taken child first, then aggregate: the child's state
// is read before the aggregate lock is taken, and its listener is
// subscribed after it is released.
type StateHelper struct {
	structure Structural
	handler   *handler.Handler[state.ParentState]
	log       logger.Logger

	// guarded by the handler lock
	op    operator.Operator
	cells []*cell

	structural *structuralListener
}

type structuralListener struct {
	helper *StateHelper
}

func (l *structuralListener) ChildAdded(ev Event)   { l.helper.childAdded(ev) }
func (l *structuralListener) ChildRemoved(ev Event) { l.helper.childRemoved(ev) }

// NewStateHelper starts observing structure immediately; existing children
// are picked up through the structure's replay.
func NewStateHelper(source state.Source, structure Structural, op operator.Operator, opts ...handler.Option) *StateHelper {
	s := &StateHelper{
		structure: structure,
		handler:   handler.NewParent(source, opts...),
		log:       logger.Log.With("helper", source.String()),
		op:        op,
	}
	s.structural = &structuralListener{helper: s}
	structure.AddStructuralListener(s.structural)
	return s
}

func (s *StateHelper) AddStateListener(l state.Listener)    { s.handler.AddStateListener(l) }
func (s *StateHelper) RemoveStateListener(l state.Listener) { s.handler.RemoveStateListener(l) }
func (s *StateHelper) LastStateEvent() state.Event          { return s.handler.LastStateEvent() }

// Operator returns the active operator.
func (s *StateHelper) Operator() operator.Operator {
	var op operator.Operator
	s.handler.WaitToWhen(state.IsAnyState, func(*parentTx) { op = s.op })
	return op
}

// SetStateOperator swaps the operator and recomputes at once.
func (s *StateHelper) SetStateOperator(op operator.Operator) {
	s.handler.WaitToWhen(state.IsNotDestroyed, func(tx *parentTx) {
		s.op = op
		s.recompute(tx)
	})
}

func (s *StateHelper) childAdded(ev Event) {
	c := &cell{}
	stateful, ok := ev.Child.(state.Stateful)
	if ok {
		c.stateful = stateful
		c.state = stateful.LastStateEvent().State()
	} else {
		c.state = state.JobComplete
	}

	inserted := false
	s.handler.WaitToWhen(state.IsNotDestroyed, func(tx *parentTx) {
		index := ev.Index
		if index < 0 || index > len(s.cells) {
			s.log.Error("Child index out of step with structure", "index", index, "cells", len(s.cells))
			return
		}
		s.cells = append(s.cells, nil)
		copy(s.cells[index+1:], s.cells[index:])
		s.cells[index] = c
		inserted = true
		s.recompute(tx)
	})

	if inserted && ok {
		c.listener = state.NewListener(func(e state.Event) { s.childChanged(c, e) })
		stateful.AddStateListener(c.listener)
	}
}

func (s *StateHelper) childChanged(c *cell, ev state.Event) {
	s.handler.WaitToWhen(state.IsNotDestroyed, func(tx *parentTx) {
		if c.removed || c.state == ev.State() {
			return
		}
		c.state = ev.State()
		s.recompute(tx)
	})
}

func (s *StateHelper) childRemoved(ev Event) {
	var c *cell
	s.handler.WaitToWhen(state.IsNotDestroyed, func(tx *parentTx) {
		if ev.Index < 0 || ev.Index >= len(s.cells) {
			s.log.Error("Removed child index out of step with structure", "index", ev.Index, "cells", len(s.cells))
			return
		}
		c = s.cells[ev.Index]
		c.removed = true
		s.cells = append(s.cells[:ev.Index:ev.Index], s.cells[ev.Index+1:]...)
		s.recompute(tx)
	})

	if c != nil && c.stateful != nil && c.listener != nil {
		c.stateful.RemoveStateListener(c.listener)
	}
}

// recompute folds the cells and publishes a changed result. A failed fold
// leaves the previous aggregate in place.
func (s *StateHelper) recompute(tx *parentTx) {
	states := make([]state.State, len(s.cells))
	for i, c := range s.cells {
		states[i] = c.state
	}

	agg, err := s.op.Evaluate(states...)
	if err != nil {
		monitor.AggregateRecomputes.WithLabelValues(monitor.OutcomeAborted).Inc()
		s.log.Warn("Aggregate recompute aborted", "operator", s.op.String(), "err", err)
		return
	}
	if agg == tx.Current() {
		monitor.AggregateRecomputes.WithLabelValues(monitor.OutcomeUnchanged).Inc()
		return
	}

	if err := tx.SetState(agg); err != nil {
		s.log.Error("Aggregate state rejected", "state", agg.String(), "err", err)
		return
	}
	if err := tx.FireEvent(); err != nil {
		s.log.Error("Aggregate event not delivered", "state", agg.String(), "err", err)
		return
	}
	monitor.AggregateRecomputes.WithLabelValues(monitor.OutcomePublished).Inc()
}

// Destroy stops observing the structure and its children and moves the
// aggregate to DESTROYED.
func (s *StateHelper) Destroy() {
	s.structure.RemoveStructuralListener(s.structural)

	var cells []*cell
	s.handler.WaitToWhen(state.IsNotDestroyed, func(*parentTx) {
		cells = s.cells
		s.cells = nil
		for _, c := range cells {
			c.removed = true
		}
	})
	for _, c := range cells {
		if c.stateful != nil && c.listener != nil {
			c.stateful.RemoveStateListener(c.listener)
		}
	}

	if _, err := s.handler.Destroy(); err != nil {
		s.log.Error("Aggregate destroy failed", "err", err)
	}
}

// Personal.AI order the ending
