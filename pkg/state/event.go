package state

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Source identifies the entity that produced an event. It is a label used
// for equality and display, never a reference back to the entity.
type Source struct {
	ID   string
	Name string
}

// NewSource allocates a fresh identity for a named entity.
func NewSource(name string) Source {
	return Source{ID: uuid.NewString(), Name: name}
}

func (s Source) String() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

// Event is an immutable snapshot of a state change.
type Event struct {
	source Source
	state  State
	time   time.Time
	cause  error
}

// NewEvent builds an event. cause is only meaningful for exception states.
func NewEvent(source Source, st State, at time.Time, cause error) Event {
	return Event{source: source, state: st, time: at, cause: cause}
}

func (e Event) Source() Source  { return e.source }
func (e Event) State() State    { return e.state }
func (e Event) Time() time.Time { return e.time }
func (e Event) Cause() error    { return e.cause }

func (e Event) String() string {
	if e.cause != nil {
		return fmt.Sprintf("%s %v at %s: %v", e.source, e.state, e.time.Format(time.RFC3339Nano), e.cause)
	}
	return fmt.Sprintf("%s %v at %s", e.source, e.state, e.time.Format(time.RFC3339Nano))
}

// Listener receives state events synchronously on the mutating goroutine.
type Listener interface {
	StateChanged(event Event)
}

type funcListener struct {
	fn func(Event)
}

func (l *funcListener) StateChanged(event Event) { l.fn(event) }

// NewListener adapts a function. Each call returns a distinct listener that
// can later be removed by identity.
func NewListener(fn func(Event)) Listener {
	return &funcListener{fn: fn}
}

// Stateful is implemented by every entity with a lifecycle.
type Stateful interface {
	AddStateListener(l Listener)
	RemoveStateListener(l Listener)
	LastStateEvent() Event
}

// Personal.AI order the ending
