package state

import (
	"fmt"
	"time"

	serrors "github.com/turtacn/Strata/pkg/errors"
)

// Cause stands in for an error that crossed a process or persistence
// boundary. It keeps the original type name, message and formatted detail.
type Cause struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

func (c *Cause) Error() string {
	return c.Message
}

// NewCause wraps err unless it already is a Cause.
func NewCause(err error) *Cause {
	if err == nil {
		return nil
	}
	if c, ok := err.(*Cause); ok {
		return c
	}
	c := &Cause{Type: fmt.Sprintf("%T", err), Message: err.Error()}
	if detail := fmt.Sprintf("%+v", err); detail != c.Message {
		c.Stack = detail
	}
	return c
}

// Persisted is the transportable projection of an Event: no source, and a
// Cause stand-in in place of the original error.
type Persisted struct {
	Family string    `json:"family"`
	State  string    `json:"state"`
	Time   time.Time `json:"time"`
	Cause  *Cause    `json:"cause,omitempty"`
}

// Persist projects the event for storage or transport.
func (e Event) Persist() (Persisted, error) {
	if e.state == nil {
		return Persisted{}, serrors.Newf(serrors.ErrCodeUnconvertable, "Persist", "event from %s has no state", e.source)
	}
	family, err := FamilyOf(e.state)
	if err != nil {
		return Persisted{}, err
	}
	return Persisted{
		Family: family,
		State:  e.state.String(),
		Time:   e.time,
		Cause:  NewCause(e.cause),
	}, nil
}

// Event rebuilds an event for source.
func (p Persisted) Event(source Source) (Event, error) {
	st, err := Parse(p.Family, p.State)
	if err != nil {
		return Event{}, err
	}
	var cause error
	if p.Cause != nil {
		cause = p.Cause
	}
	return NewEvent(source, st, p.Time, cause), nil
}

// Personal.AI order the ending
