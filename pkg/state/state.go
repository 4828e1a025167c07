// Package state defines the closed families of lifecycle states (job, parent
// and service), the events that carry them, and the Stateful contract every
// entity with a lifecycle implements.
//
// Each family is a small integer type whose variants are looked up in a
// fixed flag table, so every variant answers the same predicate bundle and
// no two terminal outcomes can ever be true together.
package state

// State is the predicate bundle shared by every family. Implementations
// outside this package are accepted by the converters as long as they
// answer the bundle consistently.
type State interface {
	IsReady() bool
	IsExecuting() bool
	IsActive() bool
	IsStoppable() bool
	IsComplete() bool
	IsIncomplete() bool
	IsException() bool
	IsDestroyed() bool
	String() string
}

type flags uint16

const (
	fReady flags = 1 << iota
	fExecuting
	fActive
	fStoppable
	fComplete
	fIncomplete
	fException
	fDestroyed

	// family specific
	fPassable
	fDone
)

func (f flags) has(b flags) bool { return f&b != 0 }

type variant struct {
	name  string
	flags flags
}

// Personal.AI order the ending
