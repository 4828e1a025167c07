// Package structural tracks ordered child lists and keeps an aggregate
// parent state in step with the states of those children.
package structural

import (
	"fmt"
	"sync"

	serrors "github.com/turtacn/Strata/pkg/errors"
)

// Event describes a child added at or removed from Index.
type Event struct {
	Index int
	Child any
}

// Listener observes structural changes. Calls for one structure are
// serialized and indexes refer to the list as it is at the time of the call.
type Listener interface {
	ChildAdded(ev Event)
	ChildRemoved(ev Event)
}

// Structural is implemented by anything owning a dynamic child list.
type Structural interface {
	AddStructuralListener(l Listener)
	RemoveStructuralListener(l Listener)
}

// ChildHelper is an ordered child list that notifies structural listeners
// while holding its own lock.
type ChildHelper[T any] struct {
	mu        sync.Mutex
	children  []T
	listeners []Listener
}

func NewChildHelper[T any]() *ChildHelper[T] {
	return &ChildHelper[T]{}
}

// InsertChild places child at index, shifting later children up.
func (h *ChildHelper[T]) InsertChild(index int, child T) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if index < 0 || index > len(h.children) {
		return serrors.New(serrors.ErrCodeIllegalTransition, "InsertChild",
			fmt.Sprintf("index %d out of range [0,%d]", index, len(h.children)), nil)
	}
	h.children = append(h.children, child)
	copy(h.children[index+1:], h.children[index:])
	h.children[index] = child

	ev := Event{Index: index, Child: child}
	for _, l := range h.listeners {
		l.ChildAdded(ev)
	}
	return nil
}

// AddChild appends child and returns its index.
func (h *ChildHelper[T]) AddChild(child T) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	index := len(h.children)
	h.children = append(h.children, child)

	ev := Event{Index: index, Child: child}
	for _, l := range h.listeners {
		l.ChildAdded(ev)
	}
	return index
}

// RemoveChildAt removes and returns the child at index.
func (h *ChildHelper[T]) RemoveChildAt(index int) (T, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var zero T
	if index < 0 || index >= len(h.children) {
		return zero, serrors.New(serrors.ErrCodeIllegalTransition, "RemoveChildAt",
			fmt.Sprintf("index %d out of range [0,%d)", index, len(h.children)), nil)
	}
	child := h.children[index]
	h.children = append(h.children[:index:index], h.children[index+1:]...)

	ev := Event{Index: index, Child: child}
	for _, l := range h.listeners {
		l.ChildRemoved(ev)
	}
	return child, nil
}

// RemoveChild removes the first child equal to child. Children must be
// comparable, which pointers and handlers are.
func (h *ChildHelper[T]) RemoveChild(child T) (int, bool) {
	h.mu.Lock()
	index := -1
	for i, c := range h.children {
		if any(c) == any(child) {
			index = i
			break
		}
	}
	h.mu.Unlock()

	if index < 0 {
		return -1, false
	}
	if _, err := h.RemoveChildAt(index); err != nil {
		return -1, false
	}
	return index, true
}

// Children returns a copy of the current list.
func (h *ChildHelper[T]) Children() []T {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]T(nil), h.children...)
}

func (h *ChildHelper[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.children)
}

// AddStructuralListener registers l and replays every existing child to it
// as an addition, in index order.
func (h *ChildHelper[T]) AddStructuralListener(l Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.listeners = append(h.listeners, l)
	for i, c := range h.children {
		l.ChildAdded(Event{Index: i, Child: c})
	}
}

func (h *ChildHelper[T]) RemoveStructuralListener(l Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, existing := range h.listeners {
		if existing == l {
			h.listeners = append(h.listeners[:i:i], h.listeners[i+1:]...)
			return
		}
	}
}

// Personal.AI order the ending
