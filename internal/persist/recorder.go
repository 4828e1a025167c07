package persist

import (
	"context"
	"time"

	"github.com/turtacn/Strata/pkg/logger"
	"github.com/turtacn/Strata/pkg/state"
)

// saveTimeout bounds a single save made from inside a listener.
const saveTimeout = 5 * time.Second

// Recorder is a state listener that saves every event under name.
// DESTROYED is not saved so that a later run restores the last live state.
type Recorder struct {
	store Store
	name  string
	log   logger.Logger
}

func NewRecorder(store Store, name string) *Recorder {
	return &Recorder{
		store: store,
		name:  name,
		log:   logger.Log.With("component", "recorder", "name", name),
	}
}

func (r *Recorder) StateChanged(ev state.Event) {
	if ev.State().IsDestroyed() {
		return
	}
	p, err := ev.Persist()
	if err != nil {
		r.log.Error("State not persistable", "state", ev.State().String(), "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := r.store.Save(ctx, r.name, p); err != nil {
		r.log.Error("State not saved", "state", p.State, "err", err)
	}
}

// Restorer is satisfied by every handler.
type Restorer interface {
	RestoreLastStateEvent(saved state.Persisted) error
}

// Restore seeds h with the event saved under name. It reports whether
// anything was saved.
func Restore(ctx context.Context, store Store, name string, h Restorer) (bool, error) {
	p, ok, err := store.Load(ctx, name)
	if err != nil || !ok {
		return false, err
	}
	if err := h.RestoreLastStateEvent(p); err != nil {
		return false, err
	}
	return true, nil
}

// Personal.AI order the ending
