package handler

import (
	"errors"
	"sync"
	"testing"
	"time"

	serrors "github.com/turtacn/Strata/pkg/errors"
	"github.com/turtacn/Strata/pkg/state"
)

type recorder struct {
	mu     sync.Mutex
	events []state.Event
}

func (r *recorder) StateChanged(ev state.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) states() []state.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []state.State
	for _, ev := range r.events {
		out = append(out, ev.State())
	}
	return out
}

func setAndFire[S state.State](t *testing.T, h *Handler[S], s S) {
	t.Helper()
	var err error
	h.WaitToWhen(state.IsAnyState, func(tx *Tx[S]) {
		if err = tx.SetState(s); err == nil {
			err = tx.FireEvent()
		}
	})
	if err != nil {
		t.Fatalf("set %v: %v", s, err)
	}
}

func TestHandler_InitialState(t *testing.T) {
	src := state.NewSource("job")
	h := NewJob(src)

	ev := h.LastStateEvent()
	if ev.State() != state.JobReady {
		t.Errorf("Expected READY, got %v", ev.State())
	}
	if ev.Source() != src {
		t.Errorf("Expected source %v, got %v", src, ev.Source())
	}
	if h.Source() != src {
		t.Errorf("Expected Source() %v, got %v", src, h.Source())
	}
}

func TestHandler_TxClosedAfterAction(t *testing.T) {
	h := NewJob(state.NewSource("job"))

	var stale *Tx[state.JobState]
	h.WaitToWhen(state.IsAnyState, func(tx *Tx[state.JobState]) { stale = tx })

	if err := stale.SetState(state.JobExecuting); !errors.Is(err, serrors.ErrIllegalTransition) {
		t.Errorf("Expected ErrIllegalTransition, got %v", err)
	}
	if err := stale.SetStateException(errors.New("boom")); !errors.Is(err, serrors.ErrIllegalTransition) {
		t.Errorf("Expected ErrIllegalTransition, got %v", err)
	}
	if err := stale.FireEvent(); !errors.Is(err, serrors.ErrIllegalTransition) {
		t.Errorf("Expected ErrIllegalTransition, got %v", err)
	}
	if err := stale.Wake(); !errors.Is(err, serrors.ErrIllegalTransition) {
		t.Errorf("Expected ErrIllegalTransition, got %v", err)
	}
	if err := stale.Sleep(time.Millisecond); !errors.Is(err, serrors.ErrIllegalTransition) {
		t.Errorf("Expected ErrIllegalTransition, got %v", err)
	}
	if got := h.LastStateEvent().State(); got != state.JobReady {
		t.Errorf("Expected READY, got %v", got)
	}
}

func TestHandler_MutationFromNonHolderFails(t *testing.T) {
	h := NewJob(state.NewSource("job"))

	var stale *Tx[state.JobState]
	h.WaitToWhen(state.IsAnyState, func(tx *Tx[state.JobState]) { stale = tx })

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.WaitToWhen(state.IsAnyState, func(tx *Tx[state.JobState]) {
			_ = tx.SetState(state.JobExecuting)
			close(entered)
			<-release
		})
	}()
	<-entered

	if err := stale.SetState(state.JobComplete); !errors.Is(err, serrors.ErrIllegalTransition) {
		t.Errorf("Expected ErrIllegalTransition while another goroutine holds the lock, got %v", err)
	}
	if err := stale.FireEvent(); !errors.Is(err, serrors.ErrIllegalTransition) {
		t.Errorf("Expected ErrIllegalTransition while another goroutine holds the lock, got %v", err)
	}
	close(release)
	<-done

	if got := h.LastStateEvent().State(); got != state.JobExecuting {
		t.Errorf("Expected EXECUTING from the holder, got %v", got)
	}
}

func TestHandler_ListenersInRegistrationOrder(t *testing.T) {
	h := NewJob(state.NewSource("job"))

	var mu sync.Mutex
	var order []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		h.AddStateListener(state.NewListener(func(ev state.Event) {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name+":"+ev.State().String())
		}))
	}

	setAndFire(t, h, state.JobExecuting)

	want := []string{
		"first:READY", "second:READY", "third:READY",
		"first:EXECUTING", "second:EXECUTING", "third:EXECUTING",
	}
	if len(order) != len(want) {
		t.Fatalf("Expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, order)
			break
		}
	}
}

func TestHandler_ConditionGuardsAction(t *testing.T) {
	h := NewJob(state.NewSource("job"))

	ran := h.WaitToWhen(state.IsComplete, func(*Tx[state.JobState]) {
		t.Error("action must not run when the condition is false")
	})
	if ran {
		t.Error("Expected WaitToWhen to report false")
	}

	ran = h.WaitToWhen(state.IsReady, func(tx *Tx[state.JobState]) {
		if tx.Current() != state.JobReady {
			t.Errorf("Expected Current() READY, got %v", tx.Current())
		}
	})
	if !ran {
		t.Error("Expected WaitToWhen to report true")
	}
}

func TestHandler_ExceptionCarriesCause(t *testing.T) {
	h := NewJob(state.NewSource("job"))
	cause := errors.New("exit status 2")

	var err error
	h.WaitToWhen(state.IsAnyState, func(tx *Tx[state.JobState]) {
		err = tx.SetStateException(cause)
	})
	if err != nil {
		t.Fatal(err)
	}

	ev := h.LastStateEvent()
	if ev.State() != state.JobException {
		t.Errorf("Expected EXCEPTION, got %v", ev.State())
	}
	if ev.Cause() != cause {
		t.Errorf("Expected cause %v, got %v", cause, ev.Cause())
	}
}

func TestHandler_ExplicitTimestamp(t *testing.T) {
	at := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	h := NewParent(state.NewSource("p"), WithClock(func() time.Time { return at }))

	if !h.LastStateEvent().Time().Equal(at) {
		t.Errorf("Expected initial event at %v", at)
	}

	later := at.Add(time.Hour)
	h.WaitToWhen(state.IsAnyState, func(tx *Tx[state.ParentState]) {
		_ = tx.SetStateAt(state.ParentActive, later)
	})
	if !h.LastStateEvent().Time().Equal(later) {
		t.Errorf("Expected event at %v, got %v", later, h.LastStateEvent().Time())
	}
}

func TestHandler_ReentrantMutationFails(t *testing.T) {
	h := NewJob(state.NewSource("job"))

	var active *Tx[state.JobState]
	var setErr, fireErr error
	calls := 0
	h.AddStateListener(state.NewListener(func(ev state.Event) {
		if ev.State() != state.JobExecuting {
			return
		}
		calls++
		setErr = active.SetState(state.JobComplete)
		fireErr = active.FireEvent()
	}))

	h.WaitToWhen(state.IsAnyState, func(tx *Tx[state.JobState]) {
		active = tx
		_ = tx.SetState(state.JobExecuting)
		_ = tx.FireEvent()
	})

	if calls != 1 {
		t.Fatalf("Expected one EXECUTING delivery, got %d", calls)
	}
	if !errors.Is(setErr, serrors.ErrIllegalTransition) {
		t.Errorf("Expected ErrIllegalTransition from SetState, got %v", setErr)
	}
	if !errors.Is(fireErr, serrors.ErrIllegalTransition) {
		t.Errorf("Expected ErrIllegalTransition from FireEvent, got %v", fireErr)
	}
	if got := h.LastStateEvent().State(); got != state.JobExecuting {
		t.Errorf("Expected state to remain EXECUTING, got %v", got)
	}
}

func TestHandler_ListenerReadsLastStateEvent(t *testing.T) {
	h := NewJob(state.NewSource("job"))

	var seen []state.State
	h.AddStateListener(state.NewListener(func(state.Event) {
		seen = append(seen, h.LastStateEvent().State())
	}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.WaitToWhen(state.IsAnyState, func(tx *Tx[state.JobState]) {
			_ = tx.SetState(state.JobComplete)
			_ = tx.FireEvent()
		})
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Deadlock detected: LastStateEvent from a listener did not return")
	}
	if len(seen) != 2 || seen[0] != state.JobReady || seen[1] != state.JobComplete {
		t.Errorf("Expected [READY COMPLETE], got %v", seen)
	}
}

func TestHandler_DestroyedIsTerminal(t *testing.T) {
	h := NewService(state.NewSource("svc"))
	rec := &recorder{}
	h.AddStateListener(rec)

	ran, err := h.Destroy()
	if !ran || err != nil {
		t.Fatalf("Destroy() = %v, %v", ran, err)
	}
	ran, err = h.Destroy()
	if ran || err != nil {
		t.Errorf("second Destroy() = %v, %v; want false, nil", ran, err)
	}

	var setErr error
	h.WaitToWhen(state.IsAnyState, func(tx *Tx[state.ServiceState]) {
		setErr = tx.SetState(state.ServiceStarting)
	})
	if !errors.Is(setErr, serrors.ErrIllegalTransition) {
		t.Errorf("Expected ErrIllegalTransition after destroy, got %v", setErr)
	}

	got := rec.states()
	if len(got) != 2 || got[1] != state.ServiceDestroyed {
		t.Errorf("Expected [STARTABLE DESTROYED], got %v", got)
	}
}

func TestHandler_ListenerPanicIsolated(t *testing.T) {
	h := NewJob(state.NewSource("job"))

	h.AddStateListener(state.NewListener(func(ev state.Event) {
		if ev.State() == state.JobComplete {
			panic("observer bug")
		}
	}))
	rec := &recorder{}
	h.AddStateListener(rec)

	setAndFire(t, h, state.JobComplete)

	got := rec.states()
	if len(got) != 2 || got[1] != state.JobComplete {
		t.Errorf("Expected second listener to see COMPLETE, got %v", got)
	}
}

func TestHandler_RemoveStateListener(t *testing.T) {
	h := NewJob(state.NewSource("job"))
	rec := &recorder{}
	h.AddStateListener(rec)
	h.RemoveStateListener(rec)
	h.RemoveStateListener(rec)

	setAndFire(t, h, state.JobExecuting)

	if got := rec.states(); len(got) != 1 {
		t.Errorf("Expected only the registration event, got %v", got)
	}
}

func TestHandler_TryToWhenFailsFastWhileHeld(t *testing.T) {
	h := NewJob(state.NewSource("job"))

	entered := make(chan struct{})
	release := make(chan struct{})
	doneA := make(chan struct{})
	go func() {
		defer close(doneA)
		h.WaitToWhen(state.IsAnyState, func(tx *Tx[state.JobState]) {
			close(entered)
			<-release
			_ = tx.SetState(state.JobExecuting)
		})
	}()
	<-entered

	start := time.Now()
	ran, err := h.TryToWhen(state.IsAnyState, func(*Tx[state.JobState]) {
		t.Error("TryToWhen action must not run while the lock is held")
	})
	if ran || !errors.Is(err, serrors.ErrLockAcquisition) {
		t.Errorf("TryToWhen() = %v, %v; want false, ErrLockAcquisition", ran, err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("TryToWhen blocked")
	}

	waited := make(chan state.JobState, 1)
	go func() {
		var seen state.JobState
		h.WaitToWhen(state.IsAnyState, func(tx *Tx[state.JobState]) {
			seen = tx.Current()
		})
		waited <- seen
	}()

	select {
	case <-waited:
		t.Fatal("WaitToWhen must block while the lock is held")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case s := <-waited:
		if s != state.JobExecuting {
			t.Errorf("Expected WaitToWhen to observe EXECUTING, got %v", s)
		}
	case <-time.After(time.Second):
		t.Fatal("Deadlock detected: WaitToWhen did not proceed after release")
	}
	<-doneA

	ran, err = h.TryToWhen(state.IsExecuting, func(*Tx[state.JobState]) {})
	if !ran || err != nil {
		t.Errorf("TryToWhen() on a free lock = %v, %v", ran, err)
	}
}

func TestHandler_ReplayOnRegistrationRacingFire(t *testing.T) {
	h := NewJob(state.NewSource("job"))
	setAndFire(t, h, state.JobExecuting)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			h.WaitToWhen(state.IsAnyState, func(tx *Tx[state.JobState]) { _ = tx.FireEvent() })
		}
	}()

	for i := 0; i < 50; i++ {
		var mu sync.Mutex
		var seen []state.State
		registering := true
		duringRegistration := 0
		l := state.NewListener(func(ev state.Event) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, ev.State())
			if registering {
				duringRegistration++
			}
		})
		h.AddStateListener(l)
		mu.Lock()
		registering = false
		if len(seen) == 0 || seen[0] != state.JobExecuting {
			t.Errorf("Expected first observation EXECUTING, got %v", seen)
		}
		if duringRegistration < 1 {
			t.Errorf("Expected synchronous delivery during registration")
		}
		mu.Unlock()
		h.RemoveStateListener(l)
	}

	close(stop)
	wg.Wait()
}

func TestHandler_SleepAndWake(t *testing.T) {
	h := NewJob(state.NewSource("job"))

	woke := make(chan state.JobState, 1)
	parked := make(chan struct{})
	var sleeper *Tx[state.JobState]
	go func() {
		h.WaitToWhen(state.IsReady, func(tx *Tx[state.JobState]) {
			_ = tx.SetState(state.JobExecuting)
			sleeper = tx
			close(parked)
			for tx.Current() == state.JobExecuting {
				if err := tx.Sleep(0); err != nil {
					t.Error(err)
					return
				}
			}
			woke <- tx.Current()
		})
	}()
	<-parked

	// The sleeper released the lock, so this does not block.
	ok := h.WaitToWhen(state.IsExecuting, func(tx *Tx[state.JobState]) {
		if err := sleeper.SetState(state.JobIncomplete); !errors.Is(err, serrors.ErrIllegalTransition) {
			t.Errorf("Expected the sleeping Tx to be closed, got %v", err)
		}
		_ = tx.SetState(state.JobComplete)
		_ = tx.Wake()
	})
	if !ok {
		t.Fatal("Expected to acquire the lock while the sleeper is parked")
	}

	select {
	case s := <-woke:
		if s != state.JobComplete {
			t.Errorf("Expected sleeper to observe COMPLETE, got %v", s)
		}
	case <-time.After(time.Second):
		t.Fatal("Deadlock detected: sleeper was not woken")
	}
}

func TestHandler_SleepTimeout(t *testing.T) {
	h := NewJob(state.NewSource("job"))

	start := time.Now()
	h.WaitToWhen(state.IsAnyState, func(tx *Tx[state.JobState]) {
		if err := tx.Sleep(20 * time.Millisecond); err != nil {
			t.Error(err)
		}
		// Lock is held again after Sleep.
		if err := tx.SetState(state.JobIncomplete); err != nil {
			t.Error(err)
		}
	})
	if time.Since(start) < 20*time.Millisecond {
		t.Error("Sleep returned before its timeout")
	}
}

func TestHandler_RestoreLastStateEvent(t *testing.T) {
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		saved state.Persisted
		want  state.JobState
	}{
		{"executing normalizes", state.Persisted{Family: "job", State: "EXECUTING", Time: at}, state.JobReady},
		{"complete preserved", state.Persisted{Family: "job", State: "COMPLETE", Time: at}, state.JobComplete},
		{"incomplete preserved", state.Persisted{Family: "job", State: "INCOMPLETE", Time: at}, state.JobIncomplete},
		{"exception preserved", state.Persisted{Family: "job", State: "EXCEPTION", Time: at,
			Cause: &state.Cause{Type: "*exec.ExitError", Message: "exit status 1"}}, state.JobException},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewJob(state.NewSource("job"))
			if err := h.RestoreLastStateEvent(tt.saved); err != nil {
				t.Fatal(err)
			}
			ev := h.LastStateEvent()
			if ev.State() != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, ev.State())
			}
			if !ev.Time().Equal(at) {
				t.Errorf("Expected saved time %v, got %v", at, ev.Time())
			}
			if ev.Source() != h.Source() {
				t.Errorf("Expected event rebound to the handler's source")
			}
			if tt.saved.Cause != nil && ev.Cause() == nil {
				t.Error("Expected cause to survive restore")
			}
		})
	}
}

func TestHandler_RestoreParentInFlight(t *testing.T) {
	h := NewParent(state.NewSource("p"))
	if err := h.RestoreLastStateEvent(state.Persisted{Family: "parent", State: "ACTIVE"}); err != nil {
		t.Fatal(err)
	}
	if got := h.LastStateEvent().State(); got != state.ParentReady {
		t.Errorf("Expected READY, got %v", got)
	}
}

func TestHandler_RestoreRejects(t *testing.T) {
	h := NewJob(state.NewSource("job"))
	if err := h.RestoreLastStateEvent(state.Persisted{Family: "service", State: "STARTED"}); !errors.Is(err, serrors.ErrUnconvertableState) {
		t.Errorf("Expected ErrUnconvertableState for wrong family, got %v", err)
	}

	_, _ = h.Destroy()
	err := h.RestoreLastStateEvent(state.Persisted{Family: "job", State: "COMPLETE"})
	if !errors.Is(err, serrors.ErrIllegalTransition) {
		t.Errorf("Expected ErrIllegalTransition on destroyed handler, got %v", err)
	}
}

func TestHandler_CrossHandlerListenerNoDeadlock(t *testing.T) {
	child := NewJob(state.NewSource("child"))
	parent := NewParent(state.NewSource("parent"))

	child.AddStateListener(state.NewListener(func(ev state.Event) {
		p, err := state.ToParentState(ev.State())
		if err != nil {
			t.Error(err)
			return
		}
		parent.WaitToWhen(state.IsAnyState, func(tx *Tx[state.ParentState]) {
			_ = tx.SetState(p)
			_ = tx.FireEvent()
		})
	}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		child.WaitToWhen(state.IsAnyState, func(tx *Tx[state.JobState]) {
			_ = tx.SetState(state.JobComplete)
			_ = tx.FireEvent()
		})
	}()

	select {
	case <-done:
		if got := parent.LastStateEvent().State(); got != state.ParentComplete {
			t.Errorf("Expected parent COMPLETE, got %v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("Deadlock detected: child-then-parent locking did not complete")
	}
}
