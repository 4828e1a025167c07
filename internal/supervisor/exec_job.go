// Package supervisor provides leaf jobs whose state lives in a handler:
// a job backed by an OS process and a service that idles until stopped.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/turtacn/Strata/pkg/consts"
	serrors "github.com/turtacn/Strata/pkg/errors"
	"github.com/turtacn/Strata/pkg/handler"
	"github.com/turtacn/Strata/pkg/logger"
	"github.com/turtacn/Strata/pkg/state"
)

// ExecJob runs a command. Exit status zero completes the job, any other
// exit status leaves it incomplete, and a failure to start is an exception.
type ExecJob struct {
	name        string
	command     []string
	stopTimeout time.Duration
	handler     *handler.Handler[state.JobState]
	log         logger.Logger

	Stdout io.Writer
	Stderr io.Writer

	mu            sync.Mutex
	cmd           *exec.Cmd
	done          chan struct{}
	stopRequested bool
}

type jobTx = handler.Tx[state.JobState]

// NewExecJob creates a job for command. A zero stopTimeout uses the default.
func NewExecJob(name string, command []string, stopTimeout time.Duration) *ExecJob {
	if stopTimeout <= 0 {
		stopTimeout = consts.DefaultStopTimeout
	}
	return &ExecJob{
		name:        name,
		command:     command,
		stopTimeout: stopTimeout,
		handler:     handler.NewJob(state.NewSource(name)),
		log:         logger.Log.With("job", name),
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
	}
}

func (j *ExecJob) Name() string { return j.name }

func (j *ExecJob) AddStateListener(l state.Listener)    { j.handler.AddStateListener(l) }
func (j *ExecJob) RemoveStateListener(l state.Listener) { j.handler.RemoveStateListener(l) }
func (j *ExecJob) LastStateEvent() state.Event          { return j.handler.LastStateEvent() }

func (j *ExecJob) RestoreLastStateEvent(saved state.Persisted) error {
	return j.handler.RestoreLastStateEvent(saved)
}

// Run starts the command and blocks until it exits. Cancelling ctx stops
// the process. Only a job in READY can be run; the returned error is only
// set when the process could not be run at all.
func (j *ExecJob) Run(ctx context.Context) error {
	var err error
	started := j.handler.WaitToWhen(state.IsReady, func(tx *jobTx) {
		j.mu.Lock()
		j.stopRequested = false
		j.mu.Unlock()
		err = j.transition(tx, state.JobExecuting, nil)
	})
	if !started {
		return serrors.New(serrors.ErrCodeIllegalTransition, "ExecJob.Run",
			fmt.Sprintf("%s is not ready", j.name), nil)
	}
	if err != nil {
		return err
	}

	cmd, done, err := j.start()
	if errors.Is(err, errStopped) {
		j.log.Info("Stopped before start")
		j.finish(state.JobIncomplete, nil)
		return nil
	}
	if err != nil {
		j.finish(state.JobException, err)
		return err
	}

	go func() {
		select {
		case <-ctx.Done():
			if err := j.Stop(); err != nil {
				j.log.Warn("Stop on cancel failed", "err", err)
			}
		case <-done:
		}
	}()

	waitErr := cmd.Wait()
	j.mu.Lock()
	j.cmd = nil
	close(done)
	j.mu.Unlock()

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		j.log.Info("Process exited", "pid", cmd.Process.Pid)
		j.finish(state.JobComplete, nil)
	case errors.As(waitErr, &exitErr):
		j.log.Info("Process exited", "pid", cmd.Process.Pid, "status", exitErr.ExitCode())
		j.finish(state.JobIncomplete, nil)
	default:
		j.finish(state.JobException, waitErr)
		return serrors.New(serrors.ErrCodeExecFailed, "ExecJob.Run", "wait for "+j.name, waitErr)
	}
	return nil
}

var errStopped = errors.New("stopped before start")

func (j *ExecJob) start() (*exec.Cmd, chan struct{}, error) {
	if len(j.command) == 0 {
		return nil, nil, serrors.New(serrors.ErrCodeExecFailed, "ExecJob.Run", j.name+" has no command", nil)
	}

	cmd := exec.Command(j.command[0], j.command[1:]...)
	cmd.Env = os.Environ()
	cmd.Stdout = j.Stdout
	cmd.Stderr = j.Stderr

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.stopRequested {
		return nil, nil, errStopped
	}

	j.log.Info("Forking process", "cmd", j.command)
	if err := cmd.Start(); err != nil {
		return nil, nil, serrors.New(serrors.ErrCodeExecFailed, "ExecJob.Run", "start "+j.command[0], err)
	}

	done := make(chan struct{})
	j.cmd = cmd
	j.done = done
	return cmd, done, nil
}

func (j *ExecJob) finish(s state.JobState, cause error) {
	j.handler.WaitToWhen(state.IsNotDestroyed, func(tx *jobTx) {
		if err := j.transition(tx, s, cause); err != nil {
			j.log.Error("Final state not set", "state", s.String(), "err", err)
		}
	})
}

func (j *ExecJob) transition(tx *jobTx, s state.JobState, cause error) error {
	var err error
	if s.IsException() {
		err = tx.SetStateException(cause)
	} else {
		err = tx.SetState(s)
	}
	if err != nil {
		return err
	}
	return tx.FireEvent()
}

// Stop sends SIGTERM and escalates to SIGKILL when the process outlives the
// stop timeout. It returns once the process has exited. A Stop that lands
// while the job is executing but not yet forked keeps it from forking.
func (j *ExecJob) Stop() error {
	j.mu.Lock()
	cmd, done := j.cmd, j.done
	if cmd == nil && j.LastStateEvent().State().IsExecuting() {
		j.stopRequested = true
	}
	j.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	j.log.Info("Sending SIGTERM", "pid", cmd.Process.Pid)
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return serrors.New(serrors.ErrCodeExecFailed, "ExecJob.Stop", "signal "+j.name, err)
	}

	timer := time.NewTimer(j.stopTimeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
	}

	j.log.Warn("Sending SIGKILL", "pid", cmd.Process.Pid)
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return serrors.New(serrors.ErrCodeExecFailed, "ExecJob.Stop", "kill "+j.name, err)
	}
	<-done
	return nil
}

// Reset returns a finished job to READY so it can run again.
func (j *ExecJob) Reset() bool {
	return j.handler.WaitToWhen(state.IsFinished, func(tx *jobTx) {
		if err := j.transition(tx, state.JobReady, nil); err != nil {
			j.log.Error("Reset failed", "err", err)
		}
	})
}

func (j *ExecJob) Destroy() {
	if err := j.Stop(); err != nil {
		j.log.Warn("Stop before destroy failed", "err", err)
	}
	if _, err := j.handler.Destroy(); err != nil {
		j.log.Error("Destroy failed", "err", err)
	}
}

// Personal.AI order the ending
