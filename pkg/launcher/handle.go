package launcher

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// ProcessState tracks the last observed state of a launched process.
type ProcessState int32

const (
	ProcessStarting ProcessState = iota
	ProcessReady
	ProcessFailed
	ProcessExited
)

// String returns the string representation of a ProcessState
func (ps ProcessState) String() string {
	switch ps {
	case ProcessStarting:
		return "starting"
	case ProcessReady:
		return "ready"
	case ProcessFailed:
		return "failed"
	case ProcessExited:
		return "exited"
	default:
		return "unknown"
	}
}

// Handle tracks a single launched OS process. It is owned by the Launcher
// that created it; observers (the readiness gate) only read from it.
type Handle struct {
	spec      ServiceSpec
	cmd       *exec.Cmd
	pid       int
	startTime time.Time

	mu       sync.Mutex
	state    ProcessState
	exitCode int
	exitErr  error

	done chan struct{}
}

// Spec returns the spec the process was launched from.
func (h *Handle) Spec() ServiceSpec { return h.spec }

// PID returns the OS process id.
func (h *Handle) PID() int { return h.pid }

// StartTime returns when the process was started.
func (h *Handle) StartTime() time.Time { return h.startTime }

// Done is closed once the process has been reaped.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Alive reports whether the process has not yet exited.
func (h *Handle) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// State returns the last observed process state.
func (h *Handle) State() ProcessState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// MarkReady records that the readiness gate confirmed the process usable.
// A no-op once the process has exited.
func (h *Handle) MarkReady() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == ProcessStarting {
		h.state = ProcessReady
	}
}

// ExitCode returns the process exit code. Only meaningful after Done is
// closed; -1 if the process died on a signal without an exit code.
func (h *Handle) ExitCode() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitCode
}

// ExitErr returns the error from reaping the process, if any.
func (h *Handle) ExitErr() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitErr
}

// reap waits for the process and records its exit. Runs in its own
// goroutine, started by the Launcher immediately after a successful start.
func (h *Handle) reap() {
	err := h.cmd.Wait()

	h.mu.Lock()
	h.exitErr = err
	h.exitCode = h.cmd.ProcessState.ExitCode()
	if err != nil || h.exitCode != 0 {
		h.state = ProcessFailed
	} else {
		h.state = ProcessExited
	}
	h.mu.Unlock()

	close(h.done)
}

// Terminate stops the process: SIGTERM to its process group, wait up to
// grace for a clean exit, then SIGKILL. Safe to call on an already-exited
// process. The process group signal also reaches any children the service
// spawned.
func (h *Handle) Terminate(ctx context.Context, grace time.Duration) error {
	if !h.Alive() {
		return nil
	}

	// Negative pid addresses the process group created with Setpgid.
	if err := syscall.Kill(-h.pid, syscall.SIGTERM); err != nil {
		// Fall back to the single process; the group may already be gone.
		if err := h.cmd.Process.Signal(syscall.SIGTERM); err != nil {
			// Already exited between the Alive check and the signal.
			return nil
		}
	}

	graceTimer := time.NewTimer(grace)
	defer graceTimer.Stop()

	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		// Caller gave up waiting; escalate immediately.
	case <-graceTimer.C:
	}

	if err := syscall.Kill(-h.pid, syscall.SIGKILL); err != nil {
		_ = h.cmd.Process.Kill()
	}

	killTimer := time.NewTimer(5 * time.Second)
	defer killTimer.Stop()

	select {
	case <-h.done:
		return nil
	case <-killTimer.C:
		return ErrTerminationFailed(h.spec.Name, h.pid,
			fmt.Errorf("process did not die after SIGKILL"))
	}
}
