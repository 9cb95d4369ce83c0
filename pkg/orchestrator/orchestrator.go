// Package orchestrator sequences the launch of a two-tier stack: backend
// first, readiness gate, then the frontend in the foreground. It owns the
// exit contract for the whole run and guarantees no child process outlives
// it on any exit path.
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Naveenkumar-2007/stack-launcher/pkg/launcher"
	"github.com/Naveenkumar-2007/stack-launcher/pkg/readiness"
)

// State is the orchestrator's position in the launch state machine.
type State int

const (
	StateIdle State = iota
	StateBackendStarting
	StateBackendReady
	StateFrontendStarting
	StateRunning

	// Terminal failure states
	StateBackendFailed
	StateBackendTimeout
	StateFrontendFailed
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateBackendStarting:
		return "BackendStarting"
	case StateBackendReady:
		return "BackendReady"
	case StateFrontendStarting:
		return "FrontendStarting"
	case StateRunning:
		return "Running"
	case StateBackendFailed:
		return "BackendFailed"
	case StateBackendTimeout:
		return "BackendTimeout"
	case StateFrontendFailed:
		return "FrontendFailed"
	default:
		return "Unknown"
	}
}

// Exit codes per failure kind, for scripting callers. A frontend that ran
// and exited propagates its own code instead.
const (
	ExitSuccess         = 0
	ExitBackendFailure  = 1
	ExitBackendTimeout  = 2
	ExitFrontendFailure = 3

	// 128+SIGTERM convention when the orchestrator itself is signalled
	// and the frontend reports no code of its own.
	exitInterrupted = 143
)

// Result is the terminal outcome of one orchestration run.
type Result struct {
	State    State
	ExitCode int
	Err      error
}

// Process is what the orchestrator needs from a launched child. It embeds
// the gate's observe-only view; *launcher.Handle satisfies it.
type Process interface {
	readiness.Process
	PID() int
	MarkReady()
	Terminate(ctx context.Context, grace time.Duration) error
}

// Launcher starts services. The production implementation wraps
// *launcher.Launcher; tests substitute fakes.
type Launcher interface {
	Launch(ctx context.Context, spec launcher.ServiceSpec, mode launcher.Mode) (Process, error)
}

// Gate applies a readiness policy to a launched process.
type Gate interface {
	Await(ctx context.Context, service string, proc readiness.Process, policy readiness.Policy) error
}

// execLauncher adapts *launcher.Launcher to the Launcher interface.
type execLauncher struct {
	l *launcher.Launcher
}

func (e execLauncher) Launch(ctx context.Context, spec launcher.ServiceSpec, mode launcher.Mode) (Process, error) {
	h, err := e.l.Launch(ctx, spec, mode)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// Options configure an Orchestrator.
type Options struct {
	Logger *zap.Logger

	// Launcher and Gate default to the production implementations
	Launcher Launcher
	Gate     Gate

	// Metrics defaults to a no-op collector
	Metrics Collector

	// GracefulTimeout bounds SIGTERM-to-SIGKILL escalation on cleanup
	GracefulTimeout time.Duration
}

// Orchestrator drives one launch from Idle to a terminal state.
type Orchestrator struct {
	logger   *zap.Logger
	launcher Launcher
	gate     Gate
	metrics  Collector
	grace    time.Duration

	mu       sync.Mutex
	state    State
	backend  Process
	frontend Process
	started  time.Time
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	l := opts.Launcher
	if l == nil {
		l = execLauncher{l: launcher.New(logger)}
	}
	g := opts.Gate
	if g == nil {
		g = readiness.NewGate(logger)
	}
	m := opts.Metrics
	if m == nil {
		m = NewNoopCollector()
	}
	grace := opts.GracefulTimeout
	if grace <= 0 {
		grace = 10 * time.Second
	}

	return &Orchestrator{
		logger:   logger,
		launcher: l,
		gate:     g,
		metrics:  m,
		grace:    grace,
		state:    StateIdle,
	}
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Snapshot reports the current state and child pids for the ops surface.
type Snapshot struct {
	State       string    `json:"state"`
	BackendPID  int       `json:"backend_pid,omitempty"`
	FrontendPID int       `json:"frontend_pid,omitempty"`
	StartedAt   time.Time `json:"started_at,omitempty"`
}

// Snapshot returns a point-in-time view of the run.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	snap := Snapshot{State: o.state.String(), StartedAt: o.started}
	if o.backend != nil {
		snap.BackendPID = o.backend.PID()
	}
	if o.frontend != nil {
		snap.FrontendPID = o.frontend.PID()
	}
	return snap
}

func (o *Orchestrator) transition(to State) {
	o.mu.Lock()
	from := o.state
	o.state = to
	o.mu.Unlock()

	o.metrics.StateTransition(from, to)
	o.logger.Info("state transition",
		zap.String("from", from.String()),
		zap.String("to", to.String()),
	)
}

// Run executes the full launch. ctx cancellation (typically a termination
// signal) aborts the run; children are always terminated before Run
// returns, whatever the path out.
func (o *Orchestrator) Run(ctx context.Context, backendSpec, frontendSpec launcher.ServiceSpec, policy readiness.Policy) Result {
	o.mu.Lock()
	if o.state != StateIdle {
		state := o.state
		o.mu.Unlock()
		return Result{
			State:    state,
			ExitCode: ExitBackendFailure,
			Err:      errors.New("orchestrator already ran; create a new one per launch"),
		}
	}
	o.started = time.Now()
	o.mu.Unlock()

	// Children must never outlive the orchestrator. The cleanup context is
	// independent of ctx, which is already cancelled on the signal path.
	defer o.reapChildren()

	// Backend, in the background.
	o.transition(StateBackendStarting)
	backend, err := o.launcher.Launch(ctx, backendSpec, launcher.ModeBackground)
	if err != nil {
		o.metrics.LaunchFailure(backendSpec.Name, launcher.GetErrorCode(err))
		o.transition(StateBackendFailed)
		o.logger.Error("backend launch failed", zap.Error(err))
		return Result{State: StateBackendFailed, ExitCode: ExitBackendFailure, Err: err}
	}
	o.setBackend(backend)

	// Readiness gate.
	gateStart := time.Now()
	gateErr := o.gate.Await(ctx, backendSpec.Name, backend, policy)
	o.metrics.ReadinessWait(backendSpec.Name, time.Since(gateStart), gateErr)

	switch {
	case gateErr == nil:
		backend.MarkReady()
		o.transition(StateBackendReady)

	case isTimeout(gateErr):
		o.transition(StateBackendTimeout)
		o.logger.Error("backend readiness timed out", zap.Error(gateErr))
		return Result{State: StateBackendTimeout, ExitCode: ExitBackendTimeout, Err: gateErr}

	case isNotReady(gateErr):
		o.transition(StateBackendFailed)
		o.logger.Error("backend exited before becoming ready", zap.Error(gateErr))
		return Result{State: StateBackendFailed, ExitCode: ExitBackendFailure, Err: gateErr}

	default:
		// ctx cancelled while waiting; treat as an interrupted run.
		o.transition(StateBackendFailed)
		o.logger.Warn("readiness wait interrupted", zap.Error(gateErr))
		return Result{State: StateBackendFailed, ExitCode: exitInterrupted, Err: gateErr}
	}

	// Frontend, in the foreground.
	o.transition(StateFrontendStarting)
	frontend, err := o.launcher.Launch(ctx, frontendSpec, launcher.ModeForeground)
	if err != nil {
		o.metrics.LaunchFailure(frontendSpec.Name, launcher.GetErrorCode(err))
		o.transition(StateFrontendFailed)
		o.logger.Error("frontend launch failed", zap.Error(err))
		return Result{State: StateFrontendFailed, ExitCode: ExitFrontendFailure, Err: err}
	}
	o.setFrontend(frontend)
	o.transition(StateRunning)

	// The foreground wait is unbounded by design; only the frontend
	// exiting or a termination signal ends it.
	select {
	case <-frontend.Done():
		code := frontend.ExitCode()
		o.metrics.ForegroundExit(code)
		o.logger.Info("frontend exited", zap.Int("exit_code", code))
		if code < 0 {
			code = exitInterrupted
		}
		return Result{State: StateRunning, ExitCode: code}

	case <-ctx.Done():
		o.logger.Info("shutdown requested while running")
		cleanupCtx, cancel := context.WithTimeout(context.Background(), o.grace+10*time.Second)
		defer cancel()
		if err := frontend.Terminate(cleanupCtx, o.grace); err != nil {
			o.logger.Error("frontend termination failed", zap.Error(err))
		}
		code := frontend.ExitCode()
		o.metrics.ForegroundExit(code)
		if code < 0 {
			code = exitInterrupted
		}
		return Result{State: StateRunning, ExitCode: code, Err: ctx.Err()}
	}
}

func (o *Orchestrator) setBackend(p Process) {
	o.mu.Lock()
	o.backend = p
	o.mu.Unlock()
}

func (o *Orchestrator) setFrontend(p Process) {
	o.mu.Lock()
	o.frontend = p
	o.mu.Unlock()
}

// reapChildren terminates any still-running children, frontend first.
// Runs on every exit path from Run.
func (o *Orchestrator) reapChildren() {
	o.mu.Lock()
	children := []Process{o.frontend, o.backend}
	o.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), o.grace+10*time.Second)
	defer cancel()

	for _, p := range children {
		if p == nil || !p.Alive() {
			continue
		}
		o.logger.Info("terminating child process", zap.Int("pid", p.PID()))
		if err := p.Terminate(ctx, o.grace); err != nil {
			o.logger.Error("child termination failed",
				zap.Int("pid", p.PID()),
				zap.Error(err),
			)
		}
	}
}

func isTimeout(err error) bool {
	var te *readiness.TimeoutError
	return errors.As(err, &te)
}

func isNotReady(err error) bool {
	var nre *readiness.NotReadyError
	return errors.As(err, &nre)
}
