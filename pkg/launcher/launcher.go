package launcher

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Mode selects how a service is launched.
type Mode int

const (
	// ModeBackground starts the process and returns immediately.
	ModeBackground Mode = iota
	// ModeForeground additionally attaches stdin; the caller is expected
	// to block on Handle.Done until the process exits.
	ModeForeground
)

// String returns the string representation of a Mode
func (m Mode) String() string {
	switch m {
	case ModeBackground:
		return "background"
	case ModeForeground:
		return "foreground"
	default:
		return "unknown"
	}
}

// Launcher starts services as child processes and tracks one live handle
// per role. A second launch of a role that is still running is rejected,
// not queued.
type Launcher struct {
	logger *zap.Logger

	mu      sync.Mutex
	handles map[Role]*Handle
}

// New creates a Launcher.
func New(logger *zap.Logger) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Launcher{
		logger:  logger,
		handles: make(map[Role]*Handle),
	}
}

// Launch starts the service described by spec. The child inherits stdout
// and stderr for observability, gets HOST/PORT (and any spec environment)
// on top of the parent environment, and runs in its own process group so
// termination reaches everything it spawns.
//
// A start failure returns a LaunchError with code PROCESS_START_FAILED;
// it is never retried here.
func (l *Launcher) Launch(ctx context.Context, spec ServiceSpec, mode Mode) (*Handle, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	if existing, ok := l.handles[spec.Role]; ok && existing.Alive() {
		l.mu.Unlock()
		return nil, ErrAlreadyRunning(spec.Name, existing.PID())
	}

	argv := spec.Argv()

	// exec.Command rather than CommandContext: process lifetime is owned
	// explicitly via Handle.Terminate, not tied to ctx teardown order.
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if mode == ModeForeground {
		cmd.Stdin = os.Stdin
	}

	env := os.Environ()
	env = append(env,
		fmt.Sprintf("HOST=%s", spec.Host),
		fmt.Sprintf("PORT=%d", spec.Port),
	)
	for k, v := range spec.Environment {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.Env = env

	// New process group so Terminate can signal the whole tree.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		l.mu.Unlock()
		return nil, ErrProcessStartFailed(spec.Name, argv[0], err)
	}

	handle := &Handle{
		spec:      spec,
		cmd:       cmd,
		pid:       cmd.Process.Pid,
		startTime: time.Now(),
		state:     ProcessStarting,
		exitCode:  -1,
		done:      make(chan struct{}),
	}
	l.handles[spec.Role] = handle
	l.mu.Unlock()

	go handle.reap()

	l.logger.Info("service started",
		zap.String("service", spec.Name),
		zap.String("mode", mode.String()),
		zap.Int("pid", handle.PID()),
		zap.String("addr", spec.Addr()),
		zap.Strings("command", argv),
	)

	return handle, nil
}

// Handle returns the live handle for a role, if any.
func (l *Launcher) Handle(role Role) (*Handle, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.handles[role]
	return h, ok
}

// Shutdown terminates any still-running services, frontend first so the
// user-facing process never outlives its backend.
func (l *Launcher) Shutdown(ctx context.Context, grace time.Duration) error {
	l.mu.Lock()
	frontend := l.handles[RoleFrontend]
	backend := l.handles[RoleBackend]
	l.mu.Unlock()

	var firstErr error
	for _, h := range []*Handle{frontend, backend} {
		if h == nil || !h.Alive() {
			continue
		}
		l.logger.Info("terminating service",
			zap.String("service", h.Spec().Name),
			zap.Int("pid", h.PID()),
			zap.Duration("grace", grace),
		)
		if err := h.Terminate(ctx, grace); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
