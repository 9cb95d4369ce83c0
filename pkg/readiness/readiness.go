// Package readiness decides when a launched service may be depended on.
//
// The gate observes a process through a narrow read-only view and never
// mutates it. Three strategies are supported: liveness polling (the
// conservative default when no health endpoint exists), a fixed delay,
// and an HTTP health probe (recommended when the backend exposes one).
package readiness

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Strategy selects how readiness is determined.
type Strategy string

const (
	// StrategyLiveness polls process aliveness for the full wait and
	// treats "still alive once the wait elapses" as ready.
	StrategyLiveness Strategy = "liveness"

	// StrategyFixedDelay waits a constant duration. Unlike a blind sleep
	// it still fails fast when the process dies during the wait.
	StrategyFixedDelay Strategy = "delay"

	// StrategyHTTP polls an HTTP health endpoint and reports ready on the
	// first 200 response.
	StrategyHTTP Strategy = "http"
)

// ParseStrategy converts a config string into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyLiveness, StrategyFixedDelay, StrategyHTTP:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown readiness strategy %q", s)
	}
}

// Policy bounds a single readiness wait.
type Policy struct {
	Strategy Strategy

	// Timeout is the maximum wait. For liveness and delay it is also the
	// exact wait: the gate reports ready only once it has elapsed.
	Timeout time.Duration

	// Interval between checks (liveness and http)
	Interval time.Duration

	// ProbeURL is the health endpoint (http strategy only)
	ProbeURL string

	// ProbeTimeout bounds a single probe request; defaults to 5s
	ProbeTimeout time.Duration
}

// Process is the observe-only view of a launched process. *launcher.Handle
// satisfies it.
type Process interface {
	// Alive reports whether the process has not yet exited
	Alive() bool

	// Done is closed once the process has been reaped
	Done() <-chan struct{}

	// ExitCode is meaningful once Done is closed
	ExitCode() int
}

// NotReadyError reports a process that exited before the readiness wait
// completed. There is nothing left to clean up for this process.
type NotReadyError struct {
	Service  string
	ExitCode int
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("service %q exited before becoming ready (exit code %d)",
		e.Service, e.ExitCode)
}

// TimeoutError reports a readiness wait exhausted while the process was
// still alive but unconfirmed.
type TimeoutError struct {
	Service string
	Waited  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("service %q not confirmed ready within %s", e.Service, e.Waited)
}

// Gate applies readiness policies to launched processes.
type Gate struct {
	logger *zap.Logger
	client *http.Client
}

// NewGate creates a Gate. The http client is only used by the http
// strategy; its per-request timeout comes from the policy.
func NewGate(logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{
		logger: logger,
		client: &http.Client{},
	}
}

// Await blocks until the process is ready under the policy, it exits, the
// wait is exhausted, or ctx is cancelled. On success the process survived
// the full gate; the caller decides what to mark.
func (g *Gate) Await(ctx context.Context, service string, proc Process, policy Policy) error {
	g.logger.Info("waiting for readiness",
		zap.String("service", service),
		zap.String("strategy", string(policy.Strategy)),
		zap.Duration("timeout", policy.Timeout),
	)

	switch policy.Strategy {
	case StrategyHTTP:
		return g.awaitHTTP(ctx, service, proc, policy)
	case StrategyFixedDelay:
		return g.awaitAlive(ctx, service, proc, policy, 0)
	case StrategyLiveness:
		interval := policy.Interval
		if interval <= 0 {
			interval = 500 * time.Millisecond
		}
		return g.awaitAlive(ctx, service, proc, policy, interval)
	default:
		return fmt.Errorf("unknown readiness strategy %q", policy.Strategy)
	}
}

// awaitAlive waits out the full policy timeout, failing immediately if the
// process exits first. With a non-zero interval it also logs periodic
// liveness checks, which is the only difference between the liveness and
// fixed-delay strategies.
func (g *Gate) awaitAlive(ctx context.Context, service string, proc Process, policy Policy, interval time.Duration) error {
	deadline := time.NewTimer(policy.Timeout)
	defer deadline.Stop()

	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	checks := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-proc.Done():
			return &NotReadyError{Service: service, ExitCode: proc.ExitCode()}

		case <-tick:
			checks++
			g.logger.Debug("liveness check passed",
				zap.String("service", service),
				zap.Int("checks", checks),
			)

		case <-deadline.C:
			// The wait has fully elapsed; one final aliveness check keeps
			// the gate conservative about a racing exit.
			if !proc.Alive() {
				return &NotReadyError{Service: service, ExitCode: proc.ExitCode()}
			}
			g.logger.Info("service ready",
				zap.String("service", service),
				zap.Int("liveness_checks", checks),
			)
			return nil
		}
	}
}

// awaitHTTP polls the probe URL until it answers 200, the process exits,
// or the wait is exhausted.
func (g *Gate) awaitHTTP(ctx context.Context, service string, proc Process, policy Policy) error {
	interval := policy.Interval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	deadline := time.NewTimer(policy.Timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	attempts := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-proc.Done():
			return &NotReadyError{Service: service, ExitCode: proc.ExitCode()}

		case <-ticker.C:
			attempts++
			if g.probe(ctx, policy) {
				g.logger.Info("service ready",
					zap.String("service", service),
					zap.String("probe_url", policy.ProbeURL),
					zap.Int("attempts", attempts),
				)
				return nil
			}

		case <-deadline.C:
			return &TimeoutError{Service: service, Waited: policy.Timeout}
		}
	}
}

// probe performs a single health check request.
func (g *Gate) probe(ctx context.Context, policy Policy) bool {
	timeout := policy.ProbeTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, policy.ProbeURL, nil)
	if err != nil {
		return false
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
