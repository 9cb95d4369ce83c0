package orchestrator

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Naveenkumar-2007/stack-launcher/pkg/launcher"
)

// Collector defines the interface for collecting orchestration metrics.
type Collector interface {
	// StateTransition records a move through the launch state machine
	StateTransition(from, to State)

	// LaunchFailure records a failed service launch
	LaunchFailure(service string, code launcher.ErrorCode)

	// ReadinessWait records how long the readiness gate held the launch
	ReadinessWait(service string, duration time.Duration, err error)

	// ForegroundExit records the frontend's final exit code
	ForegroundExit(code int)
}

// noopCollector is a no-op implementation of Collector
type noopCollector struct{}

func (noopCollector) StateTransition(from, to State)                                 {}
func (noopCollector) LaunchFailure(service string, code launcher.ErrorCode)          {}
func (noopCollector) ReadinessWait(service string, duration time.Duration, e error)  {}
func (noopCollector) ForegroundExit(code int)                                        {}

// NewNoopCollector creates a no-op metrics collector
func NewNoopCollector() Collector {
	return noopCollector{}
}

// PrometheusCollector implements Collector using Prometheus metrics.
type PrometheusCollector struct {
	stateTransitions *prometheus.CounterVec
	launchFailures   *prometheus.CounterVec
	readinessWait    *prometheus.HistogramVec
	foregroundExits  *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewPrometheusCollector creates a Prometheus metrics collector with its
// own registry, exposed via Registry for the ops server.
func NewPrometheusCollector(namespace string) *PrometheusCollector {
	if namespace == "" {
		namespace = "stack_launcher"
	}

	pc := &PrometheusCollector{
		registry: prometheus.NewRegistry(),
	}

	pc.stateTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Total number of orchestrator state transitions",
		},
		[]string{"from_state", "to_state"},
	)

	pc.launchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "launch_failures_total",
			Help:      "Total number of failed service launches",
		},
		[]string{"service", "error_code"},
	)

	pc.readinessWait = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "readiness_wait_seconds",
			Help:      "Time spent waiting on the readiness gate",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)

	pc.foregroundExits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "foreground_exits_total",
			Help:      "Frontend exit codes observed",
		},
		[]string{"exit_code"},
	)

	pc.registry.MustRegister(
		pc.stateTransitions,
		pc.launchFailures,
		pc.readinessWait,
		pc.foregroundExits,
	)

	return pc
}

// Registry returns the collector's Prometheus registry.
func (pc *PrometheusCollector) Registry() *prometheus.Registry {
	return pc.registry
}

// StateTransition records a move through the launch state machine
func (pc *PrometheusCollector) StateTransition(from, to State) {
	pc.stateTransitions.WithLabelValues(from.String(), to.String()).Inc()
}

// LaunchFailure records a failed service launch
func (pc *PrometheusCollector) LaunchFailure(service string, code launcher.ErrorCode) {
	pc.launchFailures.WithLabelValues(service, string(code)).Inc()
}

// ReadinessWait records how long the readiness gate held the launch
func (pc *PrometheusCollector) ReadinessWait(service string, duration time.Duration, err error) {
	status := "ready"
	if err != nil {
		status = "failed"
	}
	pc.readinessWait.WithLabelValues(service, status).Observe(duration.Seconds())
}

// ForegroundExit records the frontend's final exit code
func (pc *PrometheusCollector) ForegroundExit(code int) {
	pc.foregroundExits.WithLabelValues(strconv.Itoa(code)).Inc()
}
