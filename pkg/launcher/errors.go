package launcher

import (
	"errors"
	"fmt"
	"strings"
)

// LaunchError carries enough context to troubleshoot a failed launch
// without digging through logs.
type LaunchError struct {
	// Code identifies the error type
	Code ErrorCode

	// Message is the primary error message
	Message string

	// Context provides additional details
	Context map[string]interface{}

	// Cause is the underlying error (if any)
	Cause error

	// Suggestion provides actionable guidance for resolving the error
	Suggestion string
}

// ErrorCode identifies categories of errors
type ErrorCode string

const (
	// Configuration errors, caught before any process starts
	ErrorCodeUnknownPlatform ErrorCode = "UNKNOWN_PLATFORM"
	ErrorCodePortCollision   ErrorCode = "PORT_COLLISION"
	ErrorCodeInvalidSpec     ErrorCode = "INVALID_SPEC"
	ErrorCodeInvalidManifest ErrorCode = "INVALID_MANIFEST"

	// Process lifecycle errors
	ErrorCodeProcessStartFailed ErrorCode = "PROCESS_START_FAILED"
	ErrorCodeAlreadyRunning     ErrorCode = "ALREADY_RUNNING"
	ErrorCodeTerminationFailed  ErrorCode = "TERMINATION_FAILED"
)

// Error implements the error interface
func (e *LaunchError) Error() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if len(e.Context) > 0 {
		var contextParts []string
		for k, v := range e.Context {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, v))
		}
		parts = append(parts, fmt.Sprintf("Context: %s", strings.Join(contextParts, ", ")))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("Cause: %v", e.Cause))
	}

	if e.Suggestion != "" {
		parts = append(parts, fmt.Sprintf("Suggestion: %s", e.Suggestion))
	}

	return strings.Join(parts, "; ")
}

// Unwrap returns the underlying error for errors.Is/As compatibility
func (e *LaunchError) Unwrap() error {
	return e.Cause
}

// NewError creates a new LaunchError with the given code and message
func NewError(code ErrorCode, message string) *LaunchError {
	return &LaunchError{
		Code:    code,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (e *LaunchError) WithContext(key string, value interface{}) *LaunchError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCause adds the underlying cause to the error
func (e *LaunchError) WithCause(cause error) *LaunchError {
	e.Cause = cause
	return e
}

// WithSuggestion adds an actionable suggestion to the error
func (e *LaunchError) WithSuggestion(suggestion string) *LaunchError {
	e.Suggestion = suggestion
	return e
}

// Common error constructors

// ErrUnknownPlatform creates an error for an unrecognized platform hint
// with no explicit frontend port to fall back on.
func ErrUnknownPlatform(hint string, known []string) *LaunchError {
	return NewError(ErrorCodeUnknownPlatform,
		fmt.Sprintf("Unknown platform hint '%s'", hint)).
		WithContext("platform_hint", hint).
		WithContext("known_platforms", strings.Join(known, ", ")).
		WithSuggestion("Set PLATFORM_HINT to a known platform, or set " +
			"FRONTEND_PORT_OVERRIDE to bind the frontend explicitly")
}

// ErrPortCollision creates an error for backend/frontend port conflicts.
func ErrPortCollision(port int) *LaunchError {
	return NewError(ErrorCodePortCollision,
		fmt.Sprintf("Backend and frontend both resolve to port %d", port)).
		WithContext("port", port).
		WithSuggestion("Change BACKEND_PORT or FRONTEND_PORT_OVERRIDE so the " +
			"two services bind distinct ports")
}

// ErrInvalidSpec creates an error for a spec that cannot be launched.
func ErrInvalidSpec(service, reason string) *LaunchError {
	return NewError(ErrorCodeInvalidSpec,
		fmt.Sprintf("Service '%s' has an invalid spec: %s", service, reason)).
		WithContext("service", service)
}

// ErrInvalidManifest creates an error for a stack manifest that fails to
// load or validate.
func ErrInvalidManifest(path string, cause error) *LaunchError {
	return NewError(ErrorCodeInvalidManifest,
		fmt.Sprintf("Stack manifest '%s' is invalid", path)).
		WithContext("manifest_path", path).
		WithCause(cause).
		WithSuggestion("Check the manifest yaml syntax; services are keyed " +
			"by role (backend, frontend) with command, environment, host, port")
}

// ErrProcessStartFailed creates an error for OS-level start failures.
// These are never retried.
func ErrProcessStartFailed(service, executable string, cause error) *LaunchError {
	return NewError(ErrorCodeProcessStartFailed,
		fmt.Sprintf("Failed to start service '%s'", service)).
		WithContext("service", service).
		WithContext("executable", executable).
		WithCause(cause).
		WithSuggestion("Verify the executable exists on PATH and is runnable:\n" +
			"  which " + executable)
}

// ErrAlreadyRunning creates an error for a duplicate launch of a role.
func ErrAlreadyRunning(service string, pid int) *LaunchError {
	return NewError(ErrorCodeAlreadyRunning,
		fmt.Sprintf("Service '%s' is already running", service)).
		WithContext("service", service).
		WithContext("pid", pid).
		WithSuggestion("Only one backend and one frontend may run per launch; " +
			"terminate the existing process first")
}

// ErrTerminationFailed creates an error for processes that survive SIGKILL.
func ErrTerminationFailed(service string, pid int, cause error) *LaunchError {
	return NewError(ErrorCodeTerminationFailed,
		fmt.Sprintf("Failed to terminate service '%s'", service)).
		WithContext("service", service).
		WithContext("pid", pid).
		WithCause(cause).
		WithSuggestion(fmt.Sprintf("Inspect the process manually:\n"+
			"  ps -p %d\n"+
			"  kill -9 %d", pid, pid))
}

// IsErrorCode checks if an error has the specified error code
func IsErrorCode(err error, code ErrorCode) bool {
	var le *LaunchError
	if errors.As(err, &le) {
		return le.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or empty string if not a LaunchError
func GetErrorCode(err error) ErrorCode {
	var le *LaunchError
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}
