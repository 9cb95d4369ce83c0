package launcher

import (
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
)

// Role identifies which half of the stack a spec describes.
type Role string

const (
	RoleBackend  Role = "backend"
	RoleFrontend Role = "frontend"
)

// Bind hosts. The backend is an internal collaborator and stays on
// loopback; the frontend must be reachable by the platform ingress.
const (
	BackendHost  = "127.0.0.1"
	FrontendHost = "0.0.0.0"
)

// Global frontend default when no platform hint applies.
const DefaultFrontendPort = 8501

// PlatformDefault is the hint used for local/container runs.
const PlatformDefault = "default"

// platformFrontendPorts maps a platform hint to the port its ingress
// expects the frontend to bind. Adding a platform is a data change here,
// not new control flow.
var platformFrontendPorts = map[string]int{
	PlatformDefault: DefaultFrontendPort,
	"render":        10000,
	"azure":         80,
	"railway":       8080,
}

// KnownPlatforms returns the supported platform hints, sorted.
func KnownPlatforms() []string {
	out := make([]string, 0, len(platformFrontendPorts))
	for p := range platformFrontendPorts {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// LaunchEnvironment is the deployment-specific input for one orchestration
// run. It is resolved once at startup and never mutated afterwards.
type LaunchEnvironment struct {
	// Platform hint selecting the frontend port default
	Platform string

	// Explicit frontend port; 0 means "no override"
	FrontendPortOverride int

	// Backend internal port; 0 means the fixed default
	BackendPort int
}

// ServiceSpec describes one launchable service: its identity, the argv to
// exec, and the address it must bind.
type ServiceSpec struct {
	Name    string
	Role    Role
	Command []string
	Host    string
	Port    int

	// Extra environment for the child process, merged over the parent's
	Environment map[string]string
}

// Addr returns the host:port the service binds.
func (s ServiceSpec) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Argv returns the command with {host} and {port} placeholders expanded.
// HOST and PORT are also exported in the child environment, so services
// that read env vars instead of flags work without placeholders.
func (s ServiceSpec) Argv() []string {
	out := make([]string, len(s.Command))
	for i, arg := range s.Command {
		arg = strings.ReplaceAll(arg, "{host}", s.Host)
		arg = strings.ReplaceAll(arg, "{port}", strconv.Itoa(s.Port))
		out[i] = arg
	}
	return out
}

// Validate checks the spec is launchable.
func (s ServiceSpec) Validate() error {
	if len(s.Command) == 0 {
		return ErrInvalidSpec(s.Name, "empty command")
	}
	if s.Port < 1 || s.Port > 65535 {
		return ErrInvalidSpec(s.Name, fmt.Sprintf("port %d out of range", s.Port))
	}
	return nil
}

// ResolveSpecs derives the backend and frontend specs for the given
// environment. Frontend port precedence: explicit override, then the
// platform default, then the global default (for the "default" hint).
// An unknown platform hint is a configuration error unless an override
// pins the port explicitly.
func ResolveSpecs(env LaunchEnvironment, backendCmd, frontendCmd []string) (backend, frontend ServiceSpec, err error) {
	backendPort := env.BackendPort
	if backendPort == 0 {
		backendPort = 8000
	}

	frontendPort, err := resolveFrontendPort(env)
	if err != nil {
		return ServiceSpec{}, ServiceSpec{}, err
	}

	// 0.0.0.0 covers loopback, so the two services collide on equal ports
	// even though their hosts differ.
	if frontendPort == backendPort {
		return ServiceSpec{}, ServiceSpec{}, ErrPortCollision(backendPort)
	}

	backend = ServiceSpec{
		Name:    string(RoleBackend),
		Role:    RoleBackend,
		Command: backendCmd,
		Host:    BackendHost,
		Port:    backendPort,
	}
	frontend = ServiceSpec{
		Name:    string(RoleFrontend),
		Role:    RoleFrontend,
		Command: frontendCmd,
		Host:    FrontendHost,
		Port:    frontendPort,
	}

	if err := backend.Validate(); err != nil {
		return ServiceSpec{}, ServiceSpec{}, err
	}
	if err := frontend.Validate(); err != nil {
		return ServiceSpec{}, ServiceSpec{}, err
	}

	return backend, frontend, nil
}

func resolveFrontendPort(env LaunchEnvironment) (int, error) {
	if env.FrontendPortOverride != 0 {
		return env.FrontendPortOverride, nil
	}

	hint := env.Platform
	if hint == "" {
		hint = PlatformDefault
	}

	port, ok := platformFrontendPorts[hint]
	if !ok {
		return 0, ErrUnknownPlatform(hint, KnownPlatforms())
	}
	return port, nil
}
