package launcher

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Manifest is the optional declarative configuration for a stack. It
// overrides the environment-derived defaults per service and may tune the
// readiness policy.
//
//	# stack.yaml
//	backend:
//	  command: [uvicorn, app.api:app, --host, "{host}", --port, "{port}"]
//	  environment:
//	    LOG_LEVEL: warning
//	frontend:
//	  command: [streamlit, run, streamlit_app.py]
//	readiness:
//	  strategy: http
//	  path: /health
//	  timeout: 15s
type Manifest struct {
	Backend   ServiceManifest   `yaml:"backend"`
	Frontend  ServiceManifest   `yaml:"frontend"`
	Readiness ReadinessManifest `yaml:"readiness"`

	// Absolute path the manifest was loaded from (populated during load)
	path string `yaml:"-"`
}

// ServiceManifest overrides launch parameters for one service.
type ServiceManifest struct {
	// Command as argv; empty means keep the configured default
	Command []string `yaml:"command"`

	// Extra environment variables for the child process
	Environment map[string]string `yaml:"environment"`

	// Port override; 0 means keep the resolved port
	Port int `yaml:"port"`
}

// ReadinessManifest overrides the readiness policy.
type ReadinessManifest struct {
	// Strategy: liveness, delay or http; empty keeps the configured one
	Strategy string `yaml:"strategy"`

	// HTTP probe path (http strategy only)
	Path string `yaml:"path"`

	// Maximum wait
	Timeout time.Duration `yaml:"timeout"`

	// Poll interval
	Interval time.Duration `yaml:"interval"`
}

// LoadManifest loads and validates a stack manifest from a YAML file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrInvalidManifest(path, fmt.Errorf("read manifest: %w", err))
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, ErrInvalidManifest(path, fmt.Errorf("parse manifest: %w", err))
	}
	m.path = path

	if err := m.Validate(); err != nil {
		return nil, ErrInvalidManifest(path, err)
	}

	return &m, nil
}

// Path returns where the manifest was loaded from.
func (m *Manifest) Path() string { return m.path }

// Validate checks the manifest is internally consistent.
func (m *Manifest) Validate() error {
	for role, svc := range map[string]ServiceManifest{
		"backend":  m.Backend,
		"frontend": m.Frontend,
	} {
		if svc.Port < 0 || svc.Port > 65535 {
			return fmt.Errorf("%s.port must be between 0 and 65535, got %d", role, svc.Port)
		}
		for i, arg := range svc.Command {
			if strings.TrimSpace(arg) == "" {
				return fmt.Errorf("%s.command[%d] is empty", role, i)
			}
		}
	}

	switch m.Readiness.Strategy {
	case "", "liveness", "delay", "http":
	default:
		return fmt.Errorf("readiness.strategy must be liveness, delay or http, got %q",
			m.Readiness.Strategy)
	}
	if m.Readiness.Timeout < 0 {
		return fmt.Errorf("readiness.timeout must not be negative")
	}
	if m.Readiness.Interval < 0 {
		return fmt.Errorf("readiness.interval must not be negative")
	}

	return nil
}

// ApplyToSpec merges a service manifest over a resolved spec.
func (sm ServiceManifest) ApplyToSpec(spec ServiceSpec) ServiceSpec {
	if len(sm.Command) > 0 {
		spec.Command = sm.Command
	}
	if sm.Port != 0 {
		spec.Port = sm.Port
	}
	if len(sm.Environment) > 0 {
		if spec.Environment == nil {
			spec.Environment = make(map[string]string, len(sm.Environment))
		}
		for k, v := range sm.Environment {
			spec.Environment[k] = v
		}
	}
	return spec
}
