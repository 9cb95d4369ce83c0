// Command stack-launcher starts the backend API, waits for it to become
// ready, then runs the frontend UI in the foreground. Its exit code is the
// launch outcome: 0 success, 1 backend failure, 2 readiness timeout,
// 3 frontend launch failure, otherwise the frontend's own exit code.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Naveenkumar-2007/stack-launcher/pkg/config"
	"github.com/Naveenkumar-2007/stack-launcher/pkg/launcher"
	"github.com/Naveenkumar-2007/stack-launcher/pkg/logging"
	"github.com/Naveenkumar-2007/stack-launcher/pkg/orchestrator"
	"github.com/Naveenkumar-2007/stack-launcher/pkg/readiness"
)

// exitUsage is returned for configuration errors, which are caught before
// any process starts and are distinct from the launch failure codes.
const exitUsage = 64

var (
	flagPlatform      string
	flagFrontendPort  int
	flagBackendPort   int
	flagManifest      string
	flagReadyStrategy string
	flagReadyTimeout  time.Duration
	flagOpsPort       int

	exitCode int
)

var rootCmd = &cobra.Command{
	Use:   "stack-launcher",
	Short: "Launch the backend/frontend stack with readiness gating",
	Long: `stack-launcher supervises the two-process web stack: it starts the
backend API bound to loopback, gates on its readiness, then runs the
frontend UI in the foreground bound to the port the hosting platform
expects (local container, Render, Azure, Railway).

No arguments are required; the environment selects the deployment:
  PLATFORM_HINT           platform selecting the frontend port default
  FRONTEND_PORT_OVERRIDE  explicit frontend port, wins over any default
  BACKEND_PORT            internal backend port (rarely needed)`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		exitCode = runStack(cmd)
		return nil
	},
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return exitUsage
	}
	return exitCode
}

func init() {
	rootCmd.Version = "0.1.0"
	rootCmd.PersistentFlags().StringVar(&flagPlatform, "platform", "", "platform hint (overrides PLATFORM_HINT)")
	rootCmd.PersistentFlags().IntVar(&flagFrontendPort, "frontend-port", 0, "frontend port override")
	rootCmd.PersistentFlags().IntVar(&flagBackendPort, "backend-port", 0, "backend internal port")
	rootCmd.PersistentFlags().StringVar(&flagManifest, "manifest", "", "path to a stack manifest yaml")
	rootCmd.Flags().StringVar(&flagReadyStrategy, "ready-strategy", "", "readiness strategy: liveness, delay or http")
	rootCmd.Flags().DurationVar(&flagReadyTimeout, "ready-timeout", 0, "maximum readiness wait")
	rootCmd.Flags().IntVar(&flagOpsPort, "ops-port", 0, "serve /health and /metrics on this port while running")
}

// loadConfig merges env config with any explicitly set flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("platform") {
		cfg.PlatformHint = flagPlatform
	}
	if cmd.Flags().Changed("frontend-port") {
		cfg.FrontendPortOverride = flagFrontendPort
	}
	if cmd.Flags().Changed("backend-port") {
		cfg.BackendPort = flagBackendPort
	}
	if cmd.Flags().Changed("manifest") {
		cfg.ManifestPath = flagManifest
	}
	if cmd.Flags().Changed("ready-strategy") {
		cfg.ReadyStrategy = flagReadyStrategy
	}
	if cmd.Flags().Changed("ready-timeout") {
		cfg.ReadyTimeout = flagReadyTimeout
	}
	if cmd.Flags().Changed("ops-port") {
		cfg.OpsPort = flagOpsPort
	}

	return cfg, cfg.Validate()
}

// resolveStack turns config (plus optional manifest) into launchable specs
// and a readiness policy.
func resolveStack(cfg *config.Config) (backend, frontend launcher.ServiceSpec, policy readiness.Policy, err error) {
	env := launcher.LaunchEnvironment{
		Platform:             cfg.PlatformHint,
		FrontendPortOverride: cfg.FrontendPortOverride,
		BackendPort:          cfg.BackendPort,
	}

	backend, frontend, err = launcher.ResolveSpecs(env, cfg.BackendArgv(), cfg.FrontendArgv())
	if err != nil {
		return launcher.ServiceSpec{}, launcher.ServiceSpec{}, readiness.Policy{}, err
	}

	strategy, err := readiness.ParseStrategy(cfg.ReadyStrategy)
	if err != nil {
		return launcher.ServiceSpec{}, launcher.ServiceSpec{}, readiness.Policy{}, err
	}
	policy = readiness.Policy{
		Strategy: strategy,
		Timeout:  cfg.ReadyTimeout,
		Interval: cfg.ReadyInterval,
	}
	probePath := cfg.ReadyHTTPPath

	if cfg.ManifestPath != "" {
		m, err := launcher.LoadManifest(cfg.ManifestPath)
		if err != nil {
			return launcher.ServiceSpec{}, launcher.ServiceSpec{}, readiness.Policy{}, err
		}
		backend = m.Backend.ApplyToSpec(backend)
		frontend = m.Frontend.ApplyToSpec(frontend)

		if m.Readiness.Strategy != "" {
			strategy, err := readiness.ParseStrategy(m.Readiness.Strategy)
			if err != nil {
				return launcher.ServiceSpec{}, launcher.ServiceSpec{}, readiness.Policy{}, err
			}
			policy.Strategy = strategy
		}
		if m.Readiness.Timeout > 0 {
			policy.Timeout = m.Readiness.Timeout
		}
		if m.Readiness.Interval > 0 {
			policy.Interval = m.Readiness.Interval
		}
		if m.Readiness.Path != "" {
			probePath = m.Readiness.Path
		}

		// Manifest port overrides can reintroduce a collision.
		if backend.Port == frontend.Port {
			return launcher.ServiceSpec{}, launcher.ServiceSpec{}, readiness.Policy{},
				launcher.ErrPortCollision(backend.Port)
		}
	}

	if policy.Strategy == readiness.StrategyHTTP {
		policy.ProbeURL = fmt.Sprintf("http://%s%s", backend.Addr(), probePath)
	}

	return backend, frontend, policy, nil
}

func runStack(cmd *cobra.Command) int {
	cfg, err := loadConfig(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return exitUsage
	}

	logger, err := logging.New(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return exitUsage
	}
	defer logger.Sync() //nolint:errcheck

	backend, frontend, policy, err := resolveStack(cfg)
	if err != nil {
		logger.Error("stack resolution failed", zap.Error(err))
		return exitUsage
	}

	logger.Info("launching stack",
		zap.String("platform", cfg.PlatformHint),
		zap.String("backend_addr", backend.Addr()),
		zap.String("frontend_addr", frontend.Addr()),
		zap.String("ready_strategy", string(policy.Strategy)),
	)

	metrics := orchestrator.NewPrometheusCollector("")
	orch := orchestrator.New(orchestrator.Options{
		Logger:          logger,
		Metrics:         metrics,
		GracefulTimeout: cfg.GracefulTimeout,
	})

	if cfg.OpsPort > 0 {
		ops := orchestrator.NewOpsServer(logger, orch, cfg.OpsPort, metrics.Registry())
		ops.Start()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			ops.Stop(ctx)
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result := orch.Run(ctx, backend, frontend, policy)
	if result.Err != nil {
		logger.Error("launch finished with failure",
			zap.String("state", result.State.String()),
			zap.Int("exit_code", result.ExitCode),
			zap.Error(result.Err),
		)
	} else {
		logger.Info("launch finished",
			zap.String("state", result.State.String()),
			zap.Int("exit_code", result.ExitCode),
		)
	}

	return result.ExitCode
}
