// Package daemon wires the configured components into the forged service
// and owns its lifecycle.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/forgeai-dev/ForgeAI-sub001/internal/config"
	"github.com/forgeai-dev/ForgeAI-sub001/internal/logger"
	"github.com/forgeai-dev/ForgeAI-sub001/pkg/gateway"
	"github.com/forgeai-dev/ForgeAI-sub001/pkg/llm"
	"github.com/forgeai-dev/ForgeAI-sub001/pkg/orchestrator"
	"github.com/forgeai-dev/ForgeAI-sub001/pkg/router"
	"github.com/forgeai-dev/ForgeAI-sub001/pkg/session"
	"github.com/forgeai-dev/ForgeAI-sub001/pkg/toolexecutor"
)

// Daemon holds the wired service components.
type Daemon struct {
	config *config.Config
	logger *logger.Logger

	router       *router.Router
	executor     *toolexecutor.Executor
	sessions     *session.Manager
	sweeper      *session.Sweeper
	orchestrator *orchestrator.Orchestrator

	gatewayServer *gateway.Server
	configWatcher *config.Watcher
	lifecycle     *LifecycleManager

	startTime time.Time
	running   bool
	mu        sync.RWMutex
}

// Status is a point-in-time view of the daemon.
type Status struct {
	Running      bool          `json:"running"`
	Uptime       time.Duration `json:"uptime"`
	Sessions     int           `json:"sessions"`
	Routes       int           `json:"routes"`
	GatewayPort  int           `json:"gateway_port"`
}

// New creates a daemon instance, wiring components in dependency order.
func New(cfg *config.Config, log *logger.Logger) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if errs := config.NewValidator().ValidateConfig(cfg); len(errs) > 0 {
		return nil, fmt.Errorf("invalid config: %w", errs[0])
	}

	d := &Daemon{
		config: cfg,
		logger: log,
	}

	zl := log.Zerolog()

	// Providers: build each configured adapter; skip the ones without
	// credentials so a partial config still starts.
	d.router = router.New(router.Config{
		Routes:     cfg.RouterRoutes(),
		MaxRetries: cfg.Router.MaxRetries,
		Logger:     zl,
	})

	configured := 0
	for _, p := range cfg.Providers {
		provider, err := llm.NewProvider(p.Name, p.APIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create provider %s: %w", p.Name, err)
		}
		if !provider.Configured() {
			zl.Warn().Str("provider", p.Name).Msg("Provider has no credentials, skipping")
			continue
		}
		d.router.RegisterProvider(provider)
		configured++
		zl.Info().Str("provider", p.Name).Msg("Provider registered")
	}
	if configured == 0 {
		return nil, fmt.Errorf("no providers could be configured")
	}

	d.executor = toolexecutor.New(zl)
	if err := registerBuiltinTools(d.executor); err != nil {
		return nil, fmt.Errorf("failed to register builtin tools: %w", err)
	}
	zl.Info().Msg("Tool executor initialized")

	d.sessions = session.NewManager(zl)
	if cfg.Sessions.SweepEnabled {
		d.sweeper = session.NewSweeper(d.sessions, time.Duration(cfg.Sessions.IdleTTLHours)*time.Hour, zl)
	}
	zl.Info().Msg("Session manager initialized")

	orch, err := orchestrator.New(orchestrator.Config{
		Router:           d.router,
		Executor:         d.executor,
		Sessions:         d.sessions,
		Logger:           zl,
		AgentID:          cfg.Orchestrator.AgentID,
		SystemPrompt:     cfg.Orchestrator.SystemPrompt,
		Temperature:      cfg.Orchestrator.Temperature,
		MaxTokens:        cfg.Orchestrator.MaxTokens,
		MaxContextTokens: cfg.Orchestrator.MaxContextTokens,
		ToolTimeout:      time.Duration(cfg.Orchestrator.ToolTimeoutSecs) * time.Second,
		MaxToolArgBytes:  cfg.Orchestrator.MaxToolArgBytes,
		ProgressGrace:    time.Duration(cfg.Orchestrator.ProgressGraceSecs) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}
	d.orchestrator = orch
	zl.Info().Msg("Orchestrator initialized")

	gw, err := gateway.NewServer(gateway.Config{
		Port:         cfg.Gateway.Port,
		SharedSecret: cfg.Gateway.SharedSecret,
		Bus:          orch.Bus(),
		Dispatcher:   orch.ProcessMessage,
		Logger:       zl,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway server: %w", err)
	}
	d.gatewayServer = gw

	d.lifecycle = NewLifecycleManager(cfg.DataDir, zl)

	return d, nil
}

// Start brings the services up.
func (d *Daemon) Start(configPath string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return fmt.Errorf("daemon is already running")
	}

	zl := d.logger.Zerolog()

	if err := d.lifecycle.Start(); err != nil {
		return err
	}

	if d.sweeper != nil {
		if err := d.sweeper.Start(); err != nil {
			return fmt.Errorf("failed to start session sweeper: %w", err)
		}
		zl.Info().Msg("Session sweeper started")
	}

	if err := d.gatewayServer.Start(); err != nil {
		return fmt.Errorf("failed to start gateway server: %w", err)
	}

	// Routes hot-reload from the config file while everything else stays
	// fixed for the process lifetime.
	watcher, err := config.NewWatcher(config.NewLoader(configPath), zl, d.router.SetRoutes)
	if err != nil {
		zl.Warn().Err(err).Msg("Config watcher unavailable, routes are fixed until restart")
	} else {
		d.configWatcher = watcher
		zl.Info().Msg("Config watcher started")
	}

	d.startTime = time.Now()
	d.running = true
	zl.Info().Int("port", d.config.Gateway.Port).Msg("Daemon started")

	return nil
}

// Stop shuts the services down in reverse start order.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil
	}

	zl := d.logger.Zerolog()

	if d.configWatcher != nil {
		if err := d.configWatcher.Stop(); err != nil {
			zl.Warn().Err(err).Msg("Failed to stop config watcher")
		}
	}

	if err := d.gatewayServer.Stop(); err != nil {
		zl.Warn().Err(err).Msg("Failed to stop gateway server")
	}

	if d.sweeper != nil {
		d.sweeper.Stop()
	}

	if err := d.lifecycle.Stop(); err != nil {
		zl.Warn().Err(err).Msg("Failed to remove PID file")
	}

	d.running = false
	zl.Info().Msg("Daemon stopped")

	return nil
}

// Run starts the daemon and blocks until SIGINT or SIGTERM.
func (d *Daemon) Run(configPath string) error {
	if err := d.Start(configPath); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	zl := d.logger.Zerolog()
	zl.Info().Str("signal", sig.String()).Msg("Shutdown signal received")

	return d.Stop()
}

// Status reports the daemon's current state.
func (d *Daemon) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var uptime time.Duration
	if d.running {
		uptime = time.Since(d.startTime)
	}

	return Status{
		Running:     d.running,
		Uptime:      uptime,
		Sessions:    d.sessions.Count(),
		Routes:      len(d.router.Routes()),
		GatewayPort: d.config.Gateway.Port,
	}
}

// Orchestrator exposes the orchestrator, mainly for embedding hosts.
func (d *Daemon) Orchestrator() *orchestrator.Orchestrator {
	return d.orchestrator
}

// ProcessMessage runs one turn through the wired pipeline.
func (d *Daemon) ProcessMessage(ctx context.Context, sessionID, userID, text string) orchestrator.Result {
	return d.orchestrator.ProcessMessage(ctx, sessionID, userID, text)
}
