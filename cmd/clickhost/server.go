package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/clickhost/clickhost/internal/core/appspec"
	"github.com/clickhost/clickhost/internal/shell/api"
	"github.com/clickhost/clickhost/internal/shell/clickadmin"
	"github.com/clickhost/clickhost/internal/shell/docker"
	"github.com/clickhost/clickhost/internal/shell/hosting"
	"github.com/clickhost/clickhost/internal/shell/lifecycle"
	"github.com/clickhost/clickhost/internal/shell/store"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess         = 0
	ExitConfigError     = 1
	ExitSpecError       = 2
	ExitDatabaseError   = 3
	ExitDockerError     = 4
	ExitRunnerError     = 5
	ExitHTTPServerError = 6
)

// =============================================================================
// Host
// =============================================================================

// Host owns one run of the application: the composed resource graph, the
// containers backing it, and the introspection API.
type Host struct {
	config      *Config
	runID       string
	composition *appspec.Composition
	httpServer  *http.Server
	store       store.Store
	docker      docker.Client
	runner      *docker.ServerRunner
	logger      *slog.Logger
}

// NewHost loads the application spec and wires every component for one run.
func NewHost(cfg *Config, logger *slog.Logger) (*Host, error) {
	// Load and compose the application spec
	specBytes, err := os.ReadFile(cfg.Spec.Path)
	if err != nil {
		return nil, &HostError{
			Op:       "NewHost",
			Err:      fmt.Errorf("read spec %s: %w", cfg.Spec.Path, err),
			ExitCode: ExitSpecError,
		}
	}

	spec, err := appspec.Parse(string(specBytes))
	if err != nil {
		return nil, &HostError{
			Op:       "NewHost",
			Err:      err,
			ExitCode: ExitSpecError,
		}
	}

	composition, err := appspec.Compose(spec)
	if err != nil {
		return nil, &HostError{
			Op:       "NewHost",
			Err:      err,
			ExitCode: ExitSpecError,
		}
	}

	// Connect to state database
	s, err := store.NewSQLiteStore(cfg.Database.DSN)
	if err != nil {
		return nil, &HostError{
			Op:       "NewHost",
			Err:      err,
			ExitCode: ExitDatabaseError,
		}
	}

	// Connect to Docker
	d, err := docker.NewDockerClient(cfg.Docker.Host)
	if err != nil {
		s.Close()
		return nil, &HostError{
			Op:       "NewHost",
			Err:      err,
			ExitCode: ExitDockerError,
		}
	}

	// Verify Docker connection
	if err := d.Ping(context.Background()); err != nil {
		s.Close()
		d.Close()
		return nil, &HostError{
			Op:       "NewHost",
			Err:      err,
			ExitCode: ExitDockerError,
		}
	}

	runID := uuid.New().String()[:8]

	// Bind lifecycle hooks for every server in the spec
	dispatcher := lifecycle.NewDispatcher(logger)
	binder := hosting.NewBinder(composition.Registry, s,
		func(baseURL string) hosting.AdminClient { return clickadmin.NewClient(baseURL) },
		runID, logger)
	for _, plan := range composition.Servers {
		binder.BindServer(dispatcher, plan.Server)
	}

	// Container runner
	runnerCfg := docker.RunnerConfig{
		HostAddress:   cfg.Runner.HostAddress,
		ReadyInterval: cfg.Runner.ReadyInterval,
		ReadyTimeout:  cfg.Runner.ReadyTimeout,
		StopTimeout:   cfg.Runner.StopTimeout,
	}
	runner := docker.NewServerRunner(d, composition.Registry, dispatcher, s, runID, runnerCfg, logger)

	// Introspection API
	handler := api.NewHandler(composition.Registry, s, logger)
	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Host{
		config:      cfg,
		runID:       runID,
		composition: composition,
		httpServer:  httpServer,
		store:       s,
		docker:      d,
		runner:      runner,
		logger:      logger,
	}, nil
}

// Start runs every server in the spec, serves the API, and blocks until
// shutdown.
func (h *Host) Start(ctx context.Context) error {
	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	h.logger.Info("starting run",
		"run_id", h.runID,
		"servers", len(h.composition.Servers),
		"databases", len(h.composition.Databases),
	)

	// Start servers in spec order. Any failure aborts the run: resources
	// the spec declares are not optional.
	for _, plan := range h.composition.Servers {
		if err := h.runner.StartServer(ctx, plan); err != nil {
			h.runner.StopAll(context.Background())
			return &HostError{
				Op:       "Start",
				Err:      fmt.Errorf("start server %s: %w", plan.Server.Name(), err),
				ExitCode: ExitRunnerError,
			}
		}
	}

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		h.logger.Info("starting HTTP server",
			"address", h.config.Server.Address())
		if err := h.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-sigCh:
		h.logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		h.runner.StopAll(context.Background())
		return &HostError{
			Op:       "Start",
			Err:      err,
			ExitCode: ExitHTTPServerError,
		}
	case <-ctx.Done():
		h.logger.Info("context cancelled")
	}

	return h.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the host.
func (h *Host) Shutdown(ctx context.Context) error {
	h.logger.Info("initiating graceful shutdown")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, h.config.Server.ShutdownTimeout)
	defer cancel()

	// Shutdown HTTP server
	if err := h.httpServer.Shutdown(shutdownCtx); err != nil {
		h.logger.Error("HTTP server shutdown error", "error", err)
	}

	// Stop containers unless configured to keep them
	if h.config.Runner.KeepContainers {
		h.logger.Info("keeping containers running", "run_id", h.runID)
	} else {
		h.runner.StopAll(shutdownCtx)
	}

	// Close Docker client
	if err := h.docker.Close(); err != nil {
		h.logger.Error("Docker client close error", "error", err)
	}

	// Close database
	if err := h.store.Close(); err != nil {
		h.logger.Error("database close error", "error", err)
	}

	h.logger.Info("shutdown complete")
	return nil
}

// =============================================================================
// Host Error
// =============================================================================

// HostError represents an error during host operation.
type HostError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *HostError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *HostError) Unwrap() error {
	return e.Err
}
