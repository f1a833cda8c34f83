package docker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/clickhost/clickhost/internal/core/appspec"
	"github.com/clickhost/clickhost/internal/core/resource"
	"github.com/clickhost/clickhost/internal/shell/clickadmin"
	"github.com/clickhost/clickhost/internal/shell/lifecycle"
	"github.com/clickhost/clickhost/internal/shell/store"
)

// =============================================================================
// ClickHouse Container Constants
// =============================================================================

const (
	// HTTPPort is the ClickHouse HTTP interface port inside the container.
	HTTPPort = 8123

	// Environment variables the ClickHouse image reads at first start.
	EnvUser     = "CLICKHOUSE_USER"
	EnvPassword = "CLICKHOUSE_PASSWORD"
)

// =============================================================================
// Naming
// =============================================================================

// ContainerName generates a container name for a server in a host run.
// Pattern: clickhost_{runID}_{serverName}
//
// Example:
//
//	ContainerName("abc123", "ch1") // returns "clickhost_abc123_ch1"
func ContainerName(runID, serverName string) string {
	return fmt.Sprintf("clickhost_%s_%s", runID, serverName)
}

// =============================================================================
// Runner Configuration
// =============================================================================

// RunnerConfig configures the server runner.
type RunnerConfig struct {
	// HostAddress is the address endpoints are published under.
	HostAddress string

	// ReadyInterval and ReadyTimeout bound the /ping readiness poll.
	ReadyInterval time.Duration
	ReadyTimeout  time.Duration

	// StopTimeout is the grace period given to a stopping container.
	StopTimeout time.Duration
}

// DefaultRunnerConfig returns default configuration.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		HostAddress:   "localhost",
		ReadyInterval: 500 * time.Millisecond,
		ReadyTimeout:  60 * time.Second,
		StopTimeout:   10 * time.Second,
	}
}

// =============================================================================
// Container Spec Composition
// =============================================================================

// BuildContainerSpec composes the container spec for one server plan.
// Credentials are resolved from the registry at spec-build time: literals
// and materialized parameters resolve; an endpoint-property credential would
// fail here, before any container is created.
func BuildContainerSpec(plan appspec.ServerPlan, registry *resource.Registry, runID string) (ContainerSpec, error) {
	server := plan.Server

	username, err := server.UsernameRef().Resolve(registry)
	if err != nil {
		return ContainerSpec{}, fmt.Errorf("resolve username for %s: %w", server.Name(), err)
	}

	env := map[string]string{
		EnvUser: username,
	}
	if ref, hasPass := server.PasswordRef(); hasPass {
		password, err := ref.Resolve(registry)
		if err != nil {
			return ContainerSpec{}, fmt.Errorf("resolve password for %s: %w", server.Name(), err)
		}
		env[EnvPassword] = password
	}

	return ContainerSpec{
		Name:  ContainerName(runID, server.Name()),
		Image: plan.Image,
		Env:   env,
		Labels: map[string]string{
			LabelManaged: "true",
			LabelServer:  server.Name(),
			LabelRun:     runID,
		},
		Ports: []PortBinding{
			{ContainerPort: HTTPPort, HostPort: 0, Protocol: "tcp"},
		},
		HealthCheck: &HealthCheck{
			Test:        []string{"CMD-SHELL", fmt.Sprintf("wget --no-verbose --tries=1 --spider http://localhost:%d/ping || exit 1", HTTPPort)},
			Interval:    5 * time.Second,
			Timeout:     3 * time.Second,
			Retries:     5,
			StartPeriod: 10 * time.Second,
		},
	}, nil
}

// =============================================================================
// Server Runner
// =============================================================================

// ServerRunner starts hosted server containers, allocates their endpoints
// in the registry, and publishes the startup lifecycle events.
type ServerRunner struct {
	client     Client
	registry   *resource.Registry
	dispatcher *lifecycle.Dispatcher
	store      store.Store
	runID      string
	config     RunnerConfig
	logger     *slog.Logger

	containers map[string]string // server name → container ID
}

// NewServerRunner creates a runner for one host run.
func NewServerRunner(client Client, registry *resource.Registry, dispatcher *lifecycle.Dispatcher, st store.Store, runID string, config RunnerConfig, logger *slog.Logger) *ServerRunner {
	if config.ReadyInterval == 0 {
		config.ReadyInterval = 500 * time.Millisecond
	}
	if config.ReadyTimeout == 0 {
		config.ReadyTimeout = 60 * time.Second
	}
	if config.HostAddress == "" {
		config.HostAddress = "localhost"
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ServerRunner{
		client:     client,
		registry:   registry,
		dispatcher: dispatcher,
		store:      st,
		runID:      runID,
		config:     config,
		logger:     logger.With("component", "runner"),
		containers: make(map[string]string),
	}
}

// StartServer runs one server container to readiness:
//
//  1. pull, create and start the container,
//  2. allocate the http endpoint from the bound host port,
//  3. publish ConnectionStringAvailable (a hook error here is fatal),
//  4. poll /ping until the server answers,
//  5. publish ResourceReady.
func (r *ServerRunner) StartServer(ctx context.Context, plan appspec.ServerPlan) error {
	name := plan.Server.Name()

	spec, err := BuildContainerSpec(plan, r.registry, r.runID)
	if err != nil {
		return err
	}

	r.logger.Info("starting server", "server", name, "image", spec.Image)

	if err := r.client.PullImage(ctx, spec.Image); err != nil {
		return err
	}

	containerID, err := r.client.CreateContainer(ctx, spec)
	if err != nil {
		return err
	}
	r.containers[name] = containerID

	if err := r.client.StartContainer(ctx, containerID); err != nil {
		return err
	}

	info, err := r.client.InspectContainer(ctx, containerID)
	if err != nil {
		return err
	}

	hostPort := boundHostPort(info, HTTPPort)
	if hostPort == 0 {
		return NewDockerError("StartServer", "container", containerID,
			fmt.Sprintf("no host port bound for %d/tcp", HTTPPort), ErrNoBoundPort)
	}

	endpoint := resource.Endpoint{Scheme: "http", Host: r.config.HostAddress, Port: hostPort}
	r.registry.AllocateEndpoint(name, resource.PrimaryEndpointName, endpoint)
	r.recordEndpoint(ctx, name, endpoint)

	r.logger.Info("endpoint allocated",
		"server", name,
		"host", endpoint.Host,
		"port", endpoint.Port,
	)

	if err := r.dispatcher.Publish(ctx, lifecycle.Event{
		Name:     lifecycle.ConnectionStringAvailable,
		Resource: name,
	}); err != nil {
		return err
	}

	if err := r.waitReady(ctx, endpoint.URL()); err != nil {
		return err
	}

	return r.dispatcher.Publish(ctx, lifecycle.Event{
		Name:     lifecycle.ResourceReady,
		Resource: name,
	})
}

// StopServer stops and removes the server's container.
func (r *ServerRunner) StopServer(ctx context.Context, serverName string) error {
	containerID, ok := r.containers[serverName]
	if !ok {
		return nil
	}

	timeout := r.config.StopTimeout
	if err := r.client.StopContainer(ctx, containerID, &timeout); err != nil {
		return err
	}
	if err := r.client.RemoveContainer(ctx, containerID, false); err != nil {
		return err
	}

	delete(r.containers, serverName)
	r.logger.Info("server stopped", "server", serverName)
	return nil
}

// StopAll stops every container this runner started. Errors are logged and
// the remaining containers are still stopped.
func (r *ServerRunner) StopAll(ctx context.Context) {
	for name := range r.containers {
		if err := r.StopServer(ctx, name); err != nil {
			r.logger.Error("failed to stop server", "server", name, "error", err)
		}
	}
}

// waitReady polls the server's /ping endpoint until it answers or the
// timeout elapses.
func (r *ServerRunner) waitReady(ctx context.Context, baseURL string) error {
	probe := clickadmin.NewClient(baseURL)

	deadline := time.Now().Add(r.config.ReadyTimeout)
	ticker := time.NewTicker(r.config.ReadyInterval)
	defer ticker.Stop()

	for {
		if err := probe.Ping(ctx); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return NewDockerError("waitReady", "", "",
				fmt.Sprintf("server at %s not ready after %s", baseURL, r.config.ReadyTimeout), ErrNotReady)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// boundHostPort returns the host port bound to the given container port.
func boundHostPort(info *ContainerInfo, containerPort int) int {
	for _, p := range info.Ports {
		if p.ContainerPort == containerPort && p.HostPort != 0 {
			return p.HostPort
		}
	}
	return 0
}

// recordEndpoint persists the allocation. Store failures are logged, not
// propagated.
func (r *ServerRunner) recordEndpoint(ctx context.Context, serverName string, ep resource.Endpoint) {
	if r.store == nil {
		return
	}
	rec := store.EndpointRecord{
		ID:          uuid.New().String(),
		RunID:       r.runID,
		ServerName:  serverName,
		Endpoint:    resource.PrimaryEndpointName,
		Host:        ep.Host,
		Port:        ep.Port,
		AllocatedAt: time.Now().UTC(),
	}
	if err := r.store.RecordEndpoint(ctx, rec); err != nil {
		r.logger.Error("failed to record endpoint", "server", serverName, "error", err)
	}
}
