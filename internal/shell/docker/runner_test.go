package docker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clickhost/clickhost/internal/core/appspec"
	"github.com/clickhost/clickhost/internal/core/expr"
	"github.com/clickhost/clickhost/internal/core/resource"
	"github.com/clickhost/clickhost/internal/shell/lifecycle"
)

// =============================================================================
// Test Fixtures
// =============================================================================

// fakeClient implements Client without a Docker daemon.
type fakeClient struct {
	created   []ContainerSpec
	started   []string
	stopped   []string
	removed   []string
	boundPort int
}

func (f *fakeClient) PullImage(ctx context.Context, ref string) error { return nil }

func (f *fakeClient) CreateContainer(ctx context.Context, spec ContainerSpec) (string, error) {
	f.created = append(f.created, spec)
	return "cid-" + spec.Name, nil
}

func (f *fakeClient) StartContainer(ctx context.Context, containerID string) error {
	f.started = append(f.started, containerID)
	return nil
}

func (f *fakeClient) StopContainer(ctx context.Context, containerID string, timeout *time.Duration) error {
	f.stopped = append(f.stopped, containerID)
	return nil
}

func (f *fakeClient) RemoveContainer(ctx context.Context, containerID string, force bool) error {
	f.removed = append(f.removed, containerID)
	return nil
}

func (f *fakeClient) InspectContainer(ctx context.Context, containerID string) (*ContainerInfo, error) {
	info := &ContainerInfo{ID: containerID, State: "running"}
	if f.boundPort != 0 {
		info.Ports = []PortBinding{{ContainerPort: HTTPPort, HostPort: f.boundPort, Protocol: "tcp"}}
	}
	return info, nil
}

func (f *fakeClient) Ping(ctx context.Context) error { return nil }
func (f *fakeClient) Close() error                   { return nil }

// pingServer runs an HTTP server answering /ping and returns its port.
func pingServer(t *testing.T) int {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ping" {
			w.Write([]byte("Ok.\n"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return port
}

func serverPlan(t *testing.T, opts ...resource.ServerOption) appspec.ServerPlan {
	t.Helper()
	server, err := resource.NewServerResource("ch1", opts...)
	require.NoError(t, err)
	return appspec.ServerPlan{Server: server, Image: appspec.DefaultImage}
}

// =============================================================================
// BuildContainerSpec Tests
// =============================================================================

func TestBuildContainerSpec_Defaults(t *testing.T) {
	plan := serverPlan(t)
	reg := resource.NewRegistry()

	spec, err := BuildContainerSpec(plan, reg, "run1")
	require.NoError(t, err)

	assert.Equal(t, "clickhost_run1_ch1", spec.Name)
	assert.Equal(t, appspec.DefaultImage, spec.Image)
	assert.Equal(t, "default", spec.Env[EnvUser])
	assert.NotContains(t, spec.Env, EnvPassword)

	require.Len(t, spec.Ports, 1)
	assert.Equal(t, HTTPPort, spec.Ports[0].ContainerPort)
	assert.Equal(t, 0, spec.Ports[0].HostPort)

	assert.Equal(t, "ch1", spec.Labels[LabelServer])
	assert.Equal(t, "run1", spec.Labels[LabelRun])
	require.NotNil(t, spec.HealthCheck)
}

func TestBuildContainerSpec_ResolvesCredentials(t *testing.T) {
	plan := serverPlan(t,
		resource.WithUsername(expr.Literal("admin")),
		resource.WithPassword(expr.ParameterRef("ch1-password")),
	)
	reg := resource.NewRegistry()
	reg.SetParameter("ch1-password", "hunter2")

	spec, err := BuildContainerSpec(plan, reg, "run1")
	require.NoError(t, err)
	assert.Equal(t, "admin", spec.Env[EnvUser])
	assert.Equal(t, "hunter2", spec.Env[EnvPassword])
}

func TestBuildContainerSpec_UnmaterializedPasswordFails(t *testing.T) {
	plan := serverPlan(t, resource.WithPassword(expr.ParameterRef("ch1-password")))
	reg := resource.NewRegistry()

	_, err := BuildContainerSpec(plan, reg, "run1")
	assert.ErrorIs(t, err, expr.ErrUnresolved)
}

// =============================================================================
// StartServer Tests
// =============================================================================

func TestStartServer_AllocatesEndpointAndPublishesEvents(t *testing.T) {
	port := pingServer(t)
	client := &fakeClient{boundPort: port}

	reg := resource.NewRegistry()
	dispatcher := lifecycle.NewDispatcher(nil)

	var events []lifecycle.EventName
	dispatcher.Subscribe(lifecycle.ConnectionStringAvailable, "ch1", func(ctx context.Context, e lifecycle.Event) error {
		events = append(events, e.Name)
		return nil
	})
	dispatcher.Subscribe(lifecycle.ResourceReady, "ch1", func(ctx context.Context, e lifecycle.Event) error {
		events = append(events, e.Name)
		return nil
	})

	cfg := DefaultRunnerConfig()
	cfg.HostAddress = "127.0.0.1"
	cfg.ReadyInterval = 10 * time.Millisecond
	cfg.ReadyTimeout = 2 * time.Second

	r := NewServerRunner(client, reg, dispatcher, nil, "run1", cfg, nil)
	require.NoError(t, r.StartServer(context.Background(), serverPlan(t)))

	// Endpoint allocated from the bound host port.
	v, ok := reg.EndpointValue("ch1", resource.PrimaryEndpointName, expr.PropertyPort)
	require.True(t, ok)
	assert.Equal(t, strconv.Itoa(port), v)

	// ConnectionStringAvailable precedes ResourceReady.
	assert.Equal(t, []lifecycle.EventName{lifecycle.ConnectionStringAvailable, lifecycle.ResourceReady}, events)

	require.Len(t, client.created, 1)
	assert.Equal(t, []string{"cid-clickhost_run1_ch1"}, client.started)
}

func TestStartServer_NoBoundPort(t *testing.T) {
	client := &fakeClient{boundPort: 0}
	r := NewServerRunner(client, resource.NewRegistry(), lifecycle.NewDispatcher(nil), nil, "run1", DefaultRunnerConfig(), nil)

	err := r.StartServer(context.Background(), serverPlan(t))
	assert.ErrorIs(t, err, ErrNoBoundPort)
}

func TestStartServer_FatalHookAbortsBeforeReadiness(t *testing.T) {
	port := pingServer(t)
	client := &fakeClient{boundPort: port}

	reg := resource.NewRegistry()
	dispatcher := lifecycle.NewDispatcher(nil)

	var readyPublished bool
	dispatcher.Subscribe(lifecycle.ConnectionStringAvailable, "ch1", func(ctx context.Context, e lifecycle.Event) error {
		return assert.AnError
	})
	dispatcher.Subscribe(lifecycle.ResourceReady, "ch1", func(ctx context.Context, e lifecycle.Event) error {
		readyPublished = true
		return nil
	})

	cfg := DefaultRunnerConfig()
	cfg.HostAddress = "127.0.0.1"

	r := NewServerRunner(client, reg, dispatcher, nil, "run1", cfg, nil)
	err := r.StartServer(context.Background(), serverPlan(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.False(t, readyPublished)
}

func TestStartServer_ReadinessTimeout(t *testing.T) {
	// Nothing listens on the allocated port: readiness must time out.
	client := &fakeClient{boundPort: 1}

	cfg := DefaultRunnerConfig()
	cfg.HostAddress = "127.0.0.1"
	cfg.ReadyInterval = 10 * time.Millisecond
	cfg.ReadyTimeout = 50 * time.Millisecond

	r := NewServerRunner(client, resource.NewRegistry(), lifecycle.NewDispatcher(nil), nil, "run1", cfg, nil)
	err := r.StartServer(context.Background(), serverPlan(t))
	assert.ErrorIs(t, err, ErrNotReady)
}

// =============================================================================
// Stop Tests
// =============================================================================

func TestStopServer_StopsAndRemoves(t *testing.T) {
	port := pingServer(t)
	client := &fakeClient{boundPort: port}

	cfg := DefaultRunnerConfig()
	cfg.HostAddress = "127.0.0.1"
	cfg.ReadyInterval = 10 * time.Millisecond

	r := NewServerRunner(client, resource.NewRegistry(), lifecycle.NewDispatcher(nil), nil, "run1", cfg, nil)
	require.NoError(t, r.StartServer(context.Background(), serverPlan(t)))

	require.NoError(t, r.StopServer(context.Background(), "ch1"))
	assert.Equal(t, []string{"cid-clickhost_run1_ch1"}, client.stopped)
	assert.Equal(t, []string{"cid-clickhost_run1_ch1"}, client.removed)

	// Stopping again is a no-op.
	require.NoError(t, r.StopServer(context.Background(), "ch1"))
	assert.Len(t, client.stopped, 1)
}
