// Package docker runs hosted server containers and allocates their
// endpoints via the Docker API.
package docker

import "time"

// =============================================================================
// Container Types
// =============================================================================

// ContainerSpec defines the specification for creating a container.
type ContainerSpec struct {
	Name        string
	Image       string
	Env         map[string]string
	Labels      map[string]string
	Ports       []PortBinding
	HealthCheck *HealthCheck
}

// PortBinding defines a port mapping.
type PortBinding struct {
	ContainerPort int
	HostPort      int    // 0 for auto-assign
	Protocol      string // "tcp" or "udp"
}

// HealthCheck defines the container-level health check configuration.
type HealthCheck struct {
	Test        []string
	Interval    time.Duration
	Timeout     time.Duration
	Retries     int
	StartPeriod time.Duration
}

// ContainerInfo contains the subset of container state the runner needs.
type ContainerInfo struct {
	ID      string
	Name    string
	State   string // "running", "exited", "created", ...
	Ports   []PortBinding
	Started *time.Time
}

// =============================================================================
// Container Labels
// =============================================================================

// Label keys used for container identification.
const (
	LabelManaged = "com.clickhost.managed"
	LabelServer  = "com.clickhost.server"
	LabelRun     = "com.clickhost.run"
)
