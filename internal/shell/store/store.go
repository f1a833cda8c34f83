package store

import (
	"context"
	"time"
)

// =============================================================================
// Provisioning Types
// =============================================================================

// ProvisionStatus is the outcome of one database-creation attempt.
type ProvisionStatus string

const (
	ProvisionOK     ProvisionStatus = "ok"
	ProvisionFailed ProvisionStatus = "failed"
)

// Provision records one CREATE DATABASE attempt against a hosted server.
type Provision struct {
	ID           string          `db:"id"`
	RunID        string          `db:"run_id"`
	ServerName   string          `db:"server_name"`
	ResourceName string          `db:"resource_name"`
	DatabaseName string          `db:"database_name"`
	Status       ProvisionStatus `db:"status"`
	Error        string          `db:"error"`
	CreatedAt    time.Time       `db:"created_at"`
}

// EndpointRecord records an endpoint allocation for a hosted server.
type EndpointRecord struct {
	ID          string    `db:"id"`
	RunID       string    `db:"run_id"`
	ServerName  string    `db:"server_name"`
	Endpoint    string    `db:"endpoint"`
	Host        string    `db:"host"`
	Port        int       `db:"port"`
	AllocatedAt time.Time `db:"allocated_at"`
}

// =============================================================================
// Store Interface
// =============================================================================

// Store persists provisioning state across host runs.
type Store interface {
	// RecordProvision persists one database-creation attempt.
	RecordProvision(ctx context.Context, p Provision) error

	// ListProvisions returns all recorded attempts, newest first.
	ListProvisions(ctx context.Context) ([]Provision, error)

	// ListProvisionsByServer returns the attempts for one server, newest
	// first.
	ListProvisionsByServer(ctx context.Context, serverName string) ([]Provision, error)

	// RecordEndpoint persists one endpoint allocation.
	RecordEndpoint(ctx context.Context, e EndpointRecord) error

	// ListEndpoints returns all recorded allocations, newest first.
	ListEndpoints(ctx context.Context) ([]EndpointRecord, error)

	// Close releases the underlying connection.
	Close() error
}
