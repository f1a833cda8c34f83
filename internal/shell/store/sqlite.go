package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore creates a new SQLite store and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to open database", ErrConnectionFailed)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to ping database", ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteStore{db: db}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// Provision Operations
// =============================================================================

// RecordProvision persists one database-creation attempt.
func (s *SQLiteStore) RecordProvision(ctx context.Context, p Provision) error {
	const query = `
		INSERT INTO provisions (id, run_id, server_name, resource_name, database_name, status, error, created_at)
		VALUES (:id, :run_id, :server_name, :resource_name, :database_name, :status, :error, :created_at)`

	if _, err := s.db.NamedExecContext(ctx, query, p); err != nil {
		return NewStoreError("RecordProvision", "provision", p.ID, err.Error(), ErrQueryFailed)
	}
	return nil
}

// ListProvisions returns all recorded attempts, newest first.
func (s *SQLiteStore) ListProvisions(ctx context.Context) ([]Provision, error) {
	const query = `
		SELECT id, run_id, server_name, resource_name, database_name, status, error, created_at
		FROM provisions ORDER BY created_at DESC, id`

	provisions := []Provision{}
	if err := s.db.SelectContext(ctx, &provisions, query); err != nil {
		return nil, NewStoreError("ListProvisions", "provision", "", err.Error(), ErrQueryFailed)
	}
	return provisions, nil
}

// ListProvisionsByServer returns the attempts for one server, newest first.
func (s *SQLiteStore) ListProvisionsByServer(ctx context.Context, serverName string) ([]Provision, error) {
	const query = `
		SELECT id, run_id, server_name, resource_name, database_name, status, error, created_at
		FROM provisions WHERE server_name = ? ORDER BY created_at DESC, id`

	provisions := []Provision{}
	if err := s.db.SelectContext(ctx, &provisions, query, serverName); err != nil {
		return nil, NewStoreError("ListProvisionsByServer", "provision", "", err.Error(), ErrQueryFailed)
	}
	return provisions, nil
}

// =============================================================================
// Endpoint Operations
// =============================================================================

// RecordEndpoint persists one endpoint allocation.
func (s *SQLiteStore) RecordEndpoint(ctx context.Context, e EndpointRecord) error {
	const query = `
		INSERT INTO endpoints (id, run_id, server_name, endpoint, host, port, allocated_at)
		VALUES (:id, :run_id, :server_name, :endpoint, :host, :port, :allocated_at)`

	if _, err := s.db.NamedExecContext(ctx, query, e); err != nil {
		return NewStoreError("RecordEndpoint", "endpoint", e.ID, err.Error(), ErrQueryFailed)
	}
	return nil
}

// ListEndpoints returns all recorded allocations, newest first.
func (s *SQLiteStore) ListEndpoints(ctx context.Context) ([]EndpointRecord, error) {
	const query = `
		SELECT id, run_id, server_name, endpoint, host, port, allocated_at
		FROM endpoints ORDER BY allocated_at DESC, id`

	endpoints := []EndpointRecord{}
	if err := s.db.SelectContext(ctx, &endpoints, query); err != nil {
		return nil, NewStoreError("ListEndpoints", "endpoint", "", err.Error(), ErrQueryFailed)
	}
	return endpoints, nil
}
