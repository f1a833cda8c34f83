// Package hosting binds server resources to the lifecycle dispatcher: it
// registers the hooks that resolve and cache connection strings once
// endpoints are allocated, and that provision child databases once the
// server answers its health probe.
package hosting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/clickhost/clickhost/internal/core/expr"
	"github.com/clickhost/clickhost/internal/core/resource"
	"github.com/clickhost/clickhost/internal/shell/lifecycle"
	"github.com/clickhost/clickhost/internal/shell/store"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrConnectionStringUnavailable is returned when a server's connection
	// string yields no value when an event handler expects one. This is
	// fatal to application start. An empty resolved string is acceptable
	// and is not this error.
	ErrConnectionStringUnavailable = errors.New("connection string unavailable")
)

// =============================================================================
// Collaborator Interfaces
// =============================================================================

// AdminClient is the administrative surface of one running server.
type AdminClient interface {
	CreateDatabase(ctx context.Context, database, username, password string) error
}

// AdminClientFactory builds an AdminClient for a server's resolved base URL.
// The URL is only known after endpoint allocation, hence the indirection.
type AdminClientFactory func(baseURL string) AdminClient

// =============================================================================
// Hook Registration
// =============================================================================

// Binder registers lifecycle hooks for server resources.
type Binder struct {
	registry  *resource.Registry
	store     store.Store
	newClient AdminClientFactory
	runID     string
	logger    *slog.Logger
}

// NewBinder creates a Binder. runID correlates persisted provisioning
// records with one host run.
func NewBinder(registry *resource.Registry, st store.Store, newClient AdminClientFactory, runID string, logger *slog.Logger) *Binder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Binder{
		registry:  registry,
		store:     st,
		newClient: newClient,
		runID:     runID,
		logger:    logger.With("component", "hosting"),
	}
}

// BindServer subscribes the server's two startup hooks:
//
//   - ConnectionStringAvailable resolves and caches the connection string;
//     failure to produce any value is fatal to application start.
//   - ResourceReady creates each registered child database on the live
//     server, best effort: a failed database is logged and recorded, and
//     does not block the remaining databases or the server itself.
func (b *Binder) BindServer(d *lifecycle.Dispatcher, server *resource.ServerResource) {
	d.Subscribe(lifecycle.ConnectionStringAvailable, server.Name(), b.connectionStringHook(server))
	d.Subscribe(lifecycle.ResourceReady, server.Name(), b.resourceReadyHook(server))
}

// connectionStringHook resolves the server's connection string expression
// against the registry and caches the result on the resource.
func (b *Binder) connectionStringHook(server *resource.ServerResource) lifecycle.Hook {
	return func(ctx context.Context, e lifecycle.Event) error {
		cs, err := server.ConnectionStringExpression().Resolve(b.registry)
		if err != nil {
			return fmt.Errorf("%w for %s: %v", ErrConnectionStringUnavailable, server.Name(), err)
		}

		server.CacheConnectionString(cs)
		b.logger.Info("connection string available", "resource", server.Name())
		return nil
	}
}

// resourceReadyHook provisions the server's registered databases in
// insertion order.
func (b *Binder) resourceReadyHook(server *resource.ServerResource) lifecycle.Hook {
	return func(ctx context.Context, e lifecycle.Event) error {
		url, ok := b.registry.EndpointValue(server.Name(), resource.PrimaryEndpointName, expr.PropertyURL)
		if !ok {
			return fmt.Errorf("%w for %s: endpoint not allocated", ErrConnectionStringUnavailable, server.Name())
		}

		username, err := server.UsernameRef().Resolve(b.registry)
		if err != nil {
			return fmt.Errorf("%w for %s: %v", ErrConnectionStringUnavailable, server.Name(), err)
		}

		var password string
		if ref, hasPass := server.PasswordRef(); hasPass {
			password, err = ref.Resolve(b.registry)
			if err != nil {
				return fmt.Errorf("%w for %s: %v", ErrConnectionStringUnavailable, server.Name(), err)
			}
		}

		client := b.newClient(url)

		for _, mapping := range server.Databases() {
			// Cancellation abandons pending creations; no retries here.
			if err := ctx.Err(); err != nil {
				return err
			}

			createErr := client.CreateDatabase(ctx, mapping.DatabaseName, username, password)
			b.record(ctx, server.Name(), mapping, createErr)

			if createErr != nil {
				b.logger.Error("failed to create database",
					"server", server.Name(),
					"database", mapping.DatabaseName,
					"error", createErr,
				)
				continue
			}
			b.logger.Info("database ready",
				"server", server.Name(),
				"database", mapping.DatabaseName,
			)
		}
		return nil
	}
}

// record persists one provisioning attempt. Store failures are logged, not
// propagated: bookkeeping must not block startup.
func (b *Binder) record(ctx context.Context, serverName string, mapping resource.DatabaseMapping, createErr error) {
	if b.store == nil {
		return
	}

	p := store.Provision{
		ID:           uuid.New().String(),
		RunID:        b.runID,
		ServerName:   serverName,
		ResourceName: mapping.ResourceName,
		DatabaseName: mapping.DatabaseName,
		Status:       store.ProvisionOK,
		CreatedAt:    time.Now().UTC(),
	}
	if createErr != nil {
		p.Status = store.ProvisionFailed
		p.Error = createErr.Error()
	}

	if err := b.store.RecordProvision(ctx, p); err != nil {
		b.logger.Error("failed to record provision",
			"server", serverName,
			"database", mapping.DatabaseName,
			"error", err,
		)
	}
}
