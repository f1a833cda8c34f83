// Package lifecycle provides the event dispatcher that drives resource
// startup side effects. Hooks are explicit callbacks registered per
// (event, resource) pair; there is no implicit framework wiring, which keeps
// the resource model testable without a running host.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// =============================================================================
// Events
// =============================================================================

// EventName identifies a lifecycle milestone.
type EventName string

const (
	// ConnectionStringAvailable fires once a server's endpoint has been
	// allocated and its connection string can be resolved.
	ConnectionStringAvailable EventName = "connection-string-available"

	// ResourceReady fires once a server answers its health probe.
	ResourceReady EventName = "resource-ready"
)

// Event is one published lifecycle milestone for one resource.
type Event struct {
	Name     EventName
	Resource string
}

// Hook is a callback bound to an (event, resource) pair. A hook error aborts
// the publish and is surfaced to the caller; whether that is fatal depends
// on the event.
type Hook func(ctx context.Context, e Event) error

// =============================================================================
// Dispatcher
// =============================================================================

type hookKey struct {
	name     EventName
	resource string
}

// Dispatcher routes published events to subscribed hooks in subscription
// order.
type Dispatcher struct {
	mu     sync.RWMutex
	hooks  map[hookKey][]Hook
	logger *slog.Logger
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		hooks:  make(map[hookKey][]Hook),
		logger: logger.With("component", "lifecycle"),
	}
}

// Subscribe registers a hook for the given event on the given resource.
func (d *Dispatcher) Subscribe(name EventName, resource string, hook Hook) {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := hookKey{name: name, resource: resource}
	d.hooks[key] = append(d.hooks[key], hook)
}

// Publish runs the hooks subscribed to the event in subscription order.
// The first hook error aborts the remaining hooks and is returned. A
// cancelled context aborts before the next hook runs.
func (d *Dispatcher) Publish(ctx context.Context, e Event) error {
	d.mu.RLock()
	hooks := d.hooks[hookKey{name: e.Name, resource: e.Resource}]
	d.mu.RUnlock()

	d.logger.Debug("publishing lifecycle event",
		"event", string(e.Name),
		"resource", e.Resource,
		"hooks", len(hooks),
	)

	for _, hook := range hooks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := hook(ctx, e); err != nil {
			return fmt.Errorf("%s hook for %s: %w", e.Name, e.Resource, err)
		}
	}
	return nil
}
