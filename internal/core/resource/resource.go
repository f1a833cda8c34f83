// Package resource contains the application resource model: ClickHouse
// server resources, their child database resources, generated parameters,
// and the registry that owns the global resource namespace.
// This is part of the Functional Core - no I/O happens here; endpoint
// allocation and parameter values are pushed in by the shell.
package resource

import (
	"errors"

	"github.com/clickhost/clickhost/internal/core/expr"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// Validation errors
	ErrNameRequired         = errors.New("resource name is required")
	ErrDatabaseNameRequired = errors.New("database name is required")
	ErrParentRequired       = errors.New("parent server resource is required")

	// Uniqueness errors
	ErrDuplicateResource = errors.New("resource name already registered")
)

// =============================================================================
// Resource Interface
// =============================================================================

// Resource is a named entity in the application model.
type Resource interface {
	// Name returns the resource's unique name in the application namespace.
	Name() string

	// ConnectionProperties returns the ordered (key, reference) pairs that
	// describe how to connect to or consume this resource. Consumed by
	// manifest/introspection tooling; order and presence rules are part of
	// the contract.
	ConnectionProperties() []Property
}

// Property is one named connection property. The value is a deferred
// reference rendered as a template for manifests and resolved for live use.
type Property struct {
	Key   string
	Value expr.ValueRef
}
