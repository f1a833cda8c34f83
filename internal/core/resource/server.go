package resource

import (
	"fmt"
	"sync"

	"github.com/clickhost/clickhost/internal/core/expr"
)

// =============================================================================
// Server Resource
// =============================================================================

// PrimaryEndpointName is the endpoint binding every server resource exposes.
// The orchestrator allocates it once the container's HTTP interface port is
// bound on the host.
const PrimaryEndpointName = "http"

// DefaultUsername is used when no username reference is supplied.
const DefaultUsername = "default"

// DatabaseMapping is one registered child database name reservation.
type DatabaseMapping struct {
	ResourceName string // name of the database resource
	DatabaseName string // actual schema/catalog name on the server
}

// ServerResource represents one hosted ClickHouse server instance. It owns
// the credential references, the primary endpoint binding, and the registry
// of child database names. Child mappings are mutated only during synchronous
// registration, before any asynchronous resolution begins.
type ServerResource struct {
	name     string
	username expr.ValueRef
	password expr.ValueRef
	hasPass  bool

	databases []DatabaseMapping

	mu               sync.RWMutex
	connectionString string
	resolved         bool
}

// ServerOption configures a ServerResource at construction.
type ServerOption func(*ServerResource)

// WithUsername sets the username reference. Absent, the username defaults
// to the literal "default".
func WithUsername(ref expr.ValueRef) ServerOption {
	return func(s *ServerResource) {
		s.username = ref
	}
}

// WithPassword sets the password reference. Absent, the connection string
// carries no Password= fragment at all.
func WithPassword(ref expr.ValueRef) ServerOption {
	return func(s *ServerResource) {
		s.password = ref
		s.hasPass = true
	}
}

// NewServerResource creates a server resource with the given name.
func NewServerResource(name string, opts ...ServerOption) (*ServerResource, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name", ErrNameRequired)
	}

	s := &ServerResource{
		name:     name,
		username: expr.Literal(DefaultUsername),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Name returns the resource name.
func (s *ServerResource) Name() string {
	return s.name
}

// HostRef returns the deferred reference to the primary endpoint's host.
func (s *ServerResource) HostRef() expr.ValueRef {
	return expr.EndpointPropertyRef(s.name, PrimaryEndpointName, expr.PropertyHost)
}

// PortRef returns the deferred reference to the primary endpoint's port.
func (s *ServerResource) PortRef() expr.ValueRef {
	return expr.EndpointPropertyRef(s.name, PrimaryEndpointName, expr.PropertyPort)
}

// UsernameRef returns the username reference (a literal "default" when none
// was supplied).
func (s *ServerResource) UsernameRef() expr.ValueRef {
	return s.username
}

// PasswordRef returns the password reference and whether one was supplied.
func (s *ServerResource) PasswordRef() (expr.ValueRef, bool) {
	return s.password, s.hasPass
}

// ConnectionStringExpression returns the server-level connection string
// expression: no Database= fragment.
func (s *ServerResource) ConnectionStringExpression() expr.Expression {
	return s.buildConnectionString("")
}

// buildConnectionString assembles the connection string expression in the
// fixed field order. Optional fields are omitted entirely, never left empty:
//
//	Host={host};Port={port};Username={username}[;Password={password}][;Database={name}]
//
// databaseName is appended only by database-level builds.
func (s *ServerResource) buildConnectionString(databaseName string) expr.Expression {
	var b expr.Builder
	b.AppendLiteral("Host=").AppendRef(s.HostRef())
	b.AppendLiteral(";Port=").AppendRef(s.PortRef())
	b.AppendLiteral(";Username=").AppendRef(s.username)
	if s.hasPass {
		b.AppendLiteral(";Password=").AppendRef(s.password)
	}
	if databaseName != "" {
		b.AppendLiteral(";Database=" + databaseName)
	}
	return b.Build()
}

// AddDatabase registers a child database name mapping. A resource name
// already present on this server is a no-op: the first mapping is retained
// and no error is raised. Uniqueness across servers is enforced by the
// application registry, not here.
//
// TODO: confirm whether the silent no-op on duplicate names is intended
// idempotence or should surface a configuration error.
func (s *ServerResource) AddDatabase(resourceName, databaseName string) {
	for _, m := range s.databases {
		if m.ResourceName == resourceName {
			return
		}
	}
	s.databases = append(s.databases, DatabaseMapping{
		ResourceName: resourceName,
		DatabaseName: databaseName,
	})
}

// Databases returns the registered child mappings in insertion order.
func (s *ServerResource) Databases() []DatabaseMapping {
	out := make([]DatabaseMapping, len(s.databases))
	copy(out, s.databases)
	return out
}

// ConnectionProperties returns the ordered property pairs: Host, Port and
// Username always; Password only when a password reference was supplied.
func (s *ServerResource) ConnectionProperties() []Property {
	props := []Property{
		{Key: "Host", Value: s.HostRef()},
		{Key: "Port", Value: s.PortRef()},
		{Key: "Username", Value: s.username},
	}
	if s.hasPass {
		props = append(props, Property{Key: "Password", Value: s.password})
	}
	return props
}

// CacheConnectionString stores the resolved connection string. Set once by
// the ConnectionStringAvailable hook after endpoint allocation.
func (s *ServerResource) CacheConnectionString(cs string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connectionString = cs
	s.resolved = true
}

// ResolvedConnectionString returns the cached connection string, if the
// ConnectionStringAvailable hook has run. An empty cached string is a valid
// value; the second return distinguishes "empty" from "not yet resolved".
func (s *ServerResource) ResolvedConnectionString() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connectionString, s.resolved
}
