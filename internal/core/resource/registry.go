package resource

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/clickhost/clickhost/internal/core/expr"
)

// =============================================================================
// Endpoint
// =============================================================================

// Endpoint is a network address allocated to a resource by the orchestrator.
type Endpoint struct {
	Scheme string
	Host   string
	Port   int
}

// URL renders the endpoint as scheme://host:port.
func (e Endpoint) URL() string {
	return fmt.Sprintf("%s://%s:%d", e.Scheme, e.Host, e.Port)
}

// =============================================================================
// Registry
// =============================================================================

// Registry owns the application's global resource namespace plus the
// allocation state (parameter values, endpoint addresses) that deferred
// references resolve against. It implements expr.ResolveContext.
//
// Registration happens synchronously during composition; allocation is
// pushed in by the shell once containers are running. Reads may race with
// allocation, hence the lock.
type Registry struct {
	mu         sync.RWMutex
	resources  map[string]Resource
	order      []string
	parameters map[string]string
	endpoints  map[string]Endpoint // "resource/endpoint" → allocation
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		resources:  make(map[string]Resource),
		parameters: make(map[string]string),
		endpoints:  make(map[string]Endpoint),
	}
}

// Add registers a resource in the global namespace. Names are unique across
// the entire application, not per parent: a duplicate fails with
// ErrDuplicateResource and leaves prior state intact.
func (r *Registry) Add(res Resource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := res.Name()
	if _, exists := r.resources[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateResource, name)
	}
	r.resources[name] = res
	r.order = append(r.order, name)
	return nil
}

// Get returns the resource registered under name.
func (r *Registry) Get(name string) (Resource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.resources[name]
	return res, ok
}

// Resources returns all resources in registration order.
func (r *Registry) Resources() []Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Resource, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.resources[name])
	}
	return out
}

// SetParameter materializes a parameter value.
func (r *Registry) SetParameter(name, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parameters[name] = value
}

// AllocateEndpoint records the address allocated to a resource's endpoint.
// Allocation happens once, early in startup, after the container's host
// port is bound.
func (r *Registry) AllocateEndpoint(resourceName, endpointName string, ep Endpoint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints[resourceName+"/"+endpointName] = ep
}

// =============================================================================
// expr.ResolveContext
// =============================================================================

// ParameterValue implements expr.ResolveContext.
func (r *Registry) ParameterValue(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.parameters[name]
	return v, ok
}

// EndpointValue implements expr.ResolveContext.
func (r *Registry) EndpointValue(resourceName, endpointName string, property expr.EndpointProperty) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ep, ok := r.endpoints[resourceName+"/"+endpointName]
	if !ok {
		return "", false
	}

	switch property {
	case expr.PropertyHost:
		return ep.Host, true
	case expr.PropertyPort:
		return strconv.Itoa(ep.Port), true
	case expr.PropertyScheme:
		return ep.Scheme, true
	case expr.PropertyURL:
		return ep.URL(), true
	default:
		return "", false
	}
}
