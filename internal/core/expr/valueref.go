// Package expr provides deferred connection-string expressions.
// This is part of the Functional Core - all functions are pure with no I/O.
//
// A connection string for a hosted server cannot be produced until the
// orchestrator has allocated a network endpoint and materialized generated
// parameters. Expressions capture the string shape up front as a sequence of
// literal fragments and value references, and are resolved later against a
// ResolveContext that reflects the current allocation state.
package expr

import (
	"errors"
	"fmt"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrUnresolved is returned when a reference points at a parameter or
	// endpoint that has not been allocated yet.
	ErrUnresolved = errors.New("reference is not resolvable yet")
)

// UnresolvedError reports which reference could not be resolved.
// The Ref field carries the template form of the offending reference.
type UnresolvedError struct {
	Ref string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("unresolved reference %s", e.Ref)
}

func (e *UnresolvedError) Unwrap() error {
	return ErrUnresolved
}

// =============================================================================
// Endpoint Properties
// =============================================================================

// EndpointProperty identifies a single property of an allocated endpoint.
type EndpointProperty string

const (
	PropertyHost   EndpointProperty = "host"
	PropertyPort   EndpointProperty = "port"
	PropertyScheme EndpointProperty = "scheme"
	PropertyURL    EndpointProperty = "url"
)

// =============================================================================
// Resolve Context
// =============================================================================

// ResolveContext supplies the current allocation state at resolve time.
// References never cache resolved values; each Resolve call reflects the
// state of the context it is given.
type ResolveContext interface {
	// ParameterValue returns the materialized value of a named parameter.
	ParameterValue(name string) (string, bool)

	// EndpointValue returns a property of a resource's named endpoint.
	// ok is false until the endpoint has been allocated.
	EndpointValue(resource, endpoint string, property EndpointProperty) (string, bool)
}

// =============================================================================
// Value References
// =============================================================================

// refKind discriminates the ValueRef variants.
type refKind int

const (
	kindLiteral refKind = iota
	kindParameter
	kindEndpointProperty
)

// ValueRef is a deferred reference to a scalar value. It is immutable once
// constructed. Template never fails; Resolve fails until the referenced
// parameter or endpoint exists in the context.
type ValueRef struct {
	kind refKind

	literal string

	parameter string

	resource string
	endpoint string
	property EndpointProperty
}

// Literal creates a reference that always resolves to the given text.
func Literal(text string) ValueRef {
	return ValueRef{kind: kindLiteral, literal: text}
}

// ParameterRef creates a reference to a named parameter.
//
// Example:
//
//	ParameterRef("ch1-password").Template() // "{ch1-password.value}"
func ParameterRef(name string) ValueRef {
	return ValueRef{kind: kindParameter, parameter: name}
}

// EndpointPropertyRef creates a reference to a property of a resource's
// named endpoint binding.
//
// Example:
//
//	EndpointPropertyRef("ch1", "http", PropertyHost).Template()
//	// "{ch1.bindings.http.host}"
func EndpointPropertyRef(resource, endpoint string, property EndpointProperty) ValueRef {
	return ValueRef{
		kind:     kindEndpointProperty,
		resource: resource,
		endpoint: endpoint,
		property: property,
	}
}

// IsLiteral reports whether the reference is a literal.
func (r ValueRef) IsLiteral() bool {
	return r.kind == kindLiteral
}

// Template renders the placeholder form of the reference. Literals render
// verbatim; parameter and endpoint references render as a dotted path in
// braces, derived deterministically from the reference identity.
func (r ValueRef) Template() string {
	switch r.kind {
	case kindLiteral:
		return r.literal
	case kindParameter:
		return fmt.Sprintf("{%s.value}", r.parameter)
	case kindEndpointProperty:
		return fmt.Sprintf("{%s.bindings.%s.%s}", r.resource, r.endpoint, r.property)
	default:
		return ""
	}
}

// Resolve evaluates the reference against the given context.
// Returns an *UnresolvedError when the referenced value is unavailable.
func (r ValueRef) Resolve(ctx ResolveContext) (string, error) {
	switch r.kind {
	case kindLiteral:
		return r.literal, nil
	case kindParameter:
		if ctx != nil {
			if v, ok := ctx.ParameterValue(r.parameter); ok {
				return v, nil
			}
		}
		return "", &UnresolvedError{Ref: r.Template()}
	case kindEndpointProperty:
		if ctx != nil {
			if v, ok := ctx.EndpointValue(r.resource, r.endpoint, r.property); ok {
				return v, nil
			}
		}
		return "", &UnresolvedError{Ref: r.Template()}
	default:
		return "", &UnresolvedError{Ref: r.Template()}
	}
}
