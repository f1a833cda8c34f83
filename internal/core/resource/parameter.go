package resource

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/clickhost/clickhost/internal/core/expr"
)

// =============================================================================
// Parameter Resource
// =============================================================================

// ParameterResource is a named scalar parameter, typically a generated
// password. Its value is materialized by the shell and stored in the
// registry; consumers hold a deferred reference to it.
type ParameterResource struct {
	name   string
	secret bool
}

// NewParameterResource creates a parameter resource.
func NewParameterResource(name string, secret bool) (*ParameterResource, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name", ErrNameRequired)
	}
	return &ParameterResource{name: name, secret: secret}, nil
}

// Name returns the resource name.
func (p *ParameterResource) Name() string {
	return p.name
}

// Secret reports whether the parameter's value is sensitive and must not be
// exposed in manifest output.
func (p *ParameterResource) Secret() bool {
	return p.secret
}

// ValueRef returns the deferred reference to this parameter's value.
//
// Example:
//
//	p.ValueRef().Template() // "{ch1-password.value}"
func (p *ParameterResource) ValueRef() expr.ValueRef {
	return expr.ParameterRef(p.name)
}

// ConnectionProperties returns the single (Value, reference) pair.
func (p *ParameterResource) ConnectionProperties() []Property {
	return []Property{{Key: "Value", Value: p.ValueRef()}}
}

// =============================================================================
// Password Generation
// =============================================================================

// passwordAlphabet avoids characters that need quoting in connection
// strings or shell environments.
const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GeneratePassword returns a random password of the given length drawn from
// an URL- and connection-string-safe alphabet.
func GeneratePassword(length int) string {
	if length <= 0 {
		length = 22
	}
	out := make([]byte, length)
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the platform source is broken;
			// fall back to the first character rather than panic.
			out[i] = passwordAlphabet[0]
			continue
		}
		out[i] = passwordAlphabet[n.Int64()]
	}
	return string(out)
}
