package appspec

import (
	"errors"
	"fmt"
)

// =============================================================================
// Errors
// =============================================================================

var (
	ErrEmptyInput       = errors.New("application spec is empty")
	ErrInvalidYAML      = errors.New("application spec is not valid YAML")
	ErrNoServers        = errors.New("application spec must declare at least one server")
	ErrPasswordConflict = errors.New("password cannot both be generated and carry a value")
)

// ParseError wraps a spec error with the location that caused it.
type ParseError struct {
	Server  string // server entry the error belongs to, if known
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Server != "" {
		return fmt.Sprintf("server %s: %s", e.Server, e.Message)
	}
	return e.Message
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError.
func NewParseError(server, message string, err error) *ParseError {
	return &ParseError{Server: server, Message: message, Err: err}
}
