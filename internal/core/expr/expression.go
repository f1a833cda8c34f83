package expr

import "strings"

// =============================================================================
// Expression
// =============================================================================

// segment is one element of an expression: either a literal fragment or a
// value reference. Exactly one field is meaningful per segment.
type segment struct {
	literal string
	ref     ValueRef
	isRef   bool
}

// Expression is a frozen, ordered sequence of literal fragments and value
// references. Segment order is significant: it reproduces the exact output
// format of the connection string.
type Expression struct {
	segments []segment
}

// Template renders the expression with references as placeholders.
// Never fails; used for manifest and introspection output.
//
// Example:
//
//	"Host={ch1.bindings.http.host};Port={ch1.bindings.http.port};Username=default"
func (e Expression) Template() string {
	var b strings.Builder
	for _, s := range e.segments {
		if s.isRef {
			b.WriteString(s.ref.Template())
		} else {
			b.WriteString(s.literal)
		}
	}
	return b.String()
}

// Resolve evaluates every reference against ctx and concatenates the result.
// Fails with the first unresolved reference.
func (e Expression) Resolve(ctx ResolveContext) (string, error) {
	var b strings.Builder
	for _, s := range e.segments {
		if !s.isRef {
			b.WriteString(s.literal)
			continue
		}
		v, err := s.ref.Resolve(ctx)
		if err != nil {
			return "", err
		}
		b.WriteString(v)
	}
	return b.String(), nil
}

// Empty reports whether the expression has no segments.
func (e Expression) Empty() bool {
	return len(e.segments) == 0
}
