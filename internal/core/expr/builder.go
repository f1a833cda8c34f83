package expr

// =============================================================================
// Builder
// =============================================================================

// Builder accumulates expression segments in order. The zero value is ready
// to use. Build freezes the sequence; the builder may be reused afterwards
// without affecting already-built expressions.
type Builder struct {
	segments []segment
}

// AppendLiteral adds a literal fragment verbatim. No escaping is applied;
// the caller is responsible for valid connection-string syntax.
func (b *Builder) AppendLiteral(text string) *Builder {
	b.segments = append(b.segments, segment{literal: text})
	return b
}

// AppendRef adds a resolvable segment.
func (b *Builder) AppendRef(ref ValueRef) *Builder {
	b.segments = append(b.segments, segment{ref: ref, isRef: true})
	return b
}

// Build freezes the current segment sequence into an Expression.
func (b *Builder) Build() Expression {
	segs := make([]segment, len(b.segments))
	copy(segs, b.segments)
	return Expression{segments: segs}
}
