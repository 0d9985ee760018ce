package annotate

import (
	"fmt"

	"github.com/dshills/redline/internal/engine/textbuf"
)

// SpanID identifies one checker finding. IDs are unique per engine and
// stable for the lifetime of the generation that produced them; a span
// consumed by Apply or invalidated by an edit never reappears under the
// same ID.
type SpanID uint64

// Span is one checker finding anchored to a half-open rune range in the
// buffer. Choices holds candidate replacement strings in service order;
// an empty Choices means the finding is informational-only and cannot
// be applied.
type Span struct {
	ID      SpanID
	Range   textbuf.Range
	Message string
	Choices []string
}

// IsActionable returns true if the span has at least one replacement
// choice.
func (s Span) IsActionable() bool {
	return len(s.Choices) > 0
}

// String returns a human-readable representation of the span.
func (s Span) String() string {
	return fmt.Sprintf("span %d %s %q", s.ID, s.Range, s.Message)
}
