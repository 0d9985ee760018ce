package checker

import "context"

// Finding is one raw grammar/style finding reported by a checker
// service. Offset and Length are rune counts into the exact text that
// was submitted, regardless of the encoding the service itself reports
// offsets in. Replacements may be empty for informational findings.
type Finding struct {
	Message      string
	Offset       int
	Length       int
	Replacements []string
}

// Client submits text to a grammar/style checker and returns its
// findings. Implementations perform network I/O and must honor the
// context for cancellation.
type Client interface {
	Check(ctx context.Context, text string) ([]Finding, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, text string) ([]Finding, error)

// Check implements Client.
func (f ClientFunc) Check(ctx context.Context, text string) ([]Finding, error) {
	return f(ctx, text)
}
