package annotate

import (
	"sort"

	"github.com/dshills/redline/internal/checker"
	"github.com/dshills/redline/internal/engine/textbuf"
)

// Generation distinguishes buffer/annotation states across refresh and
// apply cycles. Spans from an old generation must never be applied to a
// buffer of a newer generation.
type Generation uint64

// Set is a generation-tagged, disjoint collection of spans sorted
// ascending by range start. A Set is immutable after construction; the
// engine replaces the whole set on every change.
type Set struct {
	generation Generation
	spans      []Span
}

// EmptySet returns a set with no spans at the given generation.
func EmptySet(gen Generation) *Set {
	return &Set{generation: gen}
}

// newSet wraps already-validated, sorted, disjoint spans.
func newSet(gen Generation, spans []Span) *Set {
	return &Set{generation: gen, spans: spans}
}

// Generation returns the set's generation tag.
func (s *Set) Generation() Generation {
	return s.generation
}

// Len returns the number of spans.
func (s *Set) Len() int {
	return len(s.spans)
}

// Spans returns the spans in ascending start order. Callers must not
// modify the returned slice.
func (s *Set) Spans() []Span {
	return s.spans
}

// Get looks up a span by ID.
func (s *Set) Get(id SpanID) (Span, bool) {
	for _, sp := range s.spans {
		if sp.ID == id {
			return sp, true
		}
	}
	return Span{}, false
}

// buildSpans validates raw findings against the current buffer length
// and produces a disjoint, sorted span list. A finding whose range is
// inverted, negative, or extends past the buffer is dropped rather than
// trusted. Overlaps are resolved by keeping the first (lowest start)
// span and dropping any later span that begins before the previous one
// ends.
func buildSpans(findings []checker.Finding, bufLen textbuf.Offset, nextID func() SpanID) []Span {
	candidates := make([]checker.Finding, 0, len(findings))
	for _, f := range findings {
		if f.Offset < 0 || f.Length < 0 || f.Offset+f.Length > bufLen {
			continue
		}
		candidates = append(candidates, f)
	}

	// The service is expected to return matches pre-sorted; sort
	// defensively so overlap resolution is well defined regardless.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Offset < candidates[j].Offset
	})

	spans := make([]Span, 0, len(candidates))
	prevEnd := -1
	for _, f := range candidates {
		if f.Offset < prevEnd {
			continue // overlaps the previous span
		}
		spans = append(spans, Span{
			ID:      nextID(),
			Range:   textbuf.NewRange(f.Offset, f.Offset+f.Length),
			Message: f.Message,
			Choices: f.Replacements,
		})
		prevEnd = f.Offset + f.Length
	}

	return spans
}
