package textbuf

import (
	"fmt"
	"sync/atomic"
)

// Offset is a rune position in the buffer. It counts Unicode scalar
// values from the start of the content, never bytes.
type Offset = int

// Range represents a rune range in the buffer.
// Start is inclusive, End is exclusive: [Start, End).
type Range struct {
	Start Offset // Inclusive start position
	End   Offset // Exclusive end position
}

// NewRange creates a new Range from start and end offsets.
func NewRange(start, end Offset) Range {
	return Range{Start: start, End: end}
}

// String returns a human-readable representation of the range.
func (r Range) String() string {
	return fmt.Sprintf("[%d:%d)", r.Start, r.End)
}

// Len returns the length of the range in runes.
func (r Range) Len() Offset {
	return r.End - r.Start
}

// IsEmpty returns true if the range has zero length.
func (r Range) IsEmpty() bool {
	return r.Start == r.End
}

// IsValid returns true if the range is valid (0 <= Start <= End).
func (r Range) IsValid() bool {
	return r.Start >= 0 && r.Start <= r.End
}

// Contains returns true if the given offset is within the range.
func (r Range) Contains(offset Offset) bool {
	return offset >= r.Start && offset < r.End
}

// Overlaps returns true if this range overlaps with another range.
func (r Range) Overlaps(other Range) bool {
	return r.Start < other.End && other.Start < r.End
}

// Shift returns a new range shifted by the given delta.
func (r Range) Shift(delta Offset) Range {
	return Range{
		Start: r.Start + delta,
		End:   r.End + delta,
	}
}

// RevisionID uniquely identifies a buffer revision.
// Each modification to the buffer creates a new revision.
type RevisionID uint64

// revisionCounter is used to generate unique revision IDs.
var revisionCounter uint64

// NewRevisionID generates a new unique revision ID.
// This is thread-safe using atomic operations.
func NewRevisionID() RevisionID {
	return RevisionID(atomic.AddUint64(&revisionCounter, 1))
}
