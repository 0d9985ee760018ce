package textbuf

import (
	"errors"
	"strings"
	"sync"
)

// Errors returned by buffer operations.
var (
	ErrRangeInvalid = errors.New("invalid range")
)

// Buffer owns the mutable note text. Content is a sequence of Unicode
// scalar values; every offset accepted or produced by the buffer is a
// rune-boundary offset, never a raw byte index. All methods are
// thread-safe.
type Buffer struct {
	mu       sync.RWMutex
	content  []rune
	revision RevisionID
}

// NewBuffer creates a new empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{
		revision: NewRevisionID(),
	}
}

// NewBufferFromString creates a buffer with initial content.
// Line endings are normalized to LF.
func NewBufferFromString(s string) *Buffer {
	b := NewBuffer()
	b.content = []rune(normalizeLineEndings(s))
	return b
}

// normalizeLineEndings converts CRLF and CR line endings to LF.
func normalizeLineEndings(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return s
}

// Read Operations

// Text returns the full buffer content as a string.
func (b *Buffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return string(b.content)
}

// Slice returns the substring in the given rune range.
func (b *Buffer) Slice(start, end Offset) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if start < 0 || start > end || end > len(b.content) {
		return "", ErrRangeInvalid
	}
	return string(b.content[start:end]), nil
}

// Len returns the rune count of the buffer. It stays exact after
// every splice.
func (b *Buffer) Len() Offset {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.content)
}

// LineCount returns the number of lines. An empty buffer has one line.
func (b *Buffer) LineCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 1
	for _, r := range b.content {
		if r == '\n' {
			count++
		}
	}
	return count
}

// Line returns the content of line i (zero-based) without its
// terminator.
func (b *Buffer) Line(i int) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if i < 0 {
		return "", ErrRangeInvalid
	}

	line := 0
	start := 0
	for pos, r := range b.content {
		if line == i && r == '\n' {
			return string(b.content[start:pos]), nil
		}
		if r == '\n' {
			line++
			start = pos + 1
		}
	}
	if line == i {
		return string(b.content[start:]), nil
	}
	return "", ErrRangeInvalid
}

// IsEmpty returns true if the buffer is empty.
func (b *Buffer) IsEmpty() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.content) == 0
}

// Write Operations

// Splice replaces the given rune range with replacement text. The edit
// is atomic: either the whole splice succeeds or the buffer is
// unchanged. The buffer length shifts by the rune count of the
// replacement minus the length of the removed range.
func (b *Buffer) Splice(start, end Offset, replacement string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if start < 0 || start > end || end > len(b.content) {
		return ErrRangeInvalid
	}

	repl := []rune(normalizeLineEndings(replacement))

	next := make([]rune, 0, len(b.content)-(end-start)+len(repl))
	next = append(next, b.content[:start]...)
	next = append(next, repl...)
	next = append(next, b.content[end:]...)

	b.content = next
	b.revision = NewRevisionID()
	return nil
}

// Buffer State

// Revision returns the current revision ID. It changes on every
// mutation and is used to detect stale asynchronous results.
func (b *Buffer) Revision() RevisionID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.revision
}

// Snapshot returns a read-only snapshot of the current buffer state.
// Safe for concurrent access from other goroutines.
func (b *Buffer) Snapshot() *Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	content := make([]rune, len(b.content))
	copy(content, b.content)

	return &Snapshot{
		content:  content,
		revision: b.revision,
	}
}
