package textbuf

// Snapshot is an immutable view of buffer content at a single
// revision. It is safe to share across goroutines and to read while
// the originating buffer keeps mutating.
type Snapshot struct {
	content  []rune
	revision RevisionID
}

// Text returns the snapshot content as a string.
func (s *Snapshot) Text() string {
	return string(s.content)
}

// Len returns the rune count of the snapshot.
func (s *Snapshot) Len() Offset {
	return len(s.content)
}

// Runes returns the snapshot content. Callers must not modify the
// returned slice.
func (s *Snapshot) Runes() []rune {
	return s.content
}

// Slice returns the substring in the given rune range.
func (s *Snapshot) Slice(start, end Offset) (string, error) {
	if start < 0 || start > end || end > len(s.content) {
		return "", ErrRangeInvalid
	}
	return string(s.content[start:end]), nil
}

// Revision returns the revision the snapshot was taken at.
func (s *Snapshot) Revision() RevisionID {
	return s.revision
}
