// Package textbuf provides a thread-safe, rune-indexed text buffer for
// note content.
//
// Every offset used anywhere in the system is a rune-boundary offset
// into the buffer content. The buffer never exposes byte indexing, so
// multi-byte characters cannot be split by a slice or splice.
//
// Basic usage:
//
//	buf := textbuf.NewBufferFromString("Teh cat sat.")
//	buf.Splice(0, 3, "The")
//	text := buf.Text() // "The cat sat."
//
// Use Snapshot() to obtain a consistent read-only view for rendering
// or for submitting text to an external service while edits continue.
package textbuf
