// Package annotate anchors grammar-checker findings to rune ranges in
// a text buffer and keeps them consistent across edits.
//
// A Span is one finding; a Set is the current disjoint, sorted,
// generation-tagged collection of spans; the Engine orchestrates
// checker refreshes, replacement application, and span invalidation.
//
// The single most important correctness property of the package is
// that highlighting and replacement never operate on offsets that no
// longer correspond to the text the user sees: every buffer edit either
// shifts or discards the spans it affects, and checker responses that
// raced with an edit are discarded by a revision comparison.
package annotate
