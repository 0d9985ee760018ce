// Package linerun projects a buffer snapshot and its annotation set
// into a sequence of styled runs per line, for presentation by a UI
// layer. The projection is pure: it does no I/O, mutates nothing, and
// recomputing it every presentation tick yields identical output for
// unchanged input.
package linerun

import (
	"strings"

	"github.com/rivo/uniseg"

	"github.com/dshills/redline/internal/engine/annotate"
	"github.com/dshills/redline/internal/engine/textbuf"
)

// Run is a maximal contiguous stretch of text within one line sharing
// the same highlight status. A highlighted run carries the ID of the
// span it belongs to; a span truncated at a line boundary contributes a
// run on each affected line, all carrying the same SpanID.
type Run struct {
	Text        string
	Highlighted bool
	SpanID      annotate.SpanID // zero when not highlighted
}

// Width returns the display-cell width of the run, segmented by
// grapheme cluster so combining sequences and emoji count correctly.
func (r Run) Width() int {
	return uniseg.StringWidth(r.Text)
}

// Line is one rendered line. Line terminators count toward buffer
// offsets but appear in no run's text.
type Line struct {
	Runs []Run
}

// Text returns the plain text of the line.
func (l Line) Text() string {
	var sb strings.Builder
	for _, r := range l.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// Layout walks the snapshot's flat rune offset space once, merging in
// the sorted span list with a single forward cursor, and coalesces
// consecutive runes with the same highlight status into runs.
// Zero-length spans produce no run.
func Layout(snap *textbuf.Snapshot, set *annotate.Set) []Line {
	runes := snap.Runes()

	var spans []annotate.Span
	if set != nil {
		spans = set.Spans()
	}

	lines := make([]Line, 0, 8)
	cur := Line{}

	var sb strings.Builder
	var runHL bool
	var runID annotate.SpanID

	flush := func() {
		if sb.Len() == 0 {
			return
		}
		cur.Runs = append(cur.Runs, Run{
			Text:        sb.String(),
			Highlighted: runHL,
			SpanID:      runID,
		})
		sb.Reset()
	}

	spanIdx := 0
	for offset, r := range runes {
		// Advance the span cursor past spans that ended at or before
		// this offset; zero-length spans are skipped the same way.
		for spanIdx < len(spans) && spans[spanIdx].Range.End <= offset {
			spanIdx++
		}

		hl := false
		var id annotate.SpanID
		if spanIdx < len(spans) && spans[spanIdx].Range.Contains(offset) {
			hl = true
			id = spans[spanIdx].ID
		}

		if r == '\n' {
			flush()
			lines = append(lines, cur)
			cur = Line{}
			continue
		}

		if sb.Len() > 0 && (hl != runHL || id != runID) {
			flush()
		}
		runHL = hl
		runID = id
		sb.WriteRune(r)
	}

	flush()
	lines = append(lines, cur)

	return lines
}
