package app

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/sjson"

	"github.com/dshills/redline/internal/engine/annotate"
	"github.com/dshills/redline/internal/engine/textbuf"
)

// exportReport serializes the findings of one note as a JSON document
// suitable for sharing or archiving. The covered text of each span is
// included so the report stands alone without the note.
func exportReport(name string, snap *textbuf.Snapshot, set *annotate.Set) (string, error) {
	doc := "{}"
	var err error

	setField := func(path string, value any) {
		if err != nil {
			return
		}
		doc, err = sjson.Set(doc, path, value)
	}

	setField("report_id", uuid.NewString())
	setField("generated_at", time.Now().UTC().Format(time.RFC3339))
	setField("note", name)
	setField("generation", uint64(set.Generation()))
	setField("findings", []any{})

	for i, sp := range set.Spans() {
		covered, sliceErr := snap.Slice(sp.Range.Start, sp.Range.End)
		if sliceErr != nil {
			return "", fmt.Errorf("report for %s: %w", name, sliceErr)
		}

		prefix := fmt.Sprintf("findings.%d.", i)
		setField(prefix+"id", uint64(sp.ID))
		setField(prefix+"start", sp.Range.Start)
		setField(prefix+"end", sp.Range.End)
		setField(prefix+"text", covered)
		setField(prefix+"message", sp.Message)
		setField(prefix+"actionable", sp.IsActionable())
		setField(prefix+"choices", append([]string{}, sp.Choices...))
	}

	if err != nil {
		return "", fmt.Errorf("report for %s: %w", name, err)
	}
	return doc, nil
}
