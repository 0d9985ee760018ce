package annotate

import "errors"

// Standard errors returned by the annotation engine.
var (
	// ErrNoClient indicates no checker client is configured.
	ErrNoClient = errors.New("no checker client configured")

	// ErrSpanNotFound indicates the span ID is absent from the current
	// set, typically because the set was refreshed or the span was
	// already consumed.
	ErrSpanNotFound = errors.New("span not found")

	// ErrChoiceOutOfRange indicates the replacement choice index is
	// invalid for the span.
	ErrChoiceOutOfRange = errors.New("choice index out of range")

	// ErrStaleResponse indicates a checker response was discarded
	// because the buffer was edited while the request was outstanding.
	ErrStaleResponse = errors.New("stale checker response discarded")

	// ErrSuperseded indicates a checker response was discarded because
	// a newer refresh superseded the request.
	ErrSuperseded = errors.New("refresh superseded by a newer request")
)
