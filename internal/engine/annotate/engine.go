package annotate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dshills/redline/internal/checker"
	"github.com/dshills/redline/internal/engine/textbuf"
)

// State describes what the engine is currently doing.
type State uint8

const (
	// StateIdle means no request is outstanding. The current set may be
	// fresh or stale.
	StateIdle State = iota

	// StateChecking means at least one checker request is outstanding.
	StateChecking

	// StateApplying is the transient state during a single Apply call.
	StateApplying
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateChecking:
		return "checking"
	case StateApplying:
		return "applying"
	default:
		return "unknown"
	}
}

// FindingFilter inspects a raw finding before it enters the annotation
// set. Returning false suppresses the finding.
type FindingFilter func(checker.Finding) (checker.Finding, bool)

// ChangeHandler is called after the annotation set changes.
type ChangeHandler func(set *Set)

// defaultNotifyDelay debounces change notifications.
const defaultNotifyDelay = 50 * time.Millisecond

// Engine owns exactly one text buffer and exactly one current
// annotation set, for the lifetime of the open note. It orchestrates
// checker refreshes, replacement application, and span invalidation.
// All operations are serialized by a single mutex; the checker call
// itself runs outside the protected section so the buffer stays
// editable while a request is outstanding.
type Engine struct {
	mu sync.Mutex

	buf    *textbuf.Buffer
	set    *Set
	client checker.Client
	filter FindingFilter

	generation Generation
	nextSpanID SpanID
	state      State
	checking   int    // outstanding refresh count
	reqSeq     uint64 // newest request sequence number

	// Debounced change notification with version tracking to avoid
	// stale callbacks.
	onChange      ChangeHandler
	notifyDelay   time.Duration
	notifyVersion uint64
	pendingNotify *time.Timer
}

// Option configures an Engine.
type Option func(*Engine)

// WithClient sets the checker client used by Refresh.
func WithClient(c checker.Client) Option {
	return func(e *Engine) {
		e.client = c
	}
}

// WithFindingFilter sets a filter applied to raw findings before they
// enter the annotation set.
func WithFindingFilter(f FindingFilter) Option {
	return func(e *Engine) {
		e.filter = f
	}
}

// WithChangeHandler sets a callback for annotation set changes.
func WithChangeHandler(h ChangeHandler) Option {
	return func(e *Engine) {
		e.onChange = h
	}
}

// WithNotifyDelay sets the debounce delay for change notifications.
func WithNotifyDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.notifyDelay = d
	}
}

// NewEngine creates an engine owning the given buffer.
func NewEngine(buf *textbuf.Buffer, opts ...Option) *Engine {
	e := &Engine{
		buf:         buf,
		set:         EmptySet(0),
		notifyDelay: defaultNotifyDelay,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Buffer returns the buffer the engine owns.
func (e *Engine) Buffer() *textbuf.Buffer {
	return e.buf
}

// Set returns the current annotation set. Sets are immutable; the
// returned value stays consistent even while the engine keeps working.
func (e *Engine) Set() *Set {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.set
}

// Generation returns the current generation counter.
func (e *Engine) Generation() Generation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}

// State returns the engine state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.checking > 0 {
		return StateChecking
	}
	return e.state
}

// Refresh submits the full buffer text to the checker and replaces the
// annotation set with a new generation built from the response.
//
// The network call runs outside the engine lock, so Apply, Edit and
// DiscardStaleSpans remain callable while the request is outstanding.
// If the buffer is edited before the response arrives, the response is
// discarded and ErrStaleResponse is returned. If a newer Refresh
// supersedes this one, the response is discarded and ErrSuperseded is
// returned. On any failure the set is left at its last good generation.
func (e *Engine) Refresh(ctx context.Context) error {
	e.mu.Lock()
	if e.client == nil {
		e.mu.Unlock()
		return ErrNoClient
	}
	snap := e.buf.Snapshot()
	e.reqSeq++
	seq := e.reqSeq
	e.checking++
	e.mu.Unlock()

	findings, err := e.client.Check(ctx, snap.Text())

	e.mu.Lock()
	defer e.mu.Unlock()
	e.checking--

	if seq != e.reqSeq {
		return ErrSuperseded
	}
	if err != nil {
		return fmt.Errorf("checking note: %w", err)
	}
	if snap.Revision() != e.buf.Revision() {
		return ErrStaleResponse
	}

	if e.filter != nil {
		kept := findings[:0:0]
		for _, f := range findings {
			if out, ok := e.filter(f); ok {
				kept = append(kept, out)
			}
		}
		findings = kept
	}

	e.generation++
	spans := buildSpans(findings, e.buf.Len(), e.allocSpanID)
	e.set = newSet(e.generation, spans)
	e.scheduleNotifyLocked()

	return nil
}

// Apply replaces the span's range in the buffer with the chosen
// replacement, removes the span, and re-anchors every remaining span
// after the edited region by the length delta. Any remaining span that
// overlapped the edited range is dropped defensively. The generation is
// bumped; the engine never auto-refreshes after an apply.
func (e *Engine) Apply(id SpanID, choiceIndex int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	sp, ok := e.set.Get(id)
	if !ok {
		return ErrSpanNotFound
	}
	if choiceIndex < 0 || choiceIndex >= len(sp.Choices) {
		return fmt.Errorf("%w: %d of %d", ErrChoiceOutOfRange, choiceIndex, len(sp.Choices))
	}

	e.state = StateApplying
	defer func() { e.state = StateIdle }()

	lenBefore := e.buf.Len()
	if err := e.buf.Splice(sp.Range.Start, sp.Range.End, sp.Choices[choiceIndex]); err != nil {
		return err
	}
	delta := e.buf.Len() - lenBefore

	kept := make([]Span, 0, e.set.Len())
	for _, other := range e.set.Spans() {
		if other.ID == id {
			continue
		}
		switch {
		case other.Range.End <= sp.Range.Start:
			kept = append(kept, other)
		case other.Range.Start >= sp.Range.End:
			other.Range = other.Range.Shift(delta)
			kept = append(kept, other)
		default:
			// Overlapped the edited range. The non-overlap invariant
			// should make this unreachable; drop rather than shift.
		}
	}

	e.generation++
	e.set = newSet(e.generation, kept)
	e.scheduleNotifyLocked()

	return nil
}

// Edit splices the buffer through the engine and invalidates spans
// touched by the edit. This is the path for free-form typing.
func (e *Engine) Edit(start, end textbuf.Offset, replacement string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	lenBefore := e.buf.Len()
	if err := e.buf.Splice(start, end, replacement); err != nil {
		return err
	}
	delta := e.buf.Len() - lenBefore

	e.discardStaleLocked(start, end, delta)
	return nil
}

// DiscardStaleSpans invalidates spans after a buffer edit made outside
// the engine. The edit replaced [editStart, editEnd) in the old
// coordinate space and changed the buffer length by delta. Spans
// intersecting the edited range are removed; spans entirely at or after
// editEnd are shifted by delta; spans entirely before editStart are
// untouched.
func (e *Engine) DiscardStaleSpans(editStart, editEnd textbuf.Offset, delta textbuf.Offset) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.discardStaleLocked(editStart, editEnd, delta)
}

func (e *Engine) discardStaleLocked(editStart, editEnd, delta textbuf.Offset) {
	kept := make([]Span, 0, e.set.Len())
	for _, sp := range e.set.Spans() {
		switch {
		case sp.Range.End <= editStart:
			kept = append(kept, sp)
		case sp.Range.Start >= editEnd:
			sp.Range = sp.Range.Shift(delta)
			kept = append(kept, sp)
		default:
			// Intersects the edit: offsets no longer correspond to the
			// text the user sees.
		}
	}

	e.generation++
	e.set = newSet(e.generation, kept)
	e.scheduleNotifyLocked()
}

// Close cancels any pending change notification.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pendingNotify != nil {
		e.pendingNotify.Stop()
		e.pendingNotify = nil
	}
	e.notifyVersion++
}

func (e *Engine) allocSpanID() SpanID {
	e.nextSpanID++
	return e.nextSpanID
}

// scheduleNotifyLocked schedules a debounced change notification. A
// newer change invalidates a pending one, so handlers only ever see the
// latest set (must hold lock).
func (e *Engine) scheduleNotifyLocked() {
	if e.onChange == nil {
		return
	}

	if e.pendingNotify != nil {
		e.pendingNotify.Stop()
	}

	e.notifyVersion++
	version := e.notifyVersion
	set := e.set

	e.pendingNotify = time.AfterFunc(e.notifyDelay, func() {
		e.mu.Lock()
		if version != e.notifyVersion {
			e.mu.Unlock()
			return // superseded by a newer change
		}
		e.pendingNotify = nil
		handler := e.onChange
		e.mu.Unlock()

		if handler != nil {
			handler(set)
		}
	})
}
