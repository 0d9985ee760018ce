// Package app wires the note store, checker client, and annotation
// engines into one editing session. The UI talks to a Session; the
// Session owns one engine per open note so switching notes never loses
// findings or in-flight checks.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dshills/redline/internal/checker"
	"github.com/dshills/redline/internal/engine/annotate"
	"github.com/dshills/redline/internal/engine/textbuf"
	"github.com/dshills/redline/internal/notestore"
	"github.com/dshills/redline/internal/renderer/linerun"
)

// ErrNoNote is returned by operations that need an open note when none
// is open.
var ErrNoNote = errors.New("no note open")

// StatusHandler receives human-readable status messages for the UI
// status line. Checker failures arrive here instead of aborting the
// session.
type StatusHandler func(msg string)

// SetChangedHandler is called when the current note's annotation set
// changes and the view should redraw.
type SetChangedHandler func()

// note is one open note with its own buffer and annotation engine.
type note struct {
	name  string
	buf   *textbuf.Buffer
	eng   *annotate.Engine
	dirty bool
}

// Session coordinates the store, the checker, and per-note annotation
// engines for one run of the editor.
type Session struct {
	mu sync.Mutex

	store  notestore.Store
	client checker.Client
	filter annotate.FindingFilter

	status    StatusHandler
	onChanged SetChangedHandler

	notes   map[string]*note
	current string
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithChecker sets the checker client used by all notes.
func WithChecker(c checker.Client) SessionOption {
	return func(s *Session) {
		s.client = c
	}
}

// WithFindingFilter sets the filter applied to raw findings.
func WithFindingFilter(f annotate.FindingFilter) SessionOption {
	return func(s *Session) {
		s.filter = f
	}
}

// WithStatusHandler sets the status message sink.
func WithStatusHandler(h StatusHandler) SessionOption {
	return func(s *Session) {
		s.status = h
	}
}

// WithSetChangedHandler sets the redraw notification callback.
func WithSetChangedHandler(h SetChangedHandler) SessionOption {
	return func(s *Session) {
		s.onChanged = h
	}
}

// NewSession creates a session over the given note store.
func NewSession(store notestore.Store, opts ...SessionOption) *Session {
	s := &Session{
		store: store,
		notes: make(map[string]*note),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the note names available in the store.
func (s *Session) List() ([]string, error) {
	return s.store.List()
}

// Open loads the named note from the store and makes it current. A
// note that is already open keeps its engine and findings.
func (s *Session) Open(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notes[name]; ok {
		s.current = name
		return nil
	}

	content, err := s.store.Read(name)
	if err != nil {
		return err
	}

	s.openLocked(name, content, false)
	return nil
}

// New creates an empty note in memory and makes it current. The note
// reaches the store on the first Save.
func (s *Session) New(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notes[name]; ok {
		return fmt.Errorf("note %q already open", name)
	}

	s.openLocked(name, "", true)
	return nil
}

// OpenExternal imports a file from outside the store and opens it as a
// dirty note.
func (s *Session) OpenExternal(ctx context.Context) (string, error) {
	name, content, err := s.store.OpenExternal(ctx)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.openLocked(name, content, true)
	return name, nil
}

// openLocked registers a note and its engine. Caller holds s.mu.
func (s *Session) openLocked(name, content string, dirty bool) {
	buf := textbuf.NewBufferFromString(content)

	opts := []annotate.Option{annotate.WithClient(s.client)}
	if s.filter != nil {
		opts = append(opts, annotate.WithFindingFilter(s.filter))
	}
	if s.onChanged != nil {
		h := s.onChanged
		opts = append(opts, annotate.WithChangeHandler(func(*annotate.Set) { h() }))
	}

	s.notes[name] = &note{
		name:  name,
		buf:   buf,
		eng:   annotate.NewEngine(buf, opts...),
		dirty: dirty,
	}
	s.current = name
}

// Save writes the current note back to the store.
func (s *Session) Save() error {
	s.mu.Lock()
	n := s.currentLocked()
	s.mu.Unlock()
	if n == nil {
		return ErrNoNote
	}

	if err := s.store.Write(n.name, n.buf.Text()); err != nil {
		return err
	}

	s.mu.Lock()
	n.dirty = false
	s.mu.Unlock()
	return nil
}

// SaveExternal exports the current note to a path outside the store.
func (s *Session) SaveExternal(ctx context.Context) (string, error) {
	s.mu.Lock()
	n := s.currentLocked()
	s.mu.Unlock()
	if n == nil {
		return "", ErrNoNote
	}

	return s.store.SaveExternal(ctx, n.buf.Text())
}

// Check submits the current note to the checker. Superseded and stale
// results are normal during editing and are not reported as errors;
// real checker failures go to the status handler and are returned.
func (s *Session) Check(ctx context.Context) error {
	s.mu.Lock()
	n := s.currentLocked()
	s.mu.Unlock()
	if n == nil {
		return ErrNoNote
	}

	err := n.eng.Refresh(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, annotate.ErrSuperseded), errors.Is(err, annotate.ErrStaleResponse):
		return nil
	default:
		s.report("check failed: %v", err)
		return err
	}
}

// Accept applies the chosen correction for a span in the current note.
func (s *Session) Accept(id annotate.SpanID, choiceIndex int) error {
	s.mu.Lock()
	n := s.currentLocked()
	s.mu.Unlock()
	if n == nil {
		return ErrNoNote
	}

	if err := n.eng.Apply(id, choiceIndex); err != nil {
		return err
	}

	s.mu.Lock()
	n.dirty = true
	s.mu.Unlock()
	return nil
}

// EditRange replaces a range of the current note with new text,
// discarding findings the edit invalidates.
func (s *Session) EditRange(start, end textbuf.Offset, replacement string) error {
	s.mu.Lock()
	n := s.currentLocked()
	s.mu.Unlock()
	if n == nil {
		return ErrNoNote
	}

	if err := n.eng.Edit(start, end, replacement); err != nil {
		return err
	}

	s.mu.Lock()
	n.dirty = true
	s.mu.Unlock()
	return nil
}

// Layout renders the current note as lines of highlight runs.
func (s *Session) Layout() []linerun.Line {
	s.mu.Lock()
	n := s.currentLocked()
	s.mu.Unlock()
	if n == nil {
		return nil
	}
	return linerun.Layout(n.buf.Snapshot(), n.eng.Set())
}

// Spans returns the current note's findings in offset order.
func (s *Session) Spans() []annotate.Span {
	s.mu.Lock()
	n := s.currentLocked()
	s.mu.Unlock()
	if n == nil {
		return nil
	}
	return n.eng.Set().Spans()
}

// Span looks up one finding by ID in the current note.
func (s *Session) Span(id annotate.SpanID) (annotate.Span, bool) {
	s.mu.Lock()
	n := s.currentLocked()
	s.mu.Unlock()
	if n == nil {
		return annotate.Span{}, false
	}
	return n.eng.Set().Get(id)
}

// Text returns the current note's content.
func (s *Session) Text() string {
	s.mu.Lock()
	n := s.currentLocked()
	s.mu.Unlock()
	if n == nil {
		return ""
	}
	return n.buf.Text()
}

// CurrentName returns the name of the current note, or "" if none.
func (s *Session) CurrentName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Dirty reports whether the current note has unsaved changes.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := s.currentLocked(); n != nil {
		return n.dirty
	}
	return false
}

// Report exports the current note's findings as JSON.
func (s *Session) Report() (string, error) {
	s.mu.Lock()
	n := s.currentLocked()
	s.mu.Unlock()
	if n == nil {
		return "", ErrNoNote
	}
	return exportReport(n.name, n.buf.Snapshot(), n.eng.Set())
}

// Close shuts down every open engine.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notes {
		n.eng.Close()
	}
	s.notes = make(map[string]*note)
	s.current = ""
}

// currentLocked returns the current note. Caller holds s.mu.
func (s *Session) currentLocked() *note {
	if s.current == "" {
		return nil
	}
	return s.notes[s.current]
}

// report formats a status message if a handler is installed.
func (s *Session) report(format string, args ...any) {
	if s.status != nil {
		s.status(fmt.Sprintf(format, args...))
	}
}
