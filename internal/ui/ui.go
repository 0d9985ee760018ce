// Package ui implements the terminal interface: a note list pane, an
// editor view that draws checker findings as highlighted runs, and a
// status line. All session mutations happen on the event loop
// goroutine; background work reports back through tcell interrupt
// events.
package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/dshills/redline/internal/app"
	"github.com/dshills/redline/internal/engine/annotate"
	"github.com/dshills/redline/internal/notestore"
)

// ErrQuit signals a normal user-requested exit.
var ErrQuit = errors.New("quit")

// listWidth is the width of the note list pane in cells.
const listWidth = 24

// focus identifies which pane receives key input.
type focus int

const (
	focusEditor focus = iota
	focusList
)

// UI owns the tcell screen and drives the session from user input.
type UI struct {
	screen  tcell.Screen
	session *app.Session
	theme   Theme

	notes    []string
	noteSel  int
	focus    focus
	cursor   int
	selected int // index into current spans, -1 for none
	status   string
	checking bool
}

// New creates a UI over an initialized session.
func New(session *app.Session, theme Theme) (*UI, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("creating screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("initializing screen: %w", err)
	}

	return &UI{
		screen:   screen,
		session:  session,
		theme:    theme,
		focus:    focusList,
		selected: -1,
	}, nil
}

// statusMsg carries a status line update through the event queue.
type statusMsg string

// checkDone reports a finished background check.
type checkDone struct{ err error }

// Notify posts a redraw request from another goroutine. Safe to call
// after the screen is initialized.
func (u *UI) Notify() {
	u.screen.PostEvent(tcell.NewEventInterrupt(nil))
}

// SetStatus replaces the status line message. Safe to call from any
// goroutine; the update lands on the event loop.
func (u *UI) SetStatus(msg string) {
	u.screen.PostEvent(tcell.NewEventInterrupt(statusMsg(msg)))
}

// Run executes the event loop until the user quits.
func (u *UI) Run(ctx context.Context) error {
	defer u.screen.Fini()

	if err := u.reloadNotes(); err != nil {
		return err
	}
	u.draw()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		switch ev := u.screen.PollEvent().(type) {
		case *tcell.EventResize:
			u.screen.Sync()
		case *tcell.EventInterrupt:
			switch data := ev.Data().(type) {
			case statusMsg:
				u.status = string(data)
			case checkDone:
				u.checking = false
				if data.err == nil {
					u.status = "check complete"
				}
			default:
				// Background change: refresh the list and selection.
				if err := u.reloadNotes(); err != nil {
					u.status = err.Error()
				}
			}
			u.clampSelection()
		case *tcell.EventKey:
			if err := u.handleKey(ctx, ev); err != nil {
				if errors.Is(err, ErrQuit) {
					return nil
				}
				return err
			}
		case nil:
			return nil
		}

		u.draw()
	}
}

// handleKey dispatches one key event.
func (u *UI) handleKey(ctx context.Context, ev *tcell.EventKey) error {
	switch ev.Key() {
	case tcell.KeyCtrlQ:
		return ErrQuit
	case tcell.KeyCtrlS:
		if err := u.session.Save(); err != nil {
			u.status = fmt.Sprintf("save failed: %v", err)
		} else {
			u.status = "saved"
		}
		return nil
	case tcell.KeyCtrlO:
		u.focus = focusList
		return nil
	case tcell.KeyCtrlN:
		return u.newNote()
	case tcell.KeyF5:
		u.startCheck(ctx)
		return nil
	case tcell.KeyTab:
		u.cycleSpan()
		return nil
	}

	if u.focus == focusList {
		return u.handleListKey(ev)
	}
	return u.handleEditorKey(ev)
}

// handleListKey moves the note selection and opens notes.
func (u *UI) handleListKey(ev *tcell.EventKey) error {
	switch ev.Key() {
	case tcell.KeyUp:
		if u.noteSel > 0 {
			u.noteSel--
		}
	case tcell.KeyDown:
		if u.noteSel < len(u.notes)-1 {
			u.noteSel++
		}
	case tcell.KeyEnter:
		if u.noteSel < len(u.notes) {
			if err := u.session.Open(u.notes[u.noteSel]); err != nil {
				u.status = fmt.Sprintf("open failed: %v", err)
				return nil
			}
			u.focus = focusEditor
			u.cursor = 0
			u.selected = -1
			u.status = ""
		}
	}
	return nil
}

// handleEditorKey edits the current note and moves the cursor.
func (u *UI) handleEditorKey(ev *tcell.EventKey) error {
	text := []rune(u.session.Text())

	switch ev.Key() {
	case tcell.KeyEnter:
		if u.selected >= 0 {
			u.acceptSelected()
			return nil
		}
		u.insert("\n")
	case tcell.KeyRune:
		u.insert(string(ev.Rune()))
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if u.cursor > 0 {
			if err := u.session.EditRange(u.cursor-1, u.cursor, ""); err == nil {
				u.cursor--
			}
		}
	case tcell.KeyDelete:
		if u.cursor < len(text) {
			u.session.EditRange(u.cursor, u.cursor+1, "")
		}
	case tcell.KeyLeft:
		if u.cursor > 0 {
			u.cursor--
		}
	case tcell.KeyRight:
		if u.cursor < len(text) {
			u.cursor++
		}
	case tcell.KeyUp:
		u.cursor = moveVertical(text, u.cursor, -1)
	case tcell.KeyDown:
		u.cursor = moveVertical(text, u.cursor, +1)
	case tcell.KeyHome:
		u.cursor = lineStart(text, u.cursor)
	case tcell.KeyEnd:
		u.cursor = lineEnd(text, u.cursor)
	}

	u.clampSelection()
	return nil
}

// insert types text at the cursor.
func (u *UI) insert(s string) {
	if err := u.session.EditRange(u.cursor, u.cursor, s); err != nil {
		u.status = err.Error()
		return
	}
	u.cursor += len([]rune(s))
}

// newNote creates a note named after the current time and opens it.
func (u *UI) newNote() error {
	name := time.Now().Format("note-20060102-150405.txt")
	if err := u.session.New(name); err != nil {
		u.status = err.Error()
		return nil
	}
	u.focus = focusEditor
	u.cursor = 0
	u.selected = -1
	u.status = fmt.Sprintf("new note %s", name)
	return u.reloadNotes()
}

// startCheck submits the current note to the checker without blocking
// the event loop.
func (u *UI) startCheck(ctx context.Context) {
	if u.checking {
		return
	}
	u.checking = true
	u.status = "checking..."

	go func() {
		err := u.session.Check(ctx)
		u.screen.PostEvent(tcell.NewEventInterrupt(checkDone{err: err}))
	}()
}

// cycleSpan advances the span selection, wrapping to none after the
// last span.
func (u *UI) cycleSpan() {
	n := len(u.session.Spans())
	if n == 0 {
		u.selected = -1
		return
	}
	u.selected++
	if u.selected >= n {
		u.selected = -1
	}
}

// acceptSelected applies the first choice of the selected span.
func (u *UI) acceptSelected() {
	spans := u.session.Spans()
	if u.selected < 0 || u.selected >= len(spans) {
		return
	}
	sp := spans[u.selected]
	if !sp.IsActionable() {
		u.status = sp.Message
		return
	}

	if err := u.session.Accept(sp.ID, 0); err != nil {
		u.status = fmt.Sprintf("accept failed: %v", err)
		return
	}
	u.status = "applied: " + sp.Choices[0]
	u.selected = -1
	u.clampCursor()
}

// clampSelection drops a selection index the current set no longer
// has.
func (u *UI) clampSelection() {
	if u.selected >= len(u.session.Spans()) {
		u.selected = -1
	}
}

// clampCursor keeps the cursor inside the note after text shrinks.
func (u *UI) clampCursor() {
	if n := len([]rune(u.session.Text())); u.cursor > n {
		u.cursor = n
	}
}

// reloadNotes refreshes the note list from the store.
func (u *UI) reloadNotes() error {
	notes, err := u.session.List()
	if err != nil {
		return err
	}
	u.notes = notes
	if u.noteSel >= len(notes) {
		u.noteSel = 0
	}
	return nil
}

// WatchStore refreshes the note list when the directory changes
// underneath the editor.
func (u *UI) WatchStore(dir string) (*notestore.Watcher, error) {
	return notestore.NewWatcher(dir, u.Notify)
}

// draw repaints the whole screen.
func (u *UI) draw() {
	u.screen.Clear()
	width, height := u.screen.Size()

	u.drawList(height - 1)
	u.drawEditor(listWidth+1, width, height-1)
	u.drawStatus(width, height-1)

	u.screen.Show()
}

// drawList paints the note pane.
func (u *UI) drawList(height int) {
	for y := 0; y < height; y++ {
		u.screen.SetContent(listWidth, y, '|', nil, u.theme.Border)
	}

	for i, name := range u.notes {
		if i >= height {
			break
		}
		style := u.theme.Text
		if i == u.noteSel && u.focus == focusList {
			style = u.theme.Selected
		} else if name == u.session.CurrentName() {
			style = u.theme.Current
		}
		drawString(u.screen, 0, i, listWidth, name, style)
	}
}

// drawEditor paints the current note with findings highlighted.
func (u *UI) drawEditor(left, right, height int) {
	lines := u.session.Layout()
	spans := u.session.Spans()

	var selectedID annotate.SpanID
	if u.selected >= 0 && u.selected < len(spans) {
		selectedID = spans[u.selected].ID
	}

	for y, line := range lines {
		if y >= height {
			break
		}
		x := left
		for _, run := range line.Runs {
			style := u.theme.Text
			if run.Highlighted {
				style = u.theme.Finding
				if selectedID != 0 && run.SpanID == selectedID {
					style = u.theme.FindingSelected
				}
			}
			for _, r := range run.Text {
				if x >= right {
					break
				}
				u.screen.SetContent(x, y, r, nil, style)
				x += runewidth.RuneWidth(r)
			}
		}
	}

	if u.focus == focusEditor {
		cx, cy := cursorCell([]rune(u.session.Text()), u.cursor)
		u.screen.ShowCursor(left+cx, cy)
	} else {
		u.screen.HideCursor()
	}
}

// drawStatus paints the bottom line: note name, dirty marker, and the
// latest message or selected finding.
func (u *UI) drawStatus(width, y int) {
	name := u.session.CurrentName()
	if name == "" {
		name = "(no note)"
	}
	dirty := ""
	if u.session.Dirty() {
		dirty = " [+]"
	}

	msg := u.status
	spans := u.session.Spans()
	if u.selected >= 0 && u.selected < len(spans) {
		sp := spans[u.selected]
		if sp.IsActionable() {
			msg = fmt.Sprintf("%s -> %s (Enter to apply)", sp.Message, sp.Choices[0])
		} else {
			msg = sp.Message
		}
	}

	line := fmt.Sprintf(" %s%s | %d findings | %s", name, dirty, len(spans), msg)
	drawString(u.screen, 0, y, width, line, u.theme.Status)
}

// drawString writes s at (x, y), clipped to maxWidth cells.
func drawString(screen tcell.Screen, x, y, maxWidth int, s string, style tcell.Style) {
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if x+w > maxWidth {
			break
		}
		screen.SetContent(x, y, r, nil, style)
		x += w
	}
}

// cursorCell maps a rune offset to screen coordinates, counting
// display widths on the cursor's line.
func cursorCell(text []rune, cursor int) (x, y int) {
	start := lineStart(text, cursor)
	for i := 0; i < len(text) && i < cursor; i++ {
		if text[i] == '\n' {
			y++
		}
	}
	for i := start; i < cursor; i++ {
		x += runewidth.RuneWidth(text[i])
	}
	return x, y
}

// lineStart returns the offset of the first rune on the cursor's line.
func lineStart(text []rune, cursor int) int {
	i := cursor
	for i > 0 && text[i-1] != '\n' {
		i--
	}
	return i
}

// lineEnd returns the offset just past the last rune on the cursor's
// line, excluding the terminator.
func lineEnd(text []rune, cursor int) int {
	i := cursor
	for i < len(text) && text[i] != '\n' {
		i++
	}
	return i
}

// moveVertical moves the cursor one line up or down, preserving the
// column where possible.
func moveVertical(text []rune, cursor, dir int) int {
	start := lineStart(text, cursor)
	col := cursor - start

	if dir < 0 {
		if start == 0 {
			return cursor
		}
		prevStart := lineStart(text, start-1)
		prevLen := start - 1 - prevStart
		if col > prevLen {
			col = prevLen
		}
		return prevStart + col
	}

	end := lineEnd(text, cursor)
	if end >= len(text) {
		return cursor
	}
	nextStart := end + 1
	nextEnd := lineEnd(text, nextStart)
	if col > nextEnd-nextStart {
		col = nextEnd - nextStart
	}
	return nextStart + col
}
