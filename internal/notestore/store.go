// Package notestore provides access to the notes a user can open,
// edit, and save. The core never touches the filesystem directly; it
// works against the Store interface.
package notestore

import (
	"context"
	"errors"
)

// Standard errors returned by note stores.
var (
	// ErrCancelled indicates the user dismissed a file picker.
	ErrCancelled = errors.New("cancelled by user")

	// ErrInvalidName indicates a note name that would escape the store.
	ErrInvalidName = errors.New("invalid note name")

	// ErrNotFound indicates the named note does not exist.
	ErrNotFound = errors.New("note not found")
)

// Store lists, reads, and writes notes. Names are opaque identifiers
// local to the store; implementations must reject names that resolve
// outside their root.
type Store interface {
	// List returns the available note names in sorted order.
	List() ([]string, error)

	// Read returns the content of the named note.
	Read(name string) (string, error)

	// Write stores content under the given name, creating the note if
	// it does not exist.
	Write(name, content string) error

	// OpenExternal asks the user to pick a file outside the store and
	// returns its name and content. Returns ErrCancelled if dismissed.
	OpenExternal(ctx context.Context) (name, content string, err error)

	// SaveExternal asks the user for a destination outside the store
	// and writes content there. Returns the chosen name, or
	// ErrCancelled if dismissed.
	SaveExternal(ctx context.Context, content string) (name string, err error)
}
