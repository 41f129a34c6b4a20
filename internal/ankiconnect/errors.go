package ankiconnect

import (
	"errors"
	"fmt"
)

// UnreachableMessage is shown to the user when Anki cannot be contacted
const UnreachableMessage = "Cannot connect to Anki. Please ensure Anki is running and AnkiConnect is installed."

var (
	// ErrUnreachable matches every error caused by a refused or failed
	// connection to the endpoint, including a fail-fast from the open breaker.
	ErrUnreachable = errors.New("anki-connect unreachable")

	// ErrInvalidNote is returned by AddNote before any request is made
	ErrInvalidNote = errors.New("invalid note")
)

// ConnectionError wraps the transport error behind ErrUnreachable. Its
// message is the user-facing UnreachableMessage.
type ConnectionError struct {
	Action string
	Cause  error
}

func (e *ConnectionError) Error() string {
	return UnreachableMessage
}

func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// Is reports ErrUnreachable as a match
func (e *ConnectionError) Is(target error) bool {
	return target == ErrUnreachable
}

// RemoteError carries the error string reported by AnkiConnect verbatim
type RemoteError struct {
	Action  string
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// IsDuplicate reports whether Anki rejected a note as a duplicate
func (e *RemoteError) IsDuplicate() bool {
	return e.Message == "cannot create note because it is a duplicate"
}

func invalidNote(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidNote, err)
}
