package session

import "errors"

var (
	// ErrSessionBusy is returned when a turn is started while another
	// turn is still active.
	ErrSessionBusy = errors.New("session: turn already in progress")

	// ErrCancelled resolves a turn that was interrupted. It is
	// distinguishable from every failure mode.
	ErrCancelled = errors.New("session: turn cancelled")

	// ErrSessionClosed is returned when starting a turn on a closed
	// session.
	ErrSessionClosed = errors.New("session: closed")

	// ErrEmptyQuery is returned when a text turn carries no text.
	ErrEmptyQuery = errors.New("session: empty query")
)

// IsCancelled reports whether err resolves to a user interruption
// rather than a failure.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
