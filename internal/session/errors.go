package session

import "errors"

// Session lifecycle errors.
var (
	// ErrBusy is returned when a scope already holds a non-terminal session.
	ErrBusy = errors.New("scope already has an active session")
	// ErrNoActiveSession is returned when an action or timer arrives for a
	// scope whose session is absent, resolving, or resolved. The losing side
	// of a resolution race always observes this.
	ErrNoActiveSession = errors.New("no active session for scope")
)
