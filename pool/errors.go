package pool

import "errors"

var (
	// ErrClosed is returned by Get once the manager has been shut down.
	ErrClosed = errors.New("pool: manager is closed")

	// ErrHandlerFactory wraps a failure building a fresh fsm.Handler for a
	// newly dialed connection.
	ErrHandlerFactory = errors.New("pool: handler factory failed")
)
