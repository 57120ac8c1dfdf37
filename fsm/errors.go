package fsm

import "errors"

// Configuration-time errors. A handler that fails to construct never
// produces a session.
var (
	// ErrConfig wraps regex-compile failures, duplicate state names, and
	// edges that reference an unknown endpoint.
	ErrConfig = errors.New("fsm: configuration error")

	// ErrTargetStateNotExist is returned by PlanPath when the requested
	// target state is not part of the graph.
	ErrTargetStateNotExist = errors.New("fsm: target state does not exist")

	// ErrUnreachableState is returned by PlanPath when no path exists from
	// the current state (including when the current state is unknown).
	ErrUnreachableState = errors.New("fsm: state is unreachable")

	// ErrClosed is returned by Read and PlanPath on a handler after Close.
	ErrClosed = errors.New("fsm: handler is closed")
)
