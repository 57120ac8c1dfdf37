package session

import "errors"

var (
	// ErrConfig is returned when a Command carries an invalid configuration,
	// such as an explicit zero Timeout.
	ErrConfig = errors.New("session: invalid command configuration")

	// ErrUnknownInitialState means the actor could not establish which FSM
	// state the device is in before it could plan a transition, typically
	// because the device produced no recognizable prompt within the
	// bootstrap window.
	ErrUnknownInitialState = errors.New("session: could not determine initial device state")

	// ErrExecTimeout means a job's timeout elapsed before a terminal prompt
	// was observed.
	ErrExecTimeout = errors.New("session: command execution timed out")

	// ErrChannelDisconnect means the underlying shell's read side returned
	// an error or EOF; the actor is no longer usable after this.
	ErrChannelDisconnect = errors.New("session: shell channel disconnected")

	// ErrCommandFailed means the device's output matched one of the
	// actor's configured failure patterns.
	ErrCommandFailed = errors.New("session: command reported failure")

	// ErrClosed is returned by Submit once the actor has been closed.
	ErrClosed = errors.New("session: actor is closed")

	// ErrPoisoned names the poisoned-session condition. No function in this
	// package returns it: jobs still queued when the actor stops after a
	// disconnect or a failed drain are rejected with ErrChannelDisconnect.
	ErrPoisoned = errors.New("session: actor is poisoned after a disconnect")
)
