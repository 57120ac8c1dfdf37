package session

import "time"

// Command is a single command job submitted to a SessionActor: the target
// mode (FSM state name) the device must reach before the command is sent,
// the command text itself, and an optional per-job timeout.
//
// Timeout follows the same optional-pointer convention as other "optional"
// fields in this codebase: nil means "use the actor's default" (60s); a non-nil zero
// duration is rejected with ErrConfig rather than silently defaulted, so a
// caller who meant to pass a real duration and forgot never gets an
// effectively-unbounded wait by accident.
type Command struct {
	Mode    string
	Command string
	Timeout *time.Duration
}

// Output is the result of a completed command job.
type Output struct {
	// Success is false if a configured error pattern matched the
	// captured output; true otherwise.
	Success bool
	// Content is the command's output with the echoed command line and
	// the trailing prompt line stripped.
	Content string
	// All is the raw captured text, including the echo and the prompt.
	All string
	// Prompt is the prompt line the device returned to after the command,
	// if one was observed.
	Prompt string
}

// DefaultTimeout is used when a Command's Timeout is nil.
const DefaultTimeout = 60 * time.Second

func (c Command) timeoutOrDefault() (time.Duration, error) {
	if c.Timeout == nil {
		return DefaultTimeout, nil
	}
	if *c.Timeout <= 0 {
		return 0, ErrConfig
	}
	return *c.Timeout, nil
}
