package record

import "errors"

var (
	// ErrReplayMismatch is returned when the next recorded command_output
	// does not match the command the caller asked to replay.
	ErrReplayMismatch = errors.New("record: replay mismatch")

	// ErrReplayExhausted is returned when no more command_output events
	// remain in the recording.
	ErrReplayExhausted = errors.New("record: replay exhausted")

	// ErrJSONLParse is returned when a line of a recording is not valid
	// JSON. Unknown fields and unknown event kinds are not parse errors;
	// only malformed JSON is.
	ErrJSONLParse = errors.New("record: invalid jsonl line")
)
