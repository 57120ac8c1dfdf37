// Package record implements the append-only session event log: recording
// live sessions to JSONL, and replaying recorded command_output events
// offline without a device.
package record

import (
	"encoding/json"
	"fmt"
	"time"
)

// Verbosity controls which events a Recorder captures.
type Verbosity int

const (
	// Off captures nothing; Emit is a no-op.
	Off Verbosity = iota
	// KeyEventsOnly captures lifecycle, command_output, and error events,
	// but not raw_shell_chunk.
	KeyEventsOnly
	// Full additionally captures raw_shell_chunk.
	Full
)

// Known event kinds. Kind is a plain string on the wire so an older reader
// can ignore a kind it doesn't recognize.
const (
	KindConnectionEstablished = "connection_established"
	KindCommandOutput         = "command_output"
	KindPromptRead            = "prompt_read"
	KindStateTransition       = "state_transition"
	KindRawShellChunk         = "raw_shell_chunk"
	KindTxBlockStarted        = "tx_block_started"
	KindTxBlockFinished       = "tx_block_finished"
	KindTxStepSucceeded       = "tx_step_succeeded"
	KindTxStepFailed          = "tx_step_failed"
	KindTxRollbackStarted     = "tx_rollback_started"
	KindTxRollbackStepOK      = "tx_rollback_step_succeeded"
	KindTxRollbackStepFailed  = "tx_rollback_step_failed"
	KindTxWorkflowStarted     = "tx_workflow_started"
	KindTxWorkflowFinished    = "tx_workflow_finished"
	KindError                 = "error"
)

// Event is a single line of a recording: a kind, a monotonic sequence
// number, a wall-clock timestamp, and kind-specific fields flattened
// alongside them on the wire (no nested "fields" object), so a
// connection_established event round-trips as
// {"kind":"connection_established","seq":1,"ts":"...","host":"...","initial_prompt":"..."}.
type Event struct {
	Kind   string
	Seq    uint64
	Ts     time.Time
	Fields map[string]any
}

const tsLayout = time.RFC3339Nano

// MarshalJSON flattens Fields alongside kind/seq/ts.
func (e Event) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(e.Fields)+3)
	for k, v := range e.Fields {
		m[k] = v
	}
	m["kind"] = e.Kind
	m["seq"] = e.Seq
	m["ts"] = e.Ts.UTC().Format(tsLayout)
	return json.Marshal(m)
}

// UnmarshalJSON parses leniently: unknown fields and unknown kinds are
// preserved in Fields rather than rejected. Legacy field names on
// connection_established ("prompt", "state") are mapped onto their current
// names.
func (e *Event) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("%w: %v", ErrJSONLParse, err)
	}

	kind, _ := m["kind"].(string)
	e.Kind = kind
	delete(m, "kind")

	if seq, ok := m["seq"].(float64); ok {
		e.Seq = uint64(seq)
	}
	delete(m, "seq")

	if tsStr, ok := m["ts"].(string); ok {
		if t, err := time.Parse(tsLayout, tsStr); err == nil {
			e.Ts = t
		}
	}
	delete(m, "ts")

	if e.Kind == KindConnectionEstablished {
		if v, ok := m["prompt"]; ok {
			m["initial_prompt"] = v
			delete(m, "prompt")
		}
		if v, ok := m["state"]; ok {
			m["initial_state"] = v
			delete(m, "state")
		}
	}

	e.Fields = m
	return nil
}
