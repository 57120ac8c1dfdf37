package record

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/netauto/core/internal/logging"
)

// Recorder is an append-only, thread-safe event buffer with a monotonic
// sequence counter. A nil *Recorder is valid and Emit is then a no-op, so
// callers can pass a possibly-nil recorder through without a branch at
// every call site.
type Recorder struct {
	mu        sync.Mutex
	verbosity Verbosity
	seq       uint64
	events    []Event
	streamID  string
}

// New creates a Recorder at the given verbosity with a fresh stream ID
// correlating every event it emits.
func New(verbosity Verbosity) *Recorder {
	return &Recorder{verbosity: verbosity, streamID: uuid.NewString()}
}

// StreamID identifies this recording instance, e.g. to merge recordings
// from concurrent sessions.
func (r *Recorder) StreamID() string {
	if r == nil {
		return ""
	}
	return r.streamID
}

// Verbosity reports the recorder's configured level.
func (r *Recorder) Verbosity() Verbosity {
	if r == nil {
		return Off
	}
	return r.verbosity
}

// Emit appends an event of the given kind with the given fields, unless
// the recorder is Off or the kind is raw_shell_chunk and the verbosity is
// below Full. Sensitive field values (passwords, secrets) are redacted
// before being buffered.
func (r *Recorder) Emit(kind string, fields map[string]any) {
	if r == nil || r.verbosity == Off {
		return
	}
	if kind == KindRawShellChunk && r.verbosity != Full {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	sanitized := sanitizeFields(fields)
	sanitized["stream_id"] = r.streamID
	r.events = append(r.events, Event{Kind: kind, Seq: r.seq, Ts: time.Now(), Fields: sanitized})
}

// EmitError records a recorder-internal failure as an "error" event rather
// than failing the caller's command. Recording problems never surface as
// command errors to the caller.
func (r *Recorder) EmitError(ctx context.Context, source string, err error) {
	if r == nil {
		return
	}
	logging.FromContext(ctx).Warn().Str("source", source).Err(err).Msg("recorder: error event")
	r.Emit(KindError, map[string]any{"source": source, "message": err.Error()})
}

// Events returns a snapshot of recorded events in sequence order.
func (r *Recorder) Events() []Event {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// ToJSONL serializes the buffered events, one JSON object per line, in
// sequence order.
func (r *Recorder) ToJSONL() (string, error) {
	events := r.Events()
	var sb strings.Builder
	for _, e := range events {
		data, err := json.Marshal(e)
		if err != nil {
			return "", fmt.Errorf("marshal event seq=%d: %w", e.Seq, err)
		}
		sb.Write(data)
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// FromJSONL parses a recording leniently: a malformed line is an error,
// but an unknown event kind or an unknown field within a known kind is
// preserved rather than rejected, so recordings stay readable across
// versions that add new event kinds or fields.
func FromJSONL(s string) ([]Event, error) {
	var events []Event
	scanner := bufio.NewScanner(strings.NewReader(s))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		var e Event
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			return events, fmt.Errorf("%w: line %d: %v", ErrJSONLParse, lineNo, err)
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("%w: %v", ErrJSONLParse, err)
	}
	return events, nil
}

func sanitizeFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	return logging.SanitizeMap(out)
}
