package record

import "time"

// Normalize rewrites a raw recording into a deterministic fixture: it
// strips wall-clock timestamps (replacing them with a fixed epoch spaced
// by sequence number, so diffs are stable), collapses consecutive
// raw_shell_chunk events into the command_output that follows them, and
// redacts any sensitive dynamic-input response text that escaped
// Recorder's field sanitization.
func Normalize(events []Event) []Event {
	collapsed := collapseRawChunks(events)

	out := make([]Event, 0, len(collapsed))
	for _, e := range collapsed {
		e.Ts = fixtureTimestamp(e.Seq)
		e.Fields = redactSensitiveResponses(e.Fields)
		out = append(out, e)
	}
	return out
}

func collapseRawChunks(events []Event) []Event {
	var out []Event
	var pendingChunks int
	for _, e := range events {
		if e.Kind == KindRawShellChunk {
			pendingChunks++
			continue
		}
		if e.Kind == KindCommandOutput && pendingChunks > 0 {
			e.Fields["collapsed_raw_chunks"] = pendingChunks
		}
		pendingChunks = 0
		out = append(out, e)
	}
	return out
}

func redactSensitiveResponses(fields map[string]any) map[string]any {
	sensitive, _ := fields["dynamic_input_sensitive"].(bool)
	if !sensitive {
		return fields
	}
	if _, ok := fields["dynamic_input_response"]; ok {
		fields["dynamic_input_response"] = redactedFixtureValue
	}
	return fields
}

const redactedFixtureValue = "[REDACTED]"

// fixtureTimestamp derives a stable, deterministic timestamp from an
// event's sequence number so two normalizations of the same logical
// recording always produce byte-identical fixtures.
func fixtureTimestamp(seq uint64) time.Time {
	epoch := time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
	return epoch.Add(time.Duration(seq) * time.Second)
}
