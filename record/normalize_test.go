package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_CollapsesRawChunksIntoFollowingCommandOutput(t *testing.T) {
	events := []Event{
		{Kind: KindRawShellChunk, Seq: 1, Fields: map[string]any{"data": "sh"}},
		{Kind: KindRawShellChunk, Seq: 2, Fields: map[string]any{"data": "ow ver"}},
		{Kind: KindCommandOutput, Seq: 3, Fields: map[string]any{"command": "show version"}},
	}

	normalized := Normalize(events)
	require.Len(t, normalized, 1)
	assert.Equal(t, 2, normalized[0].Fields["collapsed_raw_chunks"])
}

func TestNormalize_StripsRealTimestampsDeterministically(t *testing.T) {
	events := []Event{
		{Kind: KindCommandOutput, Seq: 5, Fields: map[string]any{"command": "x"}},
	}

	a := Normalize(events)
	b := Normalize(events)
	assert.Equal(t, a[0].Ts, b[0].Ts, "normalization must be deterministic across runs")
}

func TestNormalize_RedactsSensitiveDynamicInputResponse(t *testing.T) {
	events := []Event{
		{
			Kind: KindStateTransition,
			Seq:  1,
			Fields: map[string]any{
				"dynamic_input_response":  "hunter2",
				"dynamic_input_sensitive": true,
			},
		},
	}

	normalized := Normalize(events)
	require.Len(t, normalized, 1)
	assert.Equal(t, "[REDACTED]", normalized[0].Fields["dynamic_input_response"])
}

func TestNormalize_LeavesNonSensitiveResponseAlone(t *testing.T) {
	events := []Event{
		{
			Kind: KindStateTransition,
			Seq:  1,
			Fields: map[string]any{
				"dynamic_input_response":  "yes",
				"dynamic_input_sensitive": false,
			},
		},
	}

	normalized := Normalize(events)
	assert.Equal(t, "yes", normalized[0].Fields["dynamic_input_response"])
}
