package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func outputEvent(seq uint64, command, mode string, success bool) Event {
	return Event{
		Kind: KindCommandOutput,
		Seq:  seq,
		Fields: map[string]any{
			"command": command,
			"mode":    mode,
			"success": success,
			"content": command + "-output",
		},
	}
}

func TestReplayNext_MatchesImmediateNextOnly(t *testing.T) {
	events := []Event{
		outputEvent(1, "show version", "enable", true),
		outputEvent(2, "show clock", "enable", true),
	}
	r := NewReplayer(events)

	_, err := r.ReplayNext("show clock")
	require.Error(t, err, "must not skip ahead to a later matching command")
	assert.ErrorIs(t, err, ErrReplayMismatch)
}

func TestReplayNext_Succeeds(t *testing.T) {
	events := []Event{outputEvent(1, "show version", "enable", true)}
	r := NewReplayer(events)

	out, err := r.ReplayNext("show version")
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, "show version-output", out.Content)
}

func TestReplayNext_ExhaustedAfterLastEvent(t *testing.T) {
	events := []Event{outputEvent(1, "show version", "enable", true)}
	r := NewReplayer(events)

	_, err := r.ReplayNext("show version")
	require.NoError(t, err)

	_, err = r.ReplayNext("show clock")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReplayExhausted)
}

func TestReplayNextInMode_RequiresModeMatch(t *testing.T) {
	events := []Event{outputEvent(1, "write memory", "enable", true)}
	r := NewReplayer(events)

	_, err := r.ReplayNextInMode("write memory", "config")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReplayMismatch)
}

func TestReplayScript_EqualsSequentialReplayNext(t *testing.T) {
	events := []Event{
		outputEvent(1, "a", "enable", true),
		outputEvent(2, "b", "enable", true),
		outputEvent(3, "c", "enable", true),
	}
	r1 := NewReplayer(events)
	scripted, err := r1.ReplayScript([]string{"a", "b", "c"})
	require.NoError(t, err)

	r2 := NewReplayer(events)
	var sequential []Output
	for _, cmd := range []string{"a", "b", "c"} {
		out, err := r2.ReplayNext(cmd)
		require.NoError(t, err)
		sequential = append(sequential, out)
	}

	assert.Equal(t, sequential, scripted)
}

func TestReplayer_SkipsNonCommandOutputEvents(t *testing.T) {
	events := []Event{
		{Kind: KindStateTransition, Seq: 1, Fields: map[string]any{"to": "enable"}},
		outputEvent(2, "show version", "enable", true),
	}
	r := NewReplayer(events)

	out, err := r.ReplayNext("show version")
	require.NoError(t, err)
	assert.True(t, out.Success)
}
