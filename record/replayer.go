package record

import "fmt"

// Output mirrors session.Output without importing the session package
// (record has no dependency on session; session depends on record).
type Output struct {
	Success bool
	Content string
	All     string
	Prompt  string
}

// Replayer serves command_output events from a prior recording without a
// live device. It maintains a single forward cursor: the requested command
// must match the immediate next command_output event, not merely the next
// one whose command matches, so a replay can't silently skip ahead over an
// unexpected step.
type Replayer struct {
	events []Event
	pos    int
}

// NewReplayer builds a Replayer over a previously parsed event slice (e.g.
// from FromJSONL).
func NewReplayer(events []Event) *Replayer {
	return &Replayer{events: events}
}

// ReplayNext advances to the next command_output event and requires its
// "command" field to equal command.
func (r *Replayer) ReplayNext(command string) (Output, error) {
	return r.replayNext(command, "")
}

// ReplayNextInMode additionally requires the event's "mode" field to equal
// mode.
func (r *Replayer) ReplayNextInMode(command, mode string) (Output, error) {
	return r.replayNext(command, mode)
}

func (r *Replayer) replayNext(command, mode string) (Output, error) {
	for r.pos < len(r.events) {
		e := r.events[r.pos]
		r.pos++
		if e.Kind != KindCommandOutput {
			continue
		}

		gotCmd, _ := e.Fields["command"].(string)
		if gotCmd != command {
			return Output{}, fmt.Errorf("%w: expected command %q, next command_output was %q", ErrReplayMismatch, command, gotCmd)
		}
		if mode != "" {
			gotMode, _ := e.Fields["mode"].(string)
			if gotMode != mode {
				return Output{}, fmt.Errorf("%w: expected mode %q, next command_output was in mode %q", ErrReplayMismatch, mode, gotMode)
			}
		}
		return outputFromFields(e.Fields), nil
	}
	return Output{}, fmt.Errorf("%w: no more command_output events", ErrReplayExhausted)
}

// ReplayScript runs ReplayNext for each command in order, stopping at the
// first mismatch or exhaustion.
func (r *Replayer) ReplayScript(commands []string) ([]Output, error) {
	outputs := make([]Output, 0, len(commands))
	for _, cmd := range commands {
		out, err := r.ReplayNext(cmd)
		if err != nil {
			return outputs, err
		}
		outputs = append(outputs, out)
	}
	return outputs, nil
}

func outputFromFields(fields map[string]any) Output {
	o := Output{}
	if v, ok := fields["success"].(bool); ok {
		o.Success = v
	}
	if v, ok := fields["content"].(string); ok {
		o.Content = v
	}
	if v, ok := fields["all"].(string); ok {
		o.All = v
	}
	if v, ok := fields["prompt_after"].(string); ok {
		o.Prompt = v
	}
	return o
}
