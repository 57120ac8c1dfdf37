package fsm

import "regexp"

// State is one named mode of the device (login, enable, config, ...). Names
// are normalized to lowercase for matching; Name preserves the original
// case for display.
type State struct {
	Name     string
	Patterns []*regexp.Regexp
}

// DynamicInput is a (trigger, response) rule consulted mid-transition to
// answer an interactive sub-prompt (password, confirmation).
type DynamicInput struct {
	Trigger   *regexp.Regexp
	Response  string
	Sensitive bool
}

// Edge is a directed transition between two states.
type Edge struct {
	From          int
	To            int
	Command       string
	DynamicInputs []DynamicInput
}

// StateSpec is the construction-time, uncompiled description of a state.
type StateSpec struct {
	Name    string
	Prompts []string
}

// DynamicInputSpec is the construction-time, uncompiled description of a
// dynamic input rule.
type DynamicInputSpec struct {
	Trigger   string
	Response  string
	Sensitive bool
}

// EdgeSpec is the construction-time, uncompiled description of an edge.
type EdgeSpec struct {
	From          string
	To            string
	Command       string
	DynamicInputs []DynamicInputSpec
}
