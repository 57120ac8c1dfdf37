// Package fsm implements the device state machine described in the
// PromptMatcher / DeviceHandler design: it compiles prompt regexes per
// state, classifies streamed lines against them, and plans shortest
// transition paths through the transition graph.
//
// A Handler has a single owner (the SessionActor that drives it from a
// streamed SSH shell) and is never accessed from more than one goroutine,
// so it carries no internal lock.
package fsm

import (
	"fmt"
	"regexp"
	"strings"
)

// unknownState marks current == Unknown, i.e. no prompt has been observed
// yet.
const unknownState = -1

// Handler owns the state set, the transition graph, and the FSM's current
// position. It is the DeviceHandler of the design.
type Handler struct {
	states       []State
	edges        []Edge
	edgesFrom    [][]int // edgesFrom[i] = indices into edges, declaration order
	edgesFromCmd [][]int // edgesFromCmd[i] = indices into edges, sorted by Command (for deterministic BFS tie-break)
	nameIndex    map[string]int

	current    int
	sysContext string
	closed     bool
}

// New compiles states and edges into a Handler. Construction fails fast on
// a regex compile error, a duplicate (case-insensitively) state name, or an
// edge referencing an unknown endpoint.
func New(states []StateSpec, edges []EdgeSpec, sysContext string) (*Handler, error) {
	h := &Handler{
		nameIndex:  make(map[string]int, len(states)),
		current:    unknownState,
		sysContext: sysContext,
	}

	for _, spec := range states {
		norm := strings.ToLower(spec.Name)
		if norm == "" {
			return nil, fmt.Errorf("%w: state name must not be empty", ErrConfig)
		}
		if _, exists := h.nameIndex[norm]; exists {
			return nil, fmt.Errorf("%w: duplicate state name %q", ErrConfig, spec.Name)
		}

		patterns := make([]*regexp.Regexp, 0, len(spec.Prompts))
		for _, p := range spec.Prompts {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("%w: state %q prompt %q: %v", ErrConfig, spec.Name, p, err)
			}
			patterns = append(patterns, re)
		}

		h.nameIndex[norm] = len(h.states)
		h.states = append(h.states, State{Name: spec.Name, Patterns: patterns})
	}

	h.edgesFrom = make([][]int, len(h.states))

	for _, spec := range edges {
		fromIdx, ok := h.nameIndex[strings.ToLower(spec.From)]
		if !ok {
			return nil, fmt.Errorf("%w: edge references unknown from-state %q", ErrConfig, spec.From)
		}
		toIdx, ok := h.nameIndex[strings.ToLower(spec.To)]
		if !ok {
			return nil, fmt.Errorf("%w: edge references unknown to-state %q", ErrConfig, spec.To)
		}

		dynInputs := make([]DynamicInput, 0, len(spec.DynamicInputs))
		for _, di := range spec.DynamicInputs {
			re, err := regexp.Compile(di.Trigger)
			if err != nil {
				return nil, fmt.Errorf("%w: dynamic input trigger %q: %v", ErrConfig, di.Trigger, err)
			}
			dynInputs = append(dynInputs, DynamicInput{Trigger: re, Response: di.Response, Sensitive: di.Sensitive})
		}

		edgeIdx := len(h.edges)
		h.edges = append(h.edges, Edge{From: fromIdx, To: toIdx, Command: spec.Command, DynamicInputs: dynInputs})
		h.edgesFrom[fromIdx] = append(h.edgesFrom[fromIdx], edgeIdx)
	}

	h.edgesFromCmd = make([][]int, len(h.states))
	for i, adj := range h.edgesFrom {
		sorted := append([]int(nil), adj...)
		sortEdgesByCommand(h.edges, sorted)
		h.edgesFromCmd[i] = sorted
	}

	return h, nil
}

func sortEdgesByCommand(edges []Edge, idx []int) {
	for i := 1; i < len(idx); i++ {
		for j := i; j > 0 && edges[idx[j-1]].Command > edges[idx[j]].Command; j-- {
			idx[j-1], idx[j] = idx[j], idx[j-1]
		}
	}
}

// SysContext returns the parallel state set selector this handler was
// built for (e.g. a VRF name), or "" for the default context.
func (h *Handler) SysContext() string { return h.sysContext }

// Current returns the name of the current state and true, or ("", false)
// if no prompt has been observed yet (Unknown).
func (h *Handler) Current() (string, bool) {
	if h.current == unknownState {
		return "", false
	}
	return h.states[h.current].Name, true
}

// Close marks the handler terminal. Read and PlanPath return ErrClosed
// afterwards; ReadPrompt, ReadNeedWrite, Current and Diagnose do not check
// for a closed handler.
func (h *Handler) Close() { h.closed = true }

// ReadPrompt returns the index of the first state (in declaration order)
// whose prompt pattern matches line. It is a pure function of line and does
// not mutate the handler.
func (h *Handler) ReadPrompt(line string) (int, bool) {
	for i, s := range h.states {
		for _, p := range s.Patterns {
			if p.MatchString(line) {
				return i, true
			}
		}
	}
	return 0, false
}

// Read classifies line against the configured prompts and, on a match,
// updates the current state. changed is true iff the match differs from
// the prior current state (repeated identical prompts are idempotent).
func (h *Handler) Read(line string) (changed bool, err error) {
	if h.closed {
		return false, ErrClosed
	}
	idx, ok := h.ReadPrompt(line)
	if !ok {
		return false, nil
	}
	if idx == h.current {
		return false, nil
	}
	h.current = idx
	return true, nil
}

// ReadNeedWrite scans the dynamic inputs of every edge leaving the current
// state (in declaration order) and returns the response for the first
// trigger that matches line. It does not mutate the handler.
func (h *Handler) ReadNeedWrite(line string) (response string, sensitive bool, ok bool) {
	if h.current == unknownState {
		return "", false, false
	}
	for _, edgeIdx := range h.edgesFrom[h.current] {
		for _, di := range h.edges[edgeIdx].DynamicInputs {
			if di.Trigger.MatchString(line) {
				return di.Response, di.Sensitive, true
			}
		}
	}
	return "", false, false
}

// Reset forces the current state back to Unknown, e.g. after an external
// reconnect.
func (h *Handler) Reset() { h.current = unknownState }
