package fsm

// entryConventionNames lists the state names, by common convention, that
// represent a session's starting point. Diagnose treats states with zero
// in-degree as additional entry points when none of these are present, so
// a freshly authored template (that hasn't adopted the convention yet)
// still gets a sensible unreachable-state report.
var entryConventionNames = map[string]bool{
	"login": true,
	"user":  true,
	"start": true,
	"init":  true,
}

// PromptConflict reports two states whose prompt patterns cannot be told
// apart because they share an identical regex source. General regex
// language-overlap detection is undecidable for arbitrary patterns, so
// Diagnose flags the common, decidable case of an accidentally duplicated
// pattern literal rather than attempting full overlap analysis.
type PromptConflict struct {
	StateA  string
	StateB  string
	Pattern string
}

// Diagnostics summarizes structural issues in a handler's transition graph.
type Diagnostics struct {
	GraphStates       []string
	DeadEndStates     []string
	UnreachableStates []string
	PromptConflicts   []PromptConflict
}

// Diagnose inspects the graph without touching current state.
func (h *Handler) Diagnose() Diagnostics {
	d := Diagnostics{}
	for _, s := range h.states {
		d.GraphStates = append(d.GraphStates, s.Name)
	}

	d.DeadEndStates = h.deadEndStates()
	d.UnreachableStates = h.unreachableStates()
	d.PromptConflicts = h.promptConflicts()
	return d
}

func (h *Handler) deadEndStates() []string {
	var out []string
	for i, s := range h.states {
		if len(h.edgesFrom[i]) == 0 {
			out = append(out, s.Name)
		}
	}
	return out
}

func (h *Handler) unreachableStates() []string {
	inDegree := make([]int, len(h.states))
	for _, e := range h.edges {
		inDegree[e.To]++
	}

	var entries []int
	for i, s := range h.states {
		if entryConventionNames[lowerASCII(s.Name)] {
			entries = append(entries, i)
		}
	}
	if len(entries) == 0 {
		for i := range h.states {
			if inDegree[i] == 0 {
				entries = append(entries, i)
			}
		}
	}

	reachable := make([]bool, len(h.states))
	queue := append([]int(nil), entries...)
	for _, e := range entries {
		reachable[e] = true
	}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, edgeIdx := range h.edgesFrom[node] {
			to := h.edges[edgeIdx].To
			if !reachable[to] {
				reachable[to] = true
				queue = append(queue, to)
			}
		}
	}

	var out []string
	for i, s := range h.states {
		if !reachable[i] {
			out = append(out, s.Name)
		}
	}
	return out
}

func (h *Handler) promptConflicts() []PromptConflict {
	var out []PromptConflict
	for i := 0; i < len(h.states); i++ {
		for j := i + 1; j < len(h.states); j++ {
			if src, ok := sharedPattern(h.states[i], h.states[j]); ok {
				out = append(out, PromptConflict{StateA: h.states[i].Name, StateB: h.states[j].Name, Pattern: src})
			}
		}
	}
	return out
}

func sharedPattern(a, b State) (string, bool) {
	for _, pa := range a.Patterns {
		for _, pb := range b.Patterns {
			if pa.String() == pb.String() {
				return pa.String(), true
			}
		}
	}
	return "", false
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c - 'A' + 'a'
		}
	}
	return string(b)
}
