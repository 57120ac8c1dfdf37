package fsm

import (
	"fmt"
	"strings"
)

// PlanPath returns the ordered sequence of edges to reach targetState from
// the current state via breadth-first search (shortest path by edge
// count). It returns an empty slice, not an error, when already at the
// target. Ties among equal-length paths are broken deterministically by
// preferring, at each BFS step, the outgoing edge with the lexicographically
// smallest command — this fixes a canonical shortest-path tree regardless
// of map iteration order.
func (h *Handler) PlanPath(targetState string) ([]Edge, error) {
	if h.closed {
		return nil, ErrClosed
	}
	if h.current == unknownState {
		return nil, ErrUnreachableState
	}
	target, ok := h.nameIndex[strings.ToLower(targetState)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTargetStateNotExist, targetState)
	}
	if target == h.current {
		return []Edge{}, nil
	}

	predecessorEdge := make([]int, len(h.states))
	visited := make([]bool, len(h.states))
	for i := range predecessorEdge {
		predecessorEdge[i] = -1
	}
	visited[h.current] = true

	queue := []int{h.current}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		for _, edgeIdx := range h.edgesFromCmd[node] {
			e := h.edges[edgeIdx]
			if visited[e.To] {
				continue
			}
			visited[e.To] = true
			predecessorEdge[e.To] = edgeIdx
			if e.To == target {
				queue = nil
				break
			}
			queue = append(queue, e.To)
		}
	}

	if !visited[target] {
		return nil, fmt.Errorf("%w: no path to %q", ErrUnreachableState, targetState)
	}

	// Reconstruct path by walking predecessors backward from target.
	var reversed []Edge
	node := target
	for node != h.current {
		edgeIdx := predecessorEdge[node]
		e := h.edges[edgeIdx]
		reversed = append(reversed, e)
		node = e.From
	}

	path := make([]Edge, len(reversed))
	for i, e := range reversed {
		path[len(reversed)-1-i] = e
	}
	return path, nil
}
