package pathfind

import (
	"github.com/virtualpytest/core/internal/graph"
	"github.com/virtualpytest/core/internal/model"
)

// traversalState carries the depth-first edge-coverage walk's mutable
// bookkeeping (spec §4.2 "Validation sequence (edge-coverage traversal)").
type traversalState struct {
	g            *graph.Graph
	visitedArcs  map[*graph.Arc]bool
	position     string
	transitions  []Transition
	stepCounter  int
}

// ValidationSequence produces an ordered list of transitions that
// collectively cover every non-virtual edge of g, including reverse
// directions where defined (spec §4.2).
func ValidationSequence(g *graph.Graph) []Transition {
	ts := &traversalState{
		g:           g,
		visitedArcs: map[*graph.Arc]bool{},
		position:    EntryNode(g),
	}
	if ts.position == "" {
		return nil
	}
	ts.visit(ts.position)

	// Edges unreachable from the entry-rooted DFS (disconnected
	// components) are still swept: force a transition to each remaining
	// node with uncovered outgoing arcs, then resume the depth-first walk
	// from there.
	for _, id := range g.NodeOrder() {
		if !ts.hasUnvisitedOutgoing(id) {
			continue
		}
		if ts.position != id {
			if !ts.forceTo(id) {
				continue
			}
		}
		ts.visit(id)
	}
	return ts.transitions
}

func (ts *traversalState) hasUnvisitedOutgoing(nodeID string) bool {
	for _, a := range ts.g.Outgoing(nodeID) {
		if a.IsVirtual {
			continue
		}
		if !ts.visitedArcs[a] {
			return true
		}
	}
	return false
}

// visit depth-first descends every unvisited, non-virtual outgoing arc
// of nodeID, tie-broken lexicographically on the child node id, and
// attempts a return transition after each descent.
func (ts *traversalState) visit(nodeID string) {
	for {
		arcs := sortedChildren(ts.g, nodeID)
		var next *graph.Arc
		for _, a := range arcs {
			if a.IsVirtual || ts.visitedArcs[a] {
				continue
			}
			next = a
			break
		}
		if next == nil {
			return
		}

		if ts.position != nodeID {
			if !ts.forceTo(nodeID) {
				// No reachable path to the pending step's origin: mark
				// unreachable and skip this step (spec §4.2).
				ts.visitedArcs[next] = true
				continue
			}
		}

		ts.visitedArcs[next] = true
		ts.appendTransition(next, false)
		childIsAction := ts.g.Nodes[next.TargetNodeID] != nil && ts.g.Nodes[next.TargetNodeID].Kind == model.NodeKindAction
		if !childIsAction {
			ts.position = next.TargetNodeID
		}

		childPos := next.TargetNodeID
		if !childIsAction {
			ts.visit(childPos)
		}

		ts.tryReturn(childPos, nodeID, next)
	}
}

// tryReturn implements the post-descent return-path priority: (1) a
// direct unvisited return edge, (2) the reverse action set on the same
// edge, (3) a transitional shortest path, else accept the unidirectional
// edge (spec §4.2).
func (ts *traversalState) tryReturn(childPos, parentID string, forward *graph.Arc) {
	if direct := ts.findDirectReturn(childPos, parentID, forward); direct != nil {
		if ts.position != childPos {
			if !ts.forceTo(childPos) {
				return
			}
		}
		ts.visitedArcs[direct] = true
		ts.appendTransition(direct, false)
		ts.position = parentID
		return
	}

	if ts.forceTo(parentID) {
		return
	}
	// Unidirectional edge: no return possible, position stays wherever
	// the descent left it.
}

// findDirectReturn looks for an unvisited arc from childPos to parentID:
// preferentially a direct return edge other than the forward edge's own
// reverse, otherwise the reverse action set synthesized from the same edge.
func (ts *traversalState) findDirectReturn(childPos, parentID string, forward *graph.Arc) *graph.Arc {
	var reverseOfSameEdge *graph.Arc
	var other *graph.Arc
	for _, a := range ts.g.Outgoing(childPos) {
		if a.IsVirtual || ts.visitedArcs[a] || a.TargetNodeID != parentID {
			continue
		}
		if a.EdgeID == forward.EdgeID+"_reverse" {
			reverseOfSameEdge = a
			continue
		}
		if other == nil {
			other = a
		}
	}
	if other != nil {
		return other
	}
	return reverseOfSameEdge
}

// forceTo inserts a forced transition (direct shortest path from the
// current position, falling back to a path from the entry point) to
// reach toID. Returns false if no path exists at all.
func (ts *traversalState) forceTo(toID string) bool {
	if ts.position == toID {
		return true
	}
	arcs, ok := shortestArcPath(ts.g, ts.position, toID)
	if !ok {
		entry := EntryNode(ts.g)
		arcs, ok = shortestArcPath(ts.g, entry, toID)
		if !ok {
			return false
		}
		ts.position = entry
	}
	for _, a := range arcs {
		ts.appendTransition(a, true)
		if ts.g.Nodes[a.TargetNodeID] == nil || ts.g.Nodes[a.TargetNodeID].Kind != model.NodeKindAction {
			ts.position = a.TargetNodeID
		}
	}
	ts.position = toID
	return true
}

func (ts *traversalState) appendTransition(a *graph.Arc, forced bool) {
	ts.stepCounter++
	from := ts.g.Nodes[a.SourceNodeID]
	to := ts.g.Nodes[a.TargetNodeID]
	ts.transitions = append(ts.transitions, Transition{
		StepNumber:        ts.stepCounter,
		FromNodeID:        a.SourceNodeID,
		FromLabel:         labelOrEmpty(from),
		ToNodeID:          a.TargetNodeID,
		ToLabel:           labelOrEmpty(to),
		FromTreeID:        treeIDOrEmpty(from),
		ToTreeID:          treeIDOrEmpty(to),
		TransitionType:    a.EdgeType,
		TreeContextChange: treeIDOrEmpty(from) != treeIDOrEmpty(to),
		Actions:           a.Actions,
		RetryActions:      a.RetryActions,
		FailureActions:    a.FailureActions,
		ActionSetID:       a.ActionSetID,
		Verifications:     verificationsOf(to),
		FinalWaitMS:       a.FinalWaitMS,
		EdgeID:            a.EdgeID,
		IsVirtual:         a.IsVirtual,
		ForcedTransition:  forced,
	})
}
