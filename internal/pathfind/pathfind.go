// Package pathfind implements shortest-path resolution and the
// edge-coverage validation traversal over a unified navigation graph
// (spec §4.2). Grounded on internal/attractor/engine/next_hop.go's
// edge-selection and fallback-chain shape from the teacher, generalized
// from single-hop routing to full BFS and depth-first edge coverage.
package pathfind

import (
	"sort"
	"strings"

	"github.com/virtualpytest/core/internal/coreerrors"
	"github.com/virtualpytest/core/internal/graph"
	"github.com/virtualpytest/core/internal/model"
)

// Transition is one edge-driven hop produced by pathfinding (spec §4.2
// Output transitions).
type Transition struct {
	StepNumber        int
	FromNodeID        string
	FromLabel         string
	ToNodeID          string
	ToLabel           string
	FromTreeID        string
	ToTreeID          string
	TransitionType    model.EdgeType
	TreeContextChange bool
	Actions           []model.Action
	RetryActions      []model.Action
	FailureActions    []model.Action
	ActionSetID       string
	Verifications     []model.Verification
	FinalWaitMS       int
	EdgeID            string
	IsVirtual         bool
	// ForcedTransition marks a transition synthesized by the validation
	// traversal to reconcile position drift (spec §4.2, glossary).
	ForcedTransition bool
}

// ResolveNode resolves a node id or (exact, then case-insensitive) label
// to a node id (spec §4.2 pre-flight rules).
func ResolveNode(g *graph.Graph, idOrLabel string) (string, error) {
	if idOrLabel == "" {
		return "", nil
	}
	if _, ok := g.Nodes[idOrLabel]; ok {
		return idOrLabel, nil
	}
	for _, id := range g.NodeOrder() {
		if g.Nodes[id].Label == idOrLabel {
			return id, nil
		}
	}
	lower := strings.ToLower(idOrLabel)
	for _, id := range g.NodeOrder() {
		if strings.ToLower(g.Nodes[id].Label) == lower {
			return id, nil
		}
	}
	return "", nil
}

// EntryNode picks the dedicated entry node, else the first declared
// entry point, else the first node in insertion order (spec §4.2).
func EntryNode(g *graph.Graph) string {
	for _, id := range g.NodeOrder() {
		if g.Nodes[id].Kind == model.NodeKindEntry {
			return id
		}
	}
	for _, id := range g.NodeOrder() {
		if g.Nodes[id].IsEntry {
			return id
		}
	}
	order := g.NodeOrder()
	if len(order) > 0 {
		return order[0]
	}
	return ""
}

// Path resolves start/target (ids or labels) and returns the shortest
// sequence of transitions between them (spec §4.2).
func Path(g *graph.Graph, target, start string) ([]Transition, error) {
	targetID, _ := ResolveNode(g, target)
	if targetID == "" {
		return nil, &coreerrors.PathNotFound{FromLabel: start, ToLabel: target}
	}
	if g.Nodes[targetID].Kind == model.NodeKindAction {
		return nil, &coreerrors.CannotTargetActionNode{NodeID: targetID}
	}

	startID := start
	if startID != "" {
		if resolved, _ := ResolveNode(g, start); resolved != "" {
			startID = resolved
		}
	} else {
		startID = EntryNode(g)
	}
	if startID == "" {
		return nil, &coreerrors.PathNotFound{FromLabel: start, ToID: targetID, ToLabel: g.Nodes[targetID].Label}
	}
	if startID == targetID {
		return nil, nil
	}

	arcPath, ok := shortestArcPath(g, startID, targetID)
	if !ok {
		return nil, &coreerrors.PathNotFound{
			FromID: startID, FromLabel: labelOf(g, startID),
			ToID: targetID, ToLabel: labelOf(g, targetID),
		}
	}
	return transitionsFromArcs(g, arcPath), nil
}

func labelOf(g *graph.Graph, id string) string {
	if n, ok := g.Nodes[id]; ok {
		return n.Label
	}
	return ""
}

type frame struct {
	nodeID string
	via    *graph.Arc
	prev   int // index into visited-order slice, -1 for start
}

// shortestArcPath runs a unit-weight BFS from startID to targetID and
// returns the sequence of arcs traversed.
func shortestArcPath(g *graph.Graph, startID, targetID string) ([]*graph.Arc, bool) {
	visitedFrom := map[string]int{startID: 0}
	frames := []frame{{nodeID: startID, prev: -1}}
	queue := []int{0}

	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		cur := frames[idx]
		if cur.nodeID == targetID {
			return reconstructPath(frames, idx), true
		}
		for _, a := range g.Outgoing(cur.nodeID) {
			if _, seen := visitedFrom[a.TargetNodeID]; seen {
				continue
			}
			visitedFrom[a.TargetNodeID] = len(frames)
			frames = append(frames, frame{nodeID: a.TargetNodeID, via: a, prev: idx})
			queue = append(queue, len(frames)-1)
		}
	}
	return nil, false
}

func reconstructPath(frames []frame, idx int) []*graph.Arc {
	var arcs []*graph.Arc
	for idx > 0 {
		f := frames[idx]
		arcs = append([]*graph.Arc{f.via}, arcs...)
		idx = f.prev
	}
	return arcs
}

func transitionsFromArcs(g *graph.Graph, arcs []*graph.Arc) []Transition {
	out := make([]Transition, 0, len(arcs))
	for i, a := range arcs {
		from := g.Nodes[a.SourceNodeID]
		to := g.Nodes[a.TargetNodeID]
		out = append(out, Transition{
			StepNumber:        i + 1,
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
		})
	}
	return out
}

func labelOrEmpty(n *model.Node) string {
	if n == nil {
		return ""
	}
	return n.Label
}

func treeIDOrEmpty(n *model.Node) string {
	if n == nil {
		return ""
	}
	return n.TreeID
}

func verificationsOf(n *model.Node) []model.Verification {
	if n == nil {
		return nil
	}
	return n.Verifications
}

// sortedChildren returns the children reached by arcs out of fromID,
// tie-broken lexicographically by child node id (spec §4.2 Tie-breaking).
func sortedChildren(g *graph.Graph, fromID string) []*graph.Arc {
	arcs := append([]*graph.Arc(nil), g.Outgoing(fromID)...)
	sort.Slice(arcs, func(i, j int) bool {
		return arcs[i].TargetNodeID < arcs[j].TargetNodeID
	})
	return arcs
}
