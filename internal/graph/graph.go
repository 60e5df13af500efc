// Package graph builds the unified directed multigraph described in
// spec §3 (UnifiedGraph) and §4.1 (NavigationGraph construction),
// including the cross-tree virtual edges synthesized at unification.
//
// Grounded on internal/attractor/dot/parser.go's AddNode/AddEdge
// validation shape and internal/attractor/engine/next_hop.go's
// g.Outgoing(from) / g.Nodes[id] access idiom from the teacher
// (vsavkov-kilroy), generalized from a DOT-sourced handler graph to the
// navigation tree's Node/Edge/ActionSet model.
package graph

import (
	"fmt"
	"sort"

	"github.com/virtualpytest/core/internal/coreerrors"
	"github.com/virtualpytest/core/internal/model"
)

// Arc is one directed traversable edge in the graph: either the forward
// half of a model.Edge, its synthesized reverse half, or a virtual
// cross-tree edge (spec §4.1).
type Arc struct {
	EdgeID         string
	EdgeType       model.EdgeType
	SourceNodeID   string
	TargetNodeID   string
	ActionSetID    string
	Actions        []model.Action
	RetryActions   []model.Action
	FailureActions []model.Action
	FinalWaitMS    int
	Weight         int
	IsForward      bool
	IsReverse      bool
	IsVirtual      bool
	IsConditional  bool
}

// Graph is an immutable-once-built directed multigraph spanning a root
// tree and any unified child trees. Concurrent readers require no
// locking once Build/Unify returns.
type Graph struct {
	RootTreeID string
	TeamID     string

	Nodes map[string]*model.Node
	// outgoing[nodeID] lists every Arc leaving that node, in insertion order.
	outgoing map[string][]*Arc
	// order records node insertion order, used for "first node" fallback.
	order []string
}

func newGraph(rootTreeID, teamID string) *Graph {
	return &Graph{
		RootTreeID: rootTreeID,
		TeamID:     teamID,
		Nodes:      map[string]*model.Node{},
		outgoing:   map[string][]*Arc{},
	}
}

// Outgoing returns every Arc leaving nodeID, in insertion order.
func (g *Graph) Outgoing(nodeID string) []*Arc {
	return g.outgoing[nodeID]
}

// NodeOrder returns node ids in the order they were first added.
func (g *Graph) NodeOrder() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

func (g *Graph) addNode(n *model.Node) {
	if _, exists := g.Nodes[n.ID]; exists {
		return
	}
	g.Nodes[n.ID] = n
	g.order = append(g.order, n.ID)
}

func (g *Graph) addArc(a *Arc) {
	g.outgoing[a.SourceNodeID] = append(g.outgoing[a.SourceNodeID], a)
}

// Build constructs a single tree's graph from its nodes and edges
// (spec §4.1 Construction). Invalid edges are dropped, not fatal.
func Build(tree model.Tree, teamID string) (*Graph, []error) {
	g := newGraph(tree.TreeID, teamID)
	var warnings []error

	for i := range tree.Nodes {
		n := tree.Nodes[i]
		n.TreeID = tree.TreeID
		n.TreeName = tree.Name
		n.TreeDepth = tree.TreeDepth
		node := n
		g.addNode(&node)
	}

	for _, e := range tree.Edges {
		if _, ok := g.Nodes[e.SourceNodeID]; !ok {
			warnings = append(warnings, &coreerrors.InvalidActionSet{EdgeID: e.ID, Reason: "missing source node"})
			continue
		}
		if _, ok := g.Nodes[e.TargetNodeID]; !ok {
			warnings = append(warnings, &coreerrors.InvalidActionSet{EdgeID: e.ID, Reason: "missing target node"})
			continue
		}

		def, hasDefault := e.DefaultSet()
		_, hasReverse := e.ReverseSet()
		if len(e.ActionSets) == 0 {
			if e.IsConditional || hasReverse {
				// Conditional edges are retained even with no populated
				// actions yet (spec §9 Open Question (a)).
			} else {
				continue
			}
		} else if !hasDefault {
			warnings = append(warnings, &coreerrors.InvalidActionSet{EdgeID: e.ID, Reason: "default_action_set_id not found in action_sets"})
			continue
		}

		g.addArc(&Arc{
			EdgeID:         e.ID,
			EdgeType:       orDefaultEdgeType(e.EdgeType),
			SourceNodeID:   e.SourceNodeID,
			TargetNodeID:   e.TargetNodeID,
			ActionSetID:    def.ID,
			Actions:        def.Actions,
			RetryActions:   def.RetryActions,
			FailureActions: def.FailureActions,
			FinalWaitMS:    e.FinalWait(),
			Weight:         1,
			IsForward:      true,
			IsConditional:  e.IsConditional,
		})

		if rev, ok := e.ReverseSet(); ok {
			g.addArc(&Arc{
				EdgeID:         e.ID + "_reverse",
				EdgeType:       orDefaultEdgeType(e.EdgeType),
				SourceNodeID:   e.TargetNodeID,
				TargetNodeID:   e.SourceNodeID,
				ActionSetID:    rev.ID,
				Actions:        rev.Actions,
				RetryActions:   rev.RetryActions,
				FailureActions: rev.FailureActions,
				FinalWaitMS:    e.FinalWait(),
				Weight:         1,
				IsReverse:      true,
				IsConditional:  e.IsConditional,
			})
		}
	}

	return g, warnings
}

func orDefaultEdgeType(t model.EdgeType) model.EdgeType {
	if t == "" {
		return model.EdgeTypeNormal
	}
	return t
}

// Unify builds each tree's graph and merges them into one multigraph,
// adding enter_subtree/exit_subtree virtual edges for every
// parent-node -> child-tree link (spec §4.1 Unification).
func Unify(trees []model.Tree, rootTreeID, teamID string) (*Graph, []error) {
	unified := newGraph(rootTreeID, teamID)
	var warnings []error

	treesByID := make(map[string]model.Tree, len(trees))
	for _, t := range trees {
		treesByID[t.TreeID] = t
	}

	// Sort trees by (depth, id) so unification is deterministic regardless
	// of fetch order.
	sorted := make([]model.Tree, len(trees))
	copy(sorted, trees)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].TreeDepth != sorted[j].TreeDepth {
			return sorted[i].TreeDepth < sorted[j].TreeDepth
		}
		return sorted[i].TreeID < sorted[j].TreeID
	})

	for _, tree := range sorted {
		g, w := Build(tree, teamID)
		warnings = append(warnings, w...)
		for _, id := range g.NodeOrder() {
			unified.addNode(g.Nodes[id])
		}
		for _, arcs := range g.outgoing {
			for _, a := range arcs {
				unified.addArc(a)
			}
		}
	}

	for _, tree := range sorted {
		if tree.ParentTreeID == "" || tree.ParentNodeID == "" {
			continue
		}
		parent, ok := unified.Nodes[tree.ParentNodeID]
		if !ok {
			warnings = append(warnings, fmt.Errorf("unify: parent node %s not found for child tree %s", tree.ParentNodeID, tree.TreeID))
			continue
		}
		entry := findEntryNode(treesByID[tree.TreeID])
		if entry == "" {
			warnings = append(warnings, fmt.Errorf("unify: child tree %s has no entry node", tree.TreeID))
			continue
		}
		childEntryID := entry
		addVirtualPair(unified, parent.ID, childEntryID)
	}

	return unified, warnings
}

func findEntryNode(t model.Tree) string {
	for _, n := range t.Nodes {
		if n.Kind == model.NodeKindEntry || n.IsEntry {
			return n.ID
		}
	}
	if len(t.Nodes) > 0 {
		return t.Nodes[0].ID
	}
	return ""
}

func addVirtualPair(g *Graph, parentID, childEntryID string) {
	enterSet := model.ActionSet{ID: "virtual_enter", Actions: []model.Action{{Command: "enter_subtree", ActionType: model.ActionTypeStandardBlock}}}
	exitSet := model.ActionSet{ID: "virtual_exit", Actions: []model.Action{{Command: "exit_subtree", ActionType: model.ActionTypeStandardBlock}}}

	g.addArc(&Arc{
		EdgeID:       fmt.Sprintf("virtual_enter_%s_%s", parentID, childEntryID),
		EdgeType:     model.EdgeTypeEnterSubtree,
		SourceNodeID: parentID,
		TargetNodeID: childEntryID,
		ActionSetID:  enterSet.ID,
		Actions:      enterSet.Actions,
		Weight:       1,
		IsForward:    true,
		IsVirtual:    true,
	})
	g.addArc(&Arc{
		EdgeID:       fmt.Sprintf("virtual_exit_%s_%s", childEntryID, parentID),
		EdgeType:     model.EdgeTypeExitSubtree,
		SourceNodeID: childEntryID,
		TargetNodeID: parentID,
		ActionSetID:  exitSet.ID,
		Actions:      exitSet.Actions,
		Weight:       1,
		IsForward:    true,
		IsVirtual:    true,
	})
}

// NonVirtualArcs returns every arc not synthesized at unification, used
// for validation-traversal edge coverage (spec §4.2).
func (g *Graph) NonVirtualArcs() []*Arc {
	var out []*Arc
	for _, id := range g.order {
		for _, a := range g.outgoing[id] {
			if !a.IsVirtual {
				out = append(out, a)
			}
		}
	}
	return out
}
