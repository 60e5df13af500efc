// Package navexec implements the NavigationExecutor (spec §4.6): loads a
// unified navigation tree into the process-wide cache and drives a
// pathfound sequence of transitions through the ActionExecutor and
// VerificationExecutor. Grounded on the teacher's internal/attractor/
// engine/engine.go top-level Run loop shape (load → iterate → call
// handler → update context), generalized from DOT-graph/handler
// execution to tree-load → pathfind → drive-edge-by-edge.
package navexec

import (
	"context"
	"fmt"
	"time"

	"github.com/virtualpytest/core/internal/actions"
	"github.com/virtualpytest/core/internal/device"
	"github.com/virtualpytest/core/internal/graph"
	"github.com/virtualpytest/core/internal/model"
	"github.com/virtualpytest/core/internal/pathfind"
	"github.com/virtualpytest/core/internal/storage"
	"github.com/virtualpytest/core/internal/treecache"
	"github.com/virtualpytest/core/internal/verify"
)

// LoadResult is the outcome of LoadNavigationTree (spec §4.6 "Load").
type LoadResult struct {
	TreeID string
	Nodes  []model.Node
	Edges  []model.Edge
}

// NavRequest is the input to ExecuteNavigation (spec §4.6 "Navigate").
type NavRequest struct {
	RootTreeID        string
	UserInterfaceName string
	TeamID            string
	Target            string // node id or label

	HostName       string
	DeviceModel    string
	DeviceName     string
	ScriptResultID string
}

// NavResult is the outcome of ExecuteNavigation (spec §4.6 step 3).
type NavResult struct {
	Success             bool
	TotalTransitions    int
	TransitionsExecuted int
	ActionsExecuted     int
	TotalActions        int
	ExecutionTimeS      float64
	Error               string
}

// Executor drives navigation for one device (spec §4.6). It is held by
// the DeviceHandle composition record (spec §4.10) alongside the
// ActionExecutor and VerificationExecutor it drives, so their internal
// caches persist across navigation steps.
type Executor struct {
	Cache      *treecache.Cache
	Trees      storage.TreeSource
	Actions    *actions.Executor
	Verify     *verify.BatchExecutor
	NavContext *device.NavigationContext
}

// LoadNavigationTree fetches every tree for userInterfaceName, unifies
// them into a single graph, and stores it in the cache keyed by the root
// tree's id and teamID (spec §4.6 "Load"). Idempotent: reloading replaces
// the cached graph outright.
func (e *Executor) LoadNavigationTree(ctx context.Context, userInterfaceName, teamID string) (LoadResult, error) {
	trees, err := e.Trees.FetchUserInterfaceTrees(ctx, userInterfaceName, teamID)
	if err != nil {
		return LoadResult{}, fmt.Errorf("navexec: fetch trees: %w", err)
	}

	rootTreeID := ""
	for _, t := range trees {
		if t.IsRootTree {
			rootTreeID = t.TreeID
			break
		}
	}
	if rootTreeID == "" && len(trees) > 0 {
		rootTreeID = trees[0].TreeID
	}

	g, buildErrs := graph.Unify(trees, rootTreeID, teamID)
	_ = buildErrs // dropped edges are a construction-time concern (spec §4.1), not a load failure
	e.Cache.Put(rootTreeID, teamID, g)

	var nodes []model.Node
	var edges []model.Edge
	for _, t := range trees {
		nodes = append(nodes, t.Nodes...)
		edges = append(edges, t.Edges...)
	}
	return LoadResult{TreeID: rootTreeID, Nodes: nodes, Edges: edges}, nil
}

// ExecuteNavigation pathfinds from the device's current position to
// req.Target and drives each transition's actions and destination
// verifications in order (spec §4.6 "Navigate").
func (e *Executor) ExecuteNavigation(ctx context.Context, req NavRequest) (NavResult, error) {
	g, err := e.Cache.Get(req.RootTreeID, req.TeamID)
	if err != nil {
		return NavResult{Success: false, Error: err.Error()}, err
	}

	startNodeID := ""
	if e.NavContext != nil {
		startNodeID = e.NavContext.Snapshot().CurrentNodeID
	}

	transitions, err := pathfind.Path(g, req.Target, startNodeID)
	if err != nil {
		return NavResult{Success: false, Error: err.Error()}, err
	}
	return e.DriveTransitions(ctx, transitions, req)
}

// DriveTransitions runs a caller-supplied transition sequence through the
// ActionExecutor and VerificationExecutor, the same per-transition loop
// ExecuteNavigation uses after pathfinding. The validation script (spec
// §4.2 edge-coverage sweep) drives a pathfind.ValidationSequence output
// through this directly, since its step list is not a single shortest
// path to one target.
func (e *Executor) DriveTransitions(ctx context.Context, transitions []pathfind.Transition, req NavRequest) (NavResult, error) {
	start := time.Now()

	g, err := e.Cache.Get(req.RootTreeID, req.TeamID)
	if err != nil {
		return NavResult{Success: false, Error: err.Error()}, err
	}

	result := NavResult{Success: true, TotalTransitions: len(transitions)}
	for _, t := range transitions {
		result.TotalActions += len(t.Actions)
	}
	if len(transitions) == 0 {
		result.ExecutionTimeS = time.Since(start).Seconds()
		return result, nil
	}

	for _, t := range transitions {
		batchResult, err := e.Actions.ExecuteActions(ctx, actions.BatchRequest{
			Actions:        t.Actions,
			RetryActions:   t.RetryActions,
			FailureActions: t.FailureActions,
			TeamID:         req.TeamID,
			TreeID:         t.ToTreeID,
			EdgeID:         t.EdgeID,
			ActionSetID:    t.ActionSetID,
			HostName:       req.HostName,
			DeviceModel:    req.DeviceModel,
			DeviceName:     req.DeviceName,
			ScriptResultID: req.ScriptResultID,
		})
		result.TransitionsExecuted++
		result.ActionsExecuted += len(batchResult.Results)
		if err != nil || !batchResult.OverallSuccess {
			result.Success = false
			result.Error = fmt.Sprintf("transition %s -> %s failed: %s", t.FromLabel, t.ToLabel, batchResult.ErrorMessage)
			break
		}

		if t.FinalWaitMS > 0 {
			sleepCtx(ctx, time.Duration(t.FinalWaitMS)*time.Millisecond)
		}

		if len(t.Verifications) > 0 {
			vr := e.Verify.ExecuteVerifications(ctx, verify.BatchRequest{
				Verifications: t.Verifications,
				TeamID:        req.TeamID,
				TreeID:        t.ToTreeID,
				NodeID:        t.ToNodeID,
				HostName:      req.HostName,
				DeviceModel:   req.DeviceModel,
				DeviceName:    req.DeviceName,
			})
			if !vr.OverallSuccess {
				result.Success = false
				result.Error = fmt.Sprintf("verification failed at %s: %s", t.ToLabel, vr.ErrorMessage)
				break
			}
		}

		if destNode, ok := g.Nodes[t.ToNodeID]; ok && destNode.Kind != model.NodeKindAction && e.NavContext != nil {
			e.NavContext.SetPosition(t.ToTreeID, t.ToNodeID)
		}
	}

	result.ExecutionTimeS = time.Since(start).Seconds()
	return result, nil
}

// UpdateCurrentPosition sets the device navigation context directly, for
// scripts that declare "I am already at X" without navigating there
// (spec §4.6 "Position update helper").
func (e *Executor) UpdateCurrentPosition(nodeID, treeID string) {
	if e.NavContext != nil {
		e.NavContext.SetPosition(treeID, nodeID)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
