package navexec

import (
	"context"
	"testing"

	"github.com/virtualpytest/core/internal/actions"
	"github.com/virtualpytest/core/internal/device"
	"github.com/virtualpytest/core/internal/model"
	"github.com/virtualpytest/core/internal/treecache"
	"github.com/virtualpytest/core/internal/verify"
)

type fakeTreeSource struct {
	trees []model.Tree
}

func (f *fakeTreeSource) FetchUserInterfaceTrees(_ context.Context, _, _ string) ([]model.Tree, error) {
	return f.trees, nil
}

type fakeRemote struct {
	actionsOwned []string
}

func (f *fakeRemote) Execute(_ context.Context, command string, _ map[string]any) (device.ControllerResult, error) {
	return device.ControllerResult{Success: true, Message: "ok:" + command}, nil
}

func (f *fakeRemote) Actions() []string { return f.actionsOwned }

func twoNodeTree() model.Tree {
	return model.Tree{
		TreeID:     "tree-1",
		Name:       "root",
		IsRootTree: true,
		Nodes: []model.Node{
			{ID: "home", Label: "Home", Kind: model.NodeKindEntry, TreeID: "tree-1"},
			{ID: "settings", Label: "Settings", Kind: model.NodeKindScreen, TreeID: "tree-1"},
		},
		Edges: []model.Edge{
			{
				ID:               "e1",
				SourceNodeID:     "home",
				TargetNodeID:     "settings",
				DefaultActionSet: "as1",
				ActionSets: []model.ActionSet{
					{ID: "as1", Actions: []model.Action{{Command: "press_settings", ActionType: model.ActionTypeRemote}}},
				},
			},
		},
	}
}

func newExecutor(t *testing.T, tree model.Tree) (*Executor, *fakeRemote) {
	t.Helper()
	remote := &fakeRemote{actionsOwned: []string{"press_settings"}}
	controllers := &device.Controllers{Remote: remote}
	navCtx := &device.NavigationContext{CurrentNodeID: "home", CurrentTreeID: "tree-1"}

	return &Executor{
		Cache:      treecache.New(),
		Trees:      &fakeTreeSource{trees: []model.Tree{tree}},
		Actions:    &actions.Executor{Controllers: controllers, NavContext: navCtx},
		Verify:     &verify.BatchExecutor{Controllers: controllers},
		NavContext: navCtx,
	}, remote
}

func TestLoadNavigationTree_CachesUnifiedGraph(t *testing.T) {
	e, _ := newExecutor(t, twoNodeTree())
	res, err := e.LoadNavigationTree(context.Background(), "main", "team-1")
	if err != nil {
		t.Fatalf("LoadNavigationTree: %v", err)
	}
	if res.TreeID != "tree-1" {
		t.Fatalf("expected tree-1, got %s", res.TreeID)
	}
	if _, err := e.Cache.Get("tree-1", "team-1"); err != nil {
		t.Fatalf("expected graph cached: %v", err)
	}
}

func TestExecuteNavigation_DrivesTransitionAndUpdatesPosition(t *testing.T) {
	e, remote := newExecutor(t, twoNodeTree())
	if _, err := e.LoadNavigationTree(context.Background(), "main", "team-1"); err != nil {
		t.Fatalf("LoadNavigationTree: %v", err)
	}

	res, err := e.ExecuteNavigation(context.Background(), NavRequest{
		RootTreeID: "tree-1",
		TeamID:     "team-1",
		Target:     "settings",
	})
	if err != nil {
		t.Fatalf("ExecuteNavigation: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.TransitionsExecuted != 1 {
		t.Fatalf("expected 1 transition executed, got %d", res.TransitionsExecuted)
	}
	if len(remote.actionsOwned) == 0 {
		t.Fatal("sanity: remote controller should still own its actions")
	}
	if e.NavContext.Snapshot().CurrentNodeID != "settings" {
		t.Fatalf("expected position updated to settings, got %s", e.NavContext.Snapshot().CurrentNodeID)
	}
}

func TestExecuteNavigation_EmptyPathWhenAlreadyAtTarget(t *testing.T) {
	e, _ := newExecutor(t, twoNodeTree())
	if _, err := e.LoadNavigationTree(context.Background(), "main", "team-1"); err != nil {
		t.Fatalf("LoadNavigationTree: %v", err)
	}

	res, err := e.ExecuteNavigation(context.Background(), NavRequest{
		RootTreeID: "tree-1",
		TeamID:     "team-1",
		Target:     "home",
	})
	if err != nil {
		t.Fatalf("ExecuteNavigation: %v", err)
	}
	if !res.Success || res.TotalTransitions != 0 {
		t.Fatalf("expected trivial success, got %+v", res)
	}
}

func TestExecuteNavigation_CacheMissReturnsError(t *testing.T) {
	e, _ := newExecutor(t, twoNodeTree())
	_, err := e.ExecuteNavigation(context.Background(), NavRequest{RootTreeID: "tree-1", TeamID: "team-1", Target: "settings"})
	if err == nil {
		t.Fatal("expected cache-miss error before LoadNavigationTree")
	}
}
