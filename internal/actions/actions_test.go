package actions

import (
	"context"
	"testing"

	"github.com/virtualpytest/core/internal/device"
	"github.com/virtualpytest/core/internal/model"
)

type fakeController struct {
	name    string
	actions []string
	fail    map[string]bool
	calls   []string
}

func (f *fakeController) Execute(_ context.Context, command string, _ map[string]any) (device.ControllerResult, error) {
	f.calls = append(f.calls, command)
	if f.fail[command] {
		return device.ControllerResult{Success: false, Message: "boom"}, nil
	}
	return device.ControllerResult{Success: true, Message: "ok"}, nil
}

func (f *fakeController) Actions() []string { return f.actions }

func newControllers(remote *fakeController) *device.Controllers {
	c := &device.Controllers{Remote: remote}
	return c
}

func TestExecuteActions_MainChainSucceeds(t *testing.T) {
	remote := &fakeController{name: "remote", actions: []string{"press_key"}}
	e := &Executor{Controllers: newControllers(remote), NavContext: &device.NavigationContext{}}

	req := BatchRequest{Actions: []model.Action{{Command: "press_key", ActionType: model.ActionTypeRemote}}}
	res, err := e.ExecuteActions(context.Background(), req)
	if err != nil {
		t.Fatalf("ExecuteActions: %v", err)
	}
	if !res.OverallSuccess {
		t.Fatalf("expected overall success, got %+v", res)
	}
	if len(res.Results) != 1 || res.Results[0].Category != "main" {
		t.Fatalf("unexpected results: %+v", res.Results)
	}
}

func TestExecuteActions_FallsBackToRetryThenFailure(t *testing.T) {
	remote := &fakeController{
		name:    "remote",
		actions: []string{"press_key", "retry_key", "failure_key"},
		fail:    map[string]bool{"press_key": true, "retry_key": true},
	}
	e := &Executor{Controllers: newControllers(remote), NavContext: &device.NavigationContext{}}

	req := BatchRequest{
		Actions:        []model.Action{{Command: "press_key", ActionType: model.ActionTypeRemote}},
		RetryActions:   []model.Action{{Command: "retry_key", ActionType: model.ActionTypeRemote}},
		FailureActions: []model.Action{{Command: "failure_key", ActionType: model.ActionTypeRemote}},
	}
	res, err := e.ExecuteActions(context.Background(), req)
	if err != nil {
		t.Fatalf("ExecuteActions: %v", err)
	}
	if !res.OverallSuccess {
		t.Fatalf("expected failure chain to recover overall success, got %+v", res)
	}
	categories := []string{}
	for _, r := range res.Results {
		categories = append(categories, r.Category)
	}
	want := []string{"main", "retry", "failure"}
	if len(categories) != len(want) {
		t.Fatalf("expected 3 results, got %v", categories)
	}
	for i, c := range want {
		if categories[i] != c {
			t.Fatalf("result %d category = %s, want %s", i, categories[i], c)
		}
	}
}

func TestExecuteActions_ContinueOnFailRunsRemainingMainActions(t *testing.T) {
	remote := &fakeController{
		name:    "remote",
		actions: []string{"a", "b"},
		fail:    map[string]bool{"a": true},
	}
	e := &Executor{Controllers: newControllers(remote), NavContext: &device.NavigationContext{}}

	req := BatchRequest{
		Actions: []model.Action{
			{Command: "a", ActionType: model.ActionTypeRemote, ContinueOnFail: true},
			{Command: "b", ActionType: model.ActionTypeRemote},
		},
		RetryActions: []model.Action{{Command: "retry-runs", ActionType: model.ActionTypeRemote}},
	}
	res, err := e.ExecuteActions(context.Background(), req)
	if err != nil {
		t.Fatalf("ExecuteActions: %v", err)
	}
	// a failing still fails the main chain overall even though b still ran,
	// so the retry chain still runs.
	mainCommands := []string{}
	for _, r := range res.Results {
		if r.Category == "main" {
			mainCommands = append(mainCommands, r.Command)
		}
	}
	if len(mainCommands) != 2 || mainCommands[0] != "a" || mainCommands[1] != "b" {
		t.Fatalf("expected both a and b to run in main chain, got %v", mainCommands)
	}
	if len(res.Results) != 3 || res.Results[2].Command != "retry-runs" {
		t.Fatalf("expected retry chain to run since main chain failed, got %+v", res.Results)
	}
}

func TestNormalizedIteratorClamping(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{{0, 1}, {-5, 1}, {1, 1}, {50, 50}, {100, 100}, {500, 100}}
	for _, c := range cases {
		a := model.Action{Iterator: c.in}
		if got := a.NormalizedIterator(); got != c.want {
			t.Fatalf("NormalizedIterator(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestFlattenParams_UnwrapsTypedSchemaObject(t *testing.T) {
	params := map[string]any{
		"volume": map[string]any{"default": 5.0, "type": "number", "required": true},
		"label":  "plain",
	}
	got := flattenParams(params)
	if got["volume"] != 5.0 {
		t.Fatalf("expected volume unwrapped to 5.0, got %v", got["volume"])
	}
	if got["label"] != "plain" {
		t.Fatalf("expected label untouched, got %v", got["label"])
	}
}

func TestControllerRegistry_CachesResolvedType(t *testing.T) {
	remote := &fakeController{name: "remote", actions: []string{"tap"}}
	r := newControllerRegistry(newControllers(remote))

	a := model.Action{Command: "tap"}
	t1, err := r.resolveType(a)
	if err != nil {
		t.Fatalf("resolveType: %v", err)
	}
	if t1 != model.ActionTypeRemote {
		t.Fatalf("expected remote, got %s", t1)
	}

	r.controllers.Remote = nil // prove the second call hits the cache, not the controller
	t2, err := r.resolveType(a)
	if err != nil {
		t.Fatalf("resolveType (cached): %v", err)
	}
	if t2 != model.ActionTypeRemote {
		t.Fatalf("expected cached remote, got %s", t2)
	}
}

func TestControllerRegistry_UnknownCommand(t *testing.T) {
	remote := &fakeController{name: "remote", actions: []string{"tap"}}
	r := newControllerRegistry(newControllers(remote))

	if _, err := r.resolveType(model.Action{Command: "nope"}); err == nil {
		t.Fatal("expected error for unowned command")
	}
}
