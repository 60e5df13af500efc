package storage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestSupabaseClient(t *testing.T, handler http.HandlerFunc) (*SupabaseClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewSupabaseClient(SupabaseConfig{BaseURL: srv.URL, APIKey: "test-key"}), srv
}

func TestFetchUserInterfaceTrees_DecodesRowsIntoModelTrees(t *testing.T) {
	client, _ := newTestSupabaseClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/navigation_trees" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("userinterface_name"); got != "eq.horizon" {
			t.Fatalf("unexpected filter: %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]treeRow{{
			TreeID:     "tree-1",
			Name:       "home",
			TreeDepth:  0,
			IsRootTree: true,
			Nodes:      json.RawMessage(`[]`),
			Edges:      json.RawMessage(`[]`),
		}})
	})

	trees, err := client.FetchUserInterfaceTrees(context.Background(), "horizon", "team-1")
	if err != nil {
		t.Fatalf("FetchUserInterfaceTrees: %v", err)
	}
	if len(trees) != 1 || trees[0].TreeID != "tree-1" || !trees[0].IsRootTree {
		t.Fatalf("unexpected trees: %+v", trees)
	}
}

func TestFetchUserInterfaceTrees_NonOKStatusFails(t *testing.T) {
	client, _ := newTestSupabaseClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	if _, err := client.FetchUserInterfaceTrees(context.Background(), "horizon", "team-1"); err == nil {
		t.Fatal("expected error on non-2xx status")
	}
}

func TestRecordScriptExecutionStart_ReturnsGeneratedID(t *testing.T) {
	client, _ := newTestSupabaseClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/script_results" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["success"] != false {
			t.Fatalf("expected success=false on start, got %v", body["success"])
		}
		w.WriteHeader(http.StatusCreated)
	})

	id, err := client.RecordScriptExecutionStart(context.Background(), ScriptExecutionStart{
		TeamID:     "team-1",
		ScriptName: "fullzap",
	})
	if err != nil {
		t.Fatalf("RecordScriptExecutionStart: %v", err)
	}
	if id == "" {
		t.Fatal("expected a generated script result id")
	}
}

func TestUpdateScriptExecutionResult_PatchesByID(t *testing.T) {
	client, _ := newTestSupabaseClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Fatalf("expected PATCH, got %s", r.Method)
		}
		if got := r.URL.Query().Get("id"); got != "eq.result-1" {
			t.Fatalf("unexpected filter: %s", got)
		}
		w.WriteHeader(http.StatusOK)
	})

	err := client.UpdateScriptExecutionResult(context.Background(), ScriptExecutionResult{
		ScriptResultID: "result-1",
		Success:        true,
	})
	if err != nil {
		t.Fatalf("UpdateScriptExecutionResult: %v", err)
	}
}

func TestRecordZapIteration_ReturnsGeneratedID(t *testing.T) {
	client, _ := newTestSupabaseClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/zap_results" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusCreated)
	})

	id, err := client.RecordZapIteration(context.Background(), ZapIteration{
		ScriptResultID: "result-1",
		ChannelName:    "BBC One",
	})
	if err != nil {
		t.Fatalf("RecordZapIteration: %v", err)
	}
	if id == "" {
		t.Fatal("expected a generated zap result id")
	}
}

func TestRecordEdgeExecution_PostsInsertOnly(t *testing.T) {
	client, _ := newTestSupabaseClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/edge_executions" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusCreated)
	})

	if err := client.RecordEdgeExecution(context.Background(), EdgeExecution{EdgeID: "edge-1"}); err != nil {
		t.Fatalf("RecordEdgeExecution: %v", err)
	}
}

func TestRecordNodeExecution_FailureSurfacesStatus(t *testing.T) {
	client, _ := newTestSupabaseClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"bad request"}`))
	})

	if err := client.RecordNodeExecution(context.Background(), NodeExecution{NodeID: "node-1"}); err == nil {
		t.Fatal("expected error on non-2xx status")
	}
}
