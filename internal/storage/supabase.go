package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/virtualpytest/core/internal/model"
)

// SupabaseConfig holds the PostgREST endpoint details for the durable-
// storage tables this core reads/writes (spec §6 "Navigation tree
// source"/"Execution records"). Grounded on
// original_source/src/lib/supabase/script_results_db.py and
// zap_results_db.py's table names (script_results, zap_results) and
// insert/update/eq call shapes, translated from the supabase-py ORM to
// direct PostgREST HTTP calls since no Postgres/Supabase client library
// appears anywhere in the retrieval pack (the same reasoning that keeps
// R2Client a hand-rolled HTTP transport rather than an S3 SDK).
type SupabaseConfig struct {
	BaseURL string // e.g. https://<project>.supabase.co/rest/v1
	APIKey  string
}

// SupabaseClient implements both TreeSource and ExecutionRecorder over
// PostgREST.
type SupabaseClient struct {
	cfg    SupabaseConfig
	client *http.Client
}

// NewSupabaseClient builds a client from the given connection details.
func NewSupabaseClient(cfg SupabaseConfig) *SupabaseClient {
	return &SupabaseClient{cfg: cfg, client: &http.Client{Timeout: 30 * time.Second}}
}

var _ TreeSource = (*SupabaseClient)(nil)
var _ ExecutionRecorder = (*SupabaseClient)(nil)

func (c *SupabaseClient) request(ctx context.Context, method, table, query string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/" + table
	if query != "" {
		url += "?" + query
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.cfg.APIKey)
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")
	return c.client.Do(req)
}

// treeRow is the PostgREST row shape for navigation_trees (spec §6 "Tree
// = {tree_id, name, parent_tree_id?, parent_node_id?, tree_depth,
// is_root_tree, nodes, edges}").
type treeRow struct {
	TreeID       string          `json:"tree_id"`
	Name         string          `json:"name"`
	ParentTreeID string          `json:"parent_tree_id"`
	ParentNodeID string          `json:"parent_node_id"`
	TreeDepth    int             `json:"tree_depth"`
	IsRootTree   bool            `json:"is_root_tree"`
	Nodes        json.RawMessage `json:"nodes"`
	Edges        json.RawMessage `json:"edges"`
}

// FetchUserInterfaceTrees implements TreeSource over
// GET /navigation_trees?userinterface_name=eq.<name>&team_id=eq.<team_id>.
func (c *SupabaseClient) FetchUserInterfaceTrees(ctx context.Context, userInterfaceName, teamID string) ([]model.Tree, error) {
	query := fmt.Sprintf("userinterface_name=eq.%s&team_id=eq.%s", urlEscape(userInterfaceName), urlEscape(teamID))
	resp, err := c.request(ctx, http.MethodGet, "navigation_trees", query, nil)
	if err != nil {
		return nil, fmt.Errorf("supabase: fetch trees: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("supabase: fetch trees: status %d", resp.StatusCode)
	}

	var rows []treeRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("supabase: decode trees: %w", err)
	}

	trees := make([]model.Tree, 0, len(rows))
	for _, r := range rows {
		var t model.Tree
		t.TreeID = r.TreeID
		t.Name = r.Name
		t.ParentTreeID = r.ParentTreeID
		t.ParentNodeID = r.ParentNodeID
		t.TreeDepth = r.TreeDepth
		t.IsRootTree = r.IsRootTree
		if len(r.Nodes) > 0 {
			if err := json.Unmarshal(r.Nodes, &t.Nodes); err != nil {
				return nil, fmt.Errorf("supabase: decode tree %s nodes: %w", r.TreeID, err)
			}
		}
		if len(r.Edges) > 0 {
			if err := json.Unmarshal(r.Edges, &t.Edges); err != nil {
				return nil, fmt.Errorf("supabase: decode tree %s edges: %w", r.TreeID, err)
			}
		}
		trees = append(trees, t)
	}
	return trees, nil
}

// RecordScriptExecutionStart inserts a script_results row (grounded on
// script_results_db.py's record_script_execution_start).
func (c *SupabaseClient) RecordScriptExecutionStart(ctx context.Context, in ScriptExecutionStart) (string, error) {
	id := strings.ToLower(ulid.Make().String())
	row := map[string]any{
		"id":                  id,
		"team_id":             in.TeamID,
		"script_name":         in.ScriptName,
		"script_type":         in.ScriptType,
		"userinterface_name":  in.UserInterfaceName,
		"host_name":           in.HostName,
		"device_name":         in.DeviceName,
		"success":             false,
		"started_at":          time.Now().UTC().Format(time.RFC3339),
		"metadata":            in.Metadata,
	}
	resp, err := c.request(ctx, http.MethodPost, "script_results", "", row)
	if err != nil {
		return "", fmt.Errorf("supabase: record script start: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("supabase: record script start: status %d: %s", resp.StatusCode, string(body))
	}
	return id, nil
}

// UpdateScriptExecutionResult patches the script_results row by id
// (grounded on script_results_db.py's update_script_execution_result).
func (c *SupabaseClient) UpdateScriptExecutionResult(ctx context.Context, in ScriptExecutionResult) error {
	row := map[string]any{
		"success":           in.Success,
		"execution_time_ms": in.ExecutionTimeMS,
		"html_report_url":   in.HTMLReportURL,
		"logs_url":          in.LogsURL,
		"error_msg":         in.ErrorMessage,
		"metadata":          in.Metadata,
		"completed_at":      time.Now().UTC().Format(time.RFC3339),
	}
	query := "id=eq." + urlEscape(in.ScriptResultID)
	resp, err := c.request(ctx, http.MethodPatch, "script_results", query, row)
	if err != nil {
		return fmt.Errorf("supabase: update script result: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("supabase: update script result: status %d", resp.StatusCode)
	}
	return nil
}

// RecordEdgeExecution inserts an edge_executions row.
func (c *SupabaseClient) RecordEdgeExecution(ctx context.Context, in EdgeExecution) error {
	row := map[string]any{
		"team_id":          in.TeamID,
		"tree_id":          in.TreeID,
		"edge_id":          in.EdgeID,
		"host_name":        in.HostName,
		"device_model":     in.DeviceModel,
		"device_name":      in.DeviceName,
		"success":          in.Success,
		"execution_time_ms": in.ExecutionTimeMS,
		"message":          in.Message,
		"error_details":    in.ErrorDetails,
		"script_result_id": in.ScriptResultID,
		"script_context":   in.ScriptContext,
		"action_set_id":    in.ActionSetID,
	}
	return c.insertOnly(ctx, "edge_executions", row)
}

// RecordNodeExecution inserts a node_executions row.
func (c *SupabaseClient) RecordNodeExecution(ctx context.Context, in NodeExecution) error {
	row := map[string]any{
		"team_id":          in.TeamID,
		"tree_id":          in.TreeID,
		"node_id":          in.NodeID,
		"host_name":        in.HostName,
		"device_model":     in.DeviceModel,
		"device_name":      in.DeviceName,
		"success":          in.Success,
		"execution_time_ms": in.ExecutionTimeMS,
		"message":          in.Message,
		"error_details":    in.ErrorDetails,
		"script_result_id": in.ScriptResultID,
		"script_context":   in.ScriptContext,
	}
	return c.insertOnly(ctx, "node_executions", row)
}

// RecordZapIteration inserts a zap_results row (grounded on
// zap_results_db.py's record_zap_iteration).
func (c *SupabaseClient) RecordZapIteration(ctx context.Context, in ZapIteration) (string, error) {
	id := strings.ToLower(ulid.Make().String())
	row := map[string]any{
		"id":                  id,
		"script_result_id":    in.ScriptResultID,
		"team_id":             in.TeamID,
		"host_name":           in.HostName,
		"device_name":         in.DeviceName,
		"device_model":        in.DeviceModel,
		"userinterface_name":  in.UserInterfaceName,
		"iteration_index":     in.IterationIndex,
		"action_command":      in.ActionCommand,
		"started_at":          in.StartedAt,
		"completed_at":        in.CompletedAt,
		"duration_seconds":    in.DurationSeconds,
		"motion_detected":     in.MotionDetected,
		"subtitles_detected":  in.SubtitlesDetected,
		"audio_detected":      in.AudioDetected,
		"zapping_detected":    in.ZappingDetected,
		"languages":           in.Languages,
		"texts":               in.Texts,
		"blackscreen_duration_ms": in.BlackscreenDurMS,
		"detection_method":    in.DetectionMethod,
		"channel_name":        in.ChannelName,
		"channel_number":      in.ChannelNumber,
		"program_name":        in.ProgramName,
		"program_start_time":  in.ProgramStartTime,
		"program_end_time":    in.ProgramEndTime,
	}
	resp, err := c.request(ctx, http.MethodPost, "zap_results", "", row)
	if err != nil {
		return "", fmt.Errorf("supabase: record zap iteration: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("supabase: record zap iteration: status %d: %s", resp.StatusCode, string(body))
	}
	return id, nil
}

func (c *SupabaseClient) insertOnly(ctx context.Context, table string, row map[string]any) error {
	resp, err := c.request(ctx, http.MethodPost, table, "", row)
	if err != nil {
		return fmt.Errorf("supabase: insert %s: %w", table, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("supabase: insert %s: status %d: %s", table, resp.StatusCode, string(body))
	}
	return nil
}

func urlEscape(s string) string {
	// PostgREST filter values never contain reserved "&"/"=" in this
	// core's callers (ids, team slugs); a minimal escape covers spaces.
	return strings.ReplaceAll(s, " ", "%20")
}
