// Package actions implements the ActionExecutor (spec §4.4): ordered
// action-batch execution with retry/failure fallback, per-action
// iteration, timing, and durable-storage recording. Grounded on the
// teacher's internal/attractor/engine/handlers.go HandlerRegistry for
// the controller-dispatch shape and internal/attractor/engine/backoff.go
// for attempt/timing bookkeeping; exact retry/failure semantics and the
// controller-priority list follow original_source/backend_host/src/
// services/actions/action_executor.py.
package actions

import (
	"time"

	"github.com/virtualpytest/core/internal/model"
)

// ActionResult is the outcome of one executed action (possibly one of
// several iterations), folded into a BatchResult.
type ActionResult struct {
	Command         string
	Category        string // "main", "retry", or "failure"
	Success         bool
	Message         string
	Error           string
	OutputData      map[string]any
	Iterations      int
	ExecutionTimeMS int64
}

// BatchResult is the outcome of an entire action batch (spec §4.4 Contract).
type BatchResult struct {
	OverallSuccess         bool
	Results                []ActionResult
	OutputData             map[string]any
	ExecutionTimeMS        int64
	ActionScreenshots      []string
	BeforeActionScreenshot string
	ErrorMessage           string
}

// BatchRequest is the input to ExecuteActions (spec §4.4 Contract plus
// the script-context/device identity fields the post-action side effects
// and durable-storage recording need).
type BatchRequest struct {
	Actions        []model.Action
	RetryActions   []model.Action
	FailureActions []model.Action

	TeamID         string
	TreeID         string
	EdgeID         string
	ActionSetID    string
	HostName       string
	DeviceModel    string
	DeviceName     string
	ScriptResultID string
}

func mergeOutputData(dst map[string]any, src map[string]any) map[string]any {
	if dst == nil {
		dst = map[string]any{}
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func nowUnix() int64 { return time.Now().Unix() }
