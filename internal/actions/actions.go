package actions

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/virtualpytest/core/internal/device"
	"github.com/virtualpytest/core/internal/model"
	"github.com/virtualpytest/core/internal/storage"
)

// Executor runs action batches against a device's controllers (spec §4.4
// ActionExecutor). One Executor is shared by a script run. It is not safe
// for concurrent ExecuteActions calls: the per-batch screenshot list and
// the lazily created controller registry are unguarded fields, although
// NavigationContext and the registry's command cache are mutex-guarded.
type Executor struct {
	Controllers *device.Controllers
	NavContext  *device.NavigationContext
	Recorder    storage.ExecutionRecorder // nil disables DB recording
	Logger      *log.Logger

	// FrameMetadataDir is where last_action.json is written before the
	// post-action wait (spec §4.4 side effect 2). Empty disables it.
	FrameMetadataDir string

	registry        *controllerRegistry
	lastScreenshots []string
}

func (e *Executor) ensureRegistry() *controllerRegistry {
	if e.registry == nil {
		e.registry = newControllerRegistry(e.Controllers)
	}
	return e.registry
}

// ExecuteActions runs req.Actions in order; on first failure (unless the
// failing action has ContinueOnFail set) it falls back to req.RetryActions,
// and if those also fail, to req.FailureActions (spec §4.4 Contract).
// overall_success is true iff the main chain fully succeeded, or a retry
// or failure chain was run and fully succeeded.
func (e *Executor) ExecuteActions(ctx context.Context, req BatchRequest) (BatchResult, error) {
	start := time.Now()
	result := BatchResult{OutputData: map[string]any{}}
	result.BeforeActionScreenshot = e.captureBeforeActionScreenshot(ctx)
	e.lastScreenshots = nil

	mainOK, mainResults := e.runChain(ctx, req.Actions, "main", req)
	result.Results = append(result.Results, mainResults...)

	overall := mainOK
	if !overall && len(req.RetryActions) > 0 {
		retryOK, retryResults := e.runChain(ctx, req.RetryActions, "retry", req)
		result.Results = append(result.Results, retryResults...)
		overall = retryOK
	}
	if !overall && len(req.FailureActions) > 0 {
		failOK, failResults := e.runChain(ctx, req.FailureActions, "failure", req)
		result.Results = append(result.Results, failResults...)
		overall = failOK
	}

	// spec §4.4: aggregated output_data is the union of successful actions'
	// outputs, later actions overriding earlier ones.
	for _, res := range result.Results {
		if res.Success {
			result.OutputData = mergeOutputData(result.OutputData, res.OutputData)
		}
	}

	result.OverallSuccess = overall
	result.ActionScreenshots = e.lastScreenshots
	result.ExecutionTimeMS = time.Since(start).Milliseconds()
	if !overall {
		result.ErrorMessage = lastFailureMessage(result.Results)
	}
	return result, nil
}

// runChain executes a list of actions in order, stopping at the first
// failed action (an action fails as soon as one of its iterations
// fails) unless ContinueOnFail is set (spec
// §4.4 "abort on first failure"). It returns whether the whole chain
// succeeded and the per-action results recorded along the way.
func (e *Executor) runChain(ctx context.Context, actions []model.Action, category string, req BatchRequest) (bool, []ActionResult) {
	results := make([]ActionResult, 0, len(actions))
	chainOK := true
	for _, a := range actions {
		res := e.runOneAction(ctx, a, category, req)
		results = append(results, res)
		if !res.Success {
			chainOK = false
			if !a.ContinueOnFail {
				break
			}
		}
	}
	if len(actions) == 0 {
		chainOK = true
	}
	return chainOK, results
}

// runOneAction executes a single action for its NormalizedIterator count,
// aborting iteration at the first failed iteration (spec §4.4 "Iterator
// execution with abort-on-first-failure").
func (e *Executor) runOneAction(ctx context.Context, a model.Action, category string, req BatchRequest) ActionResult {
	start := time.Now()
	res := ActionResult{Command: a.Command, Category: category, OutputData: map[string]any{}}

	params := flattenParams(a.Params)
	n := a.NormalizedIterator()

	actionType, err := e.ensureRegistry().resolveType(a)
	if err != nil {
		res.Success = false
		res.Error = err.Error()
		res.Message = actionErrorMessage(a.Command, err)
		e.runPostActionSideEffects(ctx, a.Command, false, a.WaitTimeMS, req)
		return res
	}

	success := true
	for i := 0; i < n; i++ {
		ok, message, outputData, execErr := e.dispatch(ctx, actionType, a.Command, params, req)
		res.Iterations = i + 1
		res.Message = message
		res.OutputData = mergeOutputData(res.OutputData, outputData)
		if execErr != nil {
			res.Error = execErr.Error()
		}
		if !ok {
			success = false
			break
		}
	}
	res.Success = success

	e.runPostActionSideEffects(ctx, a.Command, success, a.WaitTimeMS, req)
	res.ExecutionTimeMS = time.Since(start).Milliseconds()
	return res
}

// dispatch routes a single action invocation to the controller that owns
// it (spec §4.4 Dispatch).
func (e *Executor) dispatch(ctx context.Context, actionType model.ActionType, command string, params map[string]any, req BatchRequest) (bool, string, map[string]any, error) {
	switch actionType {
	case model.ActionTypeVerification:
		vc := e.Controllers.VerificationControllerFor(verificationSubtype(e.Controllers, command))
		if vc == nil {
			return false, "", nil, fmt.Errorf("actions: no verification controller owns command %q", command)
		}
		vr, err := vc.Execute(ctx, device.VerificationConfig{Command: command, Params: params, TeamID: req.TeamID})
		if err != nil {
			return false, vr.Message, vr.Details, err
		}
		return vr.Success, vr.Message, vr.Details, nil

	case model.ActionTypePower:
		if e.Controllers.Power == nil {
			return false, "", nil, fmt.Errorf("actions: no power controller configured")
		}
		ok, err := e.Controllers.Power.Execute(ctx, command, params)
		if err != nil {
			return false, "", nil, err
		}
		return ok, "", nil, nil

	default:
		ac, err := e.ensureRegistry().controllerFor(actionType, command)
		if err != nil || ac == nil {
			return false, "", nil, fmt.Errorf("actions: no controller for type %q command %q", actionType, command)
		}
		cr, err := ac.Execute(ctx, command, params)
		if err != nil {
			return false, cr.Message, cr.OutputData, err
		}
		return cr.Success, cr.Message, cr.OutputData, nil
	}
}

// verificationSubtype resolves which verification family (image/text/
// audio/video/adb/appium) owns command, by probing each in the spec §4.4
// priority order.
func verificationSubtype(c *device.Controllers, command string) string {
	order := []struct {
		name string
		vc   device.VerificationController
	}{
		{"image", c.Verification.Image},
		{"text", c.Verification.Text},
		{"adb", c.Verification.ADB},
		{"appium", c.Verification.Appium},
		{"video", c.Verification.Video},
		{"audio", c.Verification.Audio},
	}
	for _, o := range order {
		if o.vc == nil {
			continue
		}
		for _, cmd := range o.vc.Verifications() {
			if cmd == command {
				return o.name
			}
		}
	}
	return ""
}

// lastFailureMessage builds a consolidated error message listing every
// failed action's command name (spec §4.4 Contract), not just the most
// recent failure.
func lastFailureMessage(results []ActionResult) string {
	var failed []string
	for _, r := range results {
		if !r.Success {
			failed = append(failed, r.Command)
		}
	}
	if len(failed) == 0 {
		return ""
	}
	return fmt.Sprintf("failed actions: %s", strings.Join(failed, ", "))
}

func edgeExecutionFrom(command string, success bool, req BatchRequest) storage.EdgeExecution {
	return storage.EdgeExecution{
		TeamID:         req.TeamID,
		TreeID:         req.TreeID,
		EdgeID:         req.EdgeID,
		HostName:       req.HostName,
		DeviceModel:    req.DeviceModel,
		DeviceName:     req.DeviceName,
		Success:        success,
		Message:        command,
		ScriptResultID: req.ScriptResultID,
		ActionSetID:    req.ActionSetID,
	}
}
