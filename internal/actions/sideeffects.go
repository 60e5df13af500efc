package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// lastActionRecord is the on-disk shape of last_action.json, written
// before the post-action wait so a concurrent AV/zap poller can see which
// action just completed (spec §4.4 post-action side effect 2). Grounded
// on original_source/backend_host/src/services/actions/action_executor.py,
// which writes the same frame-metadata sidecar.
type lastActionRecord struct {
	Command           string `json:"command"`
	CompletedAtUnix   int64  `json:"completed_at"`
	Success           bool   `json:"success"`
}

// writeLastAction atomically (tmp+rename) writes last_action.json into
// dir, matching the teacher's atomic-write idiom used for running logs.
func writeLastAction(dir string, rec lastActionRecord) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	final := filepath.Join(dir, "last_action.json")
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, final)
}

// runPostActionSideEffects executes spec §4.4's five post-action side
// effects in order: (1) stamp the completion timestamp, (2) write the
// frame-metadata sidecar before sleeping wait_time_ms, (3) record the
// edge execution row unless recording is skipped, (4) update the
// device navigation context, (5) capture a post-action screenshot.
// Every step is best-effort: a failure here never overrides the action
// result itself.
func (e *Executor) runPostActionSideEffects(ctx context.Context, command string, success bool, waitMS int, req BatchRequest) {
	completedAt := nowUnix()

	if err := writeLastAction(e.FrameMetadataDir, lastActionRecord{Command: command, CompletedAtUnix: completedAt, Success: success}); err != nil && e.Logger != nil {
		e.Logger.Printf("actions: write last_action.json: %v", err)
	}

	if waitMS > 0 {
		timer := time.NewTimer(time.Duration(waitMS) * time.Millisecond)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}

	if e.Recorder != nil && e.NavContext != nil {
		snap := e.NavContext.Snapshot()
		if !snap.SkipDBRecording {
			e.recordEdgeStep(ctx, command, success, req)
		}
	}

	if e.NavContext != nil {
		e.NavContext.RecordAction(command, completedAt)
	}

	if e.Controllers != nil && e.Controllers.AV != nil {
		if path, err := e.Controllers.AV.TakeScreenshot(ctx); err != nil {
			if e.Logger != nil {
				e.Logger.Printf("actions: post-action screenshot: %v", err)
			}
		} else {
			e.lastScreenshots = append(e.lastScreenshots, path)
		}
	}
}

func (e *Executor) recordEdgeStep(ctx context.Context, command string, success bool, req BatchRequest) {
	if req.TreeID == "" || req.EdgeID == "" {
		return
	}
	err := e.Recorder.RecordEdgeExecution(ctx, edgeExecutionFrom(command, success, req))
	if err != nil && e.Logger != nil {
		e.Logger.Printf("actions: record edge execution: %v", err)
	}
}

func (e *Executor) captureBeforeActionScreenshot(ctx context.Context) string {
	if e.Controllers == nil || e.Controllers.AV == nil {
		return ""
	}
	path, err := e.Controllers.AV.TakeScreenshot(ctx)
	if err != nil {
		if e.Logger != nil {
			e.Logger.Printf("actions: before-action screenshot: %v", err)
		}
		return ""
	}
	return path
}

func actionErrorMessage(command string, err error) string {
	return fmt.Sprintf("%s: %v", command, err)
}
