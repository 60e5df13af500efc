// Package coreerrors defines the closed set of typed error kinds from
// spec §7 so callers can branch on error kind with errors.As instead of
// string matching.
package coreerrors

import "fmt"

// UnifiedCacheMiss reports that pathfinding was requested with no cached
// graph for (tree, team); pathfinding never rebuilds silently.
type UnifiedCacheMiss struct {
	RootTreeID string
	TeamID     string
}

func (e *UnifiedCacheMiss) Error() string {
	return fmt.Sprintf("unified graph cache miss for tree=%s team=%s: load the tree first", e.RootTreeID, e.TeamID)
}

// PathNotFound reports that no route exists in the unified graph.
type PathNotFound struct {
	FromID, FromLabel string
	ToID, ToLabel     string
}

func (e *PathNotFound) Error() string {
	return fmt.Sprintf("no path from %s (%s) to %s (%s)", e.FromLabel, e.FromID, e.ToLabel, e.ToID)
}

// CannotTargetActionNode reports that the resolved target is an action-kind node.
type CannotTargetActionNode struct {
	NodeID string
}

func (e *CannotTargetActionNode) Error() string {
	return fmt.Sprintf("node %s is an action node and cannot be a navigation target", e.NodeID)
}

// InvalidActionSet reports an edge dropped at build time for a missing
// action set or default id.
type InvalidActionSet struct {
	EdgeID string
	Reason string
}

func (e *InvalidActionSet) Error() string {
	return fmt.Sprintf("edge %s has an invalid action set: %s", e.EdgeID, e.Reason)
}

// ActionFailed reports a controller result of success=false.
type ActionFailed struct {
	Command string
	Message string
}

func (e *ActionFailed) Error() string {
	return fmt.Sprintf("action %q failed: %s", e.Command, e.Message)
}

// VerificationFailed reports a score or text mismatch.
type VerificationFailed struct {
	VerificationType string
	Message          string
}

func (e *VerificationFailed) Error() string {
	return fmt.Sprintf("verification %s failed: %s", e.VerificationType, e.Message)
}

// ZapMarkerStale reports a last_zapping.json marker older than its timeout_seconds.
type ZapMarkerStale struct {
	StartedAtUnix int64
	TimeoutSec    int
}

func (e *ZapMarkerStale) Error() string {
	return fmt.Sprintf("zapping marker stale: started_at=%d timeout_seconds=%d", e.StartedAtUnix, e.TimeoutSec)
}

// ZapTimestampMismatch reports |action_ts - record_ts| > 10s.
type ZapTimestampMismatch struct {
	ActionTimestamp int64
	RecordTimestamp int64
}

func (e *ZapTimestampMismatch) Error() string {
	return fmt.Sprintf("zap timestamp mismatch: action=%d record=%d", e.ActionTimestamp, e.RecordTimestamp)
}

// ZapPollTimeout reports that polling last_zapping.json exceeded 15s.
type ZapPollTimeout struct {
	WaitedSeconds int
}

func (e *ZapPollTimeout) Error() string {
	return fmt.Sprintf("timed out after %ds waiting for zapping marker to complete", e.WaitedSeconds)
}

// ScreenshotMissing reports a capture that was not produced or has since
// disappeared from disk; callers log and continue.
type ScreenshotMissing struct {
	Path string
}

func (e *ScreenshotMissing) Error() string {
	return fmt.Sprintf("screenshot missing: %s", e.Path)
}

// DBRecordingSkipped is returned (not treated as a failure) when a
// database row was intentionally not written (spec §7).
type DBRecordingSkipped struct {
	Reason string
}

func (e *DBRecordingSkipped) Error() string {
	return fmt.Sprintf("db recording skipped: %s", e.Reason)
}
