// Package storage defines the narrow interfaces this core consumes for
// its external collaborators (spec §1, §6): the navigation-tree source
// and execution-record sink (durable storage / "Supabase" in the source
// repo) and the object store (R2-compatible). The core never depends on
// a concrete database or storage SDK — only on these interfaces.
package storage

import (
	"context"

	"github.com/virtualpytest/core/internal/model"
)

// TreeSource is read-only for the core (spec §6 "Navigation tree source").
type TreeSource interface {
	FetchUserInterfaceTrees(ctx context.Context, userInterfaceName, teamID string) ([]model.Tree, error)
}

// ExecutionRecorder is the write path for execution records (spec §6
// "Execution records"). Every method may be skipped per spec §7
// DBRecordingSkipped without failing the calling operation.
type ExecutionRecorder interface {
	RecordScriptExecutionStart(ctx context.Context, in ScriptExecutionStart) (scriptResultID string, err error)
	UpdateScriptExecutionResult(ctx context.Context, in ScriptExecutionResult) error
	RecordEdgeExecution(ctx context.Context, in EdgeExecution) error
	RecordNodeExecution(ctx context.Context, in NodeExecution) error
	RecordZapIteration(ctx context.Context, in ZapIteration) (zapResultID string, err error)
}

// ScriptExecutionStart is the payload for RecordScriptExecutionStart.
type ScriptExecutionStart struct {
	TeamID            string
	ScriptName        string
	ScriptType         string
	UserInterfaceName string
	HostName          string
	DeviceName        string
	Metadata          map[string]any
}

// ScriptExecutionResult is the payload for UpdateScriptExecutionResult.
type ScriptExecutionResult struct {
	ScriptResultID  string
	Success         bool
	ExecutionTimeMS int64
	HTMLReportURL   string
	LogsURL         string
	ErrorMessage    string
	Metadata        map[string]any
}

// EdgeExecution is the payload for RecordEdgeExecution.
type EdgeExecution struct {
	TeamID          string
	TreeID          string
	EdgeID          string
	HostName        string
	DeviceModel     string
	DeviceName      string
	Success         bool
	ExecutionTimeMS int64
	Message         string
	ErrorDetails    map[string]any
	ScriptResultID  string
	ScriptContext   string
	ActionSetID     string
}

// NodeExecution is the payload for RecordNodeExecution.
type NodeExecution struct {
	TeamID          string
	TreeID          string
	NodeID          string
	HostName        string
	DeviceModel     string
	DeviceName      string
	Success         bool
	ExecutionTimeMS int64
	Message         string
	ErrorDetails    map[string]any
	ScriptResultID  string
	ScriptContext   string
}

// ZapIteration is the payload for RecordZapIteration.
type ZapIteration struct {
	ScriptResultID    string
	TeamID            string
	HostName          string
	DeviceName        string
	DeviceModel       string
	UserInterfaceName string
	IterationIndex    int
	ActionCommand     string
	StartedAt         int64
	CompletedAt       int64
	DurationSeconds   float64
	MotionDetected    bool
	SubtitlesDetected bool
	AudioDetected     bool
	ZappingDetected   bool
	Languages         []string
	Texts             []string
	BlackscreenDurMS  int64
	DetectionMethod   string
	ChannelName       string
	ChannelNumber     string
	ProgramName       string
	ProgramStartTime  string
	ProgramEndTime    string
}

// UploadRequest is one file to upload (spec §6 "upload_files").
type UploadRequest struct {
	LocalPath   string
	RemotePath  string
	ContentType string
}

// UploadResult reports which uploads succeeded and which failed.
type UploadResult struct {
	Uploaded []UploadedFile
	Failed   []FailedUpload
}

// UploadedFile pairs a successfully uploaded local path with its remote URL.
type UploadedFile struct {
	LocalPath string
	RemoteURL string
}

// FailedUpload pairs a local path with the reason its upload failed.
type FailedUpload struct {
	LocalPath string
	Error     string
}

// ObjectStore is the R2-compatible object storage interface (spec §6).
type ObjectStore interface {
	UploadFiles(ctx context.Context, files []UploadRequest) (UploadResult, error)
	DownloadFile(ctx context.Context, remotePath, localPath string) error
	GetPublicURL(remotePath string) string
}

// Well-known object-storage path prefixes (spec §6).
const (
	PrefixReferenceImages   = "reference-images"
	PrefixNavigation        = "navigation"
	PrefixScriptReports     = "script-reports"
	PrefixScriptScreenshots = "script-screenshots"
	PrefixAudioAnalysis     = "audio-analysis"
)
