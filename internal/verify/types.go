// Package verify implements the VerificationExecutor (spec §4.5): per-
// type dispatch to image/text/audio/video (and pluggable adb/appium)
// verifiers, each satisfying device.VerificationController so the same
// dispatch path serves both a navigation-tree "verify_node" call and an
// action batch's "verification" action type. Grounded on the teacher's
// internal/attractor/engine/handlers.go dispatch-by-type shape; exact
// algorithm detail is grounded on original_source/src_LEGACY/controllers/
// verification/image.py and original_source/src/controllers/verification/text.py.
package verify

import (
	"context"

	"github.com/virtualpytest/core/internal/device"
	"github.com/virtualpytest/core/internal/model"
	"github.com/virtualpytest/core/internal/storage"
)

// ItemResult is the outcome of one executed verification.
type ItemResult struct {
	Command          string
	VerificationType string
	Success          bool
	Message          string
	Error            string
	Confidence       float64
	SourceURL        string
	ReferenceURL     string
	OverlayURL       string
	ExtractedText    string
	SearchedText     string
	DetectedLanguage string
	Details          map[string]any
}

// BatchResult is the outcome of an entire verification batch (spec §4.5
// "State machine (verification batch)").
type BatchResult struct {
	OverallSuccess  bool
	Results         []ItemResult
	ExecutionTimeMS int64
	ErrorMessage    string
}

// BatchRequest is the input to ExecuteVerifications (spec §4.5 Contract).
type BatchRequest struct {
	Verifications     []model.Verification
	ImageSourceURL    string
	TeamID            string
	UserInterfaceName string
	TreeID            string
	NodeID            string
	HostName          string
	DeviceModel       string
	DeviceName        string
	ScriptResultID    string
}

// ReferenceResolver resolves a named verification reference (a reference
// image, a captured analysis JSON directory, etc.) to a local path,
// fetching from object storage and caching by name when not present
// locally (spec §4.5 "Resolve the reference by name for the device
// model"). This module ships no implementation; the caller supplies
// one. Kept as a narrow interface here so verify never depends on a
// concrete object-store client.
type ReferenceResolver interface {
	ResolveReference(ctx context.Context, deviceModel, name string) (localPath string, err error)
}

// TextRecognizer is the OCR collaborator (no OCR library appears
// anywhere in the retrieval pack — this is an external capability per
// spec §1's "specify only their interfaces", analogous to the original
// implementation's pytesseract call).
type TextRecognizer interface {
	Recognize(ctx context.Context, imagePath string) (text string, languageHint string, err error)
}

// SubtitleDetector is the external multimodal-AI collaborator for
// DetectSubtitlesAI (spec §4.5); narrowed to the one capability the core
// needs, per internal/llmbridge's adapter pattern.
type SubtitleDetector interface {
	DetectSubtitles(ctx context.Context, sequentialCapturePaths []string) (text string, language string, confidence float64, err error)
}

// CapturePathProvider resolves where a device's raw analysis JSON and HLS
// segment files live, so DetectMotionFromJson/DetectAudioSpeech can glob
// them without knowing device-specific directory layout.
type CapturePathProvider interface {
	AnalysisDir(deviceModel, deviceName string) string
	HLSSegmentDir(deviceModel, deviceName string) string
}

// BatchExecutor runs verification batches, recording a DB row per
// verification when tree_id/node_id/team_id are present (spec §4.5).
type BatchExecutor struct {
	Controllers *device.Controllers
	Recorder    storage.ExecutionRecorder
}

func mergeDetails(dst map[string]any, src map[string]any) map[string]any {
	if dst == nil {
		dst = map[string]any{}
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
