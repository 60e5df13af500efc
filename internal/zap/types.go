// Package zap implements the ZapAnalyzer (spec §4.7): correlating a
// channel-change action with the capture-monitor's asynchronously
// written zapping evidence, running the requested subtitle/audio
// verifications, and aggregating per-run ZapStatistics. Grounded on
// original_source/shared/src/lib/executors/zap_executor.py's
// _read_zapping_by_action_timestamp polling loop and
// original_source/shared/src/lib/utils/zap_statistics.py's aggregate
// fields; the poll-with-deadline shape follows the teacher's
// internal/attractor/engine/cxdb_bootstrap.go readiness loop.
package zap

import (
	"context"

	"github.com/virtualpytest/core/internal/model"
	"github.com/virtualpytest/core/internal/verify"
)

// Marker is the on-disk shape of last_zapping.json, written by the
// external capture-monitor process (spec §4.7).
type Marker struct {
	Status                string            `json:"status"`
	StartedAtUnix         int64             `json:"started_at_unix"`
	TimeoutSeconds        int               `json:"timeout_seconds"`
	ActionTimestamp       int64             `json:"action_timestamp"`
	DetectionType         string            `json:"detection_type"`
	DetectionMethod       string            `json:"detection_method"`
	ChannelName           string            `json:"channel_name"`
	ChannelNumber         string            `json:"channel_number"`
	ProgramName           string            `json:"program_name"`
	ProgramStartTime      string            `json:"program_start_time"`
	ProgramEndTime        string            `json:"program_end_time"`
	ChannelConfidence     float64           `json:"channel_confidence"`
	BlackscreenDurationMS int64             `json:"blackscreen_duration_ms"`
	TotalDurationMS       int64             `json:"total_duration_ms"`
	TimeSinceActionMS     int64             `json:"time_since_action_ms"`
	AudioSilenceDuration  float64           `json:"audio_silence_duration"`
	TransitionImages      map[string]string `json:"transition_images"`
}

// MarkerPathProvider resolves where a device's capture-monitor writes
// last_zapping.json, so this package never hardcodes the
// hot/metadata layout (spec §4.7).
type MarkerPathProvider interface {
	LastZappingMarkerPath(deviceModel, deviceName string) string
}

// ChannelInfo is one successful zap's channel/program detail, recorded
// into Statistics.ChannelInfoResults (original_source's
// zap_statistics.py "channel_info_results").
type ChannelInfo struct {
	ChannelName       string
	ChannelNumber     string
	ProgramName       string
	ProgramStartTime  string
	ProgramEndTime    string
	ChannelConfidence float64
	ZapDurationS      float64
	BlackscreenDurS   float64
}

// IterationResult is the per-iteration outcome of AnalyzeIteration
// (spec §4.7 "Emit a structured per-iteration summary").
type IterationResult struct {
	Iteration         int
	ActionCommand     string
	StartedAtUnix     int64
	CompletedAtUnix   int64
	DurationSeconds   float64
	Success           bool
	ErrorMessage      string

	MotionDetected      bool
	ZappingDetected     bool
	SubtitlesDetected   bool
	AudioSpeechDetected bool

	DetectedLanguage string
	ExtractedText    string
	AudioLanguage    string
	AudioTranscript  string

	DetectionMethod string
	ChannelInfo     ChannelInfo

	TotalZapDurationS    float64
	BlackscreenDurationS float64
	TimeSinceActionMS    int64
	AudioSilenceDurationS float64
}

// Request is the input to AnalyzeIteration.
type Request struct {
	Iteration            int
	ActionCommand         string
	ActionCompletionUnix  int64
	DeviceModel           string
	DeviceName            string
	TeamID                string
	UserInterfaceName     string
	HostName              string
	ScriptResultID        string
	Verifications         []model.Verification // subtitle/audio verifications to batch (spec §4.7 step 4)
}

// verificationRunner narrows verify.BatchExecutor to the one
// method AnalyzeIteration needs, keeping this package's test doubles small.
type verificationRunner interface {
	ExecuteVerifications(ctx context.Context, req verify.BatchRequest) verify.BatchResult
}
