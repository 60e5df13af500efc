package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/virtualpytest/core/internal/device"
)

// analysisFrame is the on-disk shape of one device capture-monitor
// analysis JSON, matching the fields original_source/shared/src/lib/
// executors reads: freeze/blackscreen/audio flags per captured frame.
type analysisFrame struct {
	Frozen        bool    `json:"frozen"`
	Blackscreen   bool    `json:"blackscreen"`
	AudioEnergy   float64 `json:"audio_energy"`
	Timestamp     int64   `json:"timestamp"`
}

// lastNAnalysisFrames globs *.json in dir, sorts by name (capture tools
// name files by increasing timestamp), and decodes the last n.
func lastNAnalysisFrames(dir string, n int) ([]analysisFrame, error) {
	if dir == "" {
		return nil, nil
	}
	matches, err := doublestar.Glob(os.DirFS(dir), "*.json")
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	if len(matches) > n {
		matches = matches[len(matches)-n:]
	}
	frames := make([]analysisFrame, 0, len(matches))
	for _, m := range matches {
		b, err := os.ReadFile(filepath.Join(dir, m))
		if err != nil {
			continue
		}
		var f analysisFrame
		if err := json.Unmarshal(b, &f); err != nil {
			continue
		}
		frames = append(frames, f)
	}
	return frames, nil
}

// DetectMotionFromJson reports motion true iff at least one of the last
// n analysis frames is neither frozen nor blackscreen (spec §4.5/§4.7).
func DetectMotionFromJson(dir string, n int) (bool, error) {
	frames, err := lastNAnalysisFrames(dir, n)
	if err != nil {
		return false, err
	}
	for _, f := range frames {
		if !f.Frozen && !f.Blackscreen {
			return true, nil
		}
	}
	return false, nil
}

// DetectAudioSpeech reports speech present iff any of the last n analysis
// frames reports non-zero audio energy (spec §4.5).
func DetectAudioSpeech(dir string, n int) (bool, error) {
	frames, err := lastNAnalysisFrames(dir, n)
	if err != nil {
		return false, err
	}
	for _, f := range frames {
		if f.AudioEnergy > 0 {
			return true, nil
		}
	}
	return false, nil
}

// TranscribeResult is the outcome of a Whisper-style segment transcription.
type TranscribeResult struct {
	Text       string
	Language   string
	Confidence float64
}

// Transcriber performs 16kHz-mono speech-to-text on merged HLS segments;
// an external collaborator (spec §4.5 "Whisper-based analysis").
type Transcriber interface {
	Transcribe(ctx context.Context, mergedSegmentPath string) (TranscribeResult, error)
}

// transcribeLastSegments stops at the first of the last n HLS segments
// (merged if more than one) that yields non-empty text, per spec §4.5;
// confidence falls back to the heuristic min(0.95, 0.5+len(text)/100)
// when the transcriber doesn't report one.
func transcribeLastSegments(ctx context.Context, t Transcriber, mergedPaths []string) (TranscribeResult, error) {
	for _, path := range mergedPaths {
		res, err := t.Transcribe(ctx, path)
		if err != nil {
			continue
		}
		if strings.TrimSpace(res.Text) != "" {
			if res.Confidence == 0 {
				res.Confidence = math.Min(0.95, 0.5+float64(len(res.Text))/100.0)
			}
			return res, nil
		}
	}
	return TranscribeResult{}, fmt.Errorf("no transcribable speech found in last %d segments", len(mergedPaths))
}

// AudioVerifier implements device.VerificationController for audio
// presence/speech detection.
type AudioVerifier struct {
	Capture CapturePathProvider
	DeviceModel, DeviceName string
}

var _ device.VerificationController = (*AudioVerifier)(nil)

func (v *AudioVerifier) Verifications() []string { return []string{"waitForAudioToAppear", "waitForAudioToDisappear"} }

func (v *AudioVerifier) Execute(ctx context.Context, cfg device.VerificationConfig) (device.VerificationResult, error) {
	dir := ""
	if v.Capture != nil {
		dir = v.Capture.AnalysisDir(v.DeviceModel, v.DeviceName)
	}
	n := intParam(cfg.Params, "frame_count", 3)
	speech, err := DetectAudioSpeech(dir, n)
	if err != nil {
		return device.VerificationResult{Success: false, Message: err.Error()}, nil
	}
	passed := speech
	if strings.EqualFold(cfg.Command, "waitForAudioToDisappear") {
		passed = !speech
	}
	return device.VerificationResult{Success: passed, Message: fmt.Sprintf("audio speech detected=%v", speech)}, nil
}

// VideoVerifier implements device.VerificationController for motion and
// AI-based subtitle detection.
type VideoVerifier struct {
	Capture   CapturePathProvider
	Subtitles SubtitleDetector
	DeviceModel, DeviceName string
}

var _ device.VerificationController = (*VideoVerifier)(nil)

func (v *VideoVerifier) Verifications() []string {
	return []string{"waitForMotion", "waitForMotionToStop", "detectSubtitles"}
}

func (v *VideoVerifier) Execute(ctx context.Context, cfg device.VerificationConfig) (device.VerificationResult, error) {
	dir := ""
	if v.Capture != nil {
		dir = v.Capture.AnalysisDir(v.DeviceModel, v.DeviceName)
	}
	n := intParam(cfg.Params, "frame_count", 3)

	if strings.EqualFold(cfg.Command, "detectSubtitles") {
		return v.detectSubtitles(ctx, cfg, dir)
	}

	motion, err := DetectMotionFromJson(dir, n)
	if err != nil {
		return device.VerificationResult{Success: false, Message: err.Error()}, nil
	}
	passed := motion
	if strings.EqualFold(cfg.Command, "waitForMotionToStop") {
		passed = !motion
	}
	return device.VerificationResult{Success: passed, Message: fmt.Sprintf("motion detected=%v", motion)}, nil
}

// detectSubtitles passes the last 3 sequential capture paths to the
// external multimodal text-AI as a comma-separated image_source_url
// (spec §4.5 "DetectSubtitlesAI").
func (v *VideoVerifier) detectSubtitles(ctx context.Context, cfg device.VerificationConfig, dir string) (device.VerificationResult, error) {
	if v.Subtitles == nil {
		return device.VerificationResult{Success: false, Message: "no subtitle detector configured"}, nil
	}
	paths := sequentialCapturePaths(cfg.SourceImagePath, 3)
	text, lang, confidence, err := v.Subtitles.DetectSubtitles(ctx, paths)
	if err != nil {
		return device.VerificationResult{Success: false, Message: err.Error()}, nil
	}
	return device.VerificationResult{
		Success:          strings.TrimSpace(text) != "",
		Message:          "subtitle detection complete",
		ExtractedText:    text,
		DetectedLanguage: lang,
		Confidence:       confidence,
	}, nil
}

func sequentialCapturePaths(commaSeparated string, want int) []string {
	if commaSeparated == "" {
		return nil
	}
	parts := strings.Split(commaSeparated, ",")
	if len(parts) > want {
		parts = parts[:want]
	}
	return parts
}

func intParam(params map[string]any, key string, def int) int {
	if params == nil {
		return def
	}
	switch n := params[key].(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return def
}
