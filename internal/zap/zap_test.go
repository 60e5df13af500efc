package zap

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/virtualpytest/core/internal/model"
	"github.com/virtualpytest/core/internal/verify"
)

type fakeCapturePaths struct{ dir string }

func (f fakeCapturePaths) AnalysisDir(string, string) string   { return f.dir }
func (f fakeCapturePaths) HLSSegmentDir(string, string) string { return "" }

type fakeMarkerPath struct{ path string }

func (f fakeMarkerPath) LastZappingMarkerPath(string, string) string { return f.path }

type fakeVerifier struct{ result verify.BatchResult }

func (f fakeVerifier) ExecuteVerifications(context.Context, verify.BatchRequest) verify.BatchResult {
	return f.result
}

func writeMarker(t *testing.T, path string, m Marker) {
	t.Helper()
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal marker: %v", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("write marker: %v", err)
	}
}

func TestAnalyzeIteration_ZappingCompletedWithinTolerance(t *testing.T) {
	dir := t.TempDir()
	markerPath := filepath.Join(dir, "last_zapping.json")
	now := time.Now().Unix()
	writeMarker(t, markerPath, Marker{
		Status:                "completed",
		ActionTimestamp:       now,
		ChannelName:           "BBC One",
		ChannelNumber:         "101",
		DetectionMethod:       "blackscreen",
		TotalDurationMS:       1200,
		BlackscreenDurationMS: 400,
	})

	stats := NewStatistics()
	a := &Analyzer{
		Capture: fakeCapturePaths{dir: ""},
		Markers: fakeMarkerPath{path: markerPath},
		Stats:   stats,
	}

	result := a.AnalyzeIteration(context.Background(), Request{
		Iteration:            1,
		ActionCommand:        "live_chup",
		ActionCompletionUnix: now,
		ScriptResultID:       "", // no recorder wired, should not panic
	})

	if !result.Success || !result.ZappingDetected {
		t.Fatalf("expected successful zapping detection, got %+v", result)
	}
	if result.ChannelInfo.ChannelName != "BBC One" {
		t.Fatalf("expected channel name lifted, got %+v", result.ChannelInfo)
	}
	if stats.ZappingDetectedCount != 1 || stats.TotalIterations != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestAnalyzeIteration_TimestampMismatchFails(t *testing.T) {
	dir := t.TempDir()
	markerPath := filepath.Join(dir, "last_zapping.json")
	now := time.Now().Unix()
	writeMarker(t, markerPath, Marker{Status: "completed", ActionTimestamp: now - 100})

	a := &Analyzer{Markers: fakeMarkerPath{path: markerPath}, Stats: NewStatistics()}
	result := a.AnalyzeIteration(context.Background(), Request{
		ActionCommand:        "live_chup",
		ActionCompletionUnix: now,
	})

	if result.Success || result.ZappingDetected {
		t.Fatalf("expected timestamp-mismatch failure, got %+v", result)
	}
}

func TestAnalyzeIteration_StaleInProgressMarkerFails(t *testing.T) {
	dir := t.TempDir()
	markerPath := filepath.Join(dir, "last_zapping.json")
	writeMarker(t, markerPath, Marker{
		Status:         "in_progress",
		StartedAtUnix:  time.Now().Add(-10 * time.Minute).Unix(),
		TimeoutSeconds: 300,
	})

	a := &Analyzer{Markers: fakeMarkerPath{path: markerPath}, Stats: NewStatistics()}
	result := a.AnalyzeIteration(context.Background(), Request{
		ActionCommand:        "live_chup",
		ActionCompletionUnix: time.Now().Unix(),
	})

	if result.Success {
		t.Fatalf("expected stale-marker failure, got %+v", result)
	}
}

func TestAnalyzeIteration_MapsSubtitleAndAudioVerifications(t *testing.T) {
	verifier := fakeVerifier{result: verify.BatchResult{
		OverallSuccess: true,
		Results: []verify.ItemResult{
			{Command: "detectSubtitles", VerificationType: string(model.VerificationVideo), Success: true, ExtractedText: "hello", DetectedLanguage: "en"},
			{Command: "waitForAudioToAppear", VerificationType: string(model.VerificationAudio), Success: true, DetectedLanguage: "en", ExtractedText: "speech"},
		},
	}}

	a := &Analyzer{Verify: verifier, Stats: NewStatistics()}
	result := a.AnalyzeIteration(context.Background(), Request{
		ActionCommand: "press_key",
		Verifications: []model.Verification{
			{Command: "detectSubtitles", VerificationType: model.VerificationVideo},
			{Command: "waitForAudioToAppear", VerificationType: model.VerificationAudio},
		},
	})

	if !result.SubtitlesDetected || result.ExtractedText != "hello" {
		t.Fatalf("expected subtitle mapping, got %+v", result)
	}
	if !result.AudioSpeechDetected || result.AudioTranscript != "speech" {
		t.Fatalf("expected audio mapping, got %+v", result)
	}
}

func TestStatistics_RatesAndAverages(t *testing.T) {
	stats := NewStatistics()
	stats.Record(IterationResult{Success: true, MotionDetected: true, ZappingDetected: true, TotalZapDurationS: 2.0, BlackscreenDurationS: 0.5, ChannelInfo: ChannelInfo{ChannelName: "BBC"}, DurationSeconds: 1})
	stats.Record(IterationResult{Success: false, ZappingDetected: true, TotalZapDurationS: 4.0, BlackscreenDurationS: 1.5, ChannelInfo: ChannelInfo{ChannelName: "BBC"}, DurationSeconds: 1})
	stats.Record(IterationResult{Success: true, DurationSeconds: 2})

	if got := stats.SuccessRate(); got < 66.0 || got > 67.0 {
		t.Fatalf("unexpected success rate: %v", got)
	}
	if got := stats.AverageZappingDuration(); got != 3.0 {
		t.Fatalf("expected average zap duration 3.0, got %v", got)
	}
	breakdown := stats.ByChannel()
	if len(breakdown) != 1 || breakdown[0].Count != 2 || breakdown[0].ChannelName != "BBC" {
		t.Fatalf("unexpected channel breakdown: %+v", breakdown)
	}
}
