package zap

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/virtualpytest/core/internal/coreerrors"
	"github.com/virtualpytest/core/internal/model"
	"github.com/virtualpytest/core/internal/storage"
	"github.com/virtualpytest/core/internal/verify"
)

const (
	motionFrameCount  = 3
	pollMaxAttempts   = 15
	pollInterval      = time.Second
	defaultMarkerTimeoutSeconds = 300
	timestampToleranceSeconds   = 10
)

// Analyzer runs the per-iteration zap analysis pipeline (spec §4.7) and
// accumulates the results into Stats.
type Analyzer struct {
	Capture  verify.CapturePathProvider
	Markers  MarkerPathProvider
	Verify   verificationRunner
	Recorder storage.ExecutionRecorder
	Stats    *Statistics
}

// AnalyzeIteration runs one zap iteration's analysis pipeline: motion
// detection, zapping-marker correlation (for chup actions), and any
// requested subtitle/audio verifications (spec §4.7 steps 1-4).
func (a *Analyzer) AnalyzeIteration(ctx context.Context, req Request) IterationResult {
	start := time.Now()
	result := IterationResult{
		Iteration:     req.Iteration,
		ActionCommand: req.ActionCommand,
		StartedAtUnix: req.ActionCompletionUnix,
		Success:       true,
	}

	var analysisDir string
	if a.Capture != nil {
		analysisDir = a.Capture.AnalysisDir(req.DeviceModel, req.DeviceName)
	}
	if motion, err := verify.DetectMotionFromJson(analysisDir, motionFrameCount); err == nil {
		result.MotionDetected = motion
	}

	if strings.Contains(strings.ToLower(req.ActionCommand), "chup") && req.ActionCompletionUnix != 0 {
		a.correlateZapping(ctx, req, &result)
	}

	if len(req.Verifications) > 0 && a.Verify != nil {
		batch := a.Verify.ExecuteVerifications(ctx, verify.BatchRequest{
			Verifications:     req.Verifications,
			TeamID:            req.TeamID,
			UserInterfaceName: req.UserInterfaceName,
			HostName:          req.HostName,
			ScriptResultID:    req.ScriptResultID,
		})
		a.mapVerificationResults(batch, &result)
	}

	result.CompletedAtUnix = time.Now().Unix()
	result.DurationSeconds = time.Since(start).Seconds()

	if a.Stats != nil {
		a.Stats.Record(result)
	}
	a.recordIteration(ctx, req, result)
	return result
}

// correlateZapping implements spec §4.7 step 3: read last_zapping.json,
// poll while in_progress, and check timestamp proximity once completed.
func (a *Analyzer) correlateZapping(ctx context.Context, req Request, result *IterationResult) {
	if a.Markers == nil {
		return
	}
	path := a.Markers.LastZappingMarkerPath(req.DeviceModel, req.DeviceName)
	if path == "" {
		return
	}

	marker, err := readMarker(path)
	if err != nil {
		result.Success = false
		result.ErrorMessage = fmt.Sprintf("zapping marker unreadable: %v", err)
		return
	}

	if marker.Status == "in_progress" {
		marker, err = pollUntilComplete(ctx, path, marker)
		if err != nil {
			result.Success = false
			result.ErrorMessage = err.Error()
			return
		}
	}

	if diff := abs64(req.ActionCompletionUnix - marker.ActionTimestamp); diff > timestampToleranceSeconds {
		result.Success = false
		result.ErrorMessage = (&coreerrors.ZapTimestampMismatch{
			ActionTimestamp:  req.ActionCompletionUnix,
			RecordTimestamp:  marker.ActionTimestamp,
		}).Error()
		return
	}

	result.ZappingDetected = true
	result.DetectionMethod = marker.DetectionMethod
	result.TotalZapDurationS = float64(marker.TotalDurationMS) / 1000.0
	result.BlackscreenDurationS = float64(marker.BlackscreenDurationMS) / 1000.0
	result.TimeSinceActionMS = marker.TimeSinceActionMS
	result.AudioSilenceDurationS = marker.AudioSilenceDuration
	result.ChannelInfo = ChannelInfo{
		ChannelName:       marker.ChannelName,
		ChannelNumber:     marker.ChannelNumber,
		ProgramName:       marker.ProgramName,
		ProgramStartTime:  marker.ProgramStartTime,
		ProgramEndTime:    marker.ProgramEndTime,
		ChannelConfidence: marker.ChannelConfidence,
		ZapDurationS:      result.TotalZapDurationS,
		BlackscreenDurS:   result.BlackscreenDurationS,
	}
}

func readMarker(path string) (Marker, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Marker{}, err
	}
	var m Marker
	if err := json.Unmarshal(b, &m); err != nil {
		return Marker{}, err
	}
	return m, nil
}

// pollUntilComplete re-reads path once per second for up to
// pollMaxAttempts seconds (spec §4.7 "poll once per second for up to 15
// seconds"), treating a marker whose age exceeds its TimeoutSeconds as
// stale at any point during polling.
func pollUntilComplete(ctx context.Context, path string, marker Marker) (Marker, error) {
	timeoutSec := marker.TimeoutSeconds
	if timeoutSec <= 0 {
		timeoutSec = defaultMarkerTimeoutSeconds
	}
	if marker.StartedAtUnix != 0 && time.Now().Unix()-marker.StartedAtUnix > int64(timeoutSec) {
		return Marker{}, &coreerrors.ZapMarkerStale{StartedAtUnix: marker.StartedAtUnix, TimeoutSec: timeoutSec}
	}

	for attempt := 1; attempt <= pollMaxAttempts; attempt++ {
		timer := time.NewTimer(pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Marker{}, ctx.Err()
		case <-timer.C:
		}

		current, err := readMarker(path)
		if err != nil {
			continue
		}
		if current.StartedAtUnix != 0 {
			to := current.TimeoutSeconds
			if to <= 0 {
				to = defaultMarkerTimeoutSeconds
			}
			if time.Now().Unix()-current.StartedAtUnix > int64(to) {
				return Marker{}, &coreerrors.ZapMarkerStale{StartedAtUnix: current.StartedAtUnix, TimeoutSec: to}
			}
		}
		if current.Status != "in_progress" {
			return current, nil
		}
	}
	return Marker{}, &coreerrors.ZapPollTimeout{WaitedSeconds: pollMaxAttempts}
}

// mapVerificationResults lifts subtitle/audio verification outcomes
// into the aggregate zap result (spec §4.7 step 4).
func (a *Analyzer) mapVerificationResults(batch verify.BatchResult, result *IterationResult) {
	for _, item := range batch.Results {
		switch item.VerificationType {
		case string(model.VerificationVideo):
			if strings.EqualFold(item.Command, "detectSubtitles") {
				result.SubtitlesDetected = item.Success
				result.ExtractedText = item.ExtractedText
				result.DetectedLanguage = item.DetectedLanguage
			}
		case string(model.VerificationAudio):
			result.AudioSpeechDetected = item.Success
			result.AudioLanguage = item.DetectedLanguage
			result.AudioTranscript = item.ExtractedText
		}
	}
}

func (a *Analyzer) recordIteration(ctx context.Context, req Request, result IterationResult) {
	if a.Recorder == nil || req.ScriptResultID == "" {
		return
	}
	_, _ = a.Recorder.RecordZapIteration(ctx, storage.ZapIteration{
		ScriptResultID:    req.ScriptResultID,
		TeamID:            req.TeamID,
		HostName:          req.HostName,
		DeviceName:        req.DeviceName,
		DeviceModel:       req.DeviceModel,
		UserInterfaceName: req.UserInterfaceName,
		IterationIndex:    req.Iteration,
		ActionCommand:     req.ActionCommand,
		StartedAt:         result.StartedAtUnix,
		CompletedAt:       result.CompletedAtUnix,
		DurationSeconds:   result.DurationSeconds,
		MotionDetected:    result.MotionDetected,
		SubtitlesDetected: result.SubtitlesDetected,
		AudioDetected:     result.AudioSpeechDetected,
		ZappingDetected:   result.ZappingDetected,
		Languages:         nonEmpty(result.DetectedLanguage),
		Texts:             nonEmpty(result.ExtractedText),
		BlackscreenDurMS:  int64(result.BlackscreenDurationS * 1000),
		DetectionMethod:   result.DetectionMethod,
		ChannelName:       result.ChannelInfo.ChannelName,
		ChannelNumber:     result.ChannelInfo.ChannelNumber,
		ProgramName:       result.ChannelInfo.ProgramName,
		ProgramStartTime:  result.ChannelInfo.ProgramStartTime,
		ProgramEndTime:    result.ChannelInfo.ProgramEndTime,
	})
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
