// Package capturepaths is the concrete CapturePathProvider/MarkerPathProvider
// wiring cmd/vptcore hands to the verify and zap packages, resolving the
// per-device hot-storage layout a real capture-monitor process writes into
// (spec §4.7, §6 "Running-log file layout"). Grounded on the teacher's
// internal/attractor/engine path-joining helpers (plain filepath.Join over
// a configured root, no path-templating library).
package capturepaths

import "path/filepath"

// Provider resolves capture-root-relative paths for one host's devices.
type Provider struct {
	CaptureRoot string
	HotDirName  string // e.g. "hot"
}

func (p *Provider) deviceRoot(deviceModel, deviceName string) string {
	return filepath.Join(p.CaptureRoot, deviceModel, deviceName)
}

// AnalysisDir is where the capture-monitor writes per-frame analysis JSON
// (frame_*.json) consumed by verify.DetectMotionFromJson/DetectAudioSpeech.
func (p *Provider) AnalysisDir(deviceModel, deviceName string) string {
	return filepath.Join(p.deviceRoot(deviceModel, deviceName), p.hotDir(), "metadata")
}

// HLSSegmentDir is where the capture-monitor writes HLS media segments for
// audio-transcription merging (spec §4.5 "detect_audio_speech").
func (p *Provider) HLSSegmentDir(deviceModel, deviceName string) string {
	return filepath.Join(p.deviceRoot(deviceModel, deviceName), p.hotDir(), "hls")
}

// LastZappingMarkerPath is where the capture-monitor writes
// last_zapping.json (spec §4.7, §6): <capture_root>/<deviceModel>/
// <deviceName>/metadata/last_zapping.json, outside the hot directory.
func (p *Provider) LastZappingMarkerPath(deviceModel, deviceName string) string {
	return filepath.Join(p.deviceRoot(deviceModel, deviceName), "metadata", "last_zapping.json")
}

func (p *Provider) hotDir() string {
	if p.HotDirName == "" {
		return "hot"
	}
	return p.HotDirName
}
