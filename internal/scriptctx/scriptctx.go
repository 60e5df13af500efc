// Package scriptctx implements the per-script ScriptContext singleton
// (spec §4.8): step numbering, hot→cold screenshot mirroring and batch
// upload, an atomically-written running log, a stdout tee, and the
// metadata/variables maps. Grounded on the teacher's
// internal/attractor/runstate package for the JSON-sidecar idiom and
// atomic tmp+rename writes seen throughout internal/attractor/engine.
package scriptctx

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/virtualpytest/core/internal/screenshot"
	"github.com/virtualpytest/core/internal/storage"
)

// StepRecord is one recorded script step (spec §4.8 "record_step_dict").
type StepRecord struct {
	StepNumber  int
	Description string
	Success     bool
	DurationMS  int64
	Screenshot  string // cold-path or, after upload, remote URL; "" if none
	RecordedAt  time.Time
}

// screenshotSlot tracks one screenshot entry through its hot → cold →
// (after batch upload) remote-URL lifecycle. A slot with both paths
// empty represents a positionally-preserved "None" entry (spec §4.8
// "preserve None slots positionally").
type screenshotSlot struct {
	hotPath  string
	coldPath string
	url      string
	failed   bool
}

// ScriptContext is the per-script-run singleton (spec §4.8). All methods
// are safe for concurrent use, though spec §5 notes screenshot_paths is
// in practice mutated only from the owning script's executor goroutine.
type ScriptContext struct {
	mu sync.Mutex

	ScriptName string
	StartedAt  time.Time
	Metadata   map[string]any
	Variables  map[string]any

	steps       []StepRecord
	screenshots []screenshotSlot

	runningLogPath    string
	historicalAvgStepMS int64
}

// New starts a script context. runningLogPath is where the running log
// is atomically rewritten after every recorded step; historicalAvgStepMS
// seeds the estimated-completion calculation before enough steps have
// run to compute one locally (spec §4.8 "estimated_end").
func New(scriptName, runningLogPath string, historicalAvgStepMS int64) *ScriptContext {
	return &ScriptContext{
		ScriptName:          scriptName,
		StartedAt:           time.Now(),
		Metadata:            map[string]any{},
		Variables:           map[string]any{},
		runningLogPath:      runningLogPath,
		historicalAvgStepMS: historicalAvgStepMS,
	}
}

// RecordStep appends a step with the next sequential step number, writes
// the running log, and returns the recorded step (spec §4.8
// "record_step_dict appends and assigns step_number").
func (c *ScriptContext) RecordStep(description string, success bool, durationMS int64, screenshotPath string) StepRecord {
	c.mu.Lock()
	step := StepRecord{
		StepNumber:  len(c.steps) + 1,
		Description: description,
		Success:     success,
		DurationMS:  durationMS,
		Screenshot:  screenshotPath,
		RecordedAt:  time.Now(),
	}
	c.steps = append(c.steps, step)
	c.mu.Unlock()

	_ = c.writeRunningLog() // best-effort: a log-write failure never fails the step
	return step
}

// AddScreenshot records a newly captured screenshot path. If it lives
// under a "/hot/" directory it is immediately mirrored to cold storage
// (spec §4.8 "hot→cold mirroring"); the returned path is the one future
// steps/artifacts should reference. An empty path records a positional
// "None" slot.
func (c *ScriptContext) AddScreenshot(path string) (string, error) {
	if path == "" {
		c.mu.Lock()
		c.screenshots = append(c.screenshots, screenshotSlot{})
		c.mu.Unlock()
		return "", nil
	}

	cold, err := screenshot.MirrorHotToCold(path)
	slot := screenshotSlot{hotPath: path, coldPath: cold}
	if err != nil {
		slot.failed = true
	}

	c.mu.Lock()
	c.screenshots = append(c.screenshots, slot)
	c.mu.Unlock()

	if err != nil {
		return path, fmt.Errorf("scriptctx: mirror screenshot: %w", err)
	}
	return cold, nil
}

// UploadScreenshots uploads every tracked screenshot to object storage
// under script-screenshots/<deviceID>/<basename>, replaces each
// successfully uploaded slot's stored path with its remote URL, and
// deletes the local cold file (spec §4.8 "Batch upload at script end").
// Failed uploads keep their local path unchanged; None slots stay empty.
func (c *ScriptContext) UploadScreenshots(ctx context.Context, store storage.ObjectStore, deviceID string) (map[string]string, error) {
	c.mu.Lock()
	slots := append([]screenshotSlot(nil), c.screenshots...)
	c.mu.Unlock()

	var requests []storage.UploadRequest
	indexByLocal := map[string]int{}
	for i, s := range slots {
		if s.coldPath == "" || s.failed {
			continue
		}
		remote := storage.PrefixScriptScreenshots + "/" + deviceID + "/" + filepath.Base(s.coldPath)
		requests = append(requests, storage.UploadRequest{LocalPath: s.coldPath, RemotePath: remote})
		indexByLocal[s.coldPath] = i
	}

	result, err := store.UploadFiles(ctx, requests)
	if err != nil {
		return nil, fmt.Errorf("scriptctx: upload screenshots: %w", err)
	}

	urlByLocal := map[string]string{}
	c.mu.Lock()
	for _, u := range result.Uploaded {
		urlByLocal[u.LocalPath] = u.RemoteURL
		if idx, ok := indexByLocal[u.LocalPath]; ok {
			c.screenshots[idx].url = u.RemoteURL
		}
	}
	for _, f := range result.Failed {
		if idx, ok := indexByLocal[f.LocalPath]; ok {
			c.screenshots[idx].failed = true
		}
	}
	c.mu.Unlock()

	for local := range urlByLocal {
		_ = os.Remove(local)
	}
	return urlByLocal, nil
}

// ScreenshotPaths returns the stored screenshot list, honoring the
// remote-URL-replaces-local-path and positional-None rules (spec §4.8).
func (c *ScriptContext) ScreenshotPaths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.screenshots))
	for i, s := range c.screenshots {
		switch {
		case s.url != "":
			out[i] = s.url
		case s.coldPath != "":
			out[i] = s.coldPath
		case s.hotPath != "":
			out[i] = s.hotPath
		default:
			out[i] = ""
		}
	}
	return out
}
