// Package screenshot implements the ScreenshotPipeline (spec §4.9):
// best-effort capture plus the hot→cold mirroring spec §4.8 requires of
// every screenshot path a ScriptContext records. Grounded on the
// teacher's best-effort artifact-handling shape (failures logged, never
// propagated) used throughout internal/attractor/engine for capture/report
// artifacts.
package screenshot

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/virtualpytest/core/internal/device"
)

// CaptureScreenshot asks av for a screenshot and returns its local path.
// If av is nil, it returns "" without error (spec §4.9 "if av_controller
// is missing, returns nothing silently"). Any controller error is logged
// and swallowed: capture is always best-effort.
func CaptureScreenshot(ctx context.Context, av device.AVController, logger *log.Logger) string {
	if av == nil {
		return ""
	}
	path, err := av.TakeScreenshot(ctx)
	if err != nil {
		if logger != nil {
			logger.Printf("screenshot: capture failed: %v", err)
		}
		return ""
	}
	return path
}

// MirrorHotToCold copies a screenshot living under a "/hot/" directory
// segment to the corresponding cold path (same path with "/hot/" removed)
// and returns the cold path (spec §4.8 "hot→cold mirroring"). If
// hotPath doesn't contain "/hot/", it is returned unchanged — there is
// nothing to mirror.
func MirrorHotToCold(hotPath string) (string, error) {
	coldPath := coldPathFor(hotPath)
	if coldPath == hotPath {
		return hotPath, nil
	}
	if err := os.MkdirAll(filepath.Dir(coldPath), 0o755); err != nil {
		return "", err
	}
	if err := copyFile(hotPath, coldPath); err != nil {
		return "", err
	}
	return coldPath, nil
}

func coldPathFor(hotPath string) string {
	const marker = string(filepath.Separator) + "hot" + string(filepath.Separator)
	if !strings.Contains(hotPath, marker) {
		return hotPath
	}
	return strings.Replace(hotPath, marker, string(filepath.Separator), 1)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

// PruneOrphanedColdFiles removes every file under coldRoot that is not in
// keep, used to reclaim disk after a batch upload has replaced local
// paths with remote URLs (spec §4.8 "delete local cold files that
// uploaded successfully"). Glob errors are logged and otherwise ignored;
// pruning is best-effort, like every other screenshot-pipeline step.
func PruneOrphanedColdFiles(coldRoot string, keep map[string]bool, logger *log.Logger) {
	matches, err := doublestar.Glob(os.DirFS(coldRoot), "**/*")
	if err != nil {
		if logger != nil {
			logger.Printf("screenshot: prune glob: %v", err)
		}
		return
	}
	for _, rel := range matches {
		full := filepath.Join(coldRoot, rel)
		if keep[full] {
			continue
		}
		info, err := os.Stat(full)
		if err != nil || info.IsDir() {
			continue
		}
		if err := os.Remove(full); err != nil && logger != nil {
			logger.Printf("screenshot: prune %s: %v", full, err)
		}
	}
}
