package screenshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/virtualpytest/core/internal/device"
)

type fakeAV struct {
	path string
	err  error
}

func (f *fakeAV) TakeScreenshot(context.Context) (string, error) { return f.path, f.err }
func (f *fakeAV) TakeVideoForReport(context.Context, float64, float64) (string, error) {
	return "", nil
}
func (f *fakeAV) VideoCapturePath() string { return "" }

func TestCaptureScreenshot_NilControllerReturnsEmpty(t *testing.T) {
	if got := CaptureScreenshot(context.Background(), nil, nil); got != "" {
		t.Fatalf("expected empty path for nil controller, got %q", got)
	}
}

func TestCaptureScreenshot_ReturnsControllerPath(t *testing.T) {
	var av device.AVController = &fakeAV{path: "/captures/frame.png"}
	if got := CaptureScreenshot(context.Background(), av, nil); got != "/captures/frame.png" {
		t.Fatalf("unexpected path: %q", got)
	}
}

func TestMirrorHotToCold_CopiesAndRewritesPath(t *testing.T) {
	root := t.TempDir()
	hotDir := filepath.Join(root, "hot", "device1")
	if err := os.MkdirAll(hotDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	hotPath := filepath.Join(hotDir, "frame.png")
	if err := os.WriteFile(hotPath, []byte("pixels"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	coldPath, err := MirrorHotToCold(hotPath)
	if err != nil {
		t.Fatalf("MirrorHotToCold: %v", err)
	}
	wantCold := filepath.Join(root, "device1", "frame.png")
	if coldPath != wantCold {
		t.Fatalf("coldPath = %q, want %q", coldPath, wantCold)
	}
	data, err := os.ReadFile(coldPath)
	if err != nil {
		t.Fatalf("read cold file: %v", err)
	}
	if string(data) != "pixels" {
		t.Fatalf("unexpected cold file contents: %q", data)
	}
}

func TestMirrorHotToCold_NonHotPathUnchanged(t *testing.T) {
	path := "/captures/screenshots/frame.png"
	got, err := MirrorHotToCold(path)
	if err != nil {
		t.Fatalf("MirrorHotToCold: %v", err)
	}
	if got != path {
		t.Fatalf("expected unchanged path, got %q", got)
	}
}
