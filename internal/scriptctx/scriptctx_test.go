package scriptctx

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/virtualpytest/core/internal/storage"
)

type fakeStore struct {
	uploaded []storage.UploadRequest
	fail     map[string]bool
}

func (f *fakeStore) UploadFiles(_ context.Context, files []storage.UploadRequest) (storage.UploadResult, error) {
	var res storage.UploadResult
	for _, file := range files {
		f.uploaded = append(f.uploaded, file)
		if f.fail[file.LocalPath] {
			res.Failed = append(res.Failed, storage.FailedUpload{LocalPath: file.LocalPath, Error: "boom"})
			continue
		}
		res.Uploaded = append(res.Uploaded, storage.UploadedFile{LocalPath: file.LocalPath, RemoteURL: "https://cdn.example/" + file.RemotePath})
	}
	return res, nil
}

func (f *fakeStore) DownloadFile(context.Context, string, string) error { return nil }
func (f *fakeStore) GetPublicURL(remotePath string) string              { return "https://cdn.example/" + remotePath }

func TestRecordStep_AssignsSequentialStepNumbers(t *testing.T) {
	dir := t.TempDir()
	c := New("my-script", filepath.Join(dir, "running.json"), 0)

	c.RecordStep("step one", true, 100, "")
	c.RecordStep("step two", true, 200, "")

	if len(c.steps) != 2 || c.steps[0].StepNumber != 1 || c.steps[1].StepNumber != 2 {
		t.Fatalf("unexpected step numbers: %+v", c.steps)
	}
}

func TestRecordStep_WritesRunningLogAtomically(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "running.json")
	c := New("my-script", logPath, 0)
	c.RecordStep("step one", true, 100, "")

	b, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read running log: %v", err)
	}
	var doc runningLogDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("unmarshal running log: %v", err)
	}
	if doc.TotalSteps != 1 || doc.ScriptName != "my-script" {
		t.Fatalf("unexpected running log: %+v", doc)
	}
	if _, err := os.Stat(logPath + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("expected tmp file to be renamed away")
	}
}

func TestAddScreenshot_NoneSlotPreservedPositionally(t *testing.T) {
	c := New("s", "", 0)
	if _, err := c.AddScreenshot(""); err != nil {
		t.Fatalf("AddScreenshot empty: %v", err)
	}
	path := c.ScreenshotPaths()
	if len(path) != 1 || path[0] != "" {
		t.Fatalf("expected one empty slot, got %v", path)
	}
}

func TestAddScreenshot_NonHotPathPassesThrough(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "frame.png")
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c := New("s", "", 0)
	cold, err := c.AddScreenshot(p)
	if err != nil {
		t.Fatalf("AddScreenshot: %v", err)
	}
	if cold != p {
		t.Fatalf("expected unchanged path for non-hot source, got %q", cold)
	}
}

func TestUploadScreenshots_ReplacesLocalWithRemoteAndPreservesFailures(t *testing.T) {
	dir := t.TempDir()
	okPath := filepath.Join(dir, "ok.png")
	failPath := filepath.Join(dir, "fail.png")
	os.WriteFile(okPath, []byte("a"), 0o644)
	os.WriteFile(failPath, []byte("b"), 0o644)

	c := New("s", "", 0)
	c.screenshots = []screenshotSlot{
		{coldPath: okPath},
		{coldPath: failPath},
		{}, // None slot
	}

	store := &fakeStore{fail: map[string]bool{failPath: true}}
	_, err := c.UploadScreenshots(context.Background(), store, "device-1")
	if err != nil {
		t.Fatalf("UploadScreenshots: %v", err)
	}

	paths := c.ScreenshotPaths()
	if paths[0] == okPath {
		t.Fatalf("expected ok path replaced by remote URL, got %q", paths[0])
	}
	if paths[1] != failPath {
		t.Fatalf("expected failed upload to preserve local path, got %q", paths[1])
	}
	if paths[2] != "" {
		t.Fatalf("expected None slot preserved, got %q", paths[2])
	}
	if _, err := os.Stat(okPath); !os.IsNotExist(err) {
		t.Fatal("expected successfully uploaded cold file to be deleted")
	}
	if _, err := os.Stat(failPath); err != nil {
		t.Fatal("expected failed-upload cold file to survive")
	}
}

func TestStdoutTee_CapturesWrites(t *testing.T) {
	tee, err := BeginStdoutTee()
	if err != nil {
		t.Fatalf("BeginStdoutTee: %v", err)
	}
	os.Stdout.WriteString("hello tee\n")
	if err := tee.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := tee.Output(); got != "hello tee\n" {
		t.Fatalf("unexpected tee output: %q", got)
	}
}

func TestWriteAndLoadSnapshot_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	c := New("s", "", 0)
	c.RecordStep("a", true, 10, "")
	c.RecordStep("b", false, 20, "")

	path := filepath.Join(dir, "snapshot.msgpack")
	if err := c.WriteSnapshot(path); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	steps, err := LoadSnapshotSteps(path)
	if err != nil {
		t.Fatalf("LoadSnapshotSteps: %v", err)
	}
	if len(steps) != 2 || steps[1].Description != "b" || steps[1].Success {
		t.Fatalf("unexpected restored steps: %+v", steps)
	}
}
