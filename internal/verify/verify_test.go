package verify

import (
	"encoding/json"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/virtualpytest/core/internal/model"
)

func writeFrame(t *testing.T, dir, name string, f analysisFrame) {
	t.Helper()
	b, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), b, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestDetectMotionFromJson_TrueWhenRecentFrameNotFrozenOrBlack(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, dir, "001.json", analysisFrame{Frozen: true})
	writeFrame(t, dir, "002.json", analysisFrame{Blackscreen: true})
	writeFrame(t, dir, "003.json", analysisFrame{})

	motion, err := DetectMotionFromJson(dir, 3)
	if err != nil {
		t.Fatalf("DetectMotionFromJson: %v", err)
	}
	if !motion {
		t.Fatal("expected motion detected")
	}
}

func TestDetectMotionFromJson_FalseWhenAllFrozenOrBlack(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, dir, "001.json", analysisFrame{Frozen: true})
	writeFrame(t, dir, "002.json", analysisFrame{Blackscreen: true})

	motion, err := DetectMotionFromJson(dir, 3)
	if err != nil {
		t.Fatalf("DetectMotionFromJson: %v", err)
	}
	if motion {
		t.Fatal("expected no motion detected")
	}
}

func TestDetectAudioSpeech(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, dir, "001.json", analysisFrame{AudioEnergy: 0})
	writeFrame(t, dir, "002.json", analysisFrame{AudioEnergy: 0.4})

	speech, err := DetectAudioSpeech(dir, 3)
	if err != nil {
		t.Fatalf("DetectAudioSpeech: %v", err)
	}
	if !speech {
		t.Fatal("expected speech detected")
	}
}

func TestContainsNormalized(t *testing.T) {
	cases := []struct {
		haystack, needle string
		want             bool
	}{
		{"Hello   World", "hello world", true},
		{"HELLO\nWORLD", "hello world", true},
		{"goodbye", "hello", false},
	}
	for _, c := range cases {
		if got := containsNormalized(c.haystack, c.needle); got != c.want {
			t.Fatalf("containsNormalized(%q,%q) = %v, want %v", c.haystack, c.needle, got, c.want)
		}
	}
}

func TestNormalizedCrossCorrelation_IdenticalImagesScoreOne(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x*10 + y*20)})
		}
	}
	score := normalizedCrossCorrelation(img, img)
	if score < 0.999 {
		t.Fatalf("expected near-1.0 score for identical images, got %v", score)
	}
}

func TestNormalizedCrossCorrelation_FlatImagesScoreOne(t *testing.T) {
	a := image.NewGray(image.Rect(0, 0, 4, 4))
	b := image.NewGray(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			a.SetGray(x, y, color.Gray{Y: 100})
			b.SetGray(x, y, color.Gray{Y: 100})
		}
	}
	score := normalizedCrossCorrelation(a, b)
	if score != 1 {
		t.Fatalf("expected score 1 for identical flat images, got %v", score)
	}
}

func TestIsValid_Filtering(t *testing.T) {
	cases := []struct {
		name string
		v    model.Verification
		want bool
	}{
		{"empty command dropped", model.Verification{Command: ""}, false},
		{"image without image_path dropped", model.Verification{Command: "x", VerificationType: model.VerificationImage}, false},
		{"image with image_path kept", model.Verification{Command: "x", VerificationType: model.VerificationImage, Params: map[string]any{"image_path": "ref.png"}}, true},
		{"text without text dropped", model.Verification{Command: "x", VerificationType: model.VerificationText}, false},
		{"adb without search_term dropped", model.Verification{Command: "x", VerificationType: model.VerificationADB}, false},
		{"video has no required param", model.Verification{Command: "x", VerificationType: model.VerificationVideo}, true},
	}
	for _, c := range cases {
		if got := isValid(c.v); got != c.want {
			t.Fatalf("%s: isValid() = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestSequentialCapturePaths_LimitsToWant(t *testing.T) {
	got := sequentialCapturePaths("a.png,b.png,c.png,d.png", 3)
	if len(got) != 3 || got[2] != "c.png" {
		t.Fatalf("unexpected paths: %v", got)
	}
}
