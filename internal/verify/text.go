package verify

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/virtualpytest/core/internal/device"
)

// TextVerifier implements device.VerificationController for the "text"
// family. Grounded on original_source/src/controllers/verification/
// text.py's crop→greyscale→binarize→OCR pipeline; OCR itself is an
// external collaborator (spec §4.5, no OCR library appears in the pack).
type TextVerifier struct {
	Recognizer  TextRecognizer
	CaptureFunc func(ctx context.Context) (string, error) // current-frame source path
	ArtifactDir string
}

var _ device.VerificationController = (*TextVerifier)(nil)

func (v *TextVerifier) Verifications() []string {
	return []string{"waitForTextToAppear", "waitForTextToDisappear"}
}

func (v *TextVerifier) Execute(ctx context.Context, cfg device.VerificationConfig) (device.VerificationResult, error) {
	target := stringParam(cfg.Params, "text", "")
	if target == "" {
		return device.VerificationResult{Success: false, Message: "no target text configured"}, nil
	}
	area := areaParam(cfg.Params)

	sourcePath := cfg.SourceImagePath
	if sourcePath == "" && v.CaptureFunc != nil {
		p, err := v.CaptureFunc(ctx)
		if err != nil {
			return device.VerificationResult{Success: false, Message: err.Error()}, nil
		}
		sourcePath = p
	}
	if sourcePath == "" {
		return device.VerificationResult{Success: false, Message: "no source image available"}, nil
	}

	img, err := loadImage(sourcePath)
	if err != nil {
		return device.VerificationResult{Success: false, Message: fmt.Sprintf("load source: %v", err)}, nil
	}
	cropped := cropToArea(img, area)
	gray := toGray(cropped)
	binary := binarize(gray, 127)

	tempPath, err := v.writeProcessed(binary)
	if err != nil {
		return device.VerificationResult{Success: false, Message: fmt.Sprintf("write processed image: %v", err)}, nil
	}

	if v.Recognizer == nil {
		return device.VerificationResult{Success: false, Message: "no OCR collaborator configured"}, nil
	}
	extracted, langHint, err := v.Recognizer.Recognize(ctx, tempPath)
	if err != nil {
		return device.VerificationResult{Success: false, Message: fmt.Sprintf("ocr: %v", err)}, nil
	}
	if langHint == "" {
		langHint = "en"
	}

	found := containsNormalized(extracted, target)
	passed := found
	if strings.EqualFold(cfg.Command, "waitForTextToDisappear") {
		passed = !found
	}

	return device.VerificationResult{
		Success:          passed,
		Message:          fmt.Sprintf("searched %q in OCR output", target),
		ExtractedText:    extracted,
		SearchedText:     target,
		DetectedLanguage: langHint,
		Confidence:       boolConfidence(found),
		SourceURL:        tempPath,
	}, nil
}

// containsNormalized implements spec §4.5's "case-insensitive substring of
// the target inside whitespace-normalized OCR output".
func containsNormalized(haystack, needle string) bool {
	norm := func(s string) string {
		return strings.ToLower(strings.Join(strings.Fields(s), " "))
	}
	return strings.Contains(norm(haystack), norm(needle))
}

func boolConfidence(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}

func (v *TextVerifier) writeProcessed(img image.Image) (string, error) {
	dir := v.ArtifactDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, "text_verification_binarized.png")
	if err := savePNG(path, img); err != nil {
		return "", err
	}
	return path, nil
}
