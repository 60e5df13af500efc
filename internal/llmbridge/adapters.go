package llmbridge

import (
	"context"
	"fmt"

	"github.com/virtualpytest/core/internal/verify"
)

// SubtitleAdapter implements verify.SubtitleDetector by asking the
// registered provider to read any on-screen subtitle text from a short
// sequence of frames (spec §4.5 "DetectSubtitlesAI").
type SubtitleAdapter struct {
	Client *Client
}

// DetectSubtitles matches verify.SubtitleDetector's signature.
func (a *SubtitleAdapter) DetectSubtitles(ctx context.Context, sequentialCapturePaths []string) (string, string, float64, error) {
	resp, err := a.Client.Describe(ctx, DescribeRequest{
		Prompt:     "These frames are sequential video captures. Transcribe any subtitle text visible on screen, and report its language. Reply with the subtitle text only, or an empty reply if none is visible.",
		ImagePaths: sequentialCapturePaths,
	})
	if err != nil {
		return "", "", 0, fmt.Errorf("llmbridge: detect subtitles: %w", err)
	}
	confidence := resp.Confidence
	if confidence == 0 && resp.Text != "" {
		confidence = 0.8
	}
	return resp.Text, resp.Language, confidence, nil
}

// TextRecognitionAdapter implements verify.TextRecognizer. No OCR
// library appears anywhere in the retrieval pack, so recognition is
// delegated to the same multimodal provider used for subtitle detection
// (spec §4.5 "OCR ... external capability").
type TextRecognitionAdapter struct {
	Client *Client
}

// Recognize matches verify.TextRecognizer's signature.
func (a *TextRecognitionAdapter) Recognize(ctx context.Context, imagePath string) (string, string, error) {
	resp, err := a.Client.Describe(ctx, DescribeRequest{
		Prompt:     "Transcribe all text visible in this image exactly as it appears, and report its language.",
		ImagePaths: []string{imagePath},
	})
	if err != nil {
		return "", "", fmt.Errorf("llmbridge: recognize text: %w", err)
	}
	return resp.Text, resp.Language, nil
}

// TranscriptionAdapter implements verify.Transcriber for Whisper-style
// speech-to-text (spec §4.5 "Whisper-based analysis"); no local Whisper
// binding appears in the pack, so transcription goes through the same
// multimodal provider, keyed on the merged-segment audio path.
type TranscriptionAdapter struct {
	Client *Client
}

var _ verify.Transcriber = (*TranscriptionAdapter)(nil)
var _ verify.TextRecognizer = (*TextRecognitionAdapter)(nil)
var _ verify.SubtitleDetector = (*SubtitleAdapter)(nil)

// Transcribe implements verify.Transcriber.
func (a *TranscriptionAdapter) Transcribe(ctx context.Context, mergedSegmentPath string) (verify.TranscribeResult, error) {
	resp, err := a.Client.Describe(ctx, DescribeRequest{
		Prompt:    "Transcribe the speech in this audio segment and report its language.",
		AudioPath: mergedSegmentPath,
	})
	if err != nil {
		return verify.TranscribeResult{}, fmt.Errorf("llmbridge: transcribe: %w", err)
	}
	return verify.TranscribeResult{Text: resp.Text, Language: resp.Language, Confidence: resp.Confidence}, nil
}
