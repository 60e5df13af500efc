package llmbridge

import (
	"context"
	"testing"
)

type fakeProvider struct {
	name string
	resp DescribeResponse
	err  error
}

func (f fakeProvider) Name() string { return f.name }

func (f fakeProvider) Describe(context.Context, DescribeRequest) (DescribeResponse, error) {
	return f.resp, f.err
}

func TestClient_DescribeDispatchesToDefaultProvider(t *testing.T) {
	c := NewClient()
	c.Register(fakeProvider{name: "stub", resp: DescribeResponse{Text: "hello", Language: "en"}})

	resp, err := c.Describe(context.Background(), DescribeRequest{Prompt: "read this"})
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if resp.Text != "hello" || resp.Language != "en" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestClient_DescribeWithNoProviderFails(t *testing.T) {
	c := NewClient()
	if _, err := c.Describe(context.Background(), DescribeRequest{}); err == nil {
		t.Fatal("expected configuration error with no registered provider")
	}
}

func TestSubtitleAdapter_DefaultsConfidenceWhenTextPresent(t *testing.T) {
	c := NewClient()
	c.Register(fakeProvider{name: "stub", resp: DescribeResponse{Text: "hola"}})
	a := &SubtitleAdapter{Client: c}

	text, _, confidence, err := a.DetectSubtitles(context.Background(), []string{"a.jpg", "b.jpg"})
	if err != nil {
		t.Fatalf("DetectSubtitles: %v", err)
	}
	if text != "hola" || confidence != 0.8 {
		t.Fatalf("unexpected result: text=%q confidence=%v", text, confidence)
	}
}

func TestTextRecognitionAdapter_ReturnsProviderText(t *testing.T) {
	c := NewClient()
	c.Register(fakeProvider{name: "stub", resp: DescribeResponse{Text: "WELCOME", Language: "en"}})
	a := &TextRecognitionAdapter{Client: c}

	text, lang, err := a.Recognize(context.Background(), "frame.jpg")
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if text != "WELCOME" || lang != "en" {
		t.Fatalf("unexpected result: text=%q lang=%q", text, lang)
	}
}

func TestTranscriptionAdapter_ReturnsTranscribeResult(t *testing.T) {
	c := NewClient()
	c.Register(fakeProvider{name: "stub", resp: DescribeResponse{Text: "hi there", Language: "en", Confidence: 0.9}})
	a := &TranscriptionAdapter{Client: c}

	res, err := a.Transcribe(context.Background(), "segment.wav")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "hi there" || res.Confidence != 0.9 {
		t.Fatalf("unexpected result: %+v", res)
	}
}
