package capturepaths

import (
	"path/filepath"
	"testing"
)

func TestProvider_DefaultHotDir(t *testing.T) {
	p := &Provider{CaptureRoot: "/capture"}

	got := p.AnalysisDir("android_mobile", "device1")
	want := filepath.Join("/capture", "android_mobile", "device1", "hot", "metadata")
	if got != want {
		t.Fatalf("AnalysisDir = %q, want %q", got, want)
	}

	got = p.HLSSegmentDir("android_mobile", "device1")
	want = filepath.Join("/capture", "android_mobile", "device1", "hot", "hls")
	if got != want {
		t.Fatalf("HLSSegmentDir = %q, want %q", got, want)
	}
}

func TestProvider_CustomHotDir(t *testing.T) {
	p := &Provider{CaptureRoot: "/capture", HotDirName: "warm"}

	got := p.AnalysisDir("stb", "dev2")
	want := filepath.Join("/capture", "stb", "dev2", "warm", "metadata")
	if got != want {
		t.Fatalf("AnalysisDir = %q, want %q", got, want)
	}
}

func TestProvider_LastZappingMarkerPath(t *testing.T) {
	p := &Provider{CaptureRoot: "/capture"}

	got := p.LastZappingMarkerPath("android_mobile", "device1")
	want := filepath.Join("/capture", "android_mobile", "device1", "metadata", "last_zapping.json")
	if got != want {
		t.Fatalf("LastZappingMarkerPath = %q, want %q", got, want)
	}
}
