package device

import (
	"context"
	"testing"
)

func TestNewNoopControllers_EverySlotWired(t *testing.T) {
	c := NewNoopControllers()
	if c.Remote == nil || c.Web == nil || c.Desktop.Bash == nil || c.Desktop.PyAutoGUI == nil {
		t.Fatalf("expected every action controller slot wired, got %+v", c)
	}
	if c.AV == nil || c.Power == nil {
		t.Fatalf("expected AV and Power wired, got %+v", c)
	}
	if c.Verification.Image == nil || c.Verification.Text == nil || c.Verification.Audio == nil ||
		c.Verification.Video == nil || c.Verification.ADB == nil || c.Verification.Appium == nil {
		t.Fatalf("expected every verification controller slot wired, got %+v", c.Verification)
	}
}

func TestNoopActionController_ReportsSuccess(t *testing.T) {
	ac := &NoopActionController{CommandNames: []string{"press_key"}}
	res, err := ac.Execute(context.Background(), "press_key", map[string]any{"key": "OK"})
	if err != nil || !res.Success {
		t.Fatalf("expected success, got res=%+v err=%v", res, err)
	}
	if got := ac.Actions(); len(got) != 1 || got[0] != "press_key" {
		t.Fatalf("unexpected Actions(): %v", got)
	}
}

func TestNoopVerificationController_ReportsSuccess(t *testing.T) {
	vc := &NoopVerificationController{VerificationNames: []string{"waitForTextToAppear"}}
	res, err := vc.Execute(context.Background(), VerificationConfig{Command: "waitForTextToAppear"})
	if err != nil || !res.Success {
		t.Fatalf("expected success, got res=%+v err=%v", res, err)
	}
}

func TestNoopPowerController_ReturnsTrue(t *testing.T) {
	ok, err := (NoopPowerController{}).Execute(context.Background(), "power_on", nil)
	if err != nil || !ok {
		t.Fatalf("expected (true, nil), got (%v, %v)", ok, err)
	}
}

func TestNoopAVController_EmptyPaths(t *testing.T) {
	av := NoopAVController{}
	if path, err := av.TakeScreenshot(context.Background()); path != "" || err != nil {
		t.Fatalf("expected empty screenshot path, got %q %v", path, err)
	}
	if path, err := av.TakeVideoForReport(context.Background(), 5, 0); path != "" || err != nil {
		t.Fatalf("expected empty video path, got %q %v", path, err)
	}
	if av.VideoCapturePath() != "" {
		t.Fatalf("expected empty capture path")
	}
}
