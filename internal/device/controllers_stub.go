package device

import (
	"context"
	"fmt"
)

// NoopActionController is an ActionController that reports every command
// as executed, used when no real controller backend (ADB, web driver,
// remote IR, desktop automation — all external per spec §1, §6) is wired
// in. It lets a vptcore process run its full navigation/action/
// verification pipeline end to end for smoke-testing and local
// development without a physical or emulated device attached.
type NoopActionController struct {
	CommandNames []string
}

func (c *NoopActionController) Execute(ctx context.Context, command string, params map[string]any) (ControllerResult, error) {
	return ControllerResult{Success: true, Message: fmt.Sprintf("noop: executed %s", command)}, nil
}

func (c *NoopActionController) Actions() []string { return c.CommandNames }

// NoopVerificationController reports every verification as successful.
type NoopVerificationController struct {
	VerificationNames []string
}

func (c *NoopVerificationController) Execute(ctx context.Context, cfg VerificationConfig) (VerificationResult, error) {
	return VerificationResult{Success: true, Message: fmt.Sprintf("noop: verified %s", cfg.Command)}, nil
}

func (c *NoopVerificationController) Verifications() []string { return c.VerificationNames }

// NoopAVController returns empty capture paths without touching any real
// capture hardware.
type NoopAVController struct{}

func (NoopAVController) TakeScreenshot(ctx context.Context) (string, error) { return "", nil }

func (NoopAVController) TakeVideoForReport(ctx context.Context, durationSeconds, startSeconds float64) (string, error) {
	return "", nil
}

func (NoopAVController) VideoCapturePath() string { return "" }

// NoopPowerController reports every power command as successful.
type NoopPowerController struct {
	CommandNames []string
}

func (NoopPowerController) Execute(ctx context.Context, command string, params map[string]any) (bool, error) {
	return true, nil
}

func (c NoopPowerController) Actions() []string { return c.CommandNames }

// NewNoopControllers builds a full Controllers set backed entirely by the
// noop implementations above, the wiring point a vptcore deployment
// replaces with real device-specific controllers.
func NewNoopControllers() *Controllers {
	c := &Controllers{
		AV:    NoopAVController{},
		Power: NoopPowerController{CommandNames: []string{"power_on", "power_off"}},
	}
	c.Remote = &NoopActionController{CommandNames: []string{"press_key", "click_element"}}
	c.Web = &NoopActionController{CommandNames: []string{"click_element", "input_text"}}
	c.Desktop.Bash = &NoopActionController{CommandNames: []string{"execute_bash_command"}}
	c.Desktop.PyAutoGUI = &NoopActionController{CommandNames: []string{"click", "type_text"}}
	c.Verification.Image = &NoopVerificationController{VerificationNames: []string{"waitForImageToAppear"}}
	c.Verification.Text = &NoopVerificationController{VerificationNames: []string{"waitForTextToAppear"}}
	c.Verification.Audio = &NoopVerificationController{VerificationNames: []string{"detect_audio_speech"}}
	c.Verification.Video = &NoopVerificationController{VerificationNames: []string{"detectSubtitles"}}
	c.Verification.ADB = &NoopVerificationController{VerificationNames: []string{"waitForElementToAppear"}}
	c.Verification.Appium = &NoopVerificationController{VerificationNames: []string{"waitForElementToAppear"}}
	return c
}

var (
	_ ActionController       = (*NoopActionController)(nil)
	_ VerificationController = (*NoopVerificationController)(nil)
	_ AVController           = NoopAVController{}
	_ PowerController        = NoopPowerController{}
)
