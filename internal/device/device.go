// Package device defines the narrow, in-process controller interfaces a
// DeviceHandle composes (spec §6 "Controller interface (in-process)")
// and the mutable per-device navigation context (spec §3 ScriptContext
// "device navigation context", §4.10). Grounded on spec §9's design note:
// "Dynamic per-controller routing must be preserved ... by capability-set
// interfaces ... Avoid reflection; use a registry" — modeled after the
// teacher's internal/attractor/engine/handlers.go HandlerRegistry, which
// resolves a handler for a node by capability lookup rather than a type
// switch.
package device

import (
	"context"
	"sync"
)

// ControllerResult is the uniform result shape every action controller
// returns (spec §6).
type ControllerResult struct {
	Success    bool
	Message    string
	Error      string
	OutputData map[string]any
}

// ActionController is implemented by the remote, web and desktop
// controllers (power uses PowerController). Actions() enumerates the command names
// it owns, used by the capability registry in internal/actions to decide
// which controller owns an untyped command (spec §4.4 Dispatch).
type ActionController interface {
	Execute(ctx context.Context, command string, params map[string]any) (ControllerResult, error)
	Actions() []string
}

// VerificationConfig is passed to a VerificationController (spec §4.5 Dispatch).
type VerificationConfig struct {
	Command           string
	Params            map[string]any
	VerificationType  string
	TeamID            string
	UserInterfaceName string
	SourceImagePath   string
}

// VerificationResult is the uniform result shape every verification
// controller returns (spec §6).
type VerificationResult struct {
	Success          bool
	Message          string
	Error            string
	Details          map[string]any
	SourceURL        string
	ReferenceURL     string
	OverlayURL       string
	ExtractedText    string
	SearchedText     string
	DetectedLanguage string
	Confidence       float64
}

// VerificationController is implemented by each verification-type
// controller (image/text/audio/video/adb/appium).
type VerificationController interface {
	Execute(ctx context.Context, cfg VerificationConfig) (VerificationResult, error)
	Verifications() []string
}

// AVController captures/streams frames for a device (spec §6 "AV controller").
type AVController interface {
	TakeScreenshot(ctx context.Context) (string, error)
	TakeVideoForReport(ctx context.Context, durationSeconds, startSeconds float64) (string, error)
	VideoCapturePath() string
}

// PowerController toggles device power (spec §6 "Power controller").
// Actions() enumerates its command names so the registry in
// internal/actions can probe it like any other ActionController when an
// Action omits an explicit action_type. It is probed last, after remote,
// web and desktop; the AV controller is not probed at all.
type PowerController interface {
	Execute(ctx context.Context, command string, params map[string]any) (bool, error)
	Actions() []string
}

// Controllers is the typed controller set a device exposes (spec §4.10).
type Controllers struct {
	Remote  ActionController
	Web     ActionController
	Desktop struct {
		Bash      ActionController
		PyAutoGUI ActionController
	}
	AV    AVController
	Power PowerController

	Verification struct {
		Image  VerificationController
		Text   VerificationController
		Audio  VerificationController
		Video  VerificationController
		ADB    VerificationController
		Appium VerificationController
	}
}

// VerificationControllerFor resolves the controller for a verification type.
func (c *Controllers) VerificationControllerFor(verificationType string) VerificationController {
	switch verificationType {
	case "image":
		return c.Verification.Image
	case "text":
		return c.Verification.Text
	case "audio":
		return c.Verification.Audio
	case "video":
		return c.Verification.Video
	case "adb":
		return c.Verification.ADB
	case "appium":
		return c.Verification.Appium
	default:
		return nil
	}
}

// NavigationContext is the mutable per-device navigation state (spec §3,
// §4.10). All reads/writes are mutex-guarded since the owning
// NavigationExecutor and the ActionExecutor's post-action side effects
// both touch it.
type NavigationContext struct {
	mu sync.Mutex

	CurrentTreeID       string
	CurrentNodeID       string
	ScriptID            string
	ScriptName          string
	SkipDBRecording     bool
	LastActionExecuted  string
	LastActionTimestamp int64
}

// Snapshot returns a copy of the current navigation context fields.
func (n *NavigationContext) Snapshot() NavigationContext {
	n.mu.Lock()
	defer n.mu.Unlock()
	return NavigationContext{
		CurrentTreeID:       n.CurrentTreeID,
		CurrentNodeID:       n.CurrentNodeID,
		ScriptID:            n.ScriptID,
		ScriptName:          n.ScriptName,
		SkipDBRecording:     n.SkipDBRecording,
		LastActionExecuted:  n.LastActionExecuted,
		LastActionTimestamp: n.LastActionTimestamp,
	}
}

// SetPosition updates the current tree/node position (spec §4.6
// "update_current_position").
func (n *NavigationContext) SetPosition(treeID, nodeID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.CurrentTreeID = treeID
	n.CurrentNodeID = nodeID
}

// RecordAction updates the last-executed-action bookkeeping (spec §4.4
// post-action side effect 5).
func (n *NavigationContext) RecordAction(command string, completionUnixTS int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.LastActionExecuted = command
	n.LastActionTimestamp = completionUnixTS
}
