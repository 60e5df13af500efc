package actions

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/virtualpytest/core/internal/device"
	"github.com/virtualpytest/core/internal/model"
)

// typedParamSchema validates the shape of a "typed-schema" param value:
// {"default": <any>, "type": "<name>", "required": <bool>}. A param whose
// raw value matches this shape is flattened to its default before being
// handed to a controller (spec §4.4 "Params flattening"). Compiled once
// and reused, following the teacher's compileSchema/ToolRegistry pattern
// in internal/agent/tool_registry.go.
var typedParamSchema = mustCompileTypedParamSchema()

func mustCompileTypedParamSchema() *jsonschema.Schema {
	raw := map[string]any{
		"type":     "object",
		"required": []string{"default", "type"},
		"properties": map[string]any{
			"default":  map[string]any{},
			"type":     map[string]any{"type": "string"},
			"required": map[string]any{"type": "boolean"},
		},
	}
	b, err := json.Marshal(raw)
	if err != nil {
		panic(err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("typed_param.json", strings.NewReader(string(b))); err != nil {
		panic(err)
	}
	s, err := c.Compile("typed_param.json")
	if err != nil {
		panic(err)
	}
	return s
}

// flattenParams replaces any typed-schema-object param value with its
// "default" field, leaving scalar/plain values untouched. Grounded on
// original_source/backend_host/src/services/actions/action_executor.py's
// parameter resolution, which unwraps {"default":..., "type":...} editor
// payloads before dispatch.
func flattenParams(params map[string]any) map[string]any {
	if len(params) == 0 {
		return params
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		if m, ok := v.(map[string]any); ok && typedParamSchema.Validate(m) == nil {
			out[k] = m["default"]
			continue
		}
		out[k] = v
	}
	return out
}

// controllerRegistry resolves which ActionController owns a command,
// caching the decision per command string so repeated actions in a batch
// (or across batches) skip re-probing every controller. Grounded on the
// teacher's internal/attractor/engine/handlers.go HandlerRegistry: a
// capability-keyed lookup instead of a type switch, per spec §9's
// "avoid reflection; use a registry" design note.
type controllerRegistry struct {
	controllers *device.Controllers

	mu    sync.Mutex
	cache map[string]model.ActionType
}

func newControllerRegistry(c *device.Controllers) *controllerRegistry {
	return &controllerRegistry{controllers: c, cache: map[string]model.ActionType{}}
}

// ordered list of (ActionType, controller) pairs probed for a command,
// per spec §4.4 Dispatch: verification controllers first, in the order
// image/text/adb/appium/video/audio, then remote/web/desktop/power. The
// AV controller exposes no command list and is not probed, so no command
// resolves to it.
// This mirrors _detect_action_type_from_device in
// original_source/backend_host/src/services/actions/action_executor.py.
func (r *controllerRegistry) probeOrder() []struct {
	actionType model.ActionType
	actions    []string
} {
	c := r.controllers
	entries := []struct {
		actionType model.ActionType
		actions    []string
	}{}
	addVerif := func(vc device.VerificationController) {
		if vc != nil {
			entries = append(entries, struct {
				actionType model.ActionType
				actions    []string
			}{model.ActionTypeVerification, vc.Verifications()})
		}
	}
	addVerif(c.Verification.Image)
	addVerif(c.Verification.Text)
	addVerif(c.Verification.ADB)
	addVerif(c.Verification.Appium)
	addVerif(c.Verification.Video)
	addVerif(c.Verification.Audio)

	addAction := func(t model.ActionType, ac device.ActionController) {
		if ac != nil {
			entries = append(entries, struct {
				actionType model.ActionType
				actions    []string
			}{t, ac.Actions()})
		}
	}
	addAction(model.ActionTypeRemote, c.Remote)
	addAction(model.ActionTypeWeb, c.Web)
	addAction(model.ActionTypeDesktop, c.Desktop.Bash)
	addAction(model.ActionTypeDesktop, c.Desktop.PyAutoGUI)
	if c.Power != nil {
		entries = append(entries, struct {
			actionType model.ActionType
			actions    []string
		}{model.ActionTypePower, c.Power.Actions()})
	}
	return entries
}

// resolveType returns the ActionType that owns command, using an explicit
// Action.ActionType when set, else the command's cached or freshly probed
// owner.
func (r *controllerRegistry) resolveType(a model.Action) (model.ActionType, error) {
	if a.ActionType != "" {
		return a.ActionType, nil
	}

	r.mu.Lock()
	if t, ok := r.cache[a.Command]; ok {
		r.mu.Unlock()
		return t, nil
	}
	r.mu.Unlock()

	for _, entry := range r.probeOrder() {
		for _, cmd := range entry.actions {
			if cmd == a.Command {
				r.mu.Lock()
				r.cache[a.Command] = entry.actionType
				r.mu.Unlock()
				return entry.actionType, nil
			}
		}
	}
	return "", fmt.Errorf("actions: no controller owns command %q", a.Command)
}

// controllerFor returns the ActionController for a resolved non-verification type.
func (r *controllerRegistry) controllerFor(t model.ActionType, command string) (device.ActionController, error) {
	c := r.controllers
	switch t {
	case model.ActionTypeRemote:
		return c.Remote, nil
	case model.ActionTypeWeb:
		return c.Web, nil
	case model.ActionTypeDesktop:
		if ownsCommand(c.Desktop.Bash, command) {
			return c.Desktop.Bash, nil
		}
		return c.Desktop.PyAutoGUI, nil
	default:
		return nil, fmt.Errorf("actions: action type %q has no direct controller", t)
	}
}

func ownsCommand(ac device.ActionController, command string) bool {
	if ac == nil {
		return false
	}
	for _, c := range ac.Actions() {
		if c == command {
			return true
		}
	}
	return false
}
