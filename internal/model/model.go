// Package model defines the navigation-tree data model shared by the
// graph, pathfind, actions and verify packages: nodes, edges, action sets,
// actions and verifications as described in the navigation tree source
// (spec §3, §6).
package model

// NodeKind classifies a node's role in the navigation tree.
type NodeKind string

const (
	NodeKindScreen NodeKind = "screen"
	NodeKindEntry  NodeKind = "entry"
	NodeKindAction NodeKind = "action"
	NodeKindMenu   NodeKind = "menu"
)

// EdgeType classifies how an edge participates in tree unification.
type EdgeType string

const (
	EdgeTypeNormal       EdgeType = "normal"
	EdgeTypeEnterSubtree EdgeType = "enter_subtree"
	EdgeTypeExitSubtree  EdgeType = "exit_subtree"
)

// ActionType selects the controller family that executes an Action.
type ActionType string

const (
	ActionTypeRemote        ActionType = "remote"
	ActionTypeWeb           ActionType = "web"
	ActionTypeDesktop       ActionType = "desktop"
	ActionTypePower         ActionType = "power"
	ActionTypeVerification  ActionType = "verification"
	ActionTypeStandardBlock ActionType = "standard_block"
)

// VerificationType selects the verifier implementation for a Verification.
type VerificationType string

const (
	VerificationImage  VerificationType = "image"
	VerificationText   VerificationType = "text"
	VerificationAudio  VerificationType = "audio"
	VerificationVideo  VerificationType = "video"
	VerificationADB    VerificationType = "adb"
	VerificationAppium VerificationType = "appium"
)

// ImageFilter names a pre-processing filter applied before comparison.
type ImageFilter string

const (
	ImageFilterNone      ImageFilter = "none"
	ImageFilterGreyscale ImageFilter = "greyscale"
	ImageFilterBinary    ImageFilter = "binary"
)

// Area is a crop rectangle in source-image pixel coordinates.
type Area struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Empty reports whether the area carries no crop (use the full frame).
func (a Area) Empty() bool {
	return a.W <= 0 || a.H <= 0
}

// Action is a single executable step, tagged by ActionType (spec §3 Action).
type Action struct {
	Command        string         `json:"command"`
	ActionType     ActionType     `json:"action_type,omitempty"`
	Params         map[string]any `json:"params,omitempty"`
	Iterator       int            `json:"iterator,omitempty"`
	WaitTimeMS     int            `json:"wait_time_ms,omitempty"`
	ContinueOnFail bool           `json:"continue_on_fail,omitempty"`
}

// NormalizedIterator clamps Iterator into [1,100], defaulting to 1.
func (a Action) NormalizedIterator() int {
	n := a.Iterator
	if n <= 0 {
		n = 1
	}
	if n > 100 {
		n = 100
	}
	return n
}

// ActionSet is an ordered group of actions plus retry/failure fallback
// lists (spec §3 ActionSet, §4.4).
type ActionSet struct {
	ID             string   `json:"id"`
	Label          string   `json:"label,omitempty"`
	Actions        []Action `json:"actions"`
	RetryActions   []Action `json:"retry_actions,omitempty"`
	FailureActions []Action `json:"failure_actions,omitempty"`
}

// Verification is a single check run against a captured frame (spec §3).
type Verification struct {
	VerificationType VerificationType `json:"verification_type"`
	Command          string           `json:"command"`
	Params           map[string]any   `json:"params,omitempty"`
}

// StringParam returns params[key] coerced to a string, or "" if absent.
func (v Verification) StringParam(key string) string {
	if v.Params == nil {
		return ""
	}
	s, _ := v.Params[key].(string)
	return s
}

// FloatParam returns params[key] coerced to a float64, or def if absent/unparseable.
func (v Verification) FloatParam(key string, def float64) float64 {
	if v.Params == nil {
		return def
	}
	switch n := v.Params[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return def
}

// AreaParam returns params["area"] decoded into an Area, or a zero Area.
func (v Verification) AreaParam() Area {
	raw, ok := v.Params["area"]
	if !ok {
		return Area{}
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return Area{}
	}
	toInt := func(k string) int {
		switch n := m[k].(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
		return 0
	}
	return Area{X: toInt("x"), Y: toInt("y"), W: toInt("w"), H: toInt("h")}
}

// ImageFilterParam returns params["image_filter"], defaulting to "none".
func (v Verification) ImageFilterParam() ImageFilter {
	f := ImageFilter(v.StringParam("image_filter"))
	if f == "" {
		return ImageFilterNone
	}
	return f
}

// Node is a single state in a navigation tree (spec §3 Node).
type Node struct {
	ID            string         `json:"node_id"`
	Label         string         `json:"label"`
	Kind          NodeKind       `json:"node_type"`
	ScreenshotURL string         `json:"screenshot,omitempty"`
	Verifications []Verification `json:"verifications,omitempty"`
	TreeID        string         `json:"-"`
	TreeName      string         `json:"-"`
	TreeDepth     int            `json:"-"`
	Depth         int            `json:"depth,omitempty"`
	IsEntry       bool           `json:"is_entry,omitempty"`
	IsExit        bool           `json:"is_exit,omitempty"`
	ChildTreeID   string         `json:"child_tree_id,omitempty"`
}

// Edge is a directed transition between two nodes (spec §3 Edge).
type Edge struct {
	ID                string      `json:"edge_id"`
	SourceNodeID      string      `json:"source_node_id"`
	TargetNodeID      string      `json:"target_node_id"`
	EdgeType          EdgeType    `json:"edge_type,omitempty"`
	ActionSets        []ActionSet `json:"action_sets"`
	DefaultActionSet  string      `json:"default_action_set_id"`
	FinalWaitMS       int         `json:"final_wait_time,omitempty"`
	IsVirtual         bool        `json:"-"`
	IsConditional     bool        `json:"is_conditional,omitempty"`
}

// DefaultSet returns the ActionSet named by DefaultActionSet, or false.
func (e Edge) DefaultSet() (ActionSet, bool) {
	for _, s := range e.ActionSets {
		if s.ID == e.DefaultActionSet {
			return s, true
		}
	}
	return ActionSet{}, false
}

// ReverseSet returns ActionSets[1] if present and non-empty.
func (e Edge) ReverseSet() (ActionSet, bool) {
	if len(e.ActionSets) < 2 {
		return ActionSet{}, false
	}
	s := e.ActionSets[1]
	if len(s.Actions) == 0 {
		return ActionSet{}, false
	}
	return s, true
}

func (e Edge) effectiveFinalWaitMS() int {
	if e.FinalWaitMS > 0 {
		return e.FinalWaitMS
	}
	return 2000
}

// FinalWait returns the effective final wait, defaulting to 2000ms.
func (e Edge) FinalWait() int { return e.effectiveFinalWaitMS() }

// Tree is a single navigation tree as fetched from durable storage (spec §6).
type Tree struct {
	TreeID         string `json:"tree_id"`
	Name           string `json:"name"`
	ParentTreeID   string `json:"parent_tree_id,omitempty"`
	ParentNodeID   string `json:"parent_node_id,omitempty"`
	TreeDepth      int    `json:"tree_depth"`
	IsRootTree     bool   `json:"is_root_tree"`
	Nodes          []Node `json:"nodes"`
	Edges          []Edge `json:"edges"`
}
