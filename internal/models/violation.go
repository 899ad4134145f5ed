package models

import "time"

// ViolationKind classifies one proctoring-policy breach.
type ViolationKind string

const (
	ViolationTabSwitch      ViolationKind = "tab_switch"
	ViolationFullscreenExit ViolationKind = "fullscreen_exit"
	ViolationKeyCombo       ViolationKind = "key_combo"
	ViolationRightClick     ViolationKind = "right_click"
	ViolationForcedDrop     ViolationKind = "forced_drop"
)

// ViolationLimit is the count above which a session is force-terminated.
// The check runs after every append, so the fourth violation terminates.
const ViolationLimit = 3

// Violation is a session-scoped record of one detected breach. It lives only
// for the duration of the live session and is never persisted.
type Violation struct {
	Kind      ViolationKind `json:"kind"`
	Severity  string        `json:"severity"`
	Timestamp time.Time     `json:"timestamp"`
}
