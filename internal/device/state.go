// Package device holds the controller's mutable runtime state.
package device

import "github.com/smazurov/pinnode/internal/joystick"

// State is owned by the request loop. It is reset on every start and
// never persisted.
type State struct {
	// Indicator is the builtin LED state.
	Indicator bool
	// Center is the stick zero point learned by the last calibration.
	Center joystick.Center
}

// NewState returns the startup state: indicator off, stick centered at mid-scale.
func NewState() *State {
	return &State{Center: joystick.DefaultCenter()}
}
