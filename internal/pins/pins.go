// Package pins holds the compile-time pin map of the board and the allow-list
// that gates every remotely actuated pin.
package pins

import "slices"

// Pins reserved for the analog stick. They are sampled, never driven.
const (
	StickX = 26 // ADC0
	StickY = 27 // ADC1
	Button = 28 // active low, internal pull-up
)

// ADC channels wired to the stick axes.
const (
	ChannelX = 0
	ChannelY = 1
)

// allowed lists every pin that may be actuated over the network.
// StickX, StickY and Button are deliberately absent.
var allowed = [...]int{
	0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12,
	13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24, 25,
}

// IsAllowed reports whether pin may be actuated.
func IsAllowed(pin int) bool {
	for _, p := range allowed {
		if p == pin {
			return true
		}
	}
	return false
}

// Allowed returns a sorted copy of the allow-list.
func Allowed() []int {
	out := slices.Clone(allowed[:])
	slices.Sort(out)
	return out
}

// Reserved returns the sensing pins that are never actuated.
func Reserved() []int {
	return []int{StickX, StickY, Button}
}
