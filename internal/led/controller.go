// Package led drives the board's builtin indicator, which the device port
// switches with /led/on and /led/off.
package led

// Controller is one indicator backend: a sysfs LED class device, a board
// output pin, or nothing at all.
type Controller interface {
	// Set is idempotent.
	Set(on bool) error
	// Name is reported by /api/pins, e.g. "sysfs:ACT" or "gpio25".
	Name() string
}
