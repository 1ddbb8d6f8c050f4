package led

import "fmt"

// Output is the part of hal.Board a pin-driven LED needs.
type Output interface {
	SetOutput(pin int, high bool) error
}

// PinOwner is implemented by backends that occupy a board output pin.
// The router keeps that pin away from the pin-addressed routes.
type PinOwner interface {
	Pin() int
}

// pinLED drives an LED wired to a board output pin
type pinLED struct {
	out Output
	pin int
}

func newPin(out Output, pin int) *pinLED {
	return &pinLED{out: out, pin: pin}
}

// Set drives the pin high for on and low for off
func (p *pinLED) Set(on bool) error {
	if err := p.out.SetOutput(p.pin, on); err != nil {
		return fmt.Errorf("failed to drive LED pin %d: %w", p.pin, err)
	}
	return nil
}

// Name returns the GPIO name of the LED pin
func (p *pinLED) Name() string {
	return fmt.Sprintf("gpio%d", p.pin)
}

// Pin implements PinOwner.
func (p *pinLED) Pin() int {
	return p.pin
}
