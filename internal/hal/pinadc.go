package hal

import (
	"fmt"

	"periph.io/x/conn/v3/analog"
)

// PinADC adapts periph analog pins to ADC, one pin per channel index.
// Samples are rescaled from each pin's reported range to AnalogBits.
type PinADC []analog.PinADC

// ReadRaw implements ADC.
func (a PinADC) ReadRaw(channel int) (int, error) {
	if channel < 0 || channel >= len(a) || a[channel] == nil {
		return 0, fmt.Errorf("no analog pin for channel %d", channel)
	}
	p := a[channel]
	s, err := p.Read()
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", p.Name(), err)
	}
	lo, hi := p.Range()
	span := int64(hi.Raw) - int64(lo.Raw)
	if span <= 0 {
		return scale(int(s.Raw), AnalogBits), nil
	}
	v := (int64(s.Raw) - int64(lo.Raw)) * AnalogMax / span
	return min(max(int(v), 0), AnalogMax), nil
}
