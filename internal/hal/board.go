// Package hal is the pin actuation layer: digital outputs, PWM duty registers,
// pull-up inputs and ADC channels. Implementations talk to real hardware
// through periph.io or the GPIO character device, or keep everything in
// memory.
package hal

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Sample ranges shared by every Board.
const (
	AnalogBits = 12
	AnalogMax  = 1<<AnalogBits - 1
	DutyMax    = 255
)

const deviceTreeModelPath = "/proc/device-tree/model"

// ErrNoADC is returned by ReadAnalog when the board has no analog input configured.
var ErrNoADC = errors.New("no ADC configured")

// Board is the set of primitives the controller needs from the hardware.
// Calls are synchronous and expected to complete quickly.
type Board interface {
	Name() string
	// SetOutput configures pin as an output and drives it high or low.
	SetOutput(pin int, high bool) error
	// SetDuty configures pin for PWM and sets its 8-bit duty register.
	SetDuty(pin int, level uint8) error
	// ReadInput reads pin as a pull-up input. True means the line is high.
	ReadInput(pin int) (bool, error)
	// ReadAnalog returns a sample of channel in [0, AnalogMax].
	ReadAnalog(channel int) (int, error)
	Close() error
}

// ADC reads analog channels scaled to AnalogBits.
type ADC interface {
	ReadRaw(channel int) (int, error)
}

// Options configures board construction.
type Options struct {
	PWMFrequencyHz int
	// ADCKind is "iio" (default), "ads1115", "ads1015" or "none".
	ADCKind   string
	ADCDevice string
	ADCBits   int
	// ADCBus and ADCAddress locate an I2C converter. An empty bus
	// name picks the first bus; a zero address picks 0x48.
	ADCBus     string
	ADCAddress uint16
	// GPIOChip is the character device used by the cdev board.
	GPIOChip string
	// ADC overrides ADCKind.
	ADC ADC
}

// New returns the board named by kind: "periph", "cdev", "sim" or "auto".
// Auto picks periph on a Raspberry Pi and the simulated board elsewhere.
func New(logger *slog.Logger, kind string, opts Options) (Board, error) {
	switch strings.ToLower(kind) {
	case "sim":
		return NewSim(logger), nil
	case "periph":
		return NewPeriph(logger, opts)
	case "cdev":
		return NewCdev(logger, opts)
	case "", "auto":
		model := Model()
		if !strings.Contains(model, "Raspberry Pi") {
			logger.Info("No supported board detected, using simulated board", "board_model", model)
			return NewSim(logger), nil
		}
		board, err := NewPeriph(logger, opts)
		if err != nil {
			logger.Warn("Failed to initialise periph board, using simulated board", "error", err)
			return NewSim(logger), nil
		}
		return board, nil
	default:
		return nil, fmt.Errorf("unknown board %q", kind)
	}
}

// Model reads the device tree model string, or "unknown".
func Model() string {
	data, err := os.ReadFile(deviceTreeModelPath)
	if err != nil {
		return "unknown"
	}
	return strings.TrimRight(string(data), "\x00")
}

// scale converts a sample of the given resolution to AnalogBits.
func scale(v, bits int) int {
	switch {
	case bits <= 0 || bits == AnalogBits:
	case bits > AnalogBits:
		v >>= bits - AnalogBits
	default:
		v <<= AnalogBits - bits
	}
	return min(max(v, 0), AnalogMax)
}
