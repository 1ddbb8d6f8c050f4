package hal

import (
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const defaultPWMFrequency = 1000

// Periph drives BCM-numbered pins through periph.io.
type Periph struct {
	freq physic.Frequency
	adc  ADC
	// closeADC releases an I2C converter, or is nil.
	closeADC func() error
	inputs   map[int]gpio.PinIO
	driven   map[int]gpio.PinIO
	logger   *slog.Logger
}

// NewPeriph initialises the periph host drivers.
func NewPeriph(logger *slog.Logger, opts Options) (*Periph, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialise periph host: %w", err)
	}

	hz := opts.PWMFrequencyHz
	if hz <= 0 {
		hz = defaultPWMFrequency
	}

	p := &Periph{
		freq:   physic.Frequency(hz) * physic.Hertz,
		inputs: make(map[int]gpio.PinIO),
		driven: make(map[int]gpio.PinIO),
		logger: logger,
	}
	adc, closeADC, err := openADC(opts)
	if err != nil {
		return nil, err
	}
	p.adc, p.closeADC = adc, closeADC

	logger.Info("Periph board ready", "pwm_frequency", p.freq.String(), "adc", adcName(opts))
	return p, nil
}

func (p *Periph) pin(n int) (gpio.PinIO, error) {
	io := gpioreg.ByName(fmt.Sprintf("GPIO%d", n))
	if io == nil {
		return nil, fmt.Errorf("GPIO%d not found", n)
	}
	return io, nil
}

// Name implements Board.
func (p *Periph) Name() string { return "periph" }

// SetOutput implements Board.
func (p *Periph) SetOutput(pin int, high bool) error {
	io, err := p.pin(pin)
	if err != nil {
		return err
	}
	level := gpio.Low
	if high {
		level = gpio.High
	}
	if err := io.Out(level); err != nil {
		return fmt.Errorf("failed to drive GPIO%d: %w", pin, err)
	}
	delete(p.inputs, pin)
	p.driven[pin] = io
	return nil
}

// SetDuty implements Board. A zero level parks the pin low instead of running PWM.
func (p *Periph) SetDuty(pin int, level uint8) error {
	io, err := p.pin(pin)
	if err != nil {
		return err
	}
	if level == 0 {
		err = io.Out(gpio.Low)
	} else {
		duty := gpio.Duty(int64(level) * int64(gpio.DutyMax) / DutyMax)
		err = io.PWM(duty, p.freq)
	}
	if err != nil {
		return fmt.Errorf("failed to set duty on GPIO%d: %w", pin, err)
	}
	delete(p.inputs, pin)
	p.driven[pin] = io
	return nil
}

// ReadInput implements Board.
func (p *Periph) ReadInput(pin int) (bool, error) {
	io, ok := p.inputs[pin]
	if !ok {
		var err error
		if io, err = p.pin(pin); err != nil {
			return false, err
		}
		if err := io.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return false, fmt.Errorf("failed to configure GPIO%d as input: %w", pin, err)
		}
		p.inputs[pin] = io
	}
	return io.Read() == gpio.High, nil
}

// ReadAnalog implements Board.
func (p *Periph) ReadAnalog(channel int) (int, error) {
	if p.adc == nil {
		return 0, ErrNoADC
	}
	return p.adc.ReadRaw(channel)
}

// Close drives every output low and releases the converter.
func (p *Periph) Close() error {
	var firstErr error
	for n, io := range p.driven {
		if err := io.Out(gpio.Low); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to release GPIO%d: %w", n, err)
		}
	}
	p.driven = make(map[int]gpio.PinIO)
	if p.closeADC != nil {
		if err := p.closeADC(); err != nil && firstErr == nil {
			firstErr = err
		}
		p.closeADC = nil
	}
	return firstErr
}
