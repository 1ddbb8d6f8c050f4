package hal

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/warthog618/go-gpiocdev"
)

const (
	defaultGPIOChip = "gpiochip0"
	cdevConsumer    = "pinnode"
)

// ErrNoPWM is returned by boards without a hardware duty register for
// levels strictly between 0 and DutyMax.
var ErrNoPWM = errors.New("PWM not supported on this board")

type cdevLine struct {
	line  *gpiocdev.Line
	input bool
}

// Cdev drives lines of one GPIO character device (/dev/gpiochipN) with
// go-gpiocdev. It needs no memory-mapped register access, so it works on
// kernels and SoCs periph does not know. Pin numbers are line offsets.
type Cdev struct {
	chip string
	adc  ADC
	// closeADC releases an I2C converter, or is nil.
	closeADC func() error
	lines    map[int]*cdevLine
	logger   *slog.Logger
}

// NewCdev checks that the chip exists. Lines are requested on first use.
func NewCdev(logger *slog.Logger, opts Options) (*Cdev, error) {
	chip := opts.GPIOChip
	if chip == "" {
		chip = defaultGPIOChip
	}
	if _, err := os.Stat(filepath.Join("/dev", chip)); err != nil {
		return nil, fmt.Errorf("GPIO chip %s: %w", chip, err)
	}

	c := &Cdev{
		chip:   chip,
		lines:  make(map[int]*cdevLine),
		logger: logger,
	}
	adc, closeADC, err := openADC(opts)
	if err != nil {
		return nil, err
	}
	c.adc, c.closeADC = adc, closeADC

	logger.Info("Character device board ready", "chip", chip, "adc", adcName(opts))
	return c, nil
}

// Name implements Board.
func (c *Cdev) Name() string { return "cdev" }

// SetOutput implements Board.
func (c *Cdev) SetOutput(pin int, high bool) error {
	value := 0
	if high {
		value = 1
	}

	l, ok := c.lines[pin]
	if !ok {
		line, err := gpiocdev.RequestLine(c.chip, pin, gpiocdev.WithConsumer(cdevConsumer), gpiocdev.AsOutput(value))
		if err != nil {
			return fmt.Errorf("failed to request %s line %d: %w", c.chip, pin, err)
		}
		c.lines[pin] = &cdevLine{line: line}
		return nil
	}

	if l.input {
		if err := l.line.Reconfigure(gpiocdev.AsOutput(value)); err != nil {
			return fmt.Errorf("failed to switch line %d to output: %w", pin, err)
		}
		l.input = false
		return nil
	}
	if err := l.line.SetValue(value); err != nil {
		return fmt.Errorf("failed to drive line %d: %w", pin, err)
	}
	return nil
}

// SetDuty implements Board. Only fully off and fully on are possible.
func (c *Cdev) SetDuty(pin int, level uint8) error {
	switch level {
	case 0:
		return c.SetOutput(pin, false)
	case DutyMax:
		return c.SetOutput(pin, true)
	}
	return fmt.Errorf("line %d duty %d: %w", pin, level, ErrNoPWM)
}

// ReadInput implements Board.
func (c *Cdev) ReadInput(pin int) (bool, error) {
	l, ok := c.lines[pin]
	switch {
	case !ok:
		line, err := gpiocdev.RequestLine(c.chip, pin, gpiocdev.WithConsumer(cdevConsumer), gpiocdev.AsInput, gpiocdev.WithPullUp)
		if err != nil {
			return false, fmt.Errorf("failed to request %s line %d: %w", c.chip, pin, err)
		}
		l = &cdevLine{line: line, input: true}
		c.lines[pin] = l
	case !l.input:
		if err := l.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
			return false, fmt.Errorf("failed to switch line %d to input: %w", pin, err)
		}
		l.input = true
	}

	v, err := l.line.Value()
	if err != nil {
		return false, fmt.Errorf("failed to read line %d: %w", pin, err)
	}
	return v == 1, nil
}

// ReadAnalog implements Board.
func (c *Cdev) ReadAnalog(channel int) (int, error) {
	if c.adc == nil {
		return 0, ErrNoADC
	}
	return c.adc.ReadRaw(channel)
}

// Close drives outputs low and releases every line.
func (c *Cdev) Close() error {
	var errs []error
	for n, l := range c.lines {
		if !l.input {
			if err := l.line.SetValue(0); err != nil {
				errs = append(errs, fmt.Errorf("failed to release line %d: %w", n, err))
			}
		}
		if err := l.line.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.lines = make(map[int]*cdevLine)
	if c.closeADC != nil {
		errs = append(errs, c.closeADC())
		c.closeADC = nil
	}
	return errors.Join(errs...)
}
