package hal

import (
	"fmt"
	"strings"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/host/v3"
)

const (
	adsFullScale  = 4096 * physic.MilliVolt
	adsSampleRate = 250 * physic.Hertz
)

// openADC resolves opts into an ADC. The returned close func is nil when
// nothing needs releasing; a nil ADC means no analog input.
func openADC(opts Options) (ADC, func() error, error) {
	if opts.ADC != nil {
		return opts.ADC, nil, nil
	}
	switch kind := strings.ToLower(opts.ADCKind); kind {
	case "", "iio":
		if opts.ADCDevice == "" {
			return nil, nil, nil
		}
		return NewIIO(opts.ADCDevice, opts.ADCBits), nil, nil
	case "ads1115", "ads1015":
		return openADS1x15(kind, opts.ADCBus, opts.ADCAddress)
	case "none":
		return nil, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown ADC %q", opts.ADCKind)
	}
}

// openADS1x15 opens a TI ADS1115 or ADS1015 on an I2C bus and exposes its
// four single-ended inputs as channels 0-3.
func openADS1x15(kind, bus string, addr uint16) (ADC, func() error, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("failed to initialise periph host: %w", err)
	}
	b, err := i2creg.Open(bus)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open I2C bus %q: %w", bus, err)
	}

	devOpts := ads1x15.DefaultOpts
	if addr != 0 {
		devOpts.I2cAddress = addr
	}
	var dev *ads1x15.Dev
	if kind == "ads1015" {
		dev, err = ads1x15.NewADS1015(b, &devOpts)
	} else {
		dev, err = ads1x15.NewADS1115(b, &devOpts)
	}
	if err != nil {
		b.Close()
		return nil, nil, fmt.Errorf("failed to open %s at 0x%02x: %w", kind, devOpts.I2cAddress, err)
	}

	channels := []ads1x15.Channel{ads1x15.Channel0, ads1x15.Channel1, ads1x15.Channel2, ads1x15.Channel3}
	adc := make(PinADC, len(channels))
	for i, ch := range channels {
		p, err := dev.PinForChannel(ch, adsFullScale, adsSampleRate, ads1x15.BestQuality)
		if err != nil {
			b.Close()
			return nil, nil, fmt.Errorf("failed to configure %s channel %d: %w", kind, i, err)
		}
		adc[i] = p
	}

	closeFn := func() error {
		for _, p := range adc {
			p.Halt()
		}
		return b.Close()
	}
	return adc, closeFn, nil
}

// adcName describes the analog source for startup logs.
func adcName(opts Options) string {
	switch {
	case opts.ADC != nil:
		return "custom"
	case strings.HasPrefix(strings.ToLower(opts.ADCKind), "ads"):
		return fmt.Sprintf("%s@0x%02x", strings.ToLower(opts.ADCKind), opts.ADCAddress)
	case opts.ADCKind == "none" || opts.ADCDevice == "":
		return "none"
	}
	return opts.ADCDevice
}
