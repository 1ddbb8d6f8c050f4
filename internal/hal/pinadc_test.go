package hal

import (
	"errors"
	"fmt"
	"testing"

	"periph.io/x/conn/v3/analog"
)

type fakeAnalogPin struct {
	analog.PinADC
	lo, hi int32
	raw    int32
	err    error
}

func (f *fakeAnalogPin) Name() string { return "A0" }

func (f *fakeAnalogPin) Range() (analog.Sample, analog.Sample) {
	return analog.Sample{Raw: f.lo}, analog.Sample{Raw: f.hi}
}

func (f *fakeAnalogPin) Read() (analog.Sample, error) {
	return analog.Sample{Raw: f.raw}, f.err
}

func TestPinADCScalesToRange(t *testing.T) {
	tests := []struct {
		name   string
		lo, hi int32
		raw    int32
		want   int
	}{
		{"10-bit midpoint", 0, 1023, 512, 2049},
		{"10-bit full", 0, 1023, 1023, AnalogMax},
		{"16-bit zero", 0, 65535, 0, 0},
		{"offset range", 100, 4195, 100, 0},
		{"below range", 100, 4195, 50, 0},
		{"degenerate range", 0, 0, 3000, 3000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adc := PinADC{&fakeAnalogPin{lo: tt.lo, hi: tt.hi, raw: tt.raw}}
			got, err := adc.ReadRaw(0)
			if err != nil {
				t.Fatalf("ReadRaw() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ReadRaw() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPinADCErrors(t *testing.T) {
	adc := PinADC{&fakeAnalogPin{hi: 1023, err: errors.New("bus error")}}
	if _, err := adc.ReadRaw(0); err == nil {
		t.Error("expected read error to propagate")
	}
	if _, err := adc.ReadRaw(1); err == nil {
		t.Error("expected error for missing channel")
	}
	if _, err := adc.ReadRaw(-1); err == nil {
		t.Error("expected error for negative channel")
	}
}

func TestOpenADC(t *testing.T) {
	override := PinADC{}

	tests := []struct {
		name    string
		opts    Options
		want    string
		wantErr bool
	}{
		{"iio device", Options{ADCDevice: "/sys/bus/iio/devices/iio:device0"}, "*hal.IIO", false},
		{"iio without device", Options{ADCKind: "iio"}, "<nil>", false},
		{"none", Options{ADCKind: "none", ADCDevice: "/sys/bus/iio/devices/iio:device0"}, "<nil>", false},
		{"override wins", Options{ADCKind: "ads1115", ADC: override}, "hal.PinADC", false},
		{"unknown", Options{ADCKind: "mcp3008"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adc, closeADC, err := openADC(tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("openADC() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := fmt.Sprintf("%T", adc); got != tt.want {
				t.Errorf("openADC() = %s, want %s", got, tt.want)
			}
			if closeADC != nil {
				t.Error("only I2C converters need closing")
			}
		})
	}
}

func TestADCName(t *testing.T) {
	tests := []struct {
		opts Options
		want string
	}{
		{Options{ADCDevice: "/sys/x"}, "/sys/x"},
		{Options{ADCKind: "ADS1115", ADCAddress: 0x49}, "ads1115@0x49"},
		{Options{ADCKind: "none", ADCDevice: "/sys/x"}, "none"},
		{Options{}, "none"},
	}
	for _, tt := range tests {
		if got := adcName(tt.opts); got != tt.want {
			t.Errorf("adcName(%+v) = %q, want %q", tt.opts, got, tt.want)
		}
	}
}
