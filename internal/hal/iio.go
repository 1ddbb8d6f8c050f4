package hal

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// IIO reads ADC channels from the Linux industrial I/O sysfs interface,
// e.g. /sys/bus/iio/devices/iio:device0/in_voltage0_raw.
type IIO struct {
	dir  string
	bits int
}

// NewIIO creates an ADC reader for the IIO device directory dir.
// bits is the converter's native resolution; zero means AnalogBits.
func NewIIO(dir string, bits int) *IIO {
	return &IIO{dir: dir, bits: bits}
}

// ReadRaw implements ADC.
func (a *IIO) ReadRaw(channel int) (int, error) {
	path := filepath.Join(a.dir, fmt.Sprintf("in_voltage%d_raw", channel))
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read ADC channel %d: %w", channel, err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid sample on ADC channel %d: %w", channel, err)
	}
	return scale(v, a.bits), nil
}
