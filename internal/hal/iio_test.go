package hal

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScale(t *testing.T) {
	tests := []struct {
		name    string
		v, bits int
		want    int
	}{
		{"native", 2048, 12, 2048},
		{"unset resolution", 4095, 0, 4095},
		{"16 bit", 65535, 16, 4095},
		{"10 bit", 512, 10, 2048},
		{"negative", -3, 12, 0},
		{"overflow", 5000, 12, 4095},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scale(tt.v, tt.bits); got != tt.want {
				t.Errorf("scale(%d, %d) = %d, want %d", tt.v, tt.bits, got, tt.want)
			}
		})
	}
}

func TestIIOReadRaw(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "in_voltage0_raw"), []byte("1000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "in_voltage1_raw"), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	adc := NewIIO(dir, 12)

	v, err := adc.ReadRaw(0)
	if err != nil {
		t.Fatalf("ReadRaw(0) error = %v", err)
	}
	if v != 1000 {
		t.Errorf("ReadRaw(0) = %d, want 1000", v)
	}

	if _, err := adc.ReadRaw(1); err == nil {
		t.Error("ReadRaw(1) with invalid sample should return error")
	}
	if _, err := adc.ReadRaw(7); err == nil {
		t.Error("ReadRaw(7) on missing channel should return error")
	}
}
