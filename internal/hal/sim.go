package hal

import (
	"log/slog"
	"sync"
)

const simAnalogRest = 2048

// Sim is an in-memory Board. Inputs rest high (button released) and analog
// channels rest at mid-scale until changed with SetInput and SetAnalog.
type Sim struct {
	mu      sync.Mutex
	outputs map[int]bool
	duties  map[int]uint8
	inputs  map[int]bool
	analog  map[int]int
	writes  int
	logger  *slog.Logger
}

// NewSim creates a simulated board.
func NewSim(logger *slog.Logger) *Sim {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sim{
		outputs: make(map[int]bool),
		duties:  make(map[int]uint8),
		inputs:  make(map[int]bool),
		analog:  make(map[int]int),
		logger:  logger,
	}
}

// Name implements Board.
func (s *Sim) Name() string { return "sim" }

// SetOutput implements Board.
func (s *Sim) SetOutput(pin int, high bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.duties, pin)
	s.outputs[pin] = high
	s.writes++
	s.logger.Debug("Simulated pin write", "pin", pin, "high", high)
	return nil
}

// SetDuty implements Board.
func (s *Sim) SetDuty(pin int, level uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.outputs, pin)
	s.duties[pin] = level
	s.writes++
	s.logger.Debug("Simulated duty write", "pin", pin, "level", level)
	return nil
}

// ReadInput implements Board.
func (s *Sim) ReadInput(pin int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	high, ok := s.inputs[pin]
	if !ok {
		return true, nil
	}
	return high, nil
}

// ReadAnalog implements Board.
func (s *Sim) ReadAnalog(channel int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.analog[channel]
	if !ok {
		return simAnalogRest, nil
	}
	return v, nil
}

// Close implements Board.
func (s *Sim) Close() error { return nil }

// SetInput sets the level seen by ReadInput.
func (s *Sim) SetInput(pin int, high bool) {
	s.mu.Lock()
	s.inputs[pin] = high
	s.mu.Unlock()
}

// SetAnalog sets the sample returned by ReadAnalog, clamped to [0, AnalogMax].
func (s *Sim) SetAnalog(channel, value int) {
	s.mu.Lock()
	s.analog[channel] = min(max(value, 0), AnalogMax)
	s.mu.Unlock()
}

// Output returns the last level written to pin and whether it was ever driven.
func (s *Sim) Output(pin int) (high, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	high, ok = s.outputs[pin]
	return high, ok
}

// Duty returns the last duty level written to pin and whether PWM is active on it.
func (s *Sim) Duty(pin int) (level uint8, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	level, ok = s.duties[pin]
	return level, ok
}

// Writes counts every SetOutput and SetDuty call.
func (s *Sim) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
