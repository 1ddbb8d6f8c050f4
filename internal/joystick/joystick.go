// Package joystick turns raw analog stick samples into centered percentages.
package joystick

import (
	"fmt"
	"math"

	"github.com/smazurov/pinnode/internal/pins"
)

const (
	// Rest is the center reference used until the first calibration.
	Rest = 2048

	fullScale = 2048.0
	deadZone  = 2
)

// Center holds the raw readings taken as the stick's rest position.
type Center struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// DefaultCenter returns the mid-scale center used at startup.
func DefaultCenter() Center {
	return Center{X: Rest, Y: Rest}
}

// Sample is one raw read of both axes and the button.
type Sample struct {
	X       int
	Y       int
	Pressed bool
}

// Reading is an immutable telemetry snapshot.
type Reading struct {
	X       int    `json:"x"`
	Y       int    `json:"y"`
	XPct    int    `json:"x_pct"`
	YPct    int    `json:"y_pct"`
	Pressed bool   `json:"pressed"`
	Center  Center `json:"center"`
}

// Board is the subset of hal.Board the transducer reads from.
type Board interface {
	ReadAnalog(channel int) (int, error)
	ReadInput(pin int) (bool, error)
}

// Transducer samples the stick wired to the reserved pins.
type Transducer struct {
	board    Board
	channelX int
	channelY int
	button   int
}

// New creates a transducer reading the board's stick channels and button line.
func New(board Board) *Transducer {
	return &Transducer{
		board:    board,
		channelX: pins.ChannelX,
		channelY: pins.ChannelY,
		button:   pins.Button,
	}
}

// Sample reads each axis and the button exactly once.
func (t *Transducer) Sample() (Sample, error) {
	x, err := t.board.ReadAnalog(t.channelX)
	if err != nil {
		return Sample{}, fmt.Errorf("failed to read X axis: %w", err)
	}
	y, err := t.board.ReadAnalog(t.channelY)
	if err != nil {
		return Sample{}, fmt.Errorf("failed to read Y axis: %w", err)
	}
	high, err := t.board.ReadInput(t.button)
	if err != nil {
		return Sample{}, fmt.Errorf("failed to read button: %w", err)
	}
	// Pull-up input: pressing the button pulls the line low.
	return Sample{X: x, Y: y, Pressed: !high}, nil
}

// Calibrate overwrites center with the current raw position of both axes
// and returns the new value. On error center is left untouched.
func (t *Transducer) Calibrate(center *Center) (Center, error) {
	s, err := t.Sample()
	if err != nil {
		return *center, err
	}
	center.X = s.X
	center.Y = s.Y
	return *center, nil
}

// Snapshot samples once and normalizes against center.
// Y is inverted so that pushing the stick away from the user reads positive.
func (t *Transducer) Snapshot(center Center) (Reading, error) {
	s, err := t.Sample()
	if err != nil {
		return Reading{}, err
	}
	return Reading{
		X:       s.X,
		Y:       s.Y,
		XPct:    Normalize(s.X, center.X),
		YPct:    -Normalize(s.Y, center.Y),
		Pressed: s.Pressed,
		Center:  center,
	}, nil
}

// Normalize maps raw to a percentage of full deflection from center in
// [-100, 100]. Results within the dead-zone collapse to 0.
func Normalize(raw, center int) int {
	pct := int(math.Round(float64(raw-center) / fullScale * 100))
	pct = min(max(pct, -100), 100)
	if pct > -deadZone && pct < deadZone {
		return 0
	}
	return pct
}
