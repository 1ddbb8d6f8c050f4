package router

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/smazurov/pinnode/internal/events"
	"github.com/smazurov/pinnode/internal/hal"
	"github.com/smazurov/pinnode/internal/joystick"
	"github.com/smazurov/pinnode/internal/pins"
)

type centerBody struct {
	Center joystick.Center `json:"center"`
}

type dutyBody struct {
	Pin     int `json:"pin"`
	DutyPct int `json:"duty_pct"`
}

type stoppedBody struct {
	Pin     int  `json:"pin"`
	Stopped bool `json:"stopped"`
}

func (r *Router) handleRoot(_ []string) (Response, error) {
	return Text("OK"), nil
}

func (r *Router) handleIndicator(on bool) func([]string) (Response, error) {
	return func(_ []string) (Response, error) {
		if err := r.led.Set(on); err != nil {
			return Response{}, errHardware(err)
		}
		r.state.Indicator = on
		r.events.Publish(events.IndicatorChangedEvent{On: on, Timestamp: now()})
		if on {
			return Text("LED ON"), nil
		}
		return Text("LED OFF"), nil
	}
}

func (r *Router) handleJoystick(_ []string) (Response, error) {
	reading, err := r.stick.Snapshot(r.state.Center)
	if err != nil {
		return Response{}, errHardware(err)
	}
	return JSON(reading)
}

func (r *Router) handleCalibrate(_ []string) (Response, error) {
	center, err := r.stick.Calibrate(&r.state.Center)
	if err != nil {
		return Response{}, errHardware(err)
	}
	r.logger.Info("Joystick calibrated", "center_x", center.X, "center_y", center.Y)
	r.events.Publish(events.CalibratedEvent{X: center.X, Y: center.Y, Timestamp: now()})
	return JSON(centerBody{Center: center})
}

func (r *Router) handleCalibration(_ []string) (Response, error) {
	return JSON(centerBody{Center: r.state.Center})
}

func (r *Router) handleGPIO(args []string) (Response, error) {
	pin, err := r.gatedPin(args)
	if err != nil {
		return Response{}, err
	}

	var high bool
	switch arg(args, 1) {
	case "on":
		high = true
	case "off":
	default:
		return Response{}, NewError(ErrCodeBadState, "BAD STATE", nil)
	}

	if err := r.board.SetOutput(pin, high); err != nil {
		return Response{}, errHardware(err)
	}
	r.events.Publish(events.PinChangedEvent{Pin: pin, High: high, Timestamp: now()})

	state := "OFF"
	if high {
		state = "ON"
	}
	return Text(fmt.Sprintf("GPIO %d = %s", pin, state)), nil
}

func (r *Router) handlePWM(args []string) (Response, error) {
	pin, err := r.gatedPin(args)
	if err != nil {
		return Response{}, err
	}
	duty, err := parseDuty(arg(args, 1))
	if err != nil {
		return Response{}, err
	}

	level := DutyLevel(duty)
	if err := r.board.SetDuty(pin, level); err != nil {
		return Response{}, errHardware(err)
	}
	r.events.Publish(events.DutyChangedEvent{Pin: pin, DutyPct: duty, Level: level, Timestamp: now()})
	return JSON(dutyBody{Pin: pin, DutyPct: duty})
}

func (r *Router) handlePWMOff(args []string) (Response, error) {
	pin, err := r.gatedPin(args)
	if err != nil {
		return Response{}, err
	}
	if err := r.board.SetDuty(pin, 0); err != nil {
		return Response{}, errHardware(err)
	}
	r.events.Publish(events.DutyChangedEvent{Pin: pin, Stopped: true, Timestamp: now()})
	return JSON(stoppedBody{Pin: pin, Stopped: true})
}

// gatedPin parses the first argument as a pin and checks the allow-list.
// The indicator's own pin is refused so only the LED routes move it.
func (r *Router) gatedPin(args []string) (int, error) {
	pin, err := strconv.Atoi(arg(args, 0))
	if err != nil {
		return 0, NewError(ErrCodeBadPin, "BAD PIN", err)
	}
	if pin == r.ledPin {
		return 0, errIndicatorPin(pin)
	}
	if !pins.IsAllowed(pin) {
		return 0, errPinNotAllowed(pin)
	}
	return pin, nil
}

// actuatable is the allow-list as this router applies it.
func (r *Router) actuatable() []int {
	return slices.DeleteFunc(pins.Allowed(), func(p int) bool { return p == r.ledPin })
}

// parseDuty parses a duty percentage and clamps it to [0, 100].
// Out-of-range integers, including ones that overflow int, are clamped.
func parseDuty(s string) (int, error) {
	duty, err := strconv.Atoi(s)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, NewError(ErrCodeBadDuty, "BAD DUTY", err)
	}
	return ClampDuty(duty), nil
}

// ClampDuty limits duty to [0, 100].
func ClampDuty(duty int) int {
	return min(max(duty, 0), 100)
}

// DutyLevel maps a clamped duty percentage onto the 8-bit duty register.
func DutyLevel(duty int) uint8 {
	return uint8(ClampDuty(duty) * hal.DutyMax / 100)
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
