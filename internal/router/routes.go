package router

import "slices"

// route binds literal leading segments to a handler. The handler receives
// the segments that follow the literal prefix.
type route struct {
	name    string
	prefix  []string
	exact   bool
	handle  func(args []string) (Response, error)
	example string
}

func (r *Router) table() []route {
	return []route{
		{name: "root", exact: true, handle: r.handleRoot, example: "/"},
		{name: "led_on", prefix: []string{"led_builtin", "on"}, handle: r.handleIndicator(true), example: "/led_builtin/on"},
		{name: "led_on", prefix: []string{"led", "on"}, handle: r.handleIndicator(true), example: "/led/on"},
		{name: "led_off", prefix: []string{"led_builtin", "off"}, handle: r.handleIndicator(false), example: "/led_builtin/off"},
		{name: "led_off", prefix: []string{"led", "off"}, handle: r.handleIndicator(false), example: "/led/off"},
		{name: "joystick", prefix: []string{"joystick"}, handle: r.handleJoystick, example: "/joystick"},
		{name: "calibrate", prefix: []string{"calibrate"}, handle: r.handleCalibrate, example: "/calibrate"},
		{name: "calibration", prefix: []string{"calibration"}, handle: r.handleCalibration, example: "/calibration"},
		{name: "gpio", prefix: []string{"gpio"}, handle: r.handleGPIO, example: "/gpio/15/on"},
		{name: "pwm", prefix: []string{"pwm"}, handle: r.handlePWM, example: "/pwm/15/50"},
		{name: "pwmoff", prefix: []string{"pwmoff"}, handle: r.handlePWMOff, example: "/pwmoff/15"},
	}
}

// match returns the first route whose prefix equals the leading segments,
// or the index route.
func (r *Router) match(segs []string) (route, []string) {
	for _, rt := range r.routes {
		if rt.exact {
			if len(segs) == 0 {
				return rt, nil
			}
			continue
		}
		if len(segs) >= len(rt.prefix) && slices.Equal(segs[:len(rt.prefix)], rt.prefix) {
			return rt, segs[len(rt.prefix):]
		}
	}
	return route{name: "index", handle: r.handleIndex}, segs
}

// Routes lists an example path for every route, in match order.
func (r *Router) Routes() []string {
	paths := make([]string, 0, len(r.routes))
	for _, rt := range r.routes {
		paths = append(paths, rt.example)
	}
	return paths
}
