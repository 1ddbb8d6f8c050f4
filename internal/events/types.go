package events

// Event type constants for kelindar/event.
const (
	TypeIndicatorChanged uint32 = iota + 1
	TypePinChanged
	TypeDutyChanged
	TypeCalibrated
	TypeRequestHandled
)

// Event interface required by kelindar/event. Name is the short topic
// suffix used when mirroring events outside the process.
type Event interface {
	Type() uint32
	Name() string
}

// IndicatorChangedEvent is published when the builtin indicator is set.
// It fires on every set, including ones that do not change the state.
type IndicatorChangedEvent struct {
	On        bool   `json:"on" example:"true" doc:"Indicator state after the request"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for IndicatorChangedEvent.
func (e IndicatorChangedEvent) Type() uint32 { return TypeIndicatorChanged }

// Name returns the topic suffix for IndicatorChangedEvent.
func (e IndicatorChangedEvent) Name() string { return "indicator" }

// PinChangedEvent is published after a digital pin is driven.
type PinChangedEvent struct {
	Pin       int    `json:"pin" example:"15" doc:"Pin number"`
	High      bool   `json:"high" example:"true" doc:"Driven level"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for PinChangedEvent.
func (e PinChangedEvent) Type() uint32 { return TypePinChanged }

// Name returns the topic suffix for PinChangedEvent.
func (e PinChangedEvent) Name() string { return "gpio" }

// DutyChangedEvent is published after a PWM duty is applied or stopped.
type DutyChangedEvent struct {
	Pin       int    `json:"pin" example:"4" doc:"Pin number"`
	DutyPct   int    `json:"duty_pct" example:"50" doc:"Clamped duty in percent"`
	Level     uint8  `json:"level" example:"127" doc:"8-bit duty register value"`
	Stopped   bool   `json:"stopped" doc:"True when the output was turned off"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DutyChangedEvent.
func (e DutyChangedEvent) Type() uint32 { return TypeDutyChanged }

// Name returns the topic suffix for DutyChangedEvent.
func (e DutyChangedEvent) Name() string { return "pwm" }

// CalibratedEvent carries the stick center learned by a calibration.
type CalibratedEvent struct {
	X         int    `json:"x" example:"2040" doc:"X axis center"`
	Y         int    `json:"y" example:"2061" doc:"Y axis center"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for CalibratedEvent.
func (e CalibratedEvent) Type() uint32 { return TypeCalibrated }

// Name returns the topic suffix for CalibratedEvent.
func (e CalibratedEvent) Name() string { return "calibration" }

// RequestHandledEvent summarises one device port request.
type RequestHandledEvent struct {
	Method    string  `json:"method" example:"GET" doc:"Request method"`
	Path      string  `json:"path" example:"/gpio/15/on" doc:"Raw request path"`
	Route     string  `json:"route" example:"gpio" doc:"Matched route name"`
	Status    int     `json:"status" example:"200" doc:"Response status code"`
	Seconds   float64 `json:"seconds" example:"0.0004" doc:"Handling time in seconds"`
	Timestamp string  `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for RequestHandledEvent.
func (e RequestHandledEvent) Type() uint32 { return TypeRequestHandled }

// Name returns the topic suffix for RequestHandledEvent.
func (e RequestHandledEvent) Name() string { return "request" }
