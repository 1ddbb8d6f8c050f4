package events

import (
	"github.com/kelindar/event"
)

// Bus broadcasts device events in process over a kelindar/event dispatcher.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// kind adapts one concrete event type to the generic dispatcher, which
// routes on the static type rather than the Event interface.
type kind struct {
	publish   func(d *event.Dispatcher, ev Event) bool
	subscribe func(d *event.Dispatcher, handler any) (func(), bool)
	forward   func(d *event.Dispatcher, ch chan<- Event) func()
}

func kindOf[T Event]() kind {
	return kind{
		publish: func(d *event.Dispatcher, ev Event) bool {
			e, ok := ev.(T)
			if ok {
				event.Publish(d, e)
			}
			return ok
		},
		subscribe: func(d *event.Dispatcher, handler any) (func(), bool) {
			h, ok := handler.(func(T))
			if !ok {
				return nil, false
			}
			return event.Subscribe(d, h), true
		},
		forward: func(d *event.Dispatcher, ch chan<- Event) func() {
			return event.Subscribe(d, func(e T) {
				select {
				case ch <- e:
				default:
				}
			})
		},
	}
}

// kinds lists every event type the bus carries.
var kinds = []kind{
	kindOf[IndicatorChangedEvent](),
	kindOf[PinChangedEvent](),
	kindOf[DutyChangedEvent](),
	kindOf[CalibratedEvent](),
	kindOf[RequestHandledEvent](),
}

// Publish delivers ev to the subscribers of its concrete type.
// Types the bus does not carry are dropped.
func (b *Bus) Publish(ev Event) {
	for _, k := range kinds {
		if k.publish(b.dispatcher, ev) {
			return
		}
	}
}

// Subscribe registers handler, whose parameter type selects the events it
// receives, e.g. bus.Subscribe(func(e CalibratedEvent) { ... }).
// It returns an unsubscribe function, a no-op for unsupported handler types.
func (b *Bus) Subscribe(handler any) func() {
	for _, k := range kinds {
		if unsub, ok := k.subscribe(b.dispatcher, handler); ok {
			return unsub
		}
	}
	return func() {}
}
