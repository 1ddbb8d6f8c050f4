package events

// SubscribeToChannel bridges callback subscriptions to a channel so one
// consumer can select over several event types. Events are dropped when ch
// is full; publishers never wait on slow consumers.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- Event) func() {
	return kindOf[T]().forward(bus.dispatcher, ch)
}

// SubscribeAll forwards every device event type to ch and returns a single
// unsubscribe function.
func SubscribeAll(bus *Bus, ch chan<- Event) func() {
	unsubs := make([]func(), 0, len(kinds))
	for _, k := range kinds {
		unsubs = append(unsubs, k.forward(bus.dispatcher, ch))
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}
