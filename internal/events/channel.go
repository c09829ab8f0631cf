package events

// SubscribeToChannel delivers events of type T to ch so they can be selected
// on next to other work. Events are dropped while ch is full.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return On(bus, func(e T) { trySend(ch, e) })
}

func trySend(ch chan<- any, v any) bool {
	select {
	case ch <- v:
		return true
	default:
		return false
	}
}
