package monitoring

// eventBuffer is a bounded FIFO of log events. When full, the oldest
// entry is silently evicted. Not safe for concurrent use on its own;
// the generator guards all access with its mutex.
type eventBuffer struct {
	events   []LogEvent
	capacity int
}

func newEventBuffer(capacity int) *eventBuffer {
	return &eventBuffer{
		events:   make([]LogEvent, 0, capacity),
		capacity: capacity,
	}
}

func (b *eventBuffer) append(ev LogEvent) {
	if len(b.events) >= b.capacity {
		copy(b.events, b.events[1:])
		b.events = b.events[:len(b.events)-1]
	}
	b.events = append(b.events, ev)
}

// snapshot returns a copy of the buffered events in insertion order
func (b *eventBuffer) snapshot() []LogEvent {
	out := make([]LogEvent, len(b.events))
	copy(out, b.events)
	return out
}

func (b *eventBuffer) clear() {
	b.events = b.events[:0]
}

func (b *eventBuffer) len() int {
	return len(b.events)
}
