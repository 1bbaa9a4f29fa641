package testutil

import (
	"sync"

	"lucky-agents/internal/broadcast"
)

// CaptureSink records emitted events for assertions.
type CaptureSink struct {
	mu     sync.Mutex
	events []broadcast.Event
}

func NewCaptureSink() *CaptureSink {
	return &CaptureSink{}
}

func (c *CaptureSink) Emit(ev broadcast.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *CaptureSink) Events() []broadcast.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]broadcast.Event, len(c.events))
	copy(out, c.events)
	return out
}

func (c *CaptureSink) EventsOfType(eventType string) []broadcast.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]broadcast.Event, 0)
	for _, ev := range c.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}
