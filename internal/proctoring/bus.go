package proctoring

import "sync"

// Bus is an in-process Source. The server publishes events received from
// the browser into it.
type Bus struct {
	mu       sync.RWMutex
	handlers map[int]Handler
	nextID   int
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[int]Handler)}
}

func (b *Bus) Subscribe(handler Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = handler
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}
}

// Publish delivers ev to every subscriber. The default action is prevented
// if any subscriber asks for it; the last warning wins.
func (b *Bus) Publish(ev Event) Response {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	var merged Response
	for _, h := range handlers {
		resp := h(ev)
		merged.PreventDefault = merged.PreventDefault || resp.PreventDefault
		if resp.Warning != nil {
			merged.Warning = resp.Warning
		}
	}
	return merged
}

func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}
