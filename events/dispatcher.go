package events

import (
	"context"
	"errors"
	"sync"
)

// Handler handles a published event.
type Handler func(context.Context, Event) error

// Publisher is what the ticket manager depends on.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Dispatcher fans events out to subscribed handlers synchronously.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners map[Type][]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{listeners: make(map[Type][]Handler)}
}

// Publish invokes every handler for the event type; one failing handler
// does not stop the rest. The joined errors are returned.
func (d *Dispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.RLock()
	handlers := append([]Handler{}, d.listeners[event.Type]...)
	d.mu.RUnlock()

	var errs []error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) Subscribe(t Type, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[t] = append(d.listeners[t], handler)
}

// SubscribeAll registers handler for every known event type.
func (d *Dispatcher) SubscribeAll(handler Handler) {
	for _, t := range []Type{TicketOpened, TicketClosed} {
		d.Subscribe(t, handler)
	}
}
