package core

import (
	"context"
	"sync"

	"oddsbook/core/events"
	"oddsbook/observability"
)

const subscriberBuffer = 64

// eventHub fans engine events out to subscribers. Delivery is best-effort: a
// subscriber that stops draining its channel loses events rather than
// stalling the engines.
type eventHub struct {
	mu   sync.Mutex
	next uint64
	subs map[uint64]chan events.Event
}

func newEventHub() *eventHub {
	return &eventHub{subs: make(map[uint64]chan events.Event)}
}

// Emit implements events.Emitter.
func (h *eventHub) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	switch e := evt.(type) {
	case events.WagerSettled:
		observability.Book().WagersSettled.WithLabelValues(e.Winner).Inc()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		select {
		case sub <- evt:
		default:
		}
	}
}

func (h *eventHub) subscribe(ctx context.Context) <-chan events.Event {
	ch := make(chan events.Event, subscriberBuffer)
	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
		close(ch)
	}()
	return ch
}
