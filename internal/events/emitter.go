package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Bus delivers committed events to the handlers subscribed to their type.
// Delivery is synchronous, on the emitting goroutine, in subscription order.
type Bus struct {
	mu     sync.RWMutex
	byType map[string][]*subscription
	all    []*subscription
	seq    uint64
	logger *slog.Logger
}

type subscription struct {
	seq     uint64
	handler EventHandler
}

// NewBus creates an empty Bus. If logger is nil, a default logger will be used.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		byType: make(map[string][]*subscription),
		logger: logger.With("component", "event_bus"),
	}
}

var _ EventEmitter = (*Bus)(nil)

// Subscribe registers handler for the given event types, or for every type
// when none is given. The returned function cancels the subscription.
func (b *Bus) Subscribe(handler EventHandler, types ...string) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	sub := &subscription{seq: b.seq, handler: handler}
	if len(types) == 0 {
		b.all = append(b.all, sub)
	}
	for _, t := range types {
		b.byType[t] = append(b.byType[t], sub)
	}
	b.logger.Debug("handler subscribed", "types", types)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.all = without(b.all, sub)
		for _, t := range types {
			if rest := without(b.byType[t], sub); len(rest) > 0 {
				b.byType[t] = rest
			} else {
				delete(b.byType, t)
			}
		}
	}
}

func without(subs []*subscription, sub *subscription) []*subscription {
	out := make([]*subscription, 0, len(subs))
	for _, s := range subs {
		if s != sub {
			out = append(out, s)
		}
	}
	return out
}

// handlersFor merges the typed and catch-all subscribers of eventType back
// into subscription order.
func (b *Bus) handlersFor(eventType string) []*subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()

	typed, all := b.byType[eventType], b.all
	out := make([]*subscription, 0, len(typed)+len(all))
	for len(typed) > 0 || len(all) > 0 {
		if len(all) == 0 || (len(typed) > 0 && typed[0].seq < all[0].seq) {
			out, typed = append(out, typed[0]), typed[1:]
		} else {
			out, all = append(out, all[0]), all[1:]
		}
	}
	return out
}

// EmitEvent delivers event to every subscriber of its type. A failing or
// panicking handler does not stop delivery to the others; their errors are
// joined and returned.
func (b *Bus) EmitEvent(ctx context.Context, event *Event) error {
	subs := b.handlersFor(event.Type)
	if len(subs) == 0 {
		return nil
	}

	b.logger.Debug("emitting event",
		"event_id", event.ID,
		"event_type", event.Type,
		"handler_count", len(subs))

	var errs []error
	for _, sub := range subs {
		if err := deliver(ctx, sub.handler, event); err != nil {
			b.logger.Error("handler failed to process event",
				"error", err,
				"subscription", sub.seq,
				"event_id", event.ID,
				"event_type", event.Type)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func deliver(ctx context.Context, handler EventHandler, event *Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler.HandleEvent(ctx, event)
}
