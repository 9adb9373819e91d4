package notifications

import (
	"context"
	"log/slog"

	"scribe/internal/observability"
)

// Publisher publishes feed events.
type Publisher interface {
	Publish(ctx context.Context, event FeedEvent)
}

// Broker delivers feed events to local subscribers, through Redis when
// available, and mirrors them to NATS. Delivery failures are logged and
// never surface to the caller.
type Broker struct {
	hub      *FeedHub
	notifier *Notifier
	mirror   *NatsMirror
}

// NewBroker builds a Broker. Any argument may be nil.
func NewBroker(hub *FeedHub, notifier *Notifier, mirror *NatsMirror) *Broker {
	return &Broker{hub: hub, notifier: notifier, mirror: mirror}
}

func (b *Broker) Publish(ctx context.Context, event FeedEvent) {
	payload, err := event.Encode()
	if err != nil {
		observability.GlobalLogger.ErrorContext(ctx, "feed event encode failed", slog.String("error", err.Error()))
		return
	}

	switch {
	case b.notifier.Enabled():
		if err := b.notifier.PublishFeed(ctx, payload); err != nil {
			observability.GlobalLogger.WarnContext(ctx, "feed event redis publish failed",
				slog.String("event_type", event.Type), slog.String("error", err.Error()))
			b.local(payload)
		} else {
			observability.FeedEventsTotal.WithLabelValues(event.Type, "redis").Inc()
		}
	case b.hub != nil:
		b.local(payload)
		observability.FeedEventsTotal.WithLabelValues(event.Type, "local").Inc()
	}

	if b.mirror != nil {
		if err := b.mirror.Publish(payload); err != nil {
			observability.GlobalLogger.WarnContext(ctx, "feed event nats publish failed",
				slog.String("event_type", event.Type), slog.String("error", err.Error()))
			return
		}
		observability.FeedEventsTotal.WithLabelValues(event.Type, "nats").Inc()
	}
}

func (b *Broker) local(payload []byte) {
	if b.hub != nil {
		b.hub.BroadcastAll(payload)
	}
}
