package realtime

import (
	"context"
	"log/slog"

	"boardpacks/internal/domains"

	"github.com/google/uuid"
	"github.com/topi314/tint"
)

// Broker publishes section changes made by this instance and applies every change received from
// the bus to the local hub and caches.
type Broker struct {
	bus        Bus
	hub        *Hub
	invalidate func(packID uuid.UUID)
}

func NewBroker(bus Bus, hub *Hub, invalidate func(packID uuid.UUID)) *Broker {
	return &Broker{
		bus:        bus,
		hub:        hub,
		invalidate: invalidate,
	}
}

func (b *Broker) Start(ctx context.Context) error {
	return b.bus.StartForwarder(ctx, b.deliver)
}

func (b *Broker) deliver(event ChangeEvent) {
	if b.invalidate != nil {
		b.invalidate(event.PackID)
	}
	b.hub.Broadcast(event)
}

// PublishSectionChange announces a changed section. Delivery failures are logged; the write that
// caused the change has already committed.
func (b *Broker) PublishSectionChange(ctx context.Context, eventType EventType, section domains.PackSection) {
	if err := b.bus.Publish(ctx, NewSectionEvent(eventType, section)); err != nil {
		slog.WarnContext(ctx, "failed to publish section change",
			slog.String("pack_id", section.PackID.String()),
			slog.String("section_id", section.ID.String()),
			tint.Err(err),
		)
	}
}

func (b *Broker) Hub() *Hub {
	return b.hub
}

func (b *Broker) Close() error {
	return b.bus.Close()
}
