package audit

import (
	"context"

	id "profreg/pkg/domain"
	"profreg/pkg/requestcontext"
)

// Publisher captures structured audit events. Appends go through the storage
// layer so a Postgres store keeps the write inside the caller's transaction;
// a configured relay channel additionally hands events to the sink worker.
type Publisher struct {
	store Store
	relay chan<- Event
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithRelay forwards each persisted event to the channel consumed by the
// sink worker. The send never blocks; when the channel is full the relay is
// dropped, the store remains the durable record.
func WithRelay(relay chan<- Event) PublisherOption {
	return func(p *Publisher) { p.relay = relay }
}

func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Publisher) Emit(ctx context.Context, base Event) error {
	if base.Timestamp.IsZero() {
		base.Timestamp = requestcontext.Now(ctx)
	}
	if err := p.store.Append(ctx, base); err != nil {
		return err
	}
	if p.relay != nil {
		select {
		case p.relay <- base:
		default:
		}
	}
	return nil
}

func (p *Publisher) List(ctx context.Context, entityID id.EntityID) ([]Event, error) {
	return p.store.ListByEntity(ctx, entityID)
}
