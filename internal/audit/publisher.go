package audit

import (
	"context"
	"time"
)

// Store is an append-only audit sink. Implementations: InMemory for tests
// and local runs, Kafka for production fan-out.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Publisher captures structured audit events. It is append-only and uses the
// Store abstraction for persistence so tests can swap sinks easily.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return p.store.Append(ctx, event)
}
