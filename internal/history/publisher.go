package history

import (
	"context"

	"git.home.luguber.info/inful/mobilebuild/internal/events"
)

// Publisher stores every event in the history database. It does not own the store.
type Publisher struct {
	store *Store
}

// NewPublisher returns an events.Publisher writing to store.
func NewPublisher(store *Store) *Publisher {
	return &Publisher{store: store}
}

func (p *Publisher) Publish(ctx context.Context, ev events.Event) error {
	return p.store.AppendEvent(ctx, ev)
}

func (p *Publisher) Close() error { return nil }

var _ events.Publisher = (*Publisher)(nil)
