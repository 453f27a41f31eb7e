package interfaces

import "context"

// EventPublisher emits domain events after a ledger write commits.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event any) error
}
