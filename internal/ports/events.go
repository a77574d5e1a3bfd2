package ports

import "context"

// EventPublisher delivers claimed outbox payloads to the configured sink.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload []byte) error
}
