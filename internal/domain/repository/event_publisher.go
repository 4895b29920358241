package repository

import (
	"context"

	"flightops-service/internal/domain/entity"
)

// EventPublisher emits domain events to the external transport. The key is
// the partition/ordering key: the transport delivers events for one key in
// emission order, at least once. The publisher does not deduplicate.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event entity.DomainEvent) error
}
