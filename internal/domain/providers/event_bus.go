package providers

import (
	"context"

	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to pricing events
type EventBus interface {
	// Publish publishes a run event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.PriceRunEvent) error

	// Subscribe subscribes to run events on a channel until ctx is cancelled
	Subscribe(ctx context.Context, channel string) (<-chan *entities.PriceRunEvent, error)

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannelPricingRuns is the channel run-completed events are published on
const EventChannelPricingRuns = "pricing:runs"
