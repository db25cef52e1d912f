package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/entities"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/providers"
	redisclient "github.com/CiaranKeogh/Portfolio-Projects/internal/infrastructure/clients/redis"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/infrastructure/observability"
	apperrors "github.com/CiaranKeogh/Portfolio-Projects/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisEventBus implements the EventBus interface using Redis Pub/Sub
type RedisEventBus struct {
	client        *redisclient.Client
	subscriptions map[string]*redis.PubSub
	subscribers   map[string]map[chan *entities.PriceRunEvent]struct{}
	mu            sync.RWMutex
	ctx           context.Context
	cancel        context.CancelFunc
	logger        zerolog.Logger
}

// NewRedisEventBus creates a new Redis-based event bus
func NewRedisEventBus(client *redisclient.Client) providers.EventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client:        client,
		subscriptions: make(map[string]*redis.PubSub),
		subscribers:   make(map[string]map[chan *entities.PriceRunEvent]struct{}),
		ctx:           ctx,
		cancel:        cancel,
		logger:        observability.GetLogger().With().Str("component", "event_bus").Logger(),
	}
}

// Publish publishes an event to all subscribers
func (b *RedisEventBus) Publish(ctx context.Context, channel string, event *entities.PriceRunEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return apperrors.NewInternalError("failed to marshal event", err)
	}

	if err := b.client.Client().Publish(ctx, channel, data).Err(); err != nil {
		return apperrors.NewExternalError("failed to publish event", err)
	}

	b.logger.Info().Str("channel", channel).Str("run_id", event.RunID).Msg("Published run event")
	return nil
}

// Subscribe subscribes to events on a channel
func (b *RedisEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.PriceRunEvent, error) {
	b.mu.Lock()

	if _, exists := b.subscriptions[channel]; !exists {
		pubsub := b.client.Client().Subscribe(b.ctx, channel)
		b.subscriptions[channel] = pubsub
		go b.receiveMessages(channel, pubsub)
	}

	if b.subscribers[channel] == nil {
		b.subscribers[channel] = make(map[chan *entities.PriceRunEvent]struct{})
	}

	eventChan := make(chan *entities.PriceRunEvent, 100)
	b.subscribers[channel][eventChan] = struct{}{}
	subscriberCount := len(b.subscribers[channel])
	b.mu.Unlock()

	b.logger.Debug().Str("channel", channel).Int("subscribers", subscriberCount).Msg("Subscribed to channel")

	go func() {
		<-ctx.Done()
		b.removeSubscriber(channel, eventChan)
	}()

	return eventChan, nil
}

// receiveMessages receives messages from Redis and broadcasts them to subscribers
func (b *RedisEventBus) receiveMessages(channel string, pubsub *redis.PubSub) {
	defer func() {
		if err := b.cleanupChannel(channel); err != nil {
			b.logger.Error().Err(err).Str("channel", channel).Msg("Failed to clean up channel")
		}
	}()

	ch := pubsub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event entities.PriceRunEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Warn().Err(err).Str("channel", channel).Msg("Dropping malformed run event")
				continue
			}

			b.mu.RLock()
			subscribers := b.subscribers[channel]
			for subscriber := range subscribers {
				select {
				case subscriber <- &event:
				default:
					b.logger.Warn().Str("channel", channel).Str("run_id", event.RunID).Msg("Subscriber full, skipping event")
				}
			}
			b.mu.RUnlock()
		}
	}
}

func (b *RedisEventBus) removeSubscriber(channel string, eventChan chan *entities.PriceRunEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subscribers, exists := b.subscribers[channel]
	if !exists {
		return
	}

	if _, ok := subscribers[eventChan]; !ok {
		return
	}

	delete(subscribers, eventChan)
	close(eventChan)

	if len(subscribers) == 0 {
		delete(b.subscribers, channel)
		if pubsub, ok := b.subscriptions[channel]; ok {
			_ = pubsub.Close()
			delete(b.subscriptions, channel)
			b.logger.Debug().Str("channel", channel).Msg("Closed subscription")
		}
	}
}

func (b *RedisEventBus) cleanupChannel(channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	subscribers, exists := b.subscribers[channel]
	if exists {
		for subscriber := range subscribers {
			close(subscriber)
		}
		delete(b.subscribers, channel)
	}

	if pubsub, ok := b.subscriptions[channel]; ok {
		if err := pubsub.Close(); err != nil {
			return fmt.Errorf("failed to close subscription %s: %w", channel, err)
		}
		delete(b.subscriptions, channel)
		b.logger.Debug().Str("channel", channel).Msg("Closed subscription")
	}

	return nil
}

// Close closes the event bus and all subscriptions
func (b *RedisEventBus) Close() error {
	b.cancel()

	b.mu.RLock()
	channels := make([]string, 0, len(b.subscriptions))
	for channel := range b.subscriptions {
		channels = append(channels, channel)
	}
	b.mu.RUnlock()

	var errs []error
	for _, channel := range channels {
		if err := b.cleanupChannel(channel); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing event bus: %v", errs)
	}

	return nil
}
