package events

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pubsub"
)

// DiscardSink acknowledges every row without delivering it. It backs the
// "none" sink so the outbox still drains and retention can purge it.
type DiscardSink struct{}

func (DiscardSink) Name() string { return "none" }

func (DiscardSink) Publish(context.Context, models.OutboxEvent, string) error { return nil }

// OpenSink builds the sink named by cfg.Sink. The returned close func
// releases any client the sink owns and is never nil.
func OpenSink(ctx context.Context, cfg config.EventsConfig, gcp config.GCPConfig, redisClient redisPublisher, logg *logger.Logger) (Sink, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Sink {
	case config.EventSinkRedis:
		sink, err := NewRedisSink(redisClient, cfg.RedisChannel)
		if err != nil {
			return nil, noop, err
		}
		return sink, noop, nil
	case config.EventSinkPubSub:
		client, err := pubsub.NewClient(ctx, gcp, cfg.PubSubTopic, logg)
		if err != nil {
			return nil, noop, fmt.Errorf("pubsub sink: %w", err)
		}
		sink, err := NewPubSubSink(client.OrderEventsPublisher())
		if err != nil {
			_ = client.Close()
			return nil, noop, err
		}
		return sink, func() error {
			return multierr.Combine(sink.Close(), client.Close())
		}, nil
	case config.EventSinkNone:
		return DiscardSink{}, noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown event sink %q", cfg.Sink)
	}
}
