package events

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

type channelSubscriber interface {
	Subscribe(ctx context.Context, channel string) (*goredis.PubSub, error)
}

type dedupe interface {
	CheckAndMarkProcessed(ctx context.Context, consumer, eventID string) (bool, error)
}

type ForwarderParams struct {
	Subscriber channelSubscriber
	Channel    string
	Broker     *Broker
	// Dedupe is optional. Consumer must be unique per process so every API
	// instance still sees every event.
	Dedupe   dedupe
	Consumer string
	Logger   *logger.Logger
}

// Forwarder feeds events from the Redis channel into the local Broker.
type Forwarder struct {
	sub      channelSubscriber
	channel  string
	broker   *Broker
	dedupe   dedupe
	consumer string
	logg     *logger.Logger
}

func NewForwarder(p ForwarderParams) (*Forwarder, error) {
	if p.Subscriber == nil {
		return nil, errors.New("subscriber is required")
	}
	if p.Channel == "" {
		return nil, errors.New("channel is required")
	}
	if p.Broker == nil {
		return nil, errors.New("broker is required")
	}
	if p.Dedupe != nil && p.Consumer == "" {
		return nil, errors.New("consumer name is required with dedupe")
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	return &Forwarder{
		sub:      p.Subscriber,
		channel:  p.Channel,
		broker:   p.Broker,
		dedupe:   p.Dedupe,
		consumer: p.Consumer,
		logg:     p.Logger,
	}, nil
}

// Run subscribes and forwards until ctx is cancelled.
func (f *Forwarder) Run(ctx context.Context) error {
	ps, err := f.sub.Subscribe(ctx, f.channel)
	if err != nil {
		return err
	}
	defer ps.Close()

	f.logg.Info(f.logg.WithField(ctx, "channel", f.channel), "events.forwarder.subscribed")
	msgs := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("redis subscription closed")
			}
			if err := f.Handle(ctx, []byte(msg.Payload)); err != nil {
				f.logg.Error(ctx, "events.forwarder.handle_failed", err)
			}
		}
	}
}

// Handle decodes one delivered envelope and hands it to the broker unless it
// was already seen.
func (f *Forwarder) Handle(ctx context.Context, payload []byte) error {
	env, err := outbox.DecodeEnvelope(payload)
	if err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if !env.EventType.IsValid() || env.EventID == "" {
		return fmt.Errorf("malformed envelope type=%q id=%q", env.EventType, env.EventID)
	}

	if f.dedupe != nil {
		seen, err := f.dedupe.CheckAndMarkProcessed(ctx, f.consumer, env.EventID)
		if err != nil {
			// Dedupe failures fall through to delivery.
			f.logg.Warn(f.logg.WithField(ctx, "error", err.Error()), "events.forwarder.dedupe_unavailable")
		} else if seen {
			return nil
		}
	}

	f.broker.Publish(ctx, env)
	return nil
}
