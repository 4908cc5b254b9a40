package events

import (
	"context"
	"errors"

	goredis "github.com/redis/go-redis/v9"
)

type noopSubscriber struct{}

func (noopSubscriber) Subscribe(context.Context, string) (*goredis.PubSub, error) {
	return nil, errors.New("not connected")
}
