package events

import (
	"context"
	"errors"
	"testing"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

type fakeRedis struct {
	channel string
	payload []byte
	err     error
}

func (f *fakeRedis) Publish(_ context.Context, channel string, payload []byte) (int64, error) {
	f.channel, f.payload = channel, payload
	return 1, f.err
}

func TestRedisSinkPublishesPayload(t *testing.T) {
	client := &fakeRedis{}
	sink, err := NewRedisSink(client, "orders.events")
	require.NoError(t, err)

	row := models.OutboxEvent{ID: uuid.New(), Payload: []byte(`{"eventId":"e"}`)}
	require.NoError(t, sink.Publish(context.Background(), row, "e"))
	assert.Equal(t, "orders.events", client.channel)
	assert.JSONEq(t, `{"eventId":"e"}`, string(client.payload))

	client.err = errors.New("conn refused")
	assert.Error(t, sink.Publish(context.Background(), row, "e"))

	_, err = NewRedisSink(nil, "c")
	assert.Error(t, err)
}

type fakePublisher struct {
	msg *gcppubsub.Message
	err error
}

type fakeResult struct{ err error }

func (r fakeResult) Get(context.Context) (string, error) { return "server-id", r.err }

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.msg = msg
	return fakeResult{err: f.err}
}

func TestPubSubSinkSetsAttributes(t *testing.T) {
	pub := &fakePublisher{}
	sink := &PubSubSink{publisher: pub}
	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{}`),
	}

	require.NoError(t, sink.Publish(context.Background(), row, "evt-9"))
	require.NotNil(t, pub.msg)
	assert.Equal(t, "evt-9", pub.msg.Attributes["event_id"])
	assert.Equal(t, string(enums.EventOrderStatusChanged), pub.msg.Attributes["event_type"])
	assert.Equal(t, row.AggregateID.String(), pub.msg.Attributes["aggregate_id"])

	pub.err = errors.New("deadline")
	assert.Error(t, sink.Publish(context.Background(), row, "evt-9"))
	assert.NoError(t, sink.Close())
}
