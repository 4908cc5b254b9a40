package payloads

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

func TestDecodeStatusChanged(t *testing.T) {
	id := uuid.New()
	raw, err := json.Marshal(OrderStatusChangedEvent{OrderID: id, From: enums.OrderStatusProcessing, To: enums.OrderStatusDelivered, Discouraged: true, Version: 3})
	require.NoError(t, err)

	got, err := Decode(enums.EventOrderStatusChanged, raw)
	require.NoError(t, err)
	evt, ok := got.(*OrderStatusChangedEvent)
	require.True(t, ok)
	assert.Equal(t, id, evt.OrderID)
	assert.True(t, evt.Discouraged)
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := Decode(enums.OutboxEventType("nope"), json.RawMessage(`{}`))
	assert.Error(t, err)
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode(enums.EventOrderCreated, json.RawMessage(`{"order_id":`))
	assert.Error(t, err)
}
