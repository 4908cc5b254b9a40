package payloads

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// OrderLine is the stock-relevant part of a purchased line.
type OrderLine struct {
	ProductID string  `json:"product_id"`
	Variant   *string `json:"variant,omitempty"`
	Qty       int     `json:"qty"`
}

// OrderCreatedEvent is consumed by the stock service to decrement inventory.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID            `json:"order_id"`
	UserID        uuid.UUID            `json:"user_id"`
	Status        enums.OrderStatus    `json:"status"`
	PaymentMethod enums.PaymentGateway `json:"payment_method"`
	TotalCents    int64                `json:"total_cents"`
	Lines         []OrderLine          `json:"lines"`
}

// OrderStatusChangedEvent records one lifecycle move.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
	Discouraged bool              `json:"discouraged"`
	Overridden  bool              `json:"overridden"`
	Version     int64             `json:"version"`
}

type OrderPaymentStatusChangedEvent struct {
	OrderID uuid.UUID           `json:"order_id"`
	From    enums.PaymentStatus `json:"from"`
	To      enums.PaymentStatus `json:"to"`
	Version int64               `json:"version"`
}

type OrderReturnRequestedEvent struct {
	OrderID uuid.UUID `json:"order_id"`
	UserID  uuid.UUID `json:"user_id"`
	Reason  string    `json:"reason"`
	Version int64     `json:"version"`
}

type OrderReturnResolvedEvent struct {
	OrderID      uuid.UUID          `json:"order_id"`
	ReturnStatus enums.ReturnStatus `json:"return_status"`
	Version      int64              `json:"version"`
}

type OrderDeletedEvent struct {
	OrderID uuid.UUID         `json:"order_id"`
	Status  enums.OrderStatus `json:"status"`
}

// OrdersClearedEvent is emitted once per bulk clear instead of per order.
type OrdersClearedEvent struct {
	Deleted  int64       `json:"deleted"`
	OrderIDs []uuid.UUID `json:"order_ids"`
}

// Decode unmarshals data into the payload type registered for eventType.
func Decode(eventType enums.OutboxEventType, data json.RawMessage) (any, error) {
	var target any
	switch eventType {
	case enums.EventOrderCreated:
		target = &OrderCreatedEvent{}
	case enums.EventOrderStatusChanged:
		target = &OrderStatusChangedEvent{}
	case enums.EventOrderPaymentStatusChanged:
		target = &OrderPaymentStatusChangedEvent{}
	case enums.EventOrderReturnRequested:
		target = &OrderReturnRequestedEvent{}
	case enums.EventOrderReturnResolved:
		target = &OrderReturnResolvedEvent{}
	case enums.EventOrderDeleted:
		target = &OrderDeletedEvent{}
	case enums.EventOrdersCleared:
		target = &OrdersClearedEvent{}
	default:
		return nil, fmt.Errorf("no payload registered for %s", eventType)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return nil, fmt.Errorf("decode %s: %w", eventType, err)
	}
	return target, nil
}
