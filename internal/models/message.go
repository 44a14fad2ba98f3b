package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types carried on the fanout channel.
const (
	EventOrderPlaced   = "order.placed"
	EventOrderAccepted = "order.accepted"
	EventOrderReady    = "order.ready"
	EventTableOpened   = "table.opened"
	EventTableClosed   = "table.closed"
)

// TraceContext carries the correlation ids of the request that caused a change.
type TraceContext struct {
	TraceID   string
	RequestID string
}

// EventEnvelope is the wire record published once per committed change.
type EventEnvelope struct {
	EventID      string      `json:"event_id"`
	EventType    string      `json:"event_type"`
	OccurredAt   time.Time   `json:"occurred_at"`
	RequestID    *string     `json:"request_id"`
	TraceID      *string     `json:"trace_id"`
	RestaurantID string      `json:"restaurant_id"`
	Payload      interface{} `json:"payload"`
}

// OrderEventPayload holds everything a display needs to render an order
// without fetching it.
type OrderEventPayload struct {
	OrderID    string      `json:"orderId"`
	TableID    string      `json:"tableId"`
	Status     OrderStatus `json:"status"`
	TotalMoney Money       `json:"totalMoney"`
	CreatedAt  time.Time   `json:"createdAt"`
	Version    int         `json:"version"`
	Lines      []OrderLine `json:"lines"`
}

type TableEventPayload struct {
	TableID      string      `json:"tableId"`
	RestaurantID string      `json:"restaurantId"`
	Status       TableStatus `json:"status"`
	OpenedAt     *time.Time  `json:"openedAt,omitempty"`
	ClosedAt     *time.Time  `json:"closedAt,omitempty"`
}

// NewOrderEnvelope builds the envelope for an order snapshot.
func NewOrderEnvelope(eventType string, order Order, occurredAt time.Time, tc TraceContext) EventEnvelope {
	return newEnvelope(eventType, order.RestaurantID, occurredAt, tc, OrderEventPayload{
		OrderID:    order.OrderID,
		TableID:    order.TableID,
		Status:     order.Status,
		TotalMoney: order.Total,
		CreatedAt:  order.CreatedAt,
		Version:    order.Version,
		Lines:      append([]OrderLine(nil), order.Lines...),
	})
}

// NewTableEnvelope builds the envelope for a table snapshot.
func NewTableEnvelope(eventType string, table Table, occurredAt time.Time, tc TraceContext) EventEnvelope {
	return newEnvelope(eventType, table.RestaurantID, occurredAt, tc, TableEventPayload{
		TableID:      table.TableID,
		RestaurantID: table.RestaurantID,
		Status:       table.Status,
		OpenedAt:     table.OpenedAt,
		ClosedAt:     table.ClosedAt,
	})
}

func newEnvelope(eventType, restaurantID string, occurredAt time.Time, tc TraceContext, payload interface{}) EventEnvelope {
	return EventEnvelope{
		EventID:      uuid.NewString(),
		EventType:    eventType,
		OccurredAt:   occurredAt.UTC(),
		RequestID:    optional(tc.RequestID),
		TraceID:      optional(tc.TraceID),
		RestaurantID: restaurantID,
		Payload:      payload,
	}
}

// Marshal renders the envelope as compact JSON.
func (e EventEnvelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
