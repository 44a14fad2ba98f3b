package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewOrderEnvelopeCarriesFullOrder(t *testing.T) {
	order := placedOrder(t)
	occurred := time.Date(2026, 2, 18, 12, 0, 0, 0, time.UTC)

	env := NewOrderEnvelope(EventOrderPlaced, order, occurred, TraceContext{TraceID: "abc", RequestID: "req-1"})
	data, err := env.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded struct {
		EventID      string  `json:"event_id"`
		EventType    string  `json:"event_type"`
		OccurredAt   string  `json:"occurred_at"`
		RequestID    *string `json:"request_id"`
		TraceID      *string `json:"trace_id"`
		RestaurantID string  `json:"restaurant_id"`
		Payload      struct {
			OrderID    string `json:"orderId"`
			TableID    string `json:"tableId"`
			Status     string `json:"status"`
			TotalMoney Money  `json:"totalMoney"`
			Lines      []struct {
				LineID    string `json:"lineId"`
				ItemID    string `json:"itemId"`
				Quantity  int    `json:"quantity"`
				LineTotal Money  `json:"lineTotal"`
			} `json:"lines"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.EventID == "" || decoded.EventType != EventOrderPlaced {
		t.Fatalf("unexpected header %+v", decoded)
	}
	if decoded.OccurredAt != "2026-02-18T12:00:00Z" {
		t.Fatalf("unexpected occurred_at %q", decoded.OccurredAt)
	}
	if decoded.RequestID == nil || *decoded.RequestID != "req-1" || decoded.TraceID == nil || *decoded.TraceID != "abc" {
		t.Fatalf("missing correlation ids: %s", data)
	}
	if decoded.RestaurantID != "rst_001" || decoded.Payload.OrderID != "ord_1" || decoded.Payload.TableID != "tbl_001" {
		t.Fatalf("unexpected ids: %s", data)
	}
	if decoded.Payload.Status != "PLACED" || decoded.Payload.TotalMoney.AmountCents != 2900 {
		t.Fatalf("unexpected payload: %s", data)
	}
	if len(decoded.Payload.Lines) != 1 || decoded.Payload.Lines[0].Quantity != 2 || decoded.Payload.Lines[0].LineTotal.AmountCents != 2900 {
		t.Fatalf("unexpected lines: %s", data)
	}
}

func TestEnvelopeNullCorrelationIDs(t *testing.T) {
	env := NewOrderEnvelope(EventOrderReady, placedOrder(t), time.Now(), TraceContext{})
	data, err := env.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"request_id", "trace_id"} {
		v, ok := raw[key]
		if !ok || v != nil {
			t.Fatalf("expected %s to be present and null, got %v", key, v)
		}
	}
}

func TestEnvelopeIDsAreFreshPerEmission(t *testing.T) {
	order := placedOrder(t)
	a := NewOrderEnvelope(EventOrderPlaced, order, time.Now(), TraceContext{})
	b := NewOrderEnvelope(EventOrderPlaced, order, time.Now(), TraceContext{})
	if a.EventID == b.EventID {
		t.Fatal("expected a fresh event id per envelope")
	}
}

func TestNewTableEnvelope(t *testing.T) {
	now := time.Date(2026, 2, 18, 12, 0, 0, 0, time.UTC)
	opened := OpenTable(NewClosedTable("rst_001", "tbl_001"), now)
	closed, _ := CloseTable(opened, now.Add(time.Hour))

	env := NewTableEnvelope(EventTableClosed, closed, now.Add(time.Hour), TraceContext{RequestID: "r"})
	payload, ok := env.Payload.(TableEventPayload)
	if !ok {
		t.Fatalf("unexpected payload type %T", env.Payload)
	}
	if env.RestaurantID != "rst_001" || payload.Status != TableClosed || payload.ClosedAt == nil {
		t.Fatalf("unexpected envelope %+v", env)
	}
}
