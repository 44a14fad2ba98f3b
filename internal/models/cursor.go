package models

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"
)

// OrderCursor is the keyset position after the last order of a page.
type OrderCursor struct {
	CreatedAt time.Time
	OrderID   string
}

type orderCursorWire struct {
	C string `json:"c"`
	I string `json:"i"`
}

// Encode renders the cursor as an opaque base64url token.
func (c OrderCursor) Encode() string {
	data, _ := json.Marshal(orderCursorWire{C: c.CreatedAt.UTC().Format(time.RFC3339Nano), I: c.OrderID})
	return base64.RawURLEncoding.EncodeToString(data)
}

// After reports whether o sorts after the cursor in (createdAt, id) order.
func (c OrderCursor) After(o Order) bool {
	if o.CreatedAt.Equal(c.CreatedAt) {
		return o.OrderID > c.OrderID
	}
	return o.CreatedAt.After(c.CreatedAt)
}

// DecodeOrderCursor parses a token produced by Encode. An empty token
// yields a nil cursor.
func DecodeOrderCursor(token string) (*OrderCursor, error) {
	if token == "" {
		return nil, nil
	}
	var wire orderCursorWire
	if err := decodeToken(token, &wire); err != nil || wire.I == "" {
		return nil, ErrInvalidCursor
	}
	createdAt, err := time.Parse(time.RFC3339Nano, wire.C)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	return &OrderCursor{CreatedAt: createdAt.UTC(), OrderID: wire.I}, nil
}

type tableCursorWire struct {
	I string `json:"i"`
}

// EncodeTableCursor renders the id of the last table of a page.
func EncodeTableCursor(tableID string) string {
	data, _ := json.Marshal(tableCursorWire{I: tableID})
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeTableCursor returns the table id to continue after, "" for no cursor.
func DecodeTableCursor(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	var wire tableCursorWire
	if err := decodeToken(token, &wire); err != nil || wire.I == "" {
		return "", ErrInvalidCursor
	}
	return wire.I, nil
}

func decodeToken(token string, v interface{}) error {
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(token, "="))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
