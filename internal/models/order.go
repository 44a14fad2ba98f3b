package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	StatusPlaced   OrderStatus = "PLACED"
	StatusAccepted OrderStatus = "ACCEPTED"
	StatusReady    OrderStatus = "READY"
)

// ParseOrderStatus accepts a status in any letter case.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch st := OrderStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusPlaced, StatusAccepted, StatusReady:
		return st, true
	default:
		return "", false
	}
}

// MaxLineQuantity bounds the quantity of a single line.
const MaxLineQuantity = 1000

// OrderLine is one priced menu item within an order. It is never modified
// after construction.
type OrderLine struct {
	LineID    string  `json:"lineId"`
	ItemID    string  `json:"itemId"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice Money   `json:"unitPrice"`
	LineTotal Money   `json:"lineTotal"`
	Notes     *string `json:"notes"`
}

// NewOrderLine prices a line from its unit price.
func NewOrderLine(lineID, itemID, name string, quantity int, unitPrice Money, notes *string) (OrderLine, error) {
	total, err := unitPrice.Multiply(quantity)
	if err != nil {
		return OrderLine{}, err
	}
	line := OrderLine{
		LineID:    lineID,
		ItemID:    itemID,
		Name:      name,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		LineTotal: total,
		Notes:     notes,
	}
	return line, line.Validate()
}

// Validate checks the pricing invariants of a line.
func (l OrderLine) Validate() error {
	if l.Quantity < 1 {
		return fmt.Errorf("line %s: quantity must be >= 1", l.LineID)
	}
	if l.UnitPrice.Currency != l.LineTotal.Currency {
		return fmt.Errorf("line %s: unit price and line total currencies differ", l.LineID)
	}
	if l.Quantity > MaxLineQuantity {
		return fmt.Errorf("line %s: quantity must be <= %d", l.LineID, MaxLineQuantity)
	}
	want, err := l.UnitPrice.Multiply(l.Quantity)
	if err != nil {
		return fmt.Errorf("line %s: %w", l.LineID, err)
	}
	if l.LineTotal.AmountCents != want.AmountCents {
		return fmt.Errorf("line %s: line total %d != unit price %d x %d",
			l.LineID, l.LineTotal.AmountCents, l.UnitPrice.AmountCents, l.Quantity)
	}
	return nil
}

// Order is an immutable snapshot of a customer order. Status changes go
// through Accept and MarkReady, which return new snapshots.
type Order struct {
	OrderID         string      `json:"orderId"`
	RestaurantID    string      `json:"restaurantId"`
	TableID         string      `json:"tableId"`
	Status          OrderStatus `json:"status"`
	Lines           []OrderLine `json:"lines"`
	Total           Money       `json:"totalMoney"`
	CreatedAt       time.Time   `json:"createdAt"`
	Version         int         `json:"version"`
	IdempotencyKey  *string     `json:"-"`
	IdempotencyHash *string     `json:"-"`
}

// NewPlacedOrder builds a version 1 order in PLACED from priced lines.
func NewPlacedOrder(orderID, restaurantID, tableID string, lines []OrderLine, now time.Time) (Order, error) {
	if len(lines) == 0 {
		return Order{}, errors.New("order must have at least one line")
	}
	total, err := NewMoney(0, lines[0].LineTotal.Currency)
	if err != nil {
		return Order{}, err
	}
	for _, line := range lines {
		if total, err = total.Add(line.LineTotal); err != nil {
			return Order{}, err
		}
	}
	order := Order{
		OrderID:      orderID,
		RestaurantID: restaurantID,
		TableID:      tableID,
		Status:       StatusPlaced,
		Lines:        append([]OrderLine(nil), lines...),
		Total:        total,
		CreatedAt:    now.UTC().Truncate(time.Microsecond),
		Version:      1,
	}
	return order, order.Validate()
}

// Validate checks the order level invariants, including every line.
func (o Order) Validate() error {
	if len(o.Lines) == 0 {
		return errors.New("order must have at least one line")
	}
	if o.Version < 1 {
		return fmt.Errorf("order %s: version must be >= 1", o.OrderID)
	}
	sum := Money{Currency: o.Total.Currency}
	for _, line := range o.Lines {
		if err := line.Validate(); err != nil {
			return err
		}
		if line.LineTotal.Currency != o.Total.Currency {
			return fmt.Errorf("order %s: line %s currency %s differs from total currency %s",
				o.OrderID, line.LineID, line.LineTotal.Currency, o.Total.Currency)
		}
		var err error
		if sum, err = sum.Add(line.LineTotal); err != nil {
			return fmt.Errorf("order %s: %w", o.OrderID, err)
		}
	}
	if sum.AmountCents != o.Total.AmountCents {
		return fmt.Errorf("order %s: total %d != sum of lines %d", o.OrderID, o.Total.AmountCents, sum.AmountCents)
	}
	return nil
}

// WithIdempotency returns a copy carrying the idempotency key and payload hash.
func (o Order) WithIdempotency(key, hash string) Order {
	o.IdempotencyKey = &key
	o.IdempotencyHash = &hash
	return o
}

// Accept moves a PLACED order to ACCEPTED.
func Accept(o Order) (Order, error) {
	if o.Status != StatusPlaced {
		return Order{}, ErrInvalidOrderTransition.New("cannot accept order from status=%s", o.Status)
	}
	return o.withStatus(StatusAccepted), nil
}

// MarkReady moves an ACCEPTED order to READY.
func MarkReady(o Order) (Order, error) {
	if o.Status != StatusAccepted {
		return Order{}, ErrInvalidOrderTransition.New("cannot mark ready from status=%s", o.Status)
	}
	return o.withStatus(StatusReady), nil
}

// withStatus keeps the version; the store bumps it when the change persists.
func (o Order) withStatus(status OrderStatus) Order {
	o.Status = status
	o.Lines = append([]OrderLine(nil), o.Lines...)
	return o
}

// NewOrderID returns an id of the form ord_<12 hex>.
func NewOrderID() string {
	return "ord_" + shortHex()
}

// NewOrderLineID returns an id of the form orl_<12 hex>.
func NewOrderLineID() string {
	return "orl_" + shortHex()
}

func shortHex() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
