package order

import (
	"context"

	"github.com/Vivek-k24/foodbiz/internal/models"
)

// OrderStore persists orders. Get returns models.ErrNotFound for unknown ids.
type OrderStore interface {
	Get(ctx context.Context, orderID string) (models.Order, error)
	Add(ctx context.Context, order models.Order) error
	// AddWithIdempotency inserts order unless an order with the same
	// (restaurant, table, key) exists, in which case the stored order is
	// returned, or models.ErrReplayMismatch when its payload hash differs.
	AddWithIdempotency(ctx context.Context, order models.Order, key, payloadHash string) (models.Order, error)
	// UpdateStatusWithVersion sets status and bumps version when the stored
	// version equals expectedVersion, else returns models.ErrConcurrencyConflict.
	UpdateStatusWithVersion(ctx context.Context, orderID string, status models.OrderStatus, expectedVersion int) (models.Order, error)
}

type TableGetter interface {
	Get(ctx context.Context, restaurantID, tableID string) (models.Table, error)
}

type MenuGetter interface {
	GetMenu(ctx context.Context, restaurantID string) (models.Menu, error)
}

type EventNotifier interface {
	Notify(ctx context.Context, env models.EventEnvelope)
}
