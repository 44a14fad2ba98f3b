package tracking

import (
	"context"

	"github.com/Vivek-k24/foodbiz/internal/models"
)

// OrderReader lists orders oldest first using opaque keyset cursors. A
// malformed cursor yields models.ErrInvalidCursor; a nil status lists all.
type OrderReader interface {
	Get(ctx context.Context, orderID string) (models.Order, error)
	ListForKitchen(ctx context.Context, restaurantID string, status *models.OrderStatus, limit int, cursor string) ([]models.Order, string, error)
	ListForTable(ctx context.Context, restaurantID, tableID string, status *models.OrderStatus, limit int, cursor string) ([]models.Order, string, error)
}

type TableGetter interface {
	Get(ctx context.Context, restaurantID, tableID string) (models.Table, error)
}
