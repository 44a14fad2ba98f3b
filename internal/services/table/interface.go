package table

import (
	"context"

	"github.com/Vivek-k24/foodbiz/internal/models"
)

// TableStore persists tables. Get returns models.ErrNotFound for unknown
// tables; ListForRestaurant returns models.ErrInvalidCursor for a bad cursor.
type TableStore interface {
	Get(ctx context.Context, restaurantID, tableID string) (models.Table, error)
	Upsert(ctx context.Context, table models.Table) error
	ListForRestaurant(ctx context.Context, restaurantID string, status *models.TableStatus, limit int, cursor string) ([]models.TableWithSummary, string, error)
	RestaurantExists(ctx context.Context, restaurantID string) (bool, error)
}

type OrderSummarizer interface {
	SummarizeForTable(ctx context.Context, restaurantID, tableID string) (models.TableSummary, error)
}

type EventNotifier interface {
	Notify(ctx context.Context, env models.EventEnvelope)
}
