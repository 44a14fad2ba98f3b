package tracking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Vivek-k24/foodbiz/internal/logger"
	"github.com/Vivek-k24/foodbiz/internal/models"
)

const maxLimit = 200

// Page is one page of a keyset-paginated order listing.
type Page struct {
	Orders     []models.Order `json:"orders"`
	NextCursor *string        `json:"nextCursor"`
}

// Service answers order queries for the kitchen display and the tables.
type Service struct {
	orders OrderReader
	tables TableGetter
	logger *logger.Logger
}

// NewService creates a new tracking service
func NewService(orders OrderReader, tables TableGetter, log *logger.Logger) *Service {
	return &Service{
		orders: orders,
		tables: tables,
		logger: log,
	}
}

// GetOrder retrieves the current snapshot of an order
func (s *Service) GetOrder(ctx context.Context, orderID string) (models.Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.Order{}, models.ErrOrderNotFound.New("order %s not found", orderID)
		}
		return models.Order{}, fmt.Errorf("load order %s: %w", orderID, err)
	}
	return order, nil
}

// KitchenQueue lists a restaurant's orders oldest first, optionally filtered
// by status (ALL, PLACED, ACCEPTED or READY).
func (s *Service) KitchenQueue(ctx context.Context, restaurantID, status string, limit int, cursor, requestID string) (Page, error) {
	filter, err := parseStatus(status, limit, models.ErrInvalidKitchenQueueStatus, "kitchen queue")
	if err != nil {
		return Page{}, err
	}

	orders, next, err := s.orders.ListForKitchen(ctx, restaurantID, filter, limit, cursor)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCursor) {
			return Page{}, models.ErrInvalidKitchenQueueCursor.New("invalid cursor")
		}
		return Page{}, fmt.Errorf("list kitchen orders: %w", err)
	}

	s.logger.Info("kitchen_queue_size", "Kitchen queue listed", requestID, map[string]interface{}{
		"metric":        "kitchen_queue_size",
		"restaurant_id": restaurantID,
		"status":        strings.ToUpper(status),
		"size":          len(orders),
	})
	return newPage(orders, next), nil
}

// TableOrders lists the orders of one table oldest first.
func (s *Service) TableOrders(ctx context.Context, restaurantID, tableID, status string, limit int, cursor string) (Page, error) {
	if _, err := s.tables.Get(ctx, restaurantID, tableID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return Page{}, models.ErrTableNotFound.New(
				"table not found for restaurant_id=%s, table_id=%s", restaurantID, tableID)
		}
		return Page{}, fmt.Errorf("load table: %w", err)
	}

	filter, err := parseStatus(status, limit, models.ErrInvalidTableOrdersStatus, "table orders")
	if err != nil {
		return Page{}, err
	}

	orders, next, err := s.orders.ListForTable(ctx, restaurantID, tableID, filter, limit, cursor)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCursor) {
			return Page{}, models.ErrInvalidTableOrdersCursor.New("invalid cursor")
		}
		return Page{}, fmt.Errorf("list table orders: %w", err)
	}
	return newPage(orders, next), nil
}

// parseStatus maps ALL to a nil filter. Limits outside 1..200 are reported
// with the same code as an unknown status.
func parseStatus(status string, limit int, invalid *models.Error, listing string) (*models.OrderStatus, error) {
	if limit < 1 || limit > maxLimit {
		return nil, invalid.New("limit must be between 1 and %d", maxLimit)
	}
	if strings.EqualFold(strings.TrimSpace(status), "ALL") || status == "" {
		return nil, nil
	}
	parsed, ok := models.ParseOrderStatus(status)
	if !ok {
		return nil, invalid.New("invalid %s status: %s", listing, status)
	}
	return &parsed, nil
}

func newPage(orders []models.Order, next string) Page {
	if orders == nil {
		orders = []models.Order{}
	}
	page := Page{Orders: orders}
	if next != "" {
		page.NextCursor = &next
	}
	return page
}
