package table

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Vivek-k24/foodbiz/internal/logger"
	"github.com/Vivek-k24/foodbiz/internal/models"
)

const (
	maxLimit = 200

	reasonNonReadyOrders = "HAS_NON_READY_ORDERS"
)

// Summary is a table with the aggregate of its orders.
type Summary struct {
	models.Table
	Counts      Counts       `json:"counts"`
	Totals      models.Money `json:"totals"`
	LastOrderAt *time.Time   `json:"lastOrderAt"`
}

type Counts struct {
	OrdersTotal int `json:"ordersTotal"`
	Placed      int `json:"placed"`
	Accepted    int `json:"accepted"`
	Ready       int `json:"ready"`
}

// Registry is one page of a restaurant's tables.
type Registry struct {
	Tables     []Summary `json:"tables"`
	NextCursor *string   `json:"nextCursor"`
}

// Service opens and closes tables and reports on them.
type Service struct {
	tables   TableStore
	orders   OrderSummarizer
	notifier EventNotifier
	logger   *logger.Logger
	now      func() time.Time
}

func NewService(tables TableStore, orders OrderSummarizer, notifier EventNotifier, log *logger.Logger) *Service {
	return &Service{
		tables:   tables,
		orders:   orders,
		notifier: notifier,
		logger:   log,
		now:      time.Now,
	}
}

// OpenTable opens a table, creating it on first use. Opening an open table
// returns it unchanged and publishes nothing.
func (s *Service) OpenTable(ctx context.Context, restaurantID, tableID string, tc models.TraceContext) (models.Table, error) {
	ctx = context.WithoutCancel(ctx)

	current, err := s.tables.Get(ctx, restaurantID, tableID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		current = models.NewClosedTable(restaurantID, tableID)
	case err != nil:
		return models.Table{}, fmt.Errorf("load table: %w", err)
	case current.Status == models.TableOpen:
		return current, nil
	}

	now := s.now()
	opened := models.OpenTable(current, now)
	if err := s.tables.Upsert(ctx, opened); err != nil {
		return models.Table{}, fmt.Errorf("store table: %w", err)
	}

	s.logger.Info("table_opened", "Table opened", tc.RequestID, map[string]interface{}{
		"metric":        "table_opened_total",
		"restaurant_id": restaurantID,
		"table_id":      tableID,
	})
	s.notifier.Notify(ctx, models.NewTableEnvelope(models.EventTableOpened, opened, now, tc))
	return opened, nil
}

// CloseTable closes an open table once every order on it is READY.
func (s *Service) CloseTable(ctx context.Context, restaurantID, tableID string, tc models.TraceContext) (models.Table, error) {
	ctx = context.WithoutCancel(ctx)

	current, err := s.load(ctx, restaurantID, tableID)
	if err != nil {
		return models.Table{}, err
	}
	if err := models.EnsureOpen(current); err != nil {
		return models.Table{}, err
	}

	summary, err := s.orders.SummarizeForTable(ctx, restaurantID, tableID)
	if err != nil {
		return models.Table{}, fmt.Errorf("summarize table orders: %w", err)
	}
	if summary.Open() > 0 {
		s.logger.Info("table_close_blocked", "Table has orders that are not ready", tc.RequestID, map[string]interface{}{
			"metric":        "table_close_blocked_total",
			"restaurant_id": restaurantID,
			"table_id":      tableID,
			"reason":        reasonNonReadyOrders,
		})
		return models.Table{}, models.ErrTableCloseBlocked.New(
			"table %s cannot be closed while non-ready orders exist", tableID,
		).WithDetails(map[string]interface{}{
			"reason":   reasonNonReadyOrders,
			"placed":   summary.Placed,
			"accepted": summary.Accepted,
		})
	}

	now := s.now()
	closed, err := models.CloseTable(current, now)
	if err != nil {
		return models.Table{}, err
	}
	if err := s.tables.Upsert(ctx, closed); err != nil {
		return models.Table{}, fmt.Errorf("store table: %w", err)
	}

	s.logger.Info("table_closed", "Table closed", tc.RequestID, map[string]interface{}{
		"metric":        "table_closed_total",
		"restaurant_id": restaurantID,
		"table_id":      tableID,
	})
	s.notifier.Notify(ctx, models.NewTableEnvelope(models.EventTableClosed, closed, now, tc))
	return closed, nil
}

// GetTable returns the current state of a table.
func (s *Service) GetTable(ctx context.Context, restaurantID, tableID string) (models.Table, error) {
	return s.load(ctx, restaurantID, tableID)
}

// GetTableSummary returns a table with the counts and totals of its orders.
func (s *Service) GetTableSummary(ctx context.Context, restaurantID, tableID string) (Summary, error) {
	table, err := s.load(ctx, restaurantID, tableID)
	if err != nil {
		return Summary{}, err
	}
	summary, err := s.orders.SummarizeForTable(ctx, restaurantID, tableID)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize table orders: %w", err)
	}
	return newSummary(table, summary), nil
}

// ListTables pages through a restaurant's tables ordered by id. status is
// ALL, OPEN or CLOSED.
func (s *Service) ListTables(ctx context.Context, restaurantID, status string, limit int, cursor, requestID string) (Registry, error) {
	normalized := strings.ToUpper(strings.TrimSpace(status))
	var filter *models.TableStatus
	if normalized != "ALL" {
		parsed, ok := models.ParseTableStatus(normalized)
		if !ok {
			return Registry{}, models.ErrInvalidTableRegistryStatus.New("invalid table registry status: %s", status)
		}
		filter = &parsed
	}
	if limit < 1 || limit > maxLimit {
		return Registry{}, models.ErrInvalidTableRegistryStatus.New("limit must be between 1 and %d", maxLimit)
	}

	exists, err := s.tables.RestaurantExists(ctx, restaurantID)
	if err != nil {
		return Registry{}, fmt.Errorf("check restaurant: %w", err)
	}
	if !exists {
		return Registry{}, models.ErrRestaurantNotFound.New("restaurant %s not found", restaurantID)
	}

	rows, next, err := s.tables.ListForRestaurant(ctx, restaurantID, filter, limit, cursor)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCursor) {
			return Registry{}, models.ErrInvalidTableRegistryCursor.New("invalid cursor")
		}
		return Registry{}, fmt.Errorf("list tables: %w", err)
	}

	s.logger.Info("tables_list_request", "Tables listed", requestID, map[string]interface{}{
		"metric":        "tables_list_requests_total",
		"restaurant_id": restaurantID,
		"status":        normalized,
	})

	registry := Registry{Tables: make([]Summary, 0, len(rows))}
	for _, row := range rows {
		registry.Tables = append(registry.Tables, newSummary(row.Table, row.Summary))
	}
	if next != "" {
		registry.NextCursor = &next
	}
	return registry, nil
}

func (s *Service) load(ctx context.Context, restaurantID, tableID string) (models.Table, error) {
	table, err := s.tables.Get(ctx, restaurantID, tableID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.Table{}, models.ErrTableNotFound.New(
				"table not found for restaurant_id=%s, table_id=%s", restaurantID, tableID)
		}
		return models.Table{}, fmt.Errorf("load table: %w", err)
	}
	return table, nil
}

func newSummary(table models.Table, summary models.TableSummary) Summary {
	return Summary{
		Table: table,
		Counts: Counts{
			OrdersTotal: summary.OrdersTotal,
			Placed:      summary.Placed,
			Accepted:    summary.Accepted,
			Ready:       summary.Ready,
		},
		Totals:      summary.Total,
		LastOrderAt: summary.LastOrderAt,
	}
}
