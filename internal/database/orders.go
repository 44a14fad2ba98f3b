package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Vivek-k24/foodbiz/internal/models"
)

// OrderStore persists orders and their lines in PostgreSQL.
type OrderStore struct {
	db *DB
}

func (db *DB) Orders() *OrderStore {
	return &OrderStore{db: db}
}

func (s *OrderStore) Get(ctx context.Context, orderID string) (models.Order, error) {
	order, err := scanOrder(s.db.Pool.QueryRow(ctx, GetOrderSQL, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Order{}, models.ErrNotFound
	}
	if err != nil {
		return models.Order{}, fmt.Errorf("get order %s: %w", orderID, err)
	}
	if err := s.attachLines(ctx, s.db.Pool, []*models.Order{&order}); err != nil {
		return models.Order{}, err
	}
	return order, nil
}

func (s *OrderStore) Add(ctx context.Context, order models.Order) error {
	return s.db.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, InsertOrderSQL, orderArgs(order)...); err != nil {
			return fmt.Errorf("insert order %s: %w", order.OrderID, err)
		}
		return insertLines(ctx, tx, order)
	})
}

// AddWithIdempotency relies on the unique (restaurant, table, key)
// constraint: a losing insert returns no row and the stored order is read
// back inside the same transaction.
func (s *OrderStore) AddWithIdempotency(ctx context.Context, order models.Order, key, payloadHash string) (models.Order, error) {
	order = order.WithIdempotency(key, payloadHash)
	var stored models.Order

	err := s.db.inTx(ctx, func(tx pgx.Tx) error {
		var id string
		err := tx.QueryRow(ctx, InsertOrderIdempotentSQL, orderArgs(order)...).Scan(&id)
		if err == nil {
			stored = order
			return insertLines(ctx, tx, order)
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("insert order %s: %w", order.OrderID, err)
		}

		existing, err := scanOrder(tx.QueryRow(ctx, GetOrderByIdempotencyKeySQL, order.RestaurantID, order.TableID, key))
		if err != nil {
			return fmt.Errorf("load order for idempotency key: %w", err)
		}
		if existing.IdempotencyHash == nil || *existing.IdempotencyHash != payloadHash {
			return models.ErrReplayMismatch
		}
		if err := s.attachLines(ctx, tx, []*models.Order{&existing}); err != nil {
			return err
		}
		stored = existing
		return nil
	})
	if err != nil {
		return models.Order{}, err
	}
	return stored, nil
}

func (s *OrderStore) UpdateStatusWithVersion(ctx context.Context, orderID string, status models.OrderStatus, expectedVersion int) (models.Order, error) {
	order, err := scanOrder(s.db.Pool.QueryRow(ctx, UpdateOrderStatusWithVersionSQL, string(status), orderID, expectedVersion))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Order{}, models.ErrConcurrencyConflict
	}
	if err != nil {
		return models.Order{}, fmt.Errorf("update order %s: %w", orderID, err)
	}
	if err := s.attachLines(ctx, s.db.Pool, []*models.Order{&order}); err != nil {
		return models.Order{}, err
	}
	return order, nil
}

// ListForKitchen pages through a restaurant's orders oldest first.
func (s *OrderStore) ListForKitchen(ctx context.Context, restaurantID string, status *models.OrderStatus, limit int, cursor string) ([]models.Order, string, error) {
	after, err := models.DecodeOrderCursor(cursor)
	if err != nil {
		return nil, "", err
	}
	afterAt, afterID := keyset(after)
	rows, err := s.db.Pool.Query(ctx, ListKitchenOrdersSQL, restaurantID, statusArg(status), afterAt, afterID, limit+1)
	if err != nil {
		return nil, "", fmt.Errorf("list kitchen orders: %w", err)
	}
	return s.page(ctx, rows, limit)
}

// ListForTable pages through one table's orders oldest first.
func (s *OrderStore) ListForTable(ctx context.Context, restaurantID, tableID string, status *models.OrderStatus, limit int, cursor string) ([]models.Order, string, error) {
	after, err := models.DecodeOrderCursor(cursor)
	if err != nil {
		return nil, "", err
	}
	afterAt, afterID := keyset(after)
	rows, err := s.db.Pool.Query(ctx, ListTableOrdersSQL, restaurantID, tableID, statusArg(status), afterAt, afterID, limit+1)
	if err != nil {
		return nil, "", fmt.Errorf("list table orders: %w", err)
	}
	return s.page(ctx, rows, limit)
}

// SummarizeForTable counts a table's orders by status and totals them.
func (s *OrderStore) SummarizeForTable(ctx context.Context, restaurantID, tableID string) (models.TableSummary, error) {
	var (
		summary  models.TableSummary
		currency *string
	)
	err := s.db.Pool.QueryRow(ctx, SummarizeTableOrdersSQL, restaurantID, tableID).Scan(
		&summary.OrdersTotal, &summary.Placed, &summary.Accepted, &summary.Ready,
		&summary.Total.AmountCents, &currency, &summary.LastOrderAt,
	)
	if err != nil {
		return models.TableSummary{}, fmt.Errorf("summarize table %s: %w", tableID, err)
	}
	summary.Total.Currency = currencyOrDefault(currency)
	return summary, nil
}

// page trims the extra lookahead row and builds the next cursor from the last
// returned order.
func (s *OrderStore) page(ctx context.Context, rows pgx.Rows, limit int) ([]models.Order, string, error) {
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Order, error) {
		return scanOrder(row)
	})
	if err != nil {
		return nil, "", fmt.Errorf("scan orders: %w", err)
	}

	next := ""
	if len(orders) > limit {
		orders = orders[:limit]
		last := orders[len(orders)-1]
		next = models.OrderCursor{CreatedAt: last.CreatedAt, OrderID: last.OrderID}.Encode()
	}

	ptrs := make([]*models.Order, len(orders))
	for i := range orders {
		ptrs[i] = &orders[i]
	}
	if err := s.attachLines(ctx, s.db.Pool, ptrs); err != nil {
		return nil, "", err
	}
	return orders, next, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// attachLines loads the lines of every order in one round trip.
func (s *OrderStore) attachLines(ctx context.Context, q querier, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[string]*models.Order, len(orders))
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		o.Lines = make([]models.OrderLine, 0)
		byID[o.OrderID] = o
		ids = append(ids, o.OrderID)
	}

	rows, err := q.Query(ctx, GetOrderLinesSQL, ids)
	if err != nil {
		return fmt.Errorf("load order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID  string
			line     models.OrderLine
			currency string
		)
		if err := rows.Scan(&orderID, &line.LineID, &line.ItemID, &line.Name, &line.Quantity,
			&line.UnitPrice.AmountCents, &currency, &line.LineTotal.AmountCents, &line.Notes); err != nil {
			return fmt.Errorf("scan order line: %w", err)
		}
		line.UnitPrice.Currency = currency
		line.LineTotal.Currency = currency
		if o, ok := byID[orderID]; ok {
			o.Lines = append(o.Lines, line)
		}
	}
	return rows.Err()
}

func insertLines(ctx context.Context, tx pgx.Tx, order models.Order) error {
	batch := &pgx.Batch{}
	for i, line := range order.Lines {
		batch.Queue(InsertOrderLineSQL, line.LineID, order.OrderID, i, line.ItemID, line.Name, line.Quantity,
			line.UnitPrice.AmountCents, line.UnitPrice.Currency, line.LineTotal.AmountCents, line.Notes)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert lines of order %s: %w", order.OrderID, err)
	}
	return nil
}

func orderArgs(o models.Order) []any {
	return []any{
		o.OrderID, o.RestaurantID, o.TableID, string(o.Status), o.CreatedAt,
		o.Total.AmountCents, o.Total.Currency, o.Version, o.IdempotencyKey, o.IdempotencyHash,
	}
}

func scanOrder(row pgx.Row) (models.Order, error) {
	var (
		o      models.Order
		status string
	)
	err := row.Scan(&o.OrderID, &o.RestaurantID, &o.TableID, &status, &o.CreatedAt,
		&o.Total.AmountCents, &o.Total.Currency, &o.Version, &o.IdempotencyKey, &o.IdempotencyHash)
	if err != nil {
		return models.Order{}, err
	}
	o.Status = models.OrderStatus(status)
	o.CreatedAt = o.CreatedAt.UTC()
	return o, nil
}

func statusArg(status *models.OrderStatus) *string {
	if status == nil {
		return nil
	}
	s := string(*status)
	return &s
}

func keyset(after *models.OrderCursor) (*time.Time, *string) {
	if after == nil {
		return nil, nil
	}
	return &after.CreatedAt, &after.OrderID
}

func currencyOrDefault(currency *string) string {
	if currency == nil || *currency == "" {
		return models.DefaultCurrency
	}
	return *currency
}
