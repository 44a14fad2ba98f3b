package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Vivek-k24/foodbiz/internal/models"
)

// TableStore persists the open/closed state of tables.
type TableStore struct {
	db *DB
}

func (db *DB) Tables() *TableStore {
	return &TableStore{db: db}
}

func (s *TableStore) Get(ctx context.Context, restaurantID, tableID string) (models.Table, error) {
	table, err := scanTable(s.db.Pool.QueryRow(ctx, GetTableSQL, restaurantID, tableID))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Table{}, models.ErrNotFound
	}
	if err != nil {
		return models.Table{}, fmt.Errorf("get table %s: %w", tableID, err)
	}
	return table, nil
}

func (s *TableStore) Upsert(ctx context.Context, table models.Table) error {
	_, err := s.db.Pool.Exec(ctx, UpsertTableSQL,
		table.RestaurantID, table.TableID, string(table.Status), table.OpenedAt, table.ClosedAt)
	if err != nil {
		return fmt.Errorf("upsert table %s: %w", table.TableID, err)
	}
	return nil
}

func (s *TableStore) RestaurantExists(ctx context.Context, restaurantID string) (bool, error) {
	var exists bool
	if err := s.db.Pool.QueryRow(ctx, RestaurantExistsSQL, restaurantID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check restaurant %s: %w", restaurantID, err)
	}
	return exists, nil
}

// ListForRestaurant pages through a restaurant's tables ordered by id, each
// with its order summary computed in the same query.
func (s *TableStore) ListForRestaurant(ctx context.Context, restaurantID string, status *models.TableStatus, limit int, cursor string) ([]models.TableWithSummary, string, error) {
	after, err := models.DecodeTableCursor(cursor)
	if err != nil {
		return nil, "", err
	}
	var statusParam, afterParam *string
	if status != nil {
		st := string(*status)
		statusParam = &st
	}
	if after != "" {
		afterParam = &after
	}

	rows, err := s.db.Pool.Query(ctx, ListTablesSQL, restaurantID, statusParam, afterParam, limit+1)
	if err != nil {
		return nil, "", fmt.Errorf("list tables: %w", err)
	}
	tables, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.TableWithSummary, error) {
		var (
			t        models.TableWithSummary
			st       string
			currency *string
		)
		err := row.Scan(&t.Table.RestaurantID, &t.Table.TableID, &st, &t.Table.OpenedAt, &t.Table.ClosedAt,
			&t.Summary.OrdersTotal, &t.Summary.Placed, &t.Summary.Accepted, &t.Summary.Ready,
			&t.Summary.Total.AmountCents, &currency, &t.Summary.LastOrderAt)
		t.Table.Status = models.TableStatus(st)
		t.Summary.Total.Currency = currencyOrDefault(currency)
		return t, err
	})
	if err != nil {
		return nil, "", fmt.Errorf("scan tables: %w", err)
	}

	next := ""
	if len(tables) > limit {
		tables = tables[:limit]
		next = models.EncodeTableCursor(tables[len(tables)-1].Table.TableID)
	}
	return tables, next, nil
}

func scanTable(row pgx.Row) (models.Table, error) {
	var (
		t      models.Table
		status string
	)
	if err := row.Scan(&t.RestaurantID, &t.TableID, &status, &t.OpenedAt, &t.ClosedAt); err != nil {
		return models.Table{}, err
	}
	t.Status = models.TableStatus(status)
	return t, nil
}
