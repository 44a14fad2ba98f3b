package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Vivek-k24/foodbiz/internal/models"
)

// MenuStore reads the highest menu version of a restaurant.
type MenuStore struct {
	db *DB
}

func (db *DB) Menus() *MenuStore {
	return &MenuStore{db: db}
}

func (s *MenuStore) GetMenu(ctx context.Context, restaurantID string) (models.Menu, error) {
	var menu models.Menu
	err := s.db.Pool.QueryRow(ctx, GetCurrentMenuSQL, restaurantID).
		Scan(&menu.MenuID, &menu.RestaurantID, &menu.Version, &menu.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Menu{}, models.ErrNotFound
	}
	if err != nil {
		return models.Menu{}, fmt.Errorf("get menu for %s: %w", restaurantID, err)
	}
	menu.UpdatedAt = menu.UpdatedAt.UTC()

	rows, err := s.db.Pool.Query(ctx, GetMenuItemsSQL, menu.MenuID)
	if err != nil {
		return models.Menu{}, fmt.Errorf("get menu items: %w", err)
	}
	menu.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.MenuItem, error) {
		var item models.MenuItem
		err := row.Scan(&item.ItemID, &item.Name, &item.Description,
			&item.Price.AmountCents, &item.Price.Currency, &item.IsAvailable, &item.CategoryID)
		return item, err
	})
	if err != nil {
		return models.Menu{}, fmt.Errorf("scan menu items: %w", err)
	}
	menu.Categories = menu.CategoryIDs()
	return menu, nil
}

// Seed upserts a restaurant and its menu in one transaction.
func (db *DB) Seed(ctx context.Context, restaurantName string, menu models.Menu) error {
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, UpsertRestaurantSQL, menu.RestaurantID, restaurantName); err != nil {
			return fmt.Errorf("upsert restaurant: %w", err)
		}
		if _, err := tx.Exec(ctx, UpsertMenuSQL, menu.MenuID, menu.RestaurantID, menu.Version, menu.UpdatedAt); err != nil {
			return fmt.Errorf("upsert menu: %w", err)
		}
		batch := &pgx.Batch{}
		for i, item := range menu.Items {
			batch.Queue(UpsertMenuItemSQL, item.ItemID, menu.MenuID, item.Name, item.Description,
				item.Price.AmountCents, item.Price.Currency, item.IsAvailable, item.CategoryID, i)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return err
	}
	db.logger.Info("seed_applied", "Seeded restaurant menu", "startup", map[string]interface{}{
		"restaurant_id": menu.RestaurantID,
		"menu_version":  menu.Version,
		"items":         len(menu.Items),
	})
	return nil
}
