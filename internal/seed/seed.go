// Package seed holds the demo restaurant loaded by --mode=seed and by the
// in-memory store at startup. Tables are created by opening them.
package seed

import (
	"time"

	"github.com/Vivek-k24/foodbiz/internal/models"
)

const (
	RestaurantID   = "rst_001"
	RestaurantName = "Downtown Test Kitchen"
	MenuID         = "men_001"
)

// Menu returns version 1 of the demo menu. Tiramisu is unavailable.
func Menu(now time.Time) models.Menu {
	item := func(id, name, description string, cents int64, available bool) models.MenuItem {
		return models.MenuItem{
			ItemID:      id,
			Name:        name,
			Description: description,
			Price:       models.Money{AmountCents: cents, Currency: "USD"},
			IsAvailable: available,
		}
	}
	return models.Menu{
		MenuID:       MenuID,
		RestaurantID: RestaurantID,
		Version:      1,
		UpdatedAt:    now.UTC(),
		Items: []models.MenuItem{
			item("itm_001", "Margherita Pizza", "Tomato, mozzarella, basil", 1450, true),
			item("itm_002", "Chicken Alfredo", "Fettuccine, creamy parmesan sauce", 1690, true),
			item("itm_003", "Caesar Salad", "Romaine, croutons, parmesan", 990, true),
			item("itm_004", "Tiramisu", "Espresso-soaked ladyfingers", 850, false),
		},
	}
}
