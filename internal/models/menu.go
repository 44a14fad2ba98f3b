package models

import "time"

type MenuItem struct {
	ItemID      string  `json:"itemId"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       Money   `json:"priceMoney"`
	IsAvailable bool    `json:"isAvailable"`
	CategoryID  *string `json:"categoryId"`
}

// Menu is the current priced menu of a restaurant.
type Menu struct {
	MenuID       string     `json:"menuId"`
	RestaurantID string     `json:"restaurantId"`
	Version      int        `json:"menuVersion"`
	Categories   []string   `json:"categories"`
	Items        []MenuItem `json:"items"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// CategoryIDs lists the distinct item categories in item order.
func (m Menu) CategoryIDs() []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, item := range m.Items {
		if item.CategoryID == nil {
			continue
		}
		if _, ok := seen[*item.CategoryID]; ok {
			continue
		}
		seen[*item.CategoryID] = struct{}{}
		out = append(out, *item.CategoryID)
	}
	return out
}

// Item finds an item by id.
func (m Menu) Item(itemID string) (MenuItem, bool) {
	for _, item := range m.Items {
		if item.ItemID == itemID {
			return item, true
		}
	}
	return MenuItem{}, false
}
