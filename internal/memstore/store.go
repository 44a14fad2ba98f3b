// Package memstore is an in-process store with the same semantics as the
// postgres store: keyset pagination, atomic idempotent inserts and versioned
// status updates. All state is guarded by one mutex.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/Vivek-k24/foodbiz/internal/models"
)

type tableKey struct {
	restaurantID string
	tableID      string
}

type idempotencyKey struct {
	restaurantID string
	tableID      string
	key          string
}

// Store holds restaurants, menus, tables and orders.
type Store struct {
	mu          sync.Mutex
	restaurants map[string]string
	menus       map[string]models.Menu
	tables      map[tableKey]models.Table
	orders      map[string]models.Order
	idempotency map[idempotencyKey]string
}

func New() *Store {
	return &Store{
		restaurants: make(map[string]string),
		menus:       make(map[string]models.Menu),
		tables:      make(map[tableKey]models.Table),
		orders:      make(map[string]models.Order),
		idempotency: make(map[idempotencyKey]string),
	}
}

// Orders returns the order store view.
func (s *Store) Orders() *OrderStore { return &OrderStore{s: s} }

// Tables returns the table store view.
func (s *Store) Tables() *TableStore { return &TableStore{s: s} }

// Menus returns the menu store view.
func (s *Store) Menus() *MenuStore { return &MenuStore{s: s} }

// PutRestaurant creates or renames a restaurant.
func (s *Store) PutRestaurant(restaurantID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restaurants[restaurantID] = name
}

// PutMenu replaces the current menu of its restaurant.
func (s *Store) PutMenu(menu models.Menu) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.restaurants[menu.RestaurantID]; !ok {
		s.restaurants[menu.RestaurantID] = ""
	}
	menu.Items = append([]models.MenuItem(nil), menu.Items...)
	s.menus[menu.RestaurantID] = menu
}

// Ping always succeeds; it lets the store sit behind the health endpoint.
func (s *Store) Ping(context.Context) error { return nil }

type OrderStore struct{ s *Store }

func (o *OrderStore) Get(_ context.Context, orderID string) (models.Order, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	order, ok := o.s.orders[orderID]
	if !ok {
		return models.Order{}, models.ErrNotFound
	}
	return clone(order), nil
}

func (o *OrderStore) Add(_ context.Context, order models.Order) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	o.s.orders[order.OrderID] = clone(order)
	return nil
}

func (o *OrderStore) AddWithIdempotency(_ context.Context, order models.Order, key, payloadHash string) (models.Order, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()

	k := idempotencyKey{restaurantID: order.RestaurantID, tableID: order.TableID, key: key}
	if existingID, ok := o.s.idempotency[k]; ok {
		existing := o.s.orders[existingID]
		if existing.IdempotencyHash == nil || *existing.IdempotencyHash != payloadHash {
			return models.Order{}, models.ErrReplayMismatch
		}
		return clone(existing), nil
	}

	order = order.WithIdempotency(key, payloadHash)
	o.s.orders[order.OrderID] = clone(order)
	o.s.idempotency[k] = order.OrderID
	return clone(order), nil
}

func (o *OrderStore) UpdateStatusWithVersion(_ context.Context, orderID string, status models.OrderStatus, expectedVersion int) (models.Order, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()

	order, ok := o.s.orders[orderID]
	if !ok || order.Version != expectedVersion {
		return models.Order{}, models.ErrConcurrencyConflict
	}
	order.Status = status
	order.Version++
	o.s.orders[orderID] = order
	return clone(order), nil
}

// ListForKitchen pages through a restaurant's orders oldest first.
func (o *OrderStore) ListForKitchen(_ context.Context, restaurantID string, status *models.OrderStatus, limit int, cursor string) ([]models.Order, string, error) {
	return o.list(cursor, limit, func(order models.Order) bool {
		return order.RestaurantID == restaurantID && matchStatus(order, status)
	})
}

// ListForTable pages through one table's orders oldest first.
func (o *OrderStore) ListForTable(_ context.Context, restaurantID, tableID string, status *models.OrderStatus, limit int, cursor string) ([]models.Order, string, error) {
	return o.list(cursor, limit, func(order models.Order) bool {
		return order.RestaurantID == restaurantID && order.TableID == tableID && matchStatus(order, status)
	})
}

func (o *OrderStore) list(token string, limit int, keep func(models.Order) bool) ([]models.Order, string, error) {
	after, err := models.DecodeOrderCursor(token)
	if err != nil {
		return nil, "", err
	}

	o.s.mu.Lock()
	matched := make([]models.Order, 0)
	for _, order := range o.s.orders {
		if keep(order) && (after == nil || after.After(order)) {
			matched = append(matched, clone(order))
		}
	}
	o.s.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].OrderID < matched[j].OrderID
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	if len(matched) <= limit {
		return matched, "", nil
	}
	page := matched[:limit]
	last := page[len(page)-1]
	return page, models.OrderCursor{CreatedAt: last.CreatedAt, OrderID: last.OrderID}.Encode(), nil
}

// SummarizeForTable counts a table's orders by status and totals them.
func (o *OrderStore) SummarizeForTable(_ context.Context, restaurantID, tableID string) (models.TableSummary, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	return o.s.summarize(restaurantID, tableID), nil
}

// summarize must be called with mu held.
func (s *Store) summarize(restaurantID, tableID string) models.TableSummary {
	summary := models.TableSummary{Total: models.Money{Currency: models.DefaultCurrency}}
	for _, order := range s.orders {
		if order.RestaurantID != restaurantID || order.TableID != tableID {
			continue
		}
		summary.OrdersTotal++
		switch order.Status {
		case models.StatusPlaced:
			summary.Placed++
		case models.StatusAccepted:
			summary.Accepted++
		case models.StatusReady:
			summary.Ready++
		}
		summary.Total.AmountCents += order.Total.AmountCents
		summary.Total.Currency = order.Total.Currency
		if summary.LastOrderAt == nil || order.CreatedAt.After(*summary.LastOrderAt) {
			createdAt := order.CreatedAt
			summary.LastOrderAt = &createdAt
		}
	}
	return summary
}

type TableStore struct{ s *Store }

func (t *TableStore) Get(_ context.Context, restaurantID, tableID string) (models.Table, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	table, ok := t.s.tables[tableKey{restaurantID, tableID}]
	if !ok {
		return models.Table{}, models.ErrNotFound
	}
	return table, nil
}

func (t *TableStore) Upsert(_ context.Context, table models.Table) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.s.tables[tableKey{table.RestaurantID, table.TableID}] = table
	return nil
}

func (t *TableStore) RestaurantExists(_ context.Context, restaurantID string) (bool, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	_, ok := t.s.restaurants[restaurantID]
	return ok, nil
}

// ListForRestaurant pages through a restaurant's tables ordered by id, each
// with its order summary.
func (t *TableStore) ListForRestaurant(_ context.Context, restaurantID string, status *models.TableStatus, limit int, cursor string) ([]models.TableWithSummary, string, error) {
	after, err := models.DecodeTableCursor(cursor)
	if err != nil {
		return nil, "", err
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	tables := make([]models.Table, 0)
	for key, table := range t.s.tables {
		if key.restaurantID != restaurantID || (status != nil && table.Status != *status) {
			continue
		}
		if after != "" && table.TableID <= after {
			continue
		}
		tables = append(tables, table)
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].TableID < tables[j].TableID })

	next := ""
	if len(tables) > limit {
		tables = tables[:limit]
		next = models.EncodeTableCursor(tables[len(tables)-1].TableID)
	}
	rows := make([]models.TableWithSummary, 0, len(tables))
	for _, table := range tables {
		rows = append(rows, models.TableWithSummary{
			Table:   table,
			Summary: t.s.summarize(restaurantID, table.TableID),
		})
	}
	return rows, next, nil
}

type MenuStore struct{ s *Store }

func (m *MenuStore) GetMenu(_ context.Context, restaurantID string) (models.Menu, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	menu, ok := m.s.menus[restaurantID]
	if !ok {
		return models.Menu{}, models.ErrNotFound
	}
	menu.Items = append([]models.MenuItem(nil), menu.Items...)
	return menu, nil
}

func matchStatus(order models.Order, status *models.OrderStatus) bool {
	return status == nil || order.Status == *status
}

func clone(order models.Order) models.Order {
	order.Lines = append([]models.OrderLine(nil), order.Lines...)
	return order
}
