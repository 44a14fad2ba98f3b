package models

import (
	"strings"
	"time"
)

type TableStatus string

const (
	TableOpen   TableStatus = "OPEN"
	TableClosed TableStatus = "CLOSED"
)

// ParseTableStatus accepts a status in any letter case.
func ParseTableStatus(s string) (TableStatus, bool) {
	switch st := TableStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case TableOpen, TableClosed:
		return st, true
	default:
		return "", false
	}
}

// Table is a snapshot of a physical table's open/closed lifecycle.
type Table struct {
	TableID      string      `json:"tableId"`
	RestaurantID string      `json:"restaurantId"`
	Status       TableStatus `json:"status"`
	OpenedAt     *time.Time  `json:"openedAt"`
	ClosedAt     *time.Time  `json:"closedAt"`
}

// NewClosedTable is the state of a table that has never been opened.
func NewClosedTable(restaurantID, tableID string) Table {
	return Table{TableID: tableID, RestaurantID: restaurantID, Status: TableClosed}
}

// OpenTable opens t at now. An open table is returned unchanged.
func OpenTable(t Table, now time.Time) Table {
	if t.Status == TableOpen {
		return t
	}
	opened := now.UTC()
	t.Status = TableOpen
	t.OpenedAt = &opened
	t.ClosedAt = nil
	return t
}

// CloseTable closes t at now, keeping OpenedAt.
func CloseTable(t Table, now time.Time) (Table, error) {
	if t.Status == TableClosed {
		return Table{}, ErrTableAlreadyClosed.New("table %s is already closed", t.TableID)
	}
	closed := now.UTC()
	t.Status = TableClosed
	t.ClosedAt = &closed
	return t, nil
}

// EnsureOpen fails unless t is OPEN.
func EnsureOpen(t Table) error {
	if t.Status != TableOpen {
		return ErrTableNotOpen.New("table %s is not open", t.TableID)
	}
	return nil
}

// TableSummary aggregates the orders placed at a table.
type TableSummary struct {
	OrdersTotal int        `json:"ordersTotal"`
	Placed      int        `json:"placed"`
	Accepted    int        `json:"accepted"`
	Ready       int        `json:"ready"`
	Total       Money      `json:"totals"`
	LastOrderAt *time.Time `json:"lastOrderAt"`
}

// DefaultCurrency is reported for tables that have no orders yet.
const DefaultCurrency = "USD"

// Open reports how many orders still block closing the table.
func (s TableSummary) Open() int {
	return s.Placed + s.Accepted
}

// TableWithSummary is one row of the table registry listing.
type TableWithSummary struct {
	Table   Table
	Summary TableSummary
}
