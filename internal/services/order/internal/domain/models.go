package domain

// PlaceOrderLine is one requested line. Prices always come from the menu.
type PlaceOrderLine struct {
	ItemID   string  `json:"itemId"`
	Quantity int     `json:"quantity"`
	Notes    *string `json:"notes,omitempty"`
}

// PlaceOrderRequest is the body of POST .../tables/{table_id}/orders.
type PlaceOrderRequest struct {
	Lines []PlaceOrderLine `json:"lines"`
	Note  *string          `json:"note,omitempty"`
}
