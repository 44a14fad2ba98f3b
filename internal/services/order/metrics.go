package order

import "github.com/Vivek-k24/foodbiz/internal/models"

// Lifecycle metrics are emitted as structured log records so they can be
// aggregated by the log pipeline.

func (s *Service) recordPlaced(order models.Order, tc models.TraceContext) {
	s.logger.Info("order_placed", "Order placed", tc.RequestID, map[string]interface{}{
		"metric":        "orders_total",
		"order_id":      order.OrderID,
		"restaurant_id": order.RestaurantID,
		"table_id":      order.TableID,
		"lines":         len(order.Lines),
		"amount_cents":  order.Total.AmountCents,
		"currency":      order.Total.Currency,
	})
}

func (s *Service) recordTransition(from, to models.Order, tc models.TraceContext) {
	fields := map[string]interface{}{
		"metric":        "transition_total",
		"order_id":      to.OrderID,
		"restaurant_id": to.RestaurantID,
		"from_status":   string(from.Status),
		"to_status":     string(to.Status),
		"version":       to.Version,
	}
	elapsed := s.now().Sub(to.CreatedAt).Milliseconds()
	switch to.Status {
	case models.StatusAccepted:
		fields["time_to_accept_ms"] = elapsed
	case models.StatusReady:
		fields["time_to_ready_ms"] = elapsed
	}
	s.logger.Info("order_transition", "Order status changed", tc.RequestID, fields)
}
