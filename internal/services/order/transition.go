package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/Vivek-k24/foodbiz/internal/models"
)

// transition describes one forward step of the order state machine.
type transition struct {
	target models.OrderStatus
	// unreachable is the status from which target can never be reached by
	// this step, so requests from it fail without touching the store.
	unreachable models.OrderStatus
	apply       func(models.Order) (models.Order, error)
	eventType   string
}

var (
	acceptStep = transition{
		target:      models.StatusAccepted,
		unreachable: models.StatusReady,
		apply:       models.Accept,
		eventType:   models.EventOrderAccepted,
	}
	readyStep = transition{
		target:      models.StatusReady,
		unreachable: models.StatusPlaced,
		apply:       models.MarkReady,
		eventType:   models.EventOrderReady,
	}
)

// AcceptOrder moves a PLACED order to ACCEPTED. Accepting an ACCEPTED order
// returns it unchanged.
func (s *Service) AcceptOrder(ctx context.Context, orderID string, tc models.TraceContext) (models.Order, error) {
	return s.advance(ctx, orderID, acceptStep, tc)
}

// MarkOrderReady moves an ACCEPTED order to READY. Marking a READY order
// returns it unchanged.
func (s *Service) MarkOrderReady(ctx context.Context, orderID string, tc models.TraceContext) (models.Order, error) {
	return s.advance(ctx, orderID, readyStep, tc)
}

// advance applies step with a single optimistic write. When the write loses a
// version race the order is reloaded once and classified again; a second
// collision is reported as a conflict rather than retried.
func (s *Service) advance(ctx context.Context, orderID string, step transition, tc models.TraceContext) (models.Order, error) {
	ctx = context.WithoutCancel(ctx)

	current, err := s.load(ctx, orderID)
	if err != nil {
		return models.Order{}, err
	}
	if settled, result, err := step.classify(current); settled {
		return result, err
	}

	next, err := step.apply(current)
	if err != nil {
		return models.Order{}, err
	}

	updated, err := s.orders.UpdateStatusWithVersion(ctx, orderID, next.Status, current.Version)
	if errors.Is(err, models.ErrConcurrencyConflict) {
		fresh, err := s.load(ctx, orderID)
		if err != nil {
			return models.Order{}, err
		}
		if settled, result, err := step.classify(fresh); settled {
			return result, err
		}
		s.logger.Warn("order_conflict", "Concurrent modification of order", tc.RequestID, map[string]interface{}{
			"order_id":         orderID,
			"expected_version": current.Version,
			"actual_version":   fresh.Version,
			"status":           string(fresh.Status),
		})
		return models.Order{}, models.ErrOrderConflict.New(
			"order %s was modified concurrently, retry the request", orderID)
	}
	if err != nil {
		return models.Order{}, fmt.Errorf("update order %s: %w", orderID, err)
	}

	s.recordTransition(current, updated, tc)
	s.notifier.Notify(ctx, models.NewOrderEnvelope(step.eventType, updated, s.now(), tc))
	return updated, nil
}

// classify settles the request without a write when the order is already at
// the target or can never reach it from its current status.
func (step transition) classify(o models.Order) (settled bool, result models.Order, err error) {
	switch o.Status {
	case step.target:
		return true, o, nil
	case step.unreachable:
		_, err := step.apply(o)
		return true, models.Order{}, err
	default:
		return false, models.Order{}, nil
	}
}

func (s *Service) load(ctx context.Context, orderID string) (models.Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.Order{}, models.ErrOrderNotFound.New("order %s not found", orderID)
		}
		return models.Order{}, fmt.Errorf("load order %s: %w", orderID, err)
	}
	return order, nil
}

