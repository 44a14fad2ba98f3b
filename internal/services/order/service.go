package order

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"github.com/Vivek-k24/foodbiz/internal/logger"
	"github.com/Vivek-k24/foodbiz/internal/models"
	"github.com/Vivek-k24/foodbiz/internal/services/order/internal/domain"
)

// Service places orders and moves them through the kitchen states.
type Service struct {
	orders   OrderStore
	tables   TableGetter
	menus    MenuGetter
	notifier EventNotifier
	logger   *logger.Logger
	now      func() time.Time
}

func NewService(orders OrderStore, tables TableGetter, menus MenuGetter, notifier EventNotifier, log *logger.Logger) *Service {
	return &Service{
		orders:   orders,
		tables:   tables,
		menus:    menus,
		notifier: notifier,
		logger:   log,
		now:      time.Now,
	}
}

// PlaceOrder validates the request against the table and the current menu and
// stores a new PLACED order. With an idempotency key, a retried request with
// the same body returns the order created by the first attempt and publishes
// nothing.
func (s *Service) PlaceOrder(ctx context.Context, restaurantID, tableID string, req *domain.PlaceOrderRequest, idempotencyKey string, tc models.TraceContext) (models.Order, error) {
	ctx = context.WithoutCancel(ctx)

	table, err := s.tables.Get(ctx, restaurantID, tableID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.Order{}, models.ErrTableNotFound.New(
				"table not found for restaurant_id=%s, table_id=%s", restaurantID, tableID)
		}
		return models.Order{}, fmt.Errorf("load table: %w", err)
	}
	if err := models.EnsureOpen(table); err != nil {
		return models.Order{}, err
	}

	menu, err := s.menus.GetMenu(ctx, restaurantID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.Order{}, models.ErrMenuNotFound.New("menu not found for restaurant_id=%s", restaurantID)
		}
		return models.Order{}, fmt.Errorf("load menu: %w", err)
	}

	lines, err := priceLines(menu, req.Lines)
	if err != nil {
		return models.Order{}, err
	}

	order, err := models.NewPlacedOrder(models.NewOrderID(), restaurantID, tableID, lines, s.now())
	if errors.Is(err, models.ErrAmountOverflow) {
		return models.Order{}, models.ErrMenuItemUnavailable.New("order total is out of range")
	}
	if err != nil {
		return models.Order{}, fmt.Errorf("build order: %w", err)
	}

	if idempotencyKey == "" {
		if err := s.orders.Add(ctx, order); err != nil {
			return models.Order{}, fmt.Errorf("store order: %w", err)
		}
		s.placed(ctx, order, tc)
		return order, nil
	}

	hash, err := PayloadHash(req)
	if err != nil {
		return models.Order{}, fmt.Errorf("hash payload: %w", err)
	}
	order = order.WithIdempotency(idempotencyKey, hash)

	stored, err := s.orders.AddWithIdempotency(ctx, order, idempotencyKey, hash)
	if err != nil {
		if errors.Is(err, models.ErrReplayMismatch) {
			return models.Order{}, models.ErrIdempotencyMismatch.New(
				"idempotency key %q was already used with a different payload", idempotencyKey)
		}
		return models.Order{}, fmt.Errorf("store order: %w", err)
	}

	if stored.OrderID != order.OrderID {
		s.logger.Info("order_replayed", "Returning order for repeated idempotency key", tc.RequestID, map[string]interface{}{
			"order_id":      stored.OrderID,
			"restaurant_id": restaurantID,
			"table_id":      tableID,
		})
		return stored, nil
	}

	s.placed(ctx, stored, tc)
	return stored, nil
}

func (s *Service) placed(ctx context.Context, order models.Order, tc models.TraceContext) {
	s.recordPlaced(order, tc)
	s.notifier.Notify(ctx, models.NewOrderEnvelope(models.EventOrderPlaced, order, order.CreatedAt, tc))
}

// priceLines turns requested lines into priced order lines using menu prices.
func priceLines(menu models.Menu, requested []domain.PlaceOrderLine) ([]models.OrderLine, error) {
	lines := make([]models.OrderLine, 0, len(requested))
	for _, r := range requested {
		if r.Quantity < 1 {
			return nil, models.ErrMenuItemUnavailable.New("quantity must be >= 1")
		}
		if r.Quantity > models.MaxLineQuantity {
			return nil, models.ErrMenuItemUnavailable.New("quantity must be <= %d", models.MaxLineQuantity)
		}
		item, ok := menu.Item(strings.TrimSpace(r.ItemID))
		if !ok {
			return nil, models.ErrMenuItemUnavailable.New("menu item %s does not exist", r.ItemID)
		}
		if !item.IsAvailable {
			return nil, models.ErrMenuItemUnavailable.New("menu item %s is unavailable", r.ItemID)
		}
		line, err := models.NewOrderLine(models.NewOrderLineID(), item.ItemID, item.Name, r.Quantity, item.Price, normalizeNotes(r.Notes))
		if errors.Is(err, models.ErrAmountOverflow) {
			return nil, models.ErrMenuItemUnavailable.New("line total for %s is out of range", r.ItemID)
		}
		if err != nil {
			return nil, fmt.Errorf("price line %s: %w", r.ItemID, err)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

type hashedLine struct {
	ItemID   string  `json:"itemId"`
	Quantity int     `json:"quantity"`
	Notes    *string `json:"notes"`
}

type hashedRequest struct {
	Lines []hashedLine `json:"lines"`
	Note  *string      `json:"note"`
}

// PayloadHash is a stable BLAKE3-256 digest, hex encoded, of the request with
// surrounding whitespace removed and empty notes dropped. Line order is kept
// because it is the order the lines are stored in.
func PayloadHash(req *domain.PlaceOrderRequest) (string, error) {
	normalized := hashedRequest{
		Lines: make([]hashedLine, 0, len(req.Lines)),
		Note:  normalizeNotes(req.Note),
	}
	for _, l := range req.Lines {
		normalized.Lines = append(normalized.Lines, hashedLine{
			ItemID:   strings.TrimSpace(l.ItemID),
			Quantity: l.Quantity,
			Notes:    normalizeNotes(l.Notes),
		})
	}
	data, err := json.Marshal(normalized)
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func normalizeNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*notes)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
