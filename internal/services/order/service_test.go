package order

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vivek-k24/foodbiz/internal/fanout"
	"github.com/Vivek-k24/foodbiz/internal/logger"
	"github.com/Vivek-k24/foodbiz/internal/memstore"
	"github.com/Vivek-k24/foodbiz/internal/models"
	"github.com/Vivek-k24/foodbiz/internal/seed"
	"github.com/Vivek-k24/foodbiz/internal/services/order/internal/domain"
)

var base = time.Date(2026, 2, 18, 12, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.EventEnvelope
}

func (n *recordingNotifier) Notify(_ context.Context, env models.EventEnvelope) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, env)
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.EventType)
	}
	return out
}

func (n *recordingNotifier) count(eventType string) int {
	c := 0
	for _, t := range n.types() {
		if t == eventType {
			c++
		}
	}
	return c
}

type fixture struct {
	store    *memstore.Store
	notifier *recordingNotifier
	service  *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	store.PutRestaurant(seed.RestaurantID, seed.RestaurantName)
	store.PutMenu(seed.Menu(base))
	table := models.OpenTable(models.NewClosedTable(seed.RestaurantID, "tbl_001"), base)
	require.NoError(t, store.Tables().Upsert(context.Background(), table))

	notifier := &recordingNotifier{}
	svc := NewService(store.Orders(), store.Tables(), store.Menus(), notifier, logger.Discard())
	svc.now = func() time.Time { return base.Add(time.Minute) }
	return &fixture{store: store, notifier: notifier, service: svc}
}

func pizzas(qty int) *domain.PlaceOrderRequest {
	return &domain.PlaceOrderRequest{Lines: []domain.PlaceOrderLine{{ItemID: "itm_001", Quantity: qty}}}
}

func (f *fixture) place(t *testing.T, req *domain.PlaceOrderRequest, key string) models.Order {
	t.Helper()
	order, err := f.service.PlaceOrder(context.Background(), seed.RestaurantID, "tbl_001", req, key, models.TraceContext{RequestID: "req-1"})
	require.NoError(t, err)
	return order
}

func TestOrderLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tc := models.TraceContext{RequestID: "req-1", TraceID: "4bf92f3577b34da6a3ce929d0e0e4736"}

	placed := f.place(t, pizzas(2), "")
	assert.Equal(t, models.StatusPlaced, placed.Status)
	assert.Equal(t, 1, placed.Version)
	assert.Equal(t, int64(2900), placed.Total.AmountCents)
	assert.Equal(t, "USD", placed.Total.Currency)
	require.Len(t, placed.Lines, 1)
	assert.Equal(t, int64(1450), placed.Lines[0].UnitPrice.AmountCents)
	assert.Equal(t, "Margherita Pizza", placed.Lines[0].Name)

	accepted, err := f.service.AcceptOrder(ctx, placed.OrderID, tc)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, accepted.Status)
	assert.Equal(t, 2, accepted.Version)

	ready, err := f.service.MarkOrderReady(ctx, placed.OrderID, tc)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReady, ready.Status)
	assert.Equal(t, 3, ready.Version)

	stored, err := f.store.Orders().Get(ctx, placed.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReady, stored.Status)
	assert.Equal(t, placed.Total, stored.Total)

	assert.Equal(t, []string{models.EventOrderPlaced, models.EventOrderAccepted, models.EventOrderReady}, f.notifier.types())
	for i, env := range f.notifier.events {
		payload, ok := env.Payload.(models.OrderEventPayload)
		require.True(t, ok)
		assert.Equal(t, placed.OrderID, payload.OrderID)
		assert.Equal(t, i+1, payload.Version)
		assert.Equal(t, seed.RestaurantID, env.RestaurantID)
	}
	require.NotNil(t, f.notifier.events[1].TraceID)
	assert.Equal(t, tc.TraceID, *f.notifier.events[1].TraceID)
	assert.True(t, f.notifier.events[0].OccurredAt.Equal(placed.CreatedAt))
}

func TestPlaceOrderRejections(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		req     *domain.PlaceOrderRequest
		setup   func(t *testing.T, f *fixture)
		wantErr error
	}{
		{
			name:    "missing table",
			table:   "tbl_404",
			req:     pizzas(1),
			wantErr: models.ErrTableNotFound,
		},
		{
			name:  "closed table",
			table: "tbl_closed",
			req:   pizzas(1),
			setup: func(t *testing.T, f *fixture) {
				closed, err := models.CloseTable(models.OpenTable(models.NewClosedTable(seed.RestaurantID, "tbl_closed"), base), base)
				require.NoError(t, err)
				require.NoError(t, f.store.Tables().Upsert(context.Background(), closed))
			},
			wantErr: models.ErrTableNotOpen,
		},
		{
			name:    "unknown item",
			table:   "tbl_001",
			req:     &domain.PlaceOrderRequest{Lines: []domain.PlaceOrderLine{{ItemID: "itm_999", Quantity: 1}}},
			wantErr: models.ErrMenuItemUnavailable,
		},
		{
			name:    "unavailable item",
			table:   "tbl_001",
			req:     &domain.PlaceOrderRequest{Lines: []domain.PlaceOrderLine{{ItemID: "itm_004", Quantity: 1}}},
			wantErr: models.ErrMenuItemUnavailable,
		},
		{
			name:    "zero quantity",
			table:   "tbl_001",
			req:     pizzas(0),
			wantErr: models.ErrMenuItemUnavailable,
		},
		{
			name:    "quantity above line bound",
			table:   "tbl_001",
			req:     pizzas(models.MaxLineQuantity + 1),
			wantErr: models.ErrMenuItemUnavailable,
		},
		{
			name:    "quantity that would wrap the total",
			table:   "tbl_001",
			req:     pizzas(12721892464627277),
			wantErr: models.ErrMenuItemUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(t, f)
			}
			_, err := f.service.PlaceOrder(context.Background(), seed.RestaurantID, tt.table, tt.req, "", models.TraceContext{})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.notifier.types())
		})
	}
}

func TestPlaceOrderWithoutMenu(t *testing.T) {
	store := memstore.New()
	require.NoError(t, store.Tables().Upsert(context.Background(), models.OpenTable(models.NewClosedTable("rst_002", "tbl_001"), base)))
	svc := NewService(store.Orders(), store.Tables(), store.Menus(), &recordingNotifier{}, logger.Discard())

	_, err := svc.PlaceOrder(context.Background(), "rst_002", "tbl_001", pizzas(1), "", models.TraceContext{})
	assert.ErrorIs(t, err, models.ErrMenuNotFound)
}

func TestPlaceOrderReplaysIdempotencyKey(t *testing.T) {
	f := newFixture(t)

	first := f.place(t, pizzas(1), "k1")
	second := f.place(t, pizzas(1), "k1")

	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Equal(t, 1, f.notifier.count(models.EventOrderPlaced))

	orders, _, err := f.store.Orders().ListForTable(context.Background(), seed.RestaurantID, "tbl_001", nil, 10, "")
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestPlaceOrderConcurrentReplay(t *testing.T) {
	f := newFixture(t)

	const callers = 10
	ids := make(chan string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			order, err := f.service.PlaceOrder(context.Background(), seed.RestaurantID, "tbl_001", pizzas(1), "k1", models.TraceContext{})
			assert.NoError(t, err)
			ids <- order.OrderID
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]struct{}{}
	for id := range ids {
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, 1)
	assert.Equal(t, 1, f.notifier.count(models.EventOrderPlaced))
}

func TestPlaceOrderRejectsKeyReuseWithDifferentPayload(t *testing.T) {
	f := newFixture(t)
	original := f.place(t, pizzas(1), "k1")

	_, err := f.service.PlaceOrder(context.Background(), seed.RestaurantID, "tbl_001", pizzas(2), "k1", models.TraceContext{})
	require.ErrorIs(t, err, models.ErrIdempotencyMismatch)
	assert.Equal(t, models.KindConflict, models.KindOf(err))

	stored, err := f.store.Orders().Get(context.Background(), original.OrderID)
	require.NoError(t, err)
	assert.Equal(t, original.Total, stored.Total)
	assert.Equal(t, 1, stored.Version)
	assert.Equal(t, 1, f.notifier.count(models.EventOrderPlaced))
}

func TestPayloadHashNormalizes(t *testing.T) {
	note := func(s string) *string { return &s }

	a, err := PayloadHash(&domain.PlaceOrderRequest{Lines: []domain.PlaceOrderLine{{ItemID: "itm_001", Quantity: 1, Notes: note("  ")}}})
	require.NoError(t, err)
	b, err := PayloadHash(&domain.PlaceOrderRequest{Lines: []domain.PlaceOrderLine{{ItemID: " itm_001 ", Quantity: 1}}})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	c, err := PayloadHash(&domain.PlaceOrderRequest{Lines: []domain.PlaceOrderLine{{ItemID: "itm_001", Quantity: 2}}})
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	d, err := PayloadHash(&domain.PlaceOrderRequest{Lines: []domain.PlaceOrderLine{{ItemID: "itm_001", Quantity: 1, Notes: note("no basil")}}})
	require.NoError(t, err)
	assert.NotEqual(t, a, d)
}

func TestAcceptIsIdempotent(t *testing.T) {
	f := newFixture(t)
	placed := f.place(t, pizzas(1), "")

	first, err := f.service.AcceptOrder(context.Background(), placed.OrderID, models.TraceContext{})
	require.NoError(t, err)
	second, err := f.service.AcceptOrder(context.Background(), placed.OrderID, models.TraceContext{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, second.Version)
	assert.Equal(t, 1, f.notifier.count(models.EventOrderAccepted))
}

func TestInvalidTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	placed := f.place(t, pizzas(1), "")

	_, err := f.service.MarkOrderReady(ctx, placed.OrderID, models.TraceContext{})
	assert.ErrorIs(t, err, models.ErrInvalidOrderTransition)

	_, err = f.service.AcceptOrder(ctx, placed.OrderID, models.TraceContext{})
	require.NoError(t, err)
	_, err = f.service.MarkOrderReady(ctx, placed.OrderID, models.TraceContext{})
	require.NoError(t, err)

	_, err = f.service.AcceptOrder(ctx, placed.OrderID, models.TraceContext{})
	assert.ErrorIs(t, err, models.ErrInvalidOrderTransition)

	stored, err := f.store.Orders().Get(ctx, placed.OrderID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Version)
}

func TestTransitionUnknownOrder(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.AcceptOrder(context.Background(), "ord_missing", models.TraceContext{})
	assert.ErrorIs(t, err, models.ErrOrderNotFound)
}

func TestConcurrentAccepts(t *testing.T) {
	f := newFixture(t)
	placed := f.place(t, pizzas(1), "")

	results := make(chan error, 2)
	orders := make(chan models.Order, 2)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			o, err := f.service.AcceptOrder(context.Background(), placed.OrderID, models.TraceContext{})
			results <- err
			orders <- o
		}()
	}
	close(start)
	wg.Wait()
	close(results)
	close(orders)

	for err := range results {
		if err != nil {
			assert.ErrorIs(t, err, models.ErrOrderConflict)
		}
	}
	for o := range orders {
		if o.OrderID != "" {
			assert.Equal(t, models.StatusAccepted, o.Status)
			assert.Equal(t, 2, o.Version)
		}
	}

	stored, err := f.store.Orders().Get(context.Background(), placed.OrderID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Version)
	assert.Equal(t, 1, f.notifier.count(models.EventOrderAccepted))
}

// racingStore lets another writer win the version race before delegating.
type racingStore struct {
	OrderStore
	race func(ctx context.Context, orderID string)
}

func (s *racingStore) UpdateStatusWithVersion(ctx context.Context, orderID string, status models.OrderStatus, expectedVersion int) (models.Order, error) {
	if s.race != nil {
		race := s.race
		s.race = nil
		race(ctx, orderID)
	}
	return s.OrderStore.UpdateStatusWithVersion(ctx, orderID, status, expectedVersion)
}

func TestTransitionReloadsAfterLosingRace(t *testing.T) {
	f := newFixture(t)
	placed := f.place(t, pizzas(1), "")
	orders := f.store.Orders()

	racing := &racingStore{OrderStore: orders, race: func(ctx context.Context, orderID string) {
		_, err := orders.UpdateStatusWithVersion(ctx, orderID, models.StatusAccepted, 1)
		require.NoError(t, err)
	}}
	svc := NewService(racing, f.store.Tables(), f.store.Menus(), f.notifier, logger.Discard())

	got, err := svc.AcceptOrder(context.Background(), placed.OrderID, models.TraceContext{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, got.Status)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, 0, f.notifier.count(models.EventOrderAccepted), "the winning writer publishes, not the loser")
}

func TestTransitionReportsConflictAfterSecondCollision(t *testing.T) {
	f := newFixture(t)
	placed := f.place(t, pizzas(1), "")
	lg, hook := test.NewNullLogger()

	stuck := &conflictingStore{OrderStore: f.store.Orders()}
	svc := NewService(stuck, f.store.Tables(), f.store.Menus(), f.notifier, logger.FromLogrus("order-service", lg))

	_, err := svc.AcceptOrder(context.Background(), placed.OrderID, models.TraceContext{RequestID: "req-7"})
	require.ErrorIs(t, err, models.ErrOrderConflict)
	assert.Equal(t, 1, stuck.calls, "only one write is attempted")

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "order_conflict", entry.Data["action"])
}

type conflictingStore struct {
	OrderStore
	calls int
}

func (s *conflictingStore) UpdateStatusWithVersion(context.Context, string, models.OrderStatus, int) (models.Order, error) {
	s.calls++
	return models.Order{}, models.ErrConcurrencyConflict
}

func TestPublishFailureDoesNotFailPlacement(t *testing.T) {
	f := newFixture(t)
	failing := fanout.PublisherFunc(func(context.Context, string, []byte) error {
		return errors.New("redis: connection refused")
	})
	notifier := fanout.NewNotifier(failing, time.Second, logger.Discard())
	svc := NewService(f.store.Orders(), f.store.Tables(), f.store.Menus(), notifier, logger.Discard())

	order, err := svc.PlaceOrder(context.Background(), seed.RestaurantID, "tbl_001", pizzas(1), "", models.TraceContext{})
	require.NoError(t, err)

	_, err = f.store.Orders().Get(context.Background(), order.OrderID)
	assert.NoError(t, err)
}

func TestTransitionIgnoresCallerCancellation(t *testing.T) {
	f := newFixture(t)
	placed := f.place(t, pizzas(1), "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got, err := f.service.AcceptOrder(ctx, placed.OrderID, models.TraceContext{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, got.Status)
}
