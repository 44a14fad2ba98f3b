package table

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vivek-k24/foodbiz/internal/logger"
	"github.com/Vivek-k24/foodbiz/internal/memstore"
	"github.com/Vivek-k24/foodbiz/internal/models"
	"github.com/Vivek-k24/foodbiz/internal/server"
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

func newService(t *testing.T) (*Service, *memstore.Store, *recordingNotifier) {
	t.Helper()
	store := memstore.New()
	store.PutRestaurant("rst_001", "Downtown")
	notifier := &recordingNotifier{}
	svc := NewService(store.Tables(), store.Orders(), notifier, logger.Discard())
	svc.now = func() time.Time { return base }
	return svc, store, notifier
}

func addOrder(t *testing.T, store *memstore.Store, id string) {
	t.Helper()
	price := models.Money{AmountCents: 1450, Currency: "USD"}
	line, err := models.NewOrderLine("orl_"+id, "itm_001", "Margherita Pizza", 2, price, nil)
	require.NoError(t, err)
	order, err := models.NewPlacedOrder(id, "rst_001", "tbl_001", []models.OrderLine{line}, base)
	require.NoError(t, err)
	require.NoError(t, store.Orders().Add(context.Background(), order))
}

func TestOpenTable(t *testing.T) {
	svc, _, notifier := newService(t)
	ctx := context.Background()

	opened, err := svc.OpenTable(ctx, "rst_001", "tbl_001", models.TraceContext{RequestID: "req-1"})
	require.NoError(t, err)
	assert.Equal(t, models.TableOpen, opened.Status)
	require.NotNil(t, opened.OpenedAt)
	assert.Nil(t, opened.ClosedAt)

	again, err := svc.OpenTable(ctx, "rst_001", "tbl_001", models.TraceContext{})
	require.NoError(t, err)
	assert.Equal(t, opened, again)
	assert.Equal(t, []string{models.EventTableOpened}, notifier.types())

	payload, ok := notifier.events[0].Payload.(models.TableEventPayload)
	require.True(t, ok)
	assert.Equal(t, "tbl_001", payload.TableID)
	assert.Equal(t, models.TableOpen, payload.Status)
}

func TestCloseBlockedUntilOrdersReady(t *testing.T) {
	svc, store, notifier := newService(t)
	ctx := context.Background()
	_, err := svc.OpenTable(ctx, "rst_001", "tbl_001", models.TraceContext{})
	require.NoError(t, err)
	addOrder(t, store, "ord_1")

	_, err = svc.CloseTable(ctx, "rst_001", "tbl_001", models.TraceContext{})
	require.ErrorIs(t, err, models.ErrTableCloseBlocked)
	var blocked *models.Error
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, "HAS_NON_READY_ORDERS", blocked.Details["reason"])
	assert.Equal(t, 1, blocked.Details["placed"])

	_, err = store.Orders().UpdateStatusWithVersion(ctx, "ord_1", models.StatusAccepted, 1)
	require.NoError(t, err)
	_, err = svc.CloseTable(ctx, "rst_001", "tbl_001", models.TraceContext{})
	require.ErrorIs(t, err, models.ErrTableCloseBlocked)

	_, err = store.Orders().UpdateStatusWithVersion(ctx, "ord_1", models.StatusReady, 2)
	require.NoError(t, err)
	closed, err := svc.CloseTable(ctx, "rst_001", "tbl_001", models.TraceContext{})
	require.NoError(t, err)
	assert.Equal(t, models.TableClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)
	assert.NotNil(t, closed.OpenedAt)

	assert.Equal(t, []string{models.EventTableOpened, models.EventTableClosed}, notifier.types())
}

func TestCloseTableRejections(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CloseTable(ctx, "rst_001", "tbl_404", models.TraceContext{})
	assert.ErrorIs(t, err, models.ErrTableNotFound)

	_, err = svc.OpenTable(ctx, "rst_001", "tbl_001", models.TraceContext{})
	require.NoError(t, err)
	_, err = svc.CloseTable(ctx, "rst_001", "tbl_001", models.TraceContext{})
	require.NoError(t, err)
	_, err = svc.CloseTable(ctx, "rst_001", "tbl_001", models.TraceContext{})
	assert.ErrorIs(t, err, models.ErrTableNotOpen)

	reopened, err := svc.OpenTable(ctx, "rst_001", "tbl_001", models.TraceContext{})
	require.NoError(t, err)
	assert.Equal(t, models.TableOpen, reopened.Status)
	assert.Nil(t, reopened.ClosedAt)
}

func TestGetTableSummary(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	_, err := svc.OpenTable(ctx, "rst_001", "tbl_001", models.TraceContext{})
	require.NoError(t, err)

	empty, err := svc.GetTableSummary(ctx, "rst_001", "tbl_001")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Counts.OrdersTotal)
	assert.Equal(t, models.Money{AmountCents: 0, Currency: "USD"}, empty.Totals)

	addOrder(t, store, "ord_1")
	addOrder(t, store, "ord_2")
	summary, err := svc.GetTableSummary(ctx, "rst_001", "tbl_001")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Counts.OrdersTotal)
	assert.Equal(t, 2, summary.Counts.Placed)
	assert.Equal(t, int64(5800), summary.Totals.AmountCents)
	require.NotNil(t, summary.LastOrderAt)

	_, err = svc.GetTableSummary(ctx, "rst_001", "tbl_404")
	assert.ErrorIs(t, err, models.ErrTableNotFound)
}

func TestListTables(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	for _, id := range []string{"tbl_002", "tbl_001", "tbl_003"} {
		_, err := svc.OpenTable(ctx, "rst_001", id, models.TraceContext{})
		require.NoError(t, err)
	}
	_, err := svc.CloseTable(ctx, "rst_001", "tbl_003", models.TraceContext{})
	require.NoError(t, err)

	page, err := svc.ListTables(ctx, "rst_001", "ALL", 2, "", "")
	require.NoError(t, err)
	require.Len(t, page.Tables, 2)
	assert.Equal(t, "tbl_001", page.Tables[0].TableID)
	require.NotNil(t, page.NextCursor)

	page, err = svc.ListTables(ctx, "rst_001", "ALL", 2, *page.NextCursor, "")
	require.NoError(t, err)
	require.Len(t, page.Tables, 1)
	assert.Equal(t, "tbl_003", page.Tables[0].TableID)
	assert.Nil(t, page.NextCursor)

	page, err = svc.ListTables(ctx, "rst_001", "open", 50, "", "")
	require.NoError(t, err)
	assert.Len(t, page.Tables, 2)

	_, err = svc.ListTables(ctx, "rst_404", "ALL", 50, "", "")
	assert.ErrorIs(t, err, models.ErrRestaurantNotFound)

	_, err = svc.ListTables(ctx, "rst_001", "RESERVED", 50, "", "")
	assert.ErrorIs(t, err, models.ErrInvalidTableRegistryStatus)

	_, err = svc.ListTables(ctx, "rst_001", "ALL", 50, "***", "")
	assert.ErrorIs(t, err, models.ErrInvalidTableRegistryCursor)
}

func TestHandlerCloseBlocked(t *testing.T) {
	svc, store, _ := newService(t)
	e := server.New(server.Options{Logger: logger.Discard()})
	NewHandler(svc, logger.Discard()).SetupRoutes(e)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/restaurants/rst_001/tables/tbl_001/open", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	addOrder(t, store, "ord_1")

	req := httptest.NewRequest(http.MethodPost, "/v1/restaurants/rst_001/tables/tbl_001/close", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-close")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusConflict, rec.Code)

	var body struct {
		Error struct {
			Code    string                 `json:"code"`
			Details map[string]interface{} `json:"details"`
		} `json:"error"`
		RequestID string `json:"requestId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "TABLE_CLOSE_BLOCKED", body.Error.Code)
	assert.Equal(t, "HAS_NON_READY_ORDERS", body.Error.Details["reason"])
	assert.Equal(t, float64(1), body.Error.Details["placed"])
	assert.Equal(t, "req-close", body.RequestID)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/restaurants/rst_001/tables/tbl_001/summary", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ordersTotal":1`)
	assert.Contains(t, rec.Body.String(), `"tableId":"tbl_001"`)
}
