package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Vivek-k24/foodbiz/internal/logger"
	"github.com/Vivek-k24/foodbiz/internal/models"
)

func newTracedServer(t *testing.T) (*echo.Echo, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return New(Options{Logger: logger.Discard(), TracerProvider: tp}), recorder
}

func attr(attrs []attribute.KeyValue, key string) attribute.Value {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value
		}
	}
	return attribute.Value{}
}

func TestTracingPropagatesTraceID(t *testing.T) {
	e, recorder := newTracedServer(t)
	var seen models.TraceContext
	e.GET("/v1/orders/:order_id", func(c echo.Context) error {
		seen = TraceContext(c)
		return c.NoContent(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/orders/ord_1", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-123")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(echo.HeaderXRequestID))
	assert.Equal(t, "req-123", seen.RequestID)
	require.Len(t, seen.TraceID, 32)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "GET /v1/orders/:order_id", span.Name())
	assert.Equal(t, seen.TraceID, span.SpanContext().TraceID().String())
	assert.Equal(t, int64(http.StatusNoContent), attr(span.Attributes(), "http.response.status_code").AsInt64())
	assert.Equal(t, "req-123", attr(span.Attributes(), "http.request_id").AsString())
	assert.Equal(t, codes.Unset, span.Status().Code)
}

func TestTracingMarksServerErrors(t *testing.T) {
	e, recorder := newTracedServer(t)
	e.GET("/boom", func(c echo.Context) error {
		return WriteError(c, logger.Discard(), errors.New("database is down"))
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"INTERNAL_ERROR"`)
	assert.NotContains(t, rec.Body.String(), "database is down")

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestRequestIDIsGenerated(t *testing.T) {
	e := New(Options{Logger: logger.Discard()})
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, RequestID(c)) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	id := rec.Header().Get(echo.HeaderXRequestID)
	assert.Len(t, id, 36)
	assert.Equal(t, id, rec.Body.String())
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind models.ErrorKind
		want int
	}{
		{models.KindNotFound, http.StatusNotFound},
		{models.KindInvalidTransition, http.StatusConflict},
		{models.KindConflict, http.StatusConflict},
		{models.KindInvalidInput, http.StatusBadRequest},
		{models.KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.kind))
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	e := New(Options{Logger: logger.Discard()})
	e.POST("/v1/orders/:order_id/accept", func(c echo.Context) error { return nil })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/orders/ord_1/accept", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"METHOD_NOT_ALLOWED"`)
}

func TestParseListParams(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    ListParams
		wantErr bool
	}{
		{name: "defaults", query: "", want: ListParams{Status: "ALL", Limit: DefaultLimit}},
		{name: "explicit", query: "status=placed&limit=5&cursor=abc", want: ListParams{Status: "placed", Limit: 5, Cursor: "abc"}},
		{name: "zero limit", query: "limit=0", wantErr: true},
		{name: "too large", query: "limit=201", wantErr: true},
		{name: "not a number", query: "limit=ten", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil), httptest.NewRecorder())
			got, err := ParseListParams(c, models.ErrInvalidKitchenQueueStatus)
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrInvalidKitchenQueueStatus)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	e := echo.New()
	var v struct {
		Lines []string `json:"lines"`
	}

	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"lines":["a"]}`)), httptest.NewRecorder())
	require.NoError(t, DecodeJSON(c, &v))
	assert.Equal(t, []string{"a"}, v.Lines)

	c = e.NewContext(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"lines":[],"extra":1}`)), httptest.NewRecorder())
	assert.ErrorIs(t, DecodeJSON(c, &v), models.ErrValidation)
}

func TestHealth(t *testing.T) {
	e := New(Options{Logger: logger.Discard()})
	healthy := true
	RegisterHealth(e, "order-service", HealthCheck{Name: "database", Check: func(context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("connection refused")
	}})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"ok"`)

	healthy = false
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"unhealthy"`)
}
