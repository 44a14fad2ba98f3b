package server

import (
	"io"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/trace"

	"github.com/Vivek-k24/foodbiz/internal/models"
)

const (
	maxBodySize  = 64 << 10
	DefaultLimit = 50
	MaxLimit     = 200
)

// RequestID returns the id assigned by the request id middleware.
func RequestID(c echo.Context) string {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}

// TraceContext collects the correlation ids of the current request.
func TraceContext(c echo.Context) models.TraceContext {
	tc := models.TraceContext{RequestID: RequestID(c)}
	if sc := trace.SpanContextFromContext(c.Request().Context()); sc.HasTraceID() {
		tc.TraceID = sc.TraceID().String()
	}
	return tc
}

// DecodeJSON decodes a size-limited body into v, rejecting unknown fields.
func DecodeJSON(c echo.Context, v interface{}) error {
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(c.Request().Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return models.ErrValidation.New("invalid JSON body: %v", err)
	}
	return nil
}

// ListParams are the query parameters shared by listing endpoints.
type ListParams struct {
	Status string
	Limit  int
	Cursor string
}

// ParseListParams reads status, limit and cursor. invalid is returned for a
// limit that is not a number between 1 and MaxLimit.
func ParseListParams(c echo.Context, invalid *models.Error) (ListParams, error) {
	p := ListParams{
		Status: c.QueryParam("status"),
		Limit:  DefaultLimit,
		Cursor: c.QueryParam("cursor"),
	}
	if p.Status == "" {
		p.Status = "ALL"
	}
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxLimit {
			return ListParams{}, invalid.New("limit must be between 1 and %d", MaxLimit)
		}
		p.Limit = n
	}
	return p, nil
}
