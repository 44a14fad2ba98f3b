package order

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Vivek-k24/foodbiz/internal/logger"
	"github.com/Vivek-k24/foodbiz/internal/models"
	"github.com/Vivek-k24/foodbiz/internal/server"
	"github.com/Vivek-k24/foodbiz/internal/services/order/internal/domain"
	"github.com/Vivek-k24/foodbiz/internal/services/order/internal/validation"
)

const headerIdempotencyKey = "Idempotency-Key"

// Handler handles HTTP requests for the order service
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates a new order handler
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

// SetupRoutes registers the order write endpoints.
func (h *Handler) SetupRoutes(e *echo.Echo) {
	e.POST("/v1/restaurants/:restaurant_id/tables/:table_id/orders", h.PlaceOrder)
	e.POST("/v1/orders/:order_id/accept", h.AcceptOrder)
	e.POST("/v1/orders/:order_id/ready", h.MarkOrderReady)
}

// PlaceOrder handles POST /v1/restaurants/{restaurant_id}/tables/{table_id}/orders
func (h *Handler) PlaceOrder(c echo.Context) error {
	tc := server.TraceContext(c)
	restaurantID := c.Param("restaurant_id")
	tableID := c.Param("table_id")
	key := c.Request().Header.Get(headerIdempotencyKey)

	h.logger.Debug("order_received", "Received order placement request", tc.RequestID, map[string]interface{}{
		"restaurant_id":   restaurantID,
		"table_id":        tableID,
		"idempotency_key": key != "",
	})

	var req domain.PlaceOrderRequest
	if err := server.DecodeJSON(c, &req); err != nil {
		return server.WriteError(c, h.logger, err)
	}
	if err := validation.ValidateIdempotencyKey(key); err != nil {
		return server.WriteError(c, h.logger, validationError(err))
	}
	if err := validation.ValidatePlaceOrderRequest(&req); err != nil {
		return server.WriteError(c, h.logger, validationError(err))
	}

	order, err := h.service.PlaceOrder(c.Request().Context(), restaurantID, tableID, &req, key, tc)
	if err != nil {
		return server.WriteError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, order)
}

// AcceptOrder handles POST /v1/orders/{order_id}/accept
func (h *Handler) AcceptOrder(c echo.Context) error {
	order, err := h.service.AcceptOrder(c.Request().Context(), c.Param("order_id"), server.TraceContext(c))
	if err != nil {
		return server.WriteError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, order)
}

// MarkOrderReady handles POST /v1/orders/{order_id}/ready
func (h *Handler) MarkOrderReady(c echo.Context) error {
	order, err := h.service.MarkOrderReady(c.Request().Context(), c.Param("order_id"), server.TraceContext(c))
	if err != nil {
		return server.WriteError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, order)
}

func validationError(err error) error {
	var verr validation.ValidationError
	if errors.As(err, &verr) {
		return models.ErrValidation.New("%s", verr.Message).WithDetails(map[string]interface{}{
			"field": verr.Field,
		})
	}
	return models.ErrValidation.New("%v", err)
}
