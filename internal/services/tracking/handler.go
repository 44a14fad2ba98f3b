package tracking

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Vivek-k24/foodbiz/internal/logger"
	"github.com/Vivek-k24/foodbiz/internal/models"
	"github.com/Vivek-k24/foodbiz/internal/server"
)

// Handler handles HTTP requests for the tracking service
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates a new tracking handler
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

func (h *Handler) SetupRoutes(e *echo.Echo) {
	e.GET("/v1/orders/:order_id", h.GetOrder)
	e.GET("/v1/restaurants/:restaurant_id/kitchen/orders", h.KitchenQueue)
	e.GET("/v1/restaurants/:restaurant_id/tables/:table_id/orders", h.TableOrders)
}

// GetOrder handles GET /v1/orders/{order_id}
func (h *Handler) GetOrder(c echo.Context) error {
	order, err := h.service.GetOrder(c.Request().Context(), c.Param("order_id"))
	if err != nil {
		return server.WriteError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, order)
}

// KitchenQueue handles GET /v1/restaurants/{restaurant_id}/kitchen/orders
func (h *Handler) KitchenQueue(c echo.Context) error {
	params, err := server.ParseListParams(c, models.ErrInvalidKitchenQueueStatus)
	if err != nil {
		return server.WriteError(c, h.logger, err)
	}

	page, err := h.service.KitchenQueue(c.Request().Context(), c.Param("restaurant_id"),
		params.Status, params.Limit, params.Cursor, server.RequestID(c))
	if err != nil {
		return server.WriteError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, page)
}

// TableOrders handles GET /v1/restaurants/{restaurant_id}/tables/{table_id}/orders
func (h *Handler) TableOrders(c echo.Context) error {
	params, err := server.ParseListParams(c, models.ErrInvalidTableOrdersStatus)
	if err != nil {
		return server.WriteError(c, h.logger, err)
	}

	page, err := h.service.TableOrders(c.Request().Context(), c.Param("restaurant_id"), c.Param("table_id"),
		params.Status, params.Limit, params.Cursor)
	if err != nil {
		return server.WriteError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, page)
}
