package table

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Vivek-k24/foodbiz/internal/logger"
	"github.com/Vivek-k24/foodbiz/internal/models"
	"github.com/Vivek-k24/foodbiz/internal/server"
)

type Handler struct {
	service *Service
	logger  *logger.Logger
}

func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

func (h *Handler) SetupRoutes(e *echo.Echo) {
	g := e.Group("/v1/restaurants/:restaurant_id/tables")
	g.GET("", h.ListTables)
	g.POST("/:table_id/open", h.OpenTable)
	g.POST("/:table_id/close", h.CloseTable)
	g.GET("/:table_id", h.GetTable)
	g.GET("/:table_id/summary", h.GetTableSummary)
}

func (h *Handler) OpenTable(c echo.Context) error {
	table, err := h.service.OpenTable(c.Request().Context(), c.Param("restaurant_id"), c.Param("table_id"), server.TraceContext(c))
	if err != nil {
		return server.WriteError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, table)
}

func (h *Handler) CloseTable(c echo.Context) error {
	table, err := h.service.CloseTable(c.Request().Context(), c.Param("restaurant_id"), c.Param("table_id"), server.TraceContext(c))
	if err != nil {
		return server.WriteError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, table)
}

func (h *Handler) GetTable(c echo.Context) error {
	table, err := h.service.GetTable(c.Request().Context(), c.Param("restaurant_id"), c.Param("table_id"))
	if err != nil {
		return server.WriteError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, table)
}

func (h *Handler) GetTableSummary(c echo.Context) error {
	summary, err := h.service.GetTableSummary(c.Request().Context(), c.Param("restaurant_id"), c.Param("table_id"))
	if err != nil {
		return server.WriteError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *Handler) ListTables(c echo.Context) error {
	params, err := server.ParseListParams(c, models.ErrInvalidTableRegistryStatus)
	if err != nil {
		return server.WriteError(c, h.logger, err)
	}
	registry, err := h.service.ListTables(c.Request().Context(), c.Param("restaurant_id"),
		params.Status, params.Limit, params.Cursor, server.RequestID(c))
	if err != nil {
		return server.WriteError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, registry)
}
