package menu

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Vivek-k24/foodbiz/internal/logger"
	"github.com/Vivek-k24/foodbiz/internal/models"
	"github.com/Vivek-k24/foodbiz/internal/server"
)

// Store returns the current menu of a restaurant or models.ErrNotFound.
type Store interface {
	GetMenu(ctx context.Context, restaurantID string) (models.Menu, error)
}

type Service struct {
	menus Store
}

// NewService serves menus from store, usually a *cache.MenuCache.
func NewService(store Store) *Service {
	return &Service{menus: store}
}

func (s *Service) GetMenu(ctx context.Context, restaurantID string) (models.Menu, error) {
	menu, err := s.menus.GetMenu(ctx, restaurantID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.Menu{}, models.ErrMenuNotFound.New("menu not found for restaurant_id=%s", restaurantID)
		}
		return models.Menu{}, fmt.Errorf("load menu: %w", err)
	}
	if menu.Categories == nil {
		menu.Categories = menu.CategoryIDs()
	}
	if menu.Items == nil {
		menu.Items = []models.MenuItem{}
	}
	return menu, nil
}

type Handler struct {
	service *Service
	logger  *logger.Logger
}

func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

func (h *Handler) SetupRoutes(e *echo.Echo) {
	e.GET("/v1/restaurants/:restaurant_id/menu", h.GetMenu)
}

// GetMenu handles GET /v1/restaurants/{restaurant_id}/menu
func (h *Handler) GetMenu(c echo.Context) error {
	menu, err := h.service.GetMenu(c.Request().Context(), c.Param("restaurant_id"))
	if err != nil {
		return server.WriteError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, menu)
}
