package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/service"
)

// CatalogHandler serves the enum tables.
type CatalogHandler struct {
	service *service.CatalogService
}

// NewCatalogHandler constructs handler.
func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: catalog}
}

// GetCatalog GET /api/catalog.
func (h *CatalogHandler) GetCatalog(c *fiber.Ctx) error {
	catalog, err := h.service.Get(c.UserContext())
	if err != nil {
		return err
	}
	resp := dto.CatalogResponse{
		Statuses:   make([]dto.StatusResponse, 0, len(catalog.Statuses)),
		Priorities: make([]dto.EnumResponse, 0, len(catalog.Priorities)),
		Branches:   make([]dto.EnumResponse, 0, len(catalog.Branches)),
	}
	for _, s := range catalog.Statuses {
		resp.Statuses = append(resp.Statuses, dto.StatusResponse{ID: s.ID, Name: s.Name, IsClosed: s.IsClosed})
	}
	for _, p := range catalog.Priorities {
		resp.Priorities = append(resp.Priorities, dto.EnumResponse{ID: p.ID, Name: p.Name})
	}
	for _, b := range catalog.Branches {
		resp.Branches = append(resp.Branches, dto.EnumResponse{ID: b.ID, Name: b.Name})
	}
	return c.JSON(fiber.Map{"data": resp})
}
