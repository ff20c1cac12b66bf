package handlers

import (
	"tripcatalog/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// DestinationHandler serves the public, read-only catalog.
type DestinationHandler struct {
	catalog *services.CatalogService
	log     logrus.FieldLogger
}

// NewDestinationHandler creates a new DestinationHandler.
func NewDestinationHandler(catalog *services.CatalogService, log logrus.FieldLogger) *DestinationHandler {
	return &DestinationHandler{catalog: catalog, log: log}
}

// RegisterRoutes registers the public destination routes.
func (h *DestinationHandler) RegisterRoutes(router fiber.Router) {
	destinations := router.Group("/destinations")
	destinations.Get("/", h.HandleList)
	// must precede "/:id"
	destinations.Get("/filter/featured", h.HandleFeatured)
	destinations.Get("/:id", h.HandleGet)
}

// HandleList returns every destination, newest first.
func (h *DestinationHandler) HandleList(c *fiber.Ctx) error {
	list, err := h.catalog.PublicList(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(list)
}

// HandleFeatured returns the featured destinations.
func (h *DestinationHandler) HandleFeatured(c *fiber.Ctx) error {
	list, err := h.catalog.PublicFeatured(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(list)
}

// HandleGet returns a single destination.
func (h *DestinationHandler) HandleGet(c *fiber.Ctx) error {
	dest, err := h.catalog.PublicGet(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dest)
}
