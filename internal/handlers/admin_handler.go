package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"

	"tripcatalog/internal/middleware"
	"tripcatalog/internal/models"
	"tripcatalog/internal/services"
	"tripcatalog/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// UploadField is the multipart field carrying image files.
const UploadField = "images"

// AdminHandler serves the administrator catalog operations.
type AdminHandler struct {
	catalog *services.CatalogService
	gate    *services.Gate
	log     logrus.FieldLogger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(catalog *services.CatalogService, gate *services.Gate, log logrus.FieldLogger) *AdminHandler {
	return &AdminHandler{catalog: catalog, gate: gate, log: log}
}

// RegisterRoutes registers the admin routes. Every route is behind AdminRequired.
func (h *AdminHandler) RegisterRoutes(router fiber.Router) {
	admin := router.Group("/admin", middleware.AdminRequired(h.gate, h.log))
	admin.Get("/destinations", h.HandleList)
	admin.Post("/upload", h.HandleUpload)
	admin.Post("/destinations", h.HandleCreate)
	admin.Put("/destinations/:id", h.HandleUpdate)
	admin.Delete("/destinations/:id", h.HandleDelete)
}

func credential(c *fiber.Ctx) string {
	return c.Get(fiber.HeaderAuthorization)
}

// HandleList returns every destination for the admin dashboard.
func (h *AdminHandler) HandleList(c *fiber.Ctx) error {
	list, err := h.catalog.AdminList(c.UserContext(), credential(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(list)
}

// HandleUpload stores the files of the "images" field and returns their URLs.
func (h *AdminHandler) HandleUpload(c *fiber.Ctx) error {
	var headers []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil {
		headers = form.File[UploadField]
	} else {
		h.log.WithError(err).Debug("upload without a multipart body")
	}

	files := make([]storage.File, 0, len(headers))
	var closers []io.Closer
	defer func() {
		for _, cl := range closers {
			cl.Close()
		}
	}()
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return writeError(c, h.log, fmt.Errorf("failed to open upload %s: %w", fh.Filename, err))
		}
		closers = append(closers, f)
		files = append(files, storage.File{
			Name:        fh.Filename,
			ContentType: fh.Header.Get(fiber.HeaderContentType),
			Size:        fh.Size,
			Content:     f,
		})
	}

	urls, err := h.catalog.AdminUpload(c.UserContext(), credential(c), files)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"urls": urls})
}

// HandleCreate creates a destination from a JSON body.
func (h *AdminHandler) HandleCreate(c *fiber.Ctx) error {
	var in models.DestinationInput
	if err := c.BodyParser(&in); err != nil {
		h.log.WithError(err).Debug("error parsing create destination body")
		var validationErr *models.ValidationError
		if errors.As(err, &validationErr) {
			return writeError(c, h.log, validationErr)
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}

	dest, err := h.catalog.AdminCreate(c.UserContext(), credential(c), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dest)
}

// HandleUpdate merges the provided fields into an existing destination.
func (h *AdminHandler) HandleUpdate(c *fiber.Ctx) error {
	var patch models.DestinationPatch
	if err := c.BodyParser(&patch); err != nil {
		h.log.WithError(err).Debug("error parsing update destination body")
		var validationErr *models.ValidationError
		if errors.As(err, &validationErr) {
			return writeError(c, h.log, validationErr)
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}

	dest, err := h.catalog.AdminUpdate(c.UserContext(), credential(c), c.Params("id"), patch)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dest)
}

// HandleDelete removes a destination and its images.
func (h *AdminHandler) HandleDelete(c *fiber.Ctx) error {
	if err := h.catalog.AdminDelete(c.UserContext(), credential(c), c.Params("id")); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": "Destination deleted successfully"})
}
