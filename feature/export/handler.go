package export

import (
	"errors"

	"graph-store/core/logger"
	"graph-store/core/model"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for exports.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the export routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/export")
	group.Post("/", h.HandleExportAll)
	group.Post("/:entity", h.HandleExport)
	group.Get("/:entity", h.HandleDownload)
}

// HandleExportAll snapshots every entity to the bucket.
// @Summary Export All Entities
// @Description Writes a JSON snapshot of every entity to exports/ in the bucket.
// @Tags export
// @Produce json
// @Success 200 {array} map[string]interface{} "Snapshots"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /export [post]
func (h *Handler) HandleExportAll(c *fiber.Ctx) error {
	return h.export(c)
}

// HandleExport snapshots one entity to the bucket.
// @Summary Export Entity
// @Description Writes a JSON snapshot of one entity to exports/ in the bucket.
// @Tags export
// @Produce json
// @Param entity path string true "Entity name"
// @Success 200 {array} map[string]interface{} "Snapshots"
// @Failure 404 {object} map[string]string "Unknown entity"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /export/{entity} [post]
func (h *Handler) HandleExport(c *fiber.Ctx) error {
	return h.export(c, c.Params("entity"))
}

// HandleDownload returns the snapshot of one entity in the response body.
// @Summary Download Entity
// @Description Returns every object of the entity as a JSON array.
// @Tags export
// @Produce json
// @Param entity path string true "Entity name"
// @Success 200 {array} map[string]interface{} "Objects"
// @Failure 404 {object} map[string]string "Unknown entity"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /export/{entity} [get]
func (h *Handler) HandleDownload(c *fiber.Ctx) error {
	data, _, err := h.service.Encode(c.Context(), c.Params("entity"))
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(data)
}

func (h *Handler) export(c *fiber.Ctx, entities ...string) error {
	l := logger.WithRayID(h.service.logger, c)

	snapshots, err := h.service.Export(c.Context(), entities...)
	if err != nil {
		l.Error("Export failed", zap.Strings("entities", entities), zap.Error(err))
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{
		"status":    "exported",
		"snapshots": snapshots,
	})
}

func statusFor(err error) int {
	if errors.Is(err, model.ErrUnknownEntity) {
		return fiber.StatusNotFound
	}
	return fiber.StatusInternalServerError
}
