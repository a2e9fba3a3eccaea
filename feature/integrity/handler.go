package integrity

import (
	"errors"

	"graph-store/core/logger"
	"graph-store/core/model"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for integrity checks.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the integrity routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/integrity")
	group.Get("/", h.HandleIntegrityCheck)
	group.Get("/structure", h.HandleStructureCheck)
	group.Get("/duplicates", h.HandleDuplicatesCheck)
	group.Get("/duplicates/:entity", h.HandleDuplicatesCheck)
	group.Get("/schema", h.HandleSchemaCheck)
}

// HandleIntegrityCheck runs every check.
// @Summary Run All Integrity Checks
// @Description Runs the structure, duplicates and schema checks. Concurrent requests share one run.
// @Tags integrity
// @Produce json
// @Success 200 {object} map[string]interface{} "Combined Report"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity [get]
func (h *Handler) HandleIntegrityCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	l.Info("Triggering all integrity checks")

	report, err := h.service.Run(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(report)
}

// HandleStructureCheck checks and, with ?fix=true, repairs the bucket layout.
// @Summary Check Structure
// @Description Checks that the imports and exports folders exist in the bucket. Optionally creates the missing ones.
// @Tags integrity
// @Produce json
// @Param fix query boolean false "Fix missing folders"
// @Success 200 {object} map[string]interface{} "Structure Report"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/structure [get]
func (h *Handler) HandleStructureCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	fix := c.Query("fix") == "true"

	missing, err := h.service.CheckStructure(c.Context())
	if err != nil {
		l.Error("Structure check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if len(missing) > 0 {
		l.Warn("Missing folders detected", zap.Strings("missing", missing))

		if fix {
			l.Info("Attempting to fix missing folders")
			if err := h.service.FixStructure(c.Context(), missing); err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error":   "Failed to fix structure",
					"details": err.Error(),
					"missing": missing,
				})
			}
			return c.JSON(fiber.Map{
				"status": "fixed",
				"fixed":  missing,
			})
		}
	}

	return c.JSON(fiber.Map{
		"status":  "checked",
		"missing": missing,
	})
}

// HandleDuplicatesCheck reports identifiers stored more than once, for one
// entity or for all of them.
// @Summary Check Duplicates
// @Description Lists identifiers stored more than once, for one entity or for every entity.
// @Tags integrity
// @Produce json
// @Param entity path string false "Entity name"
// @Success 200 {object} map[string]interface{} "Duplicate Report"
// @Failure 404 {object} map[string]string "Unknown entity"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/duplicates [get]
// @Router /integrity/duplicates/{entity} [get]
func (h *Handler) HandleDuplicatesCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var entities []string
	if entity := c.Params("entity"); entity != "" {
		entities = append(entities, entity)
	}

	report, err := h.service.CheckDuplicates(c.Context(), entities...)
	if err != nil {
		l.Error("Duplicate check failed", zap.Error(err))
		status := fiber.StatusInternalServerError
		if errors.Is(err, model.ErrUnknownEntity) {
			status = fiber.StatusNotFound
		}
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(report)
}

// HandleSchemaCheck verifies the objects table.
// @Summary Check Schema
// @Description Compares the objects table with the columns the database backend expects.
// @Tags integrity
// @Produce json
// @Success 200 {object} map[string]interface{} "Schema Report"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/schema [get]
func (h *Handler) HandleSchemaCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	report, err := h.service.CheckSchema()
	if err != nil {
		l.Error("Schema check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(report)
}
