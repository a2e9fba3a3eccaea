package importer

import (
	"errors"

	"graph-store/core/graph"
	"graph-store/core/logger"
	"graph-store/core/model"
	"graph-store/core/reconcile"
	"graph-store/core/store"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for imports and lookups.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the import routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	app.Post("/import/:entity", h.HandleImport)
	app.Get("/objects/:entity/:uid", h.HandleLookup)
}

// HandleImport imports the JSON array in the request body, or the bucket
// object named by the "object" query parameter. The "mode" query parameter
// selects the path (auto, simple, batch).
// @Summary Import Records
// @Description Reconciles a JSON array of flat records into the entity, creating or updating one object per identifier. The records come from the request body or from a bucket object.
// @Tags importer
// @Accept json
// @Produce json
// @Param entity path string true "Entity name"
// @Param mode query string false "Reconciliation path" Enums(auto, simple, batch)
// @Param object query string false "Bucket object to import instead of the body"
// @Success 200 {object} map[string]interface{} "Import Report"
// @Failure 400 {object} map[string]string "Invalid mode or missing identifier"
// @Failure 404 {object} map[string]string "Unknown entity"
// @Failure 409 {object} map[string]string "Conflicting write"
// @Failure 422 {object} map[string]string "Validation failed"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /import/{entity} [post]
func (h *Handler) HandleImport(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	entity := c.Params("entity")

	mode, err := ParseMode(c.Query("mode"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var report *Report
	if name := c.Query("object"); name != "" {
		report, err = h.service.ImportObject(c.Context(), entity, name, mode)
	} else {
		report, err = h.service.Import(c.Context(), entity, c.Body(), mode)
	}
	if err != nil {
		l.Error("Import failed", zap.String("entity", entity), zap.Error(err))
		body := fiber.Map{"error": err.Error()}
		if report != nil {
			body["report"] = report
		}
		return c.Status(StatusFor(err)).JSON(body)
	}

	return c.JSON(report)
}

// HandleLookup returns one object by its unique identifier.
// @Summary Lookup Object
// @Description Returns the stored fields of one object and its stable reference.
// @Tags importer
// @Produce json
// @Param entity path string true "Entity name"
// @Param uid path string true "Unique identifier"
// @Success 200 {object} map[string]interface{} "Object"
// @Failure 404 {object} map[string]string "Unknown entity or object"
// @Router /objects/{entity}/{uid} [get]
func (h *Handler) HandleLookup(c *fiber.Ctx) error {
	obj, err := h.service.Lookup(c.Context(), c.Params("entity"), c.Params("uid"))
	if err != nil {
		return c.Status(StatusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(obj)
}

// StatusFor maps service errors to HTTP status codes.
func StatusFor(err error) int {
	var validationErr *model.ValidationError
	switch {
	case errors.Is(err, model.ErrUnknownEntity), errors.Is(err, graph.ErrObjectNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, store.ErrConflict), errors.Is(err, reconcile.ErrReentrantReconcile):
		return fiber.StatusConflict
	case errors.As(err, &validationErr):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, ErrInvalidMode), errors.Is(err, graph.ErrMissingIdentifier):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}
