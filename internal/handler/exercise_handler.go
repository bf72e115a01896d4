package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/percorso-labs/percorso-api/internal/dto"
	"github.com/percorso-labs/percorso-api/internal/service"
	"github.com/percorso-labs/percorso-api/internal/utils"
)

// ExerciseHandler wires the exercise authoring routes.
type ExerciseHandler struct {
	exercises service.ExerciseService
	uploads   service.UploadService
	logger    zerolog.Logger
}

// NewExerciseHandler constructs the handler. The upload service may be nil
// when attachment storage is not configured.
func NewExerciseHandler(exercises service.ExerciseService, uploads service.UploadService, logger zerolog.Logger) *ExerciseHandler {
	return &ExerciseHandler{
		exercises: exercises,
		uploads:   uploads,
		logger:    logger.With().Str("component", "exercise_handler").Logger(),
	}
}

// Register attaches exercise endpoints to the router group.
func (h *ExerciseHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Post("/:id/attachments", h.attach)
}

func (h *ExerciseHandler) list(c *fiber.Ctx) error {
	var req dto.ExerciseListRequest
	if err := c.QueryParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 || req.PageSize > 100 {
		req.PageSize = 20
	}

	result, err := h.exercises.List(c.Context(), req)
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "exercises retrieved", result)
}

func (h *ExerciseHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	exercise, err := h.exercises.Get(c.Context(), id)
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "exercise retrieved", exercise)
}

func (h *ExerciseHandler) create(c *fiber.Ctx) error {
	var payload dto.ExerciseCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	exercise, err := h.exercises.Create(c.Context(), actorFromContext(c), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "exercise created", exercise)
}

func (h *ExerciseHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ExerciseUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	exercise, err := h.exercises.Update(c.Context(), id, actorFromContext(c), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "exercise updated", exercise)
}

func (h *ExerciseHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.exercises.Delete(c.Context(), id, actorFromContext(c)); err != nil {
		return sendServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "exercise deleted", fiber.Map{"id": id})
}

func (h *ExerciseHandler) attach(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if h.uploads == nil {
		return utils.SendError(c, fiber.StatusServiceUnavailable, "attachment storage not configured")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	actorID := userIDFromContext(c)
	upload, err := h.uploads.Upload(c.Context(), file, &actorID)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrUploadTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrUploadTypeNotAllowed), errors.Is(err, service.ErrUploadScanFailed):
		return utils.SendError(c, fiber.StatusUnsupportedMediaType, err.Error())
	default:
		return sendServiceError(c, h.logger, err)
	}

	exercise, err := h.exercises.AttachFile(c.Context(), id, actorFromContext(c), upload.URL)
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "attachment added", exercise)
}
