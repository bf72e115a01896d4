package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/percorso-labs/percorso-api/internal/dto"
	"github.com/percorso-labs/percorso-api/internal/service"
	"github.com/percorso-labs/percorso-api/internal/utils"
)

// DraftHandler wires the draft persistence endpoints.
type DraftHandler struct {
	drafts service.DraftService
	logger zerolog.Logger
}

// NewDraftHandler constructs the handler.
func NewDraftHandler(drafts service.DraftService, logger zerolog.Logger) *DraftHandler {
	return &DraftHandler{
		drafts: drafts,
		logger: logger.With().Str("component", "draft_handler").Logger(),
	}
}

// Register attaches draft endpoints to the router group.
func (h *DraftHandler) Register(router fiber.Router) {
	router.Get("/:id/draft", h.get)
	router.Put("/:id/draft", h.save)
}

func (h *DraftHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	draft, err := h.drafts.Get(c.Context(), id, actorFromContext(c))
	if err != nil {
		// A missing draft is the normal state of a fresh assignment, not a
		// failure the client should surface.
		if errors.Is(err, service.ErrDraftNotFound) {
			return utils.SendSuccess(c, "no draft", nil)
		}
		return sendServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "draft retrieved", draft)
}

func (h *DraftHandler) save(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.DraftSaveRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	draft, err := h.drafts.Save(c.Context(), id, actorFromContext(c), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "draft saved", draft)
}
