package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/percorso-labs/percorso-api/internal/service"
	"github.com/percorso-labs/percorso-api/internal/utils"
)

// ProgressHandler wires the client dashboard endpoint.
type ProgressHandler struct {
	progress service.ProgressService
	logger   zerolog.Logger
}

// NewProgressHandler constructs the handler.
func NewProgressHandler(progress service.ProgressService, logger zerolog.Logger) *ProgressHandler {
	return &ProgressHandler{
		progress: progress,
		logger:   logger.With().Str("component", "progress_handler").Logger(),
	}
}

// Register attaches the dashboard endpoint to the router group.
func (h *ProgressHandler) Register(router fiber.Router) {
	router.Get("", h.get)
}

func (h *ProgressHandler) get(c *fiber.Ctx) error {
	clientID := userIDFromContext(c)
	if clientID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	dashboard, err := h.progress.GetProgress(c.Context(), clientID)
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "progress retrieved", dashboard)
}
