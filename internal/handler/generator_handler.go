package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/percorso-labs/percorso-api/internal/dto"
	"github.com/percorso-labs/percorso-api/internal/service"
	"github.com/percorso-labs/percorso-api/internal/utils"
)

// GeneratorHandler wires the AI exercise drafting endpoint.
type GeneratorHandler struct {
	generator service.GeneratorService
	logger    zerolog.Logger
}

// NewGeneratorHandler constructs the handler.
func NewGeneratorHandler(generator service.GeneratorService, logger zerolog.Logger) *GeneratorHandler {
	return &GeneratorHandler{
		generator: generator,
		logger:    logger.With().Str("component", "generator_handler").Logger(),
	}
}

// Register attaches the generation endpoint to the router group.
func (h *GeneratorHandler) Register(router fiber.Router) {
	router.Post("/generate", h.generate)
}

func (h *GeneratorHandler) generate(c *fiber.Ctx) error {
	var payload dto.GenerateExerciseRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	draft, err := h.generator.Generate(c.Context(), actorFromContext(c), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "exercise draft generated", draft)
}
