package handler

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/percorso-labs/percorso-api/internal/autosave"
	"github.com/percorso-labs/percorso-api/internal/dto"
	"github.com/percorso-labs/percorso-api/internal/middleware"
	"github.com/percorso-labs/percorso-api/internal/models"
	"github.com/percorso-labs/percorso-api/internal/service"
)

// SessionHandler serves the live editing websocket. Each connection drives an
// autosave session: answer and notes frames feed the debounce, navigate
// frames force an immediate flush.
type SessionHandler struct {
	manager *autosave.Manager
	logger  zerolog.Logger
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(manager *autosave.Manager, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		manager: manager,
		logger:  logger.With().Str("component", "session_handler").Logger(),
	}
}

// Register binds the websocket upgrade route under the provided group.
func (h *SessionHandler) Register(router fiber.Router) {
	router.Use("/:id/session", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			ctx := c.UserContext()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
			c.Locals("request_ctx", ctx)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/:id/session", websocket.New(h.handleConnection))
}

func (h *SessionHandler) handleConnection(conn *websocket.Conn) {
	assignmentID, err := websocketAssignmentID(conn)
	if err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusBadRequest, "invalid assignment id"))
		_ = conn.Close()
		return
	}

	actor := websocketActor(conn)
	if actor.ID == 0 {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusUnauthorized, "user id missing"))
		_ = conn.Close()
		return
	}

	ctx, _ := conn.Locals("request_ctx").(context.Context)
	if ctx == nil {
		ctx = context.Background()
	}

	session, err := h.manager.Open(ctx, assignmentID, actor)
	if err != nil {
		h.logger.Warn().Err(err).Uint("assignment_id", assignmentID).Msg("failed to open editing session")
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusForbidden, "session unavailable"))
		_ = conn.Close()
		return
	}

	h.logger.Info().Uint("assignment_id", assignmentID).Uint("user_id", actor.ID).Msg("editing session connected")

	h.sendState(conn, assignmentID, session)
	h.readLoop(ctx, conn, assignmentID, session)

	if err := h.manager.Close(ctx, assignmentID); err != nil {
		h.logger.Warn().Err(err).Uint("assignment_id", assignmentID).Msg("final draft flush failed")
	}
	h.logger.Info().Uint("assignment_id", assignmentID).Uint("user_id", actor.ID).Msg("editing session disconnected")
}

func (h *SessionHandler) readLoop(ctx context.Context, conn *websocket.Conn, assignmentID uint, session *autosave.Session) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var frame dto.SessionFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			h.logger.Debug().Err(err).Msg("ignoring malformed session frame")
			continue
		}

		answers, notes := session.State()

		switch frame.Type {
		case dto.SessionFrameAnswer:
			if strings.TrimSpace(frame.QuestionID) == "" {
				continue
			}
			if frame.Answer == nil {
				delete(answers, frame.QuestionID)
			} else {
				answers[frame.QuestionID] = *frame.Answer
			}
			session.Update(answers, notes)
		case dto.SessionFrameNotes:
			session.Update(answers, frame.Notes)
		case dto.SessionFrameNavigate:
			// Moving between questions must not lose the edit to the
			// debounce window.
			if err := session.Flush(ctx); err != nil {
				h.logger.Warn().Err(err).Uint("assignment_id", assignmentID).Msg("navigation flush failed")
			}
			h.sendState(conn, assignmentID, session)
		default:
			h.logger.Debug().Str("type", frame.Type).Msg("ignoring unknown session frame type")
		}
	}
}

func (h *SessionHandler) sendState(conn *websocket.Conn, assignmentID uint, session *autosave.Session) {
	answers, notes := session.State()
	state := dto.SessionState{
		Type:            dto.SessionFrameState,
		AssignmentID:    assignmentID,
		Status:          session.Status(),
		Answers:         models.AnswersToList(answers, nil),
		Notes:           notes,
		AutosaveEnabled: session.Enabled(),
	}
	if err := conn.WriteJSON(state); err != nil {
		h.logger.Debug().Err(err).Msg("failed to push session state")
	}
}

func websocketAssignmentID(conn *websocket.Conn) (uint, error) {
	raw := strings.TrimSpace(conn.Params("id"))
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(parsed), nil
}

func websocketActor(conn *websocket.Conn) service.Actor {
	actor := service.Actor{}
	if value := conn.Locals("user_id"); value != nil {
		switch v := value.(type) {
		case uint:
			actor.ID = v
		case int:
			if v > 0 {
				actor.ID = uint(v)
			}
		case float64:
			if v > 0 {
				actor.ID = uint(v)
			}
		case string:
			if parsed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64); err == nil {
				actor.ID = uint(parsed)
			}
		}
	}
	if value := conn.Locals("user_role"); value != nil {
		if role, ok := value.(string); ok {
			actor.Role = role
		}
	}
	return actor
}
