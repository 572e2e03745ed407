package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/satria-go-api/internal/dto"
	"github.com/noah-isme/satria-go-api/internal/service"
	"github.com/noah-isme/satria-go-api/internal/utils"
)

// EventHandler exposes the workflow audit feed and the live review stream.
type EventHandler struct {
	events service.WorkflowEventService
	stream service.ReviewEventStream
	logger zerolog.Logger
}

func NewEventHandler(events service.WorkflowEventService, stream service.ReviewEventStream, logger zerolog.Logger) *EventHandler {
	return &EventHandler{
		events: events,
		stream: stream,
		logger: logger.With().Str("component", "event_handler").Logger(),
	}
}

// Register attaches the audit feed routes to the provided router group.
func (h *EventHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/recent", h.listRecent)
}

// RegisterStream mounts the websocket endpoint for live review events.
func (h *EventHandler) RegisterStream(router fiber.Router) {
	router.Use("/ws/reviews", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/ws/reviews", websocket.New(h.streamReviews))
}

func (h *EventHandler) list(c *fiber.Ctx) error {
	var req dto.WorkflowEventListRequest
	if err := c.QueryParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	events, err := h.events.List(c.Context(), req)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("event listing failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "events retrieved", events)
}

func (h *EventHandler) listRecent(c *fiber.Ctx) error {
	var req dto.WorkflowEventListRequest
	if err := c.QueryParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	events, err := h.events.ListRecent(c.Context(), req)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("recent event listing failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "recent events retrieved", events)
}

func (h *EventHandler) streamReviews(conn *websocket.Conn) {
	messages, cancel := h.stream.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Drain client frames so we notice the connection closing.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case message, ok := <-messages:
			if !ok {
				return
			}
			if err := conn.WriteJSON(message); err != nil {
				h.logger.Debug().Err(err).Msg("review stream write failed, closing connection")
				return
			}
		}
	}
}
