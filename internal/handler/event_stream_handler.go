package handler

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/scolarite-api/internal/dto"
	"github.com/noah-isme/scolarite-api/internal/service"
)

// EventStreamConnected is the first event a websocket subscriber receives.
const EventStreamConnected = "stream.connected"

const eventStreamPingInterval = 30 * time.Second

// EventStreamHandler pushes domain events to websocket clients.
type EventStreamHandler struct {
	events       service.EventService
	logger       zerolog.Logger
	pingInterval time.Duration
}

// NewEventStreamHandler constructs the handler.
func NewEventStreamHandler(events service.EventService, logger zerolog.Logger) *EventStreamHandler {
	return &EventStreamHandler{
		events:       events,
		logger:       logger.With().Str("component", "event_stream_handler").Logger(),
		pingInterval: eventStreamPingInterval,
	}
}

// Register binds the websocket upgrade route. Clients may pass a
// comma-separated "types" query to receive only events whose type starts
// with one of the given prefixes.
func (h *EventStreamHandler) Register(router fiber.Router) {
	router.Use(func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("", websocket.New(h.stream))
}

func (h *EventStreamHandler) stream(conn *websocket.Conn) {
	filters := parseTypeFilters(conn.Query("types"))
	events, cleanup := h.events.Subscribe()
	defer cleanup()
	defer func() { _ = conn.Close() }()

	hello := dto.EventResponse{
		Type:       EventStreamConnected,
		OccurredAt: time.Now().UTC(),
		Payload:    map[string]interface{}{"types": filters},
	}
	if err := conn.WriteJSON(hello); err != nil {
		h.logger.Debug().Err(err).Msg("event stream handshake failed")
		return
	}

	h.logger.Debug().Strs("types", filters).Msg("event stream connected")

	// Client frames are discarded; reading detects disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if !matchesTypeFilters(event.Type, filters) {
				continue
			}
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Debug().Err(err).Msg("event stream write failed")
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				h.logger.Debug().Err(err).Msg("event stream ping failed")
				return
			}
		case <-done:
			h.logger.Debug().Msg("event stream disconnected")
			return
		}
	}
}

func parseTypeFilters(raw string) []string {
	var filters []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			filters = append(filters, part)
		}
	}
	return filters
}

func matchesTypeFilters(eventType string, filters []string) bool {
	if len(filters) == 0 {
		return true
	}
	for _, prefix := range filters {
		if strings.HasPrefix(eventType, prefix) {
			return true
		}
	}
	return false
}
