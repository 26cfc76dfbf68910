package handler_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/scolarite-api/internal/dto"
	"github.com/noah-isme/scolarite-api/internal/handler"
	"github.com/noah-isme/scolarite-api/internal/service"
)

func startEventStream(t *testing.T, events service.EventService) string {
	t.Helper()

	app := fiber.New()
	handler.NewEventStreamHandler(events, zerolog.Nop()).Register(app.Group("/ws/events"))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	return "ws://" + ln.Addr().String() + "/ws/events"
}

func readEvent(t *testing.T, conn *websocket.Conn) dto.EventResponse {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var event dto.EventResponse
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestEventStream_DeliversPublishedEvents(t *testing.T) {
	events := service.NewEventService(nil, "", nil, zerolog.Nop())
	url := startEventStream(t, events)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	hello := readEvent(t, conn)
	require.Equal(t, handler.EventStreamConnected, hello.Type)

	events.Publish(context.Background(), "absence.created", service.EntityAbsence, 3, map[string]interface{}{"cne": "CNE003"})

	event := readEvent(t, conn)
	require.Equal(t, "absence.created", event.Type)
	require.Equal(t, service.EntityAbsence, event.EntityType)
	require.Equal(t, uint(3), event.EntityID)
	require.Equal(t, "CNE003", event.Payload["cne"])
}

func TestEventStream_FiltersByTypePrefix(t *testing.T) {
	events := service.NewEventService(nil, "", nil, zerolog.Nop())
	url := startEventStream(t, events)

	conn, _, err := websocket.DefaultDialer.Dial(url+"?types=absence.blacklisted", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Equal(t, handler.EventStreamConnected, readEvent(t, conn).Type)

	events.Publish(context.Background(), "grade_student.created", service.EntityGradeStudent, 1, nil)
	events.Publish(context.Background(), service.EventAbsenceBlacklisted, service.EntityAbsence, 2, nil)

	event := readEvent(t, conn)
	require.Equal(t, service.EventAbsenceBlacklisted, event.Type)
	require.Equal(t, uint(2), event.EntityID)
}

func TestEventStream_RejectsPlainHTTP(t *testing.T) {
	app := fiber.New()
	handler.NewEventStreamHandler(service.NewEventService(nil, "", nil, zerolog.Nop()), zerolog.Nop()).Register(app.Group("/ws/events"))

	resp, err := app.Test(httptestGet("/ws/events"))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}
