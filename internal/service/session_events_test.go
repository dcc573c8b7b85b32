package service

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/travel-session/internal/config"
	"github.com/spec-kit/travel-session/internal/domain"
	"github.com/spec-kit/travel-session/internal/events"
	"github.com/spec-kit/travel-session/internal/observability"
)

func startWebhook(t *testing.T, status int) (string, <-chan events.Event) {
	t.Helper()

	received := make(chan events.Event, 8)
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Post("/hook", func(c *fiber.Ctx) error {
		var ev events.Event
		if err := c.BodyParser(&ev); err != nil {
			return err
		}
		received <- ev
		return c.SendStatus(status)
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	return "http://" + ln.Addr().String() + "/hook", received
}

func TestSessionEventsAreCounted(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(nil)
	metrics := observability.NewMetrics()
	NewSessionEventsService(dispatcher, nil, metrics, config.NotificationConfig{}).RegisterHandlers()

	ctx := context.Background()
	require.NoError(t, dispatcher.Publish(ctx, events.NewEvent(events.EventSessionStarted, "s1", "u1")))
	require.NoError(t, dispatcher.Publish(ctx, events.NewEvent(events.EventSessionRefreshed, "s1", "u1")))

	ended := events.NewEvent(events.EventSessionEnded, "s1", "u1")
	ended.Trigger = domain.TriggerScheduler
	require.NoError(t, dispatcher.Publish(ctx, ended))

	snap := metrics.Snapshot()
	assert.Equal(t, int64(1), snap.SessionStarts)
	assert.Equal(t, int64(1), snap.SessionRefreshes)
	assert.Equal(t, map[string]int64{"scheduler": 1}, snap.SessionEnds)
}

func TestSessionEventsForwardToWebhook(t *testing.T) {
	url, received := startWebhook(t, fiber.StatusNoContent)
	dispatcher := events.NewInMemoryDispatcher(nil)
	NewSessionEventsService(dispatcher, nil, nil, config.NotificationConfig{WebhookURL: url}).RegisterHandlers()

	ended := events.NewEvent(events.EventSessionEnded, "s1", "u1")
	ended.Trigger = domain.TriggerValidator
	require.NoError(t, dispatcher.Publish(context.Background(), ended))

	select {
	case ev := <-received:
		assert.Equal(t, events.EventSessionEnded, ev.Type)
		assert.Equal(t, "s1", ev.SessionID)
		assert.Equal(t, domain.TriggerValidator, ev.Trigger)
	case <-time.After(5 * time.Second):
		t.Fatal("webhook not called")
	}
}

func TestRefreshesAreNotForwarded(t *testing.T) {
	url, received := startWebhook(t, fiber.StatusNoContent)
	dispatcher := events.NewInMemoryDispatcher(nil)
	NewSessionEventsService(dispatcher, nil, nil, config.NotificationConfig{WebhookURL: url}).RegisterHandlers()

	require.NoError(t, dispatcher.Publish(context.Background(), events.NewEvent(events.EventSessionRefreshed, "s1", "u1")))

	select {
	case ev := <-received:
		t.Fatalf("unexpected delivery of %s", ev.Type)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWebhookFailureIsLogged(t *testing.T) {
	url, received := startWebhook(t, fiber.StatusInternalServerError)
	core, logs := observer.New(zap.WarnLevel)
	dispatcher := events.NewInMemoryDispatcher(nil)
	NewSessionEventsService(dispatcher, zap.New(core), nil, config.NotificationConfig{WebhookURL: url}).RegisterHandlers()

	require.NoError(t, dispatcher.Publish(context.Background(), events.NewEvent(events.EventSessionStarted, "s1", "u1")))

	<-received
	require.Eventually(t, func() bool {
		return logs.FilterMessage("webhook delivery failed").Len() == 1
	}, 5*time.Second, 10*time.Millisecond)
}
