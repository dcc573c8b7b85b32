package service

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/travel-session/internal/config"
	"github.com/spec-kit/travel-session/internal/events"
	"github.com/spec-kit/travel-session/internal/observability"
)

const webhookTimeout = 5 * time.Second

// Subscriber is the part of the session manager listeners attach to.
type Subscriber interface {
	Subscribe(eventType events.EventType, handler events.EventHandler)
}

// SessionEventsService reacts to session lifecycle events: it logs them, counts them and
// forwards them to the configured webhook.
type SessionEventsService struct {
	source  Subscriber
	logger  *zap.Logger
	metrics *observability.Metrics
	cfg     config.NotificationConfig
	post    func(url string, event events.Event) error
}

// NewSessionEventsService creates the service.
func NewSessionEventsService(source Subscriber, logger *zap.Logger, metrics *observability.Metrics, cfg config.NotificationConfig) *SessionEventsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionEventsService{
		source:  source,
		logger:  logger,
		metrics: metrics,
		cfg:     cfg,
		post:    postWebhook,
	}
}

// RegisterHandlers subscribes to events.
func (n *SessionEventsService) RegisterHandlers() {
	if n.source == nil {
		return
	}
	n.source.Subscribe(events.EventSessionStarted, n.handleSessionStarted)
	n.source.Subscribe(events.EventSessionRefreshed, n.handleSessionRefreshed)
	n.source.Subscribe(events.EventSessionEnded, n.handleSessionEnded)
}

func (n *SessionEventsService) handleSessionStarted(ctx context.Context, event events.Event) error {
	n.logger.Info("SessionStarted", zap.String("session_id", event.SessionID), zap.Any("payload", event.Payload))
	n.metrics.RecordSessionStarted()
	n.notifyWebhook(ctx, event)
	return nil
}

func (n *SessionEventsService) handleSessionRefreshed(ctx context.Context, event events.Event) error {
	n.logger.Info("SessionRefreshed", zap.String("session_id", event.SessionID))
	n.metrics.RecordSessionRefreshed()
	return nil
}

func (n *SessionEventsService) handleSessionEnded(ctx context.Context, event events.Event) error {
	n.logger.Info("SessionEnded",
		zap.String("session_id", event.SessionID),
		zap.String("trigger", string(event.Trigger)))
	n.metrics.RecordSessionEnded(string(event.Trigger))
	n.notifyWebhook(ctx, event)
	return nil
}

// notifyWebhook delivers in the background so teardown never waits on the network.
func (n *SessionEventsService) notifyWebhook(_ context.Context, event events.Event) {
	url := strings.TrimSpace(n.cfg.WebhookURL)
	if url == "" {
		return
	}
	go func() {
		if err := n.post(url, event); err != nil {
			n.logger.Warn("webhook delivery failed",
				zap.String("url", url),
				zap.String("event_type", string(event.Type)),
				zap.Error(err))
			return
		}
		n.logger.Debug("webhook delivered",
			zap.String("url", url),
			zap.String("event_type", string(event.Type)))
	}()
}

func postWebhook(url string, event events.Event) error {
	agent := fiber.Post(url).JSON(event).Timeout(webhookTimeout)
	if err := agent.Parse(); err != nil {
		return err
	}
	status, _, errs := agent.Bytes()
	if len(errs) > 0 {
		return errs[0]
	}
	if status >= 300 {
		return fiber.NewError(status, "webhook rejected event")
	}
	return nil
}
