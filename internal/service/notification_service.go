package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spec-kit/ticket-sla/internal/events"
	"github.com/spec-kit/ticket-sla/internal/sla"
)

// NotificationService turns SLA events into structured alert logs. Delivery
// to people (e-mail, chat) is left to whatever consumes the Kafka topic.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventSLALevelChanged, n.handleLevelChanged)
	n.dispatcher.Subscribe(events.EventSLASweepFailed, n.handleSweepFailed)
}

func (n *NotificationService) handleLevelChanged(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SLALevelChangedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}

	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("ticket_id", event.TicketID),
		zap.String("company_id", payload.CompanyID),
		zap.String("previous_level", payload.PreviousLevel),
		zap.String("level", payload.Level),
		zap.Float64("remaining_hours", payload.RemainingHours),
		zap.Bool("paused", payload.Paused),
	}
	if payload.Deadline != nil {
		fields = append(fields, zap.Time("deadline", *payload.Deadline))
	}
	n.logger.Log(alertLevel(sla.Level(payload.Level)), "SLALevelChanged", fields...)
	return nil
}

func (n *NotificationService) handleSweepFailed(_ context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.SLASweepFailedPayload)
	n.logger.Error("SLASweepFailed",
		zap.String("event_id", event.ID),
		zap.String("stage", payload.Stage),
		zap.String("error", payload.Error))
	return nil
}

func alertLevel(level sla.Level) zapcore.Level {
	switch level {
	case sla.LevelBreached, sla.LevelCritical:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}
