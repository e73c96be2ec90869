package worker

import (
	"github.com/spec-kit/ticket-sla/internal/events"
	"github.com/spec-kit/ticket-sla/internal/service"
)

// StartNotificationWorker registers the alert log handlers and, when a
// forwarder is given, streams every SLA event to it.
func StartNotificationWorker(dispatcher events.Dispatcher, notificationService *service.NotificationService, forward events.EventHandler) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if dispatcher == nil || forward == nil {
		return
	}
	dispatcher.Subscribe(events.EventSLALevelChanged, forward)
	dispatcher.Subscribe(events.EventSLASweepFailed, forward)
}
