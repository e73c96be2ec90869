package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSLALevelChanged EventType = "sla.level_changed"
	EventSLASweepFailed  EventType = "sla.sweep_failed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// NewEvent stamps a fresh event.
func NewEvent(eventType EventType, ticketID string, at time.Time, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Timestamp: at.UTC(),
		Payload:   payload,
	}
}

// SLALevelChangedPayload describes a ticket crossing into a different SLA level.
type SLALevelChangedPayload struct {
	CompanyID       string     `json:"company_id"`
	ExternalKey     string     `json:"external_key,omitempty"`
	PreviousLevel   string     `json:"previous_level,omitempty"`
	Level           string     `json:"level"`
	ResponseLevel   string     `json:"response_level"`
	ResolutionLevel string     `json:"resolution_level"`
	RemainingHours  float64    `json:"remaining_hours"`
	PercentConsumed float64    `json:"percent_consumed"`
	Paused          bool       `json:"paused"`
	Deadline        *time.Time `json:"deadline,omitempty"`
	TargetSource    string     `json:"target_source"`
}

// SLASweepFailedPayload reports a sweep that could not list or evaluate tickets.
type SLASweepFailedPayload struct {
	Stage string `json:"stage"`
	Error string `json:"error"`
}
