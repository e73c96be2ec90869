package domain

import (
	"fmt"
	"time"
)

// TicketChangeType captures what changed in a history entry.
type TicketChangeType string

const (
	ChangeTypeStatus     TicketChangeType = "STATUS_CHANGE"
	ChangeTypeAssignee   TicketChangeType = "ASSIGNEE_CHANGE"
	ChangeTypePriority   TicketChangeType = "PRIORITY_CHANGE"
	ChangeTypeDepartment TicketChangeType = "DEPARTMENT_CHANGE"
)

// TicketHistory is an immutable audit trail entry.
type TicketHistory struct {
	ID         string
	TicketID   string
	ChangeType TicketChangeType
	OldValue   map[string]any
	NewValue   map[string]any
	CreatedAt  time.Time
}

// StatusChangeEvent is a single status transition fed to the SLA engine.
// An empty ChangeType is treated as a status change.
type StatusChangeEvent struct {
	TicketID   string           `json:"ticket_id" yaml:"ticket_id"`
	OldStatus  TicketStatus     `json:"old_status" yaml:"old_status"`
	NewStatus  TicketStatus     `json:"new_status" yaml:"new_status"`
	At         time.Time        `json:"at" yaml:"at"`
	ChangeType TicketChangeType `json:"change_type,omitempty" yaml:"change_type,omitempty"`
}

// IsStatusChange reports whether the event moves the ticket between statuses.
func (e StatusChangeEvent) IsStatusChange() bool {
	return e.ChangeType == "" || e.ChangeType == ChangeTypeStatus
}

// StatusEventsFromHistory extracts status transitions from audit rows.
// Rows of other change types or without a new status are skipped.
func StatusEventsFromHistory(entries []TicketHistory) []StatusChangeEvent {
	result := make([]StatusChangeEvent, 0, len(entries))
	for _, entry := range entries {
		if entry.ChangeType != ChangeTypeStatus {
			continue
		}
		newStatus := statusValue(entry.NewValue)
		if newStatus == "" {
			continue
		}
		result = append(result, StatusChangeEvent{
			TicketID:   entry.TicketID,
			OldStatus:  statusValue(entry.OldValue),
			NewStatus:  newStatus,
			At:         entry.CreatedAt,
			ChangeType: ChangeTypeStatus,
		})
	}
	return result
}

func statusValue(values map[string]any) TicketStatus {
	if values == nil {
		return ""
	}
	switch v := values["status"].(type) {
	case string:
		return TicketStatus(v)
	case TicketStatus:
		return v
	case nil:
		return ""
	default:
		return TicketStatus(fmt.Sprint(v))
	}
}
