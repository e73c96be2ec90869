package service

import (
	"time"

	"github.com/spec-kit/ticket-sla/internal/domain"
	"github.com/spec-kit/ticket-sla/internal/sla"
)

// Snapshot is a self-contained ticket description, as posted to the
// stateless endpoint or read from a CLI fixture. Target, when set, bypasses
// configuration resolution.
type Snapshot struct {
	TicketID         string                     `json:"ticket_id" yaml:"ticket_id"`
	CompanyID        string                     `json:"company_id" yaml:"company_id"`
	DepartmentID     string                     `json:"department_id" yaml:"department_id"`
	IncidentTypeID   string                     `json:"incident_type_id" yaml:"incident_type_id"`
	CategoryID       *string                    `json:"category_id,omitempty" yaml:"category_id,omitempty"`
	Priority         string                     `json:"priority" yaml:"priority"`
	CustomPriorityID *string                    `json:"custom_priority_id,omitempty" yaml:"custom_priority_id,omitempty"`
	Status           domain.TicketStatus        `json:"status" yaml:"status"`
	CreatedAt        time.Time                  `json:"created_at" yaml:"created_at"`
	FirstResponseAt  *time.Time                 `json:"first_response_at,omitempty" yaml:"first_response_at,omitempty"`
	ResolvedAt       *time.Time                 `json:"resolved_at,omitempty" yaml:"resolved_at,omitempty"`
	History          []domain.StatusChangeEvent `json:"history" yaml:"history"`
	Configs          domain.CompanySLAConfigSet `json:"configs" yaml:"configs"`
	Target           *sla.Target                `json:"target,omitempty" yaml:"target,omitempty"`
}

// Ticket converts the snapshot to the domain ticket. A missing status means new.
func (s Snapshot) Ticket() domain.Ticket {
	status := s.Status
	if status == "" {
		status = domain.TicketStatusNew
	}
	return domain.Ticket{
		ID:               s.TicketID,
		CompanyID:        s.CompanyID,
		DepartmentID:     s.DepartmentID,
		IncidentTypeID:   s.IncidentTypeID,
		CategoryID:       s.CategoryID,
		Status:           status,
		Priority:         s.Priority,
		CustomPriorityID: s.CustomPriorityID,
		CreatedAt:        s.CreatedAt,
		FirstResponseAt:  s.FirstResponseAt,
		ResolvedAt:       s.ResolvedAt,
	}
}
