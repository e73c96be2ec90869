package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew             TicketStatus = "new"
	TicketStatusOngoing         TicketStatus = "ongoing"
	TicketStatusEscalated       TicketStatus = "escalated"
	TicketStatusWaitingCustomer TicketStatus = "waiting_customer"
	TicketStatusSuspended       TicketStatus = "suspended"
	TicketStatusResolved        TicketStatus = "resolved"
	TicketStatusClosed          TicketStatus = "closed"
)

// TicketStatuses lists every known status in lifecycle order.
var TicketStatuses = []TicketStatus{
	TicketStatusNew,
	TicketStatusOngoing,
	TicketStatusEscalated,
	TicketStatusWaitingCustomer,
	TicketStatusSuspended,
	TicketStatusResolved,
	TicketStatusClosed,
}

// TicketPriority enumerates the legacy priority levels.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

// Ticket is the read model the SLA engine evaluates.
type Ticket struct {
	ID               string
	ExternalKey      string
	CompanyID        string
	DepartmentID     string
	IncidentTypeID   string
	CategoryID       *string
	Title            string
	Status           TicketStatus
	Priority         string
	CustomPriorityID *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	FirstResponseAt  *time.Time
	ResolvedAt       *time.Time
}
