package sla

import "github.com/spec-kit/ticket-sla/internal/domain"

// ClockState says whether SLA time accrues while a ticket is in a status.
type ClockState int

const (
	ClockRunning ClockState = iota
	ClockPaused
	ClockStopped
)

func (s ClockState) String() string {
	switch s {
	case ClockRunning:
		return "running"
	case ClockPaused:
		return "paused"
	case ClockStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// clockStates is the single source of truth for how a status affects the clock.
var clockStates = map[domain.TicketStatus]ClockState{
	domain.TicketStatusNew:             ClockRunning,
	domain.TicketStatusOngoing:         ClockRunning,
	domain.TicketStatusEscalated:       ClockRunning,
	domain.TicketStatusWaitingCustomer: ClockPaused,
	domain.TicketStatusSuspended:       ClockPaused,
	domain.TicketStatusResolved:        ClockStopped,
	domain.TicketStatusClosed:          ClockStopped,
}

// ClockStateFor classifies a ticket status. Unknown statuses keep the clock
// running so an unexpected value never hides elapsed time.
func ClockStateFor(status domain.TicketStatus) ClockState {
	if state, ok := clockStates[status]; ok {
		return state
	}
	return ClockRunning
}

// IsKnownStatus reports whether status has an explicit classification.
func IsKnownStatus(status domain.TicketStatus) bool {
	_, ok := clockStates[status]
	return ok
}

// IsTerminal reports whether the status stops the clock for good.
func IsTerminal(status domain.TicketStatus) bool {
	return ClockStateFor(status) == ClockStopped
}

// MarshalText renders the state by name.
func (s ClockState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
