package sla

import (
	"sort"
	"time"

	"github.com/spec-kit/ticket-sla/internal/domain"
)

// StatusPeriod is a contiguous interval during which the ticket held one status.
// A zero End means the period is still open.
type StatusPeriod struct {
	Start  time.Time           `json:"start"`
	End    time.Time           `json:"end,omitempty"`
	Status domain.TicketStatus `json:"status"`
	State  ClockState          `json:"state"`
}

// IsOpen reports whether the period extends to the present.
func (p StatusPeriod) IsOpen() bool {
	return p.End.IsZero()
}

// IsPaused reports whether SLA time stops accruing during the period.
func (p StatusPeriod) IsPaused() bool {
	return p.State != ClockRunning
}

// EndOr returns End, or fallback for an open period.
func (p StatusPeriod) EndOr(fallback time.Time) time.Time {
	if p.IsOpen() {
		return fallback
	}
	return p.End
}

// BuildPeriods turns a status history into contiguous periods starting at
// createdAt. Events are stable-sorted by time; events sharing a timestamp
// collapse into one period whose state comes from the last of them. Empty or
// malformed history degrades to a single running period.
//
// currentStatus never relabels recorded time: a terminal ticket whose history
// lacks the final transition keeps its last period open, and the clock freezes
// at resolvedAt instead.
func BuildPeriods(createdAt time.Time, currentStatus domain.TicketStatus, history []domain.StatusChangeEvent) []StatusPeriod {
	events := make([]domain.StatusChangeEvent, 0, len(history))
	for _, ev := range history {
		if ev.At.IsZero() || !ev.IsStatusChange() || ev.NewStatus == "" {
			continue
		}
		events = append(events, ev)
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].At.Before(events[j].At)
	})

	initial := domain.TicketStatusNew
	if len(events) > 0 && events[0].OldStatus != "" {
		initial = events[0].OldStatus
	}

	periods := []StatusPeriod{newPeriod(createdAt, initial)}
	for _, ev := range events {
		at := ev.At
		if at.Before(createdAt) {
			at = createdAt
		}
		last := &periods[len(periods)-1]
		if !at.After(last.Start) {
			// zero-length: the later event wins
			last.Status = ev.NewStatus
			last.State = ClockStateFor(ev.NewStatus)
			continue
		}
		last.End = at
		periods = append(periods, newPeriod(at, ev.NewStatus))
	}
	return periods
}

func newPeriod(start time.Time, status domain.TicketStatus) StatusPeriod {
	return StatusPeriod{Start: start, Status: status, State: ClockStateFor(status)}
}

// CurrentPeriod returns the open period, if any.
func CurrentPeriod(periods []StatusPeriod) (StatusPeriod, bool) {
	if len(periods) == 0 {
		return StatusPeriod{}, false
	}
	last := periods[len(periods)-1]
	return last, last.IsOpen()
}
