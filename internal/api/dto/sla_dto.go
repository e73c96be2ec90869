package dto

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/spec-kit/ticket-sla/internal/service"
	"github.com/spec-kit/ticket-sla/internal/sla"
)

// BatchSLARequest asks for the SLA of several stored tickets.
type BatchSLARequest struct {
	TicketIDs []string   `json:"ticket_ids"`
	Now       *time.Time `json:"now,omitempty"`
}

// EvaluateSnapshotRequest is a self-contained ticket plus an optional evaluation instant.
type EvaluateSnapshotRequest struct {
	service.Snapshot
	Now *time.Time `json:"now,omitempty"`
}

// DeadlineRequest projects business hours from a start instant.
type DeadlineRequest struct {
	Start time.Time `json:"start"`
	Hours float64   `json:"hours"`
}

// DeadlineResponse carries the projected deadline.
type DeadlineResponse struct {
	Start    time.Time `json:"start"`
	Hours    float64   `json:"hours"`
	Deadline time.Time `json:"deadline"`
}

// SLATargetResponse describes the applied target.
type SLATargetResponse struct {
	ResponseHours   float64 `json:"response_hours"`
	ResolutionHours float64 `json:"resolution_hours"`
	Source          string  `json:"source"`
	ConfigID        string  `json:"config_id,omitempty"`
}

// SLAMeasureResponse is one half (response or resolution) of the SLA.
type SLAMeasureResponse struct {
	TargetHours     float64    `json:"target_hours"`
	ElapsedHours    float64    `json:"elapsed_hours"`
	RemainingHours  float64    `json:"remaining_hours"`
	PercentConsumed float64    `json:"percent_consumed"`
	Overdue         bool       `json:"overdue"`
	Met             bool       `json:"met"`
	MetAt           *time.Time `json:"met_at,omitempty"`
	MetLate         bool       `json:"met_late"`
	Paused          bool       `json:"paused"`
	Deadline        *time.Time `json:"deadline,omitempty"`
	Level           string     `json:"level"`
	Label           string     `json:"label"`
}

// StatusPeriodResponse exposes one reconstructed status interval.
type StatusPeriodResponse struct {
	Start  time.Time  `json:"start"`
	End    *time.Time `json:"end,omitempty"`
	Status string     `json:"status"`
	State  string     `json:"state"`
}

// SLAStatusResponse is the rendered SLA of one ticket.
type SLAStatusResponse struct {
	TicketID        string                 `json:"ticket_id"`
	Configured      bool                   `json:"configured"`
	Level           string                 `json:"level,omitempty"`
	Label           string                 `json:"label"`
	PercentConsumed float64                `json:"percent_consumed"`
	Paused          bool                   `json:"paused"`
	EvaluatedAt     time.Time              `json:"evaluated_at"`
	Target          *SLATargetResponse     `json:"target,omitempty"`
	Response        *SLAMeasureResponse    `json:"response,omitempty"`
	Resolution      *SLAMeasureResponse    `json:"resolution,omitempty"`
	Periods         []StatusPeriodResponse `json:"periods,omitempty"`
}

// BatchSLAItem is one entry of a batch response.
type BatchSLAItem struct {
	TicketID string             `json:"ticket_id"`
	SLA      *SLAStatusResponse `json:"sla,omitempty"`
	Error    *ErrorBody         `json:"error,omitempty"`
}

// ErrorBody mirrors the error envelope used by the error middleware.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewSLAStatusResponse renders an evaluation.
func NewSLAStatusResponse(result *service.TicketSLA, withPeriods bool) SLAStatusResponse {
	status := result.Status
	resp := SLAStatusResponse{
		TicketID:    result.Ticket.ID,
		Configured:  status.Configured,
		Label:       SLALabel(status),
		EvaluatedAt: result.EvaluatedAt,
	}
	if withPeriods {
		resp.Periods = make([]StatusPeriodResponse, 0, len(result.Periods))
		for _, p := range result.Periods {
			item := StatusPeriodResponse{Start: p.Start, Status: string(p.Status), State: p.State.String()}
			if !p.IsOpen() {
				end := p.End
				item.End = &end
			}
			resp.Periods = append(resp.Periods, item)
		}
	}
	if !status.Configured {
		return resp
	}

	resp.Level = string(status.Level)
	resp.PercentConsumed = round2(status.PercentConsumed)
	resp.Paused = status.Paused
	if status.Target != nil {
		resp.Target = &SLATargetResponse{
			ResponseHours:   status.Target.ResponseHours,
			ResolutionHours: status.Target.ResolutionHours,
			Source:          string(status.Target.Source),
			ConfigID:        status.Target.ConfigID,
		}
	}
	response := newMeasureResponse(status.Response)
	resolution := newMeasureResponse(status.Resolution)
	resp.Response = &response
	resp.Resolution = &resolution
	return resp
}

func newMeasureResponse(m sla.Measure) SLAMeasureResponse {
	return SLAMeasureResponse{
		TargetHours:     m.TargetHours,
		ElapsedHours:    round2(m.ElapsedHours),
		RemainingHours:  round2(m.RemainingHours),
		PercentConsumed: round2(m.PercentConsumed),
		Overdue:         m.Overdue,
		Met:             m.Met,
		MetAt:           m.MetAt,
		MetLate:         m.MetLate,
		Paused:          m.Paused,
		Deadline:        m.Deadline,
		Level:           string(m.Level),
		Label:           MeasureLabel(m),
	}
}

// SLALabel summarizes a status in one line, led by the half that drives the level.
func SLALabel(status sla.Status) string {
	if !status.Configured {
		return "SLA not configured"
	}
	if !status.Response.Met && status.Response.Level == status.Level {
		return "Response: " + MeasureLabel(status.Response)
	}
	return "Resolution: " + MeasureLabel(status.Resolution)
}

// MeasureLabel renders one half, keeping the overdue magnitude visible.
func MeasureLabel(m sla.Measure) string {
	switch {
	case m.Met && m.MetLate:
		return fmt.Sprintf("met late by %s", FormatHours(-m.RemainingHours))
	case m.Met:
		return "met"
	case m.Overdue && m.Paused:
		return fmt.Sprintf("paused, exceeded by %s", FormatHours(-m.RemainingHours))
	case m.Overdue:
		return fmt.Sprintf("exceeded by %s", FormatHours(-m.RemainingHours))
	case m.Paused:
		return fmt.Sprintf("paused, %s remaining", FormatHours(m.RemainingHours))
	default:
		return fmt.Sprintf("%s remaining", FormatHours(m.RemainingHours))
	}
}

// FormatHours renders business hours as "3.5h", or minutes below one hour.
func FormatHours(hours float64) string {
	if hours < 0 {
		hours = -hours
	}
	if hours < 1 {
		return fmt.Sprintf("%dm", int(math.Round(hours*60)))
	}
	return strconv.FormatFloat(math.Round(hours*10)/10, 'f', -1, 64) + "h"
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
