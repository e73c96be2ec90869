package sla

import (
	"errors"
	"fmt"
	"time"

	"github.com/spec-kit/ticket-sla/internal/domain"
)

// ErrInvalidTimestamp signals unusable time inputs; it is the only failure Evaluate reports.
var ErrInvalidTimestamp = errors.New("invalid timestamp")

// Remaining-time thresholds, in business hours, for the coarse level.
const (
	CriticalThresholdHours = 2.0
	WarningThresholdHours  = 8.0
)

// Level is the coarse SLA health used for badges and alerting.
type Level string

const (
	LevelOK       Level = "ok"
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
	LevelBreached Level = "breached"
)

func (l Level) severity() int {
	switch l {
	case LevelWarning:
		return 1
	case LevelCritical:
		return 2
	case LevelBreached:
		return 3
	default:
		return 0
	}
}

// MoreSevere returns whichever level is worse.
func MoreSevere(a, b Level) Level {
	if b.severity() > a.severity() {
		return b
	}
	return a
}

// LevelForRemaining classifies signed remaining business hours.
func LevelForRemaining(remaining float64) Level {
	switch {
	case remaining < 0:
		return LevelBreached
	case remaining < CriticalThresholdHours:
		return LevelCritical
	case remaining < WarningThresholdHours:
		return LevelWarning
	default:
		return LevelOK
	}
}

// Measure is the state of one SLA deadline (response or resolution).
type Measure struct {
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
	Level           Level      `json:"level"`
}

// Status is the outcome of one SLA evaluation.
type Status struct {
	Configured      bool    `json:"configured"`
	Target          *Target `json:"target,omitempty"`
	Response        Measure `json:"response"`
	Resolution      Measure `json:"resolution"`
	Level           Level   `json:"level,omitempty"`
	PercentConsumed float64 `json:"percent_consumed"`
	Paused          bool    `json:"paused"`
}

// EvaluationInput carries everything one evaluation needs. Now is supplied by
// the caller so repeated evaluations of the same inputs agree.
type EvaluationInput struct {
	CreatedAt       time.Time
	Target          *Target
	Now             time.Time
	FirstResponseAt *time.Time
	ResolvedAt      *time.Time
	Periods         []StatusPeriod
	CurrentStatus   domain.TicketStatus
}

// Evaluate computes response and resolution SLA state. A nil target yields an
// unconfigured Status without running the clock.
func Evaluate(c *Calendar, in EvaluationInput) (Status, error) {
	if err := validateTimestamps(in); err != nil {
		return Status{}, err
	}
	if in.Target == nil {
		return Status{Configured: false}, nil
	}

	periods := in.Periods
	if len(periods) == 0 {
		periods = []StatusPeriod{newPeriod(in.CreatedAt, domain.TicketStatusNew)}
	}
	paused := false
	if current, ok := CurrentPeriod(periods); ok && current.State == ClockPaused {
		paused = true
	}

	resolvedAt := resolutionMilestone(in, periods)
	respondedAt := in.FirstResponseAt
	if respondedAt == nil {
		respondedAt = resolvedAt
	}

	target := *in.Target
	response := measure(c, in, periods, target.ResponseHours, respondedAt, paused)
	resolution := measure(c, in, periods, target.ResolutionHours, resolvedAt, paused)

	level, percent := combine(response, resolution)
	return Status{
		Configured:      true,
		Target:          &target,
		Response:        response,
		Resolution:      resolution,
		Level:           level,
		PercentConsumed: percent,
		Paused:          response.Paused || resolution.Paused,
	}, nil
}

// combine folds the unmet halves into the overall level and percentage. A
// met half is history; it only counts once both halves are met.
func combine(halves ...Measure) (Level, float64) {
	open := make([]Measure, 0, len(halves))
	for _, m := range halves {
		if !m.Met {
			open = append(open, m)
		}
	}
	if len(open) == 0 {
		open = halves
	}
	level, percent := LevelOK, 0.0
	for _, m := range open {
		level = MoreSevere(level, m.Level)
		percent = maxFloat(percent, m.PercentConsumed)
	}
	return level, percent
}

// Deadline returns the instant hours of business time after start.
func Deadline(c *Calendar, start time.Time, hours float64) time.Time {
	return c.AddBusinessTime(start, hours)
}

func validateTimestamps(in EvaluationInput) error {
	if in.CreatedAt.IsZero() {
		return fmt.Errorf("%w: created_at is missing", ErrInvalidTimestamp)
	}
	if in.Now.IsZero() {
		return fmt.Errorf("%w: evaluation time is missing", ErrInvalidTimestamp)
	}
	if in.FirstResponseAt != nil && (in.FirstResponseAt.IsZero() || in.FirstResponseAt.Before(in.CreatedAt)) {
		return fmt.Errorf("%w: first_response_at precedes created_at", ErrInvalidTimestamp)
	}
	if in.ResolvedAt != nil && (in.ResolvedAt.IsZero() || in.ResolvedAt.Before(in.CreatedAt)) {
		return fmt.Errorf("%w: resolved_at precedes created_at", ErrInvalidTimestamp)
	}
	return nil
}

// resolutionMilestone is resolvedAt for a terminal ticket. A reopened ticket
// keeps running; a terminal ticket without resolvedAt stops where its
// terminal period began.
func resolutionMilestone(in EvaluationInput, periods []StatusPeriod) *time.Time {
	if !IsTerminal(in.CurrentStatus) {
		return nil
	}
	if in.ResolvedAt != nil {
		at := *in.ResolvedAt
		return &at
	}
	if current, ok := CurrentPeriod(periods); ok && current.State == ClockStopped {
		at := current.Start
		return &at
	}
	return nil
}

func measure(c *Calendar, in EvaluationInput, periods []StatusPeriod, targetHours float64, milestone *time.Time, paused bool) Measure {
	m := Measure{TargetHours: targetHours}

	if milestone != nil {
		at := *milestone
		m.Met = true
		m.MetAt = &at
		m.ElapsedHours = accruedHours(c, in.CreatedAt, periods, at)
		m.RemainingHours = targetHours - m.ElapsedHours
		m.PercentConsumed = 100
		m.MetLate = m.ElapsedHours > targetHours
		m.Overdue = m.MetLate
		m.Level = LevelOK
		if m.MetLate {
			m.Level = LevelBreached
		}
		return m
	}

	m.ElapsedHours = accruedHours(c, in.CreatedAt, periods, in.Now)
	m.RemainingHours = targetHours - m.ElapsedHours
	m.Overdue = m.RemainingHours < 0
	m.PercentConsumed = percentOf(m.ElapsedHours, targetHours)
	m.Paused = paused
	m.Level = LevelForRemaining(m.RemainingHours)
	if !paused && !m.Overdue {
		deadline := c.AddBusinessTime(in.Now, m.RemainingHours)
		m.Deadline = &deadline
	}
	return m
}

// accruedHours sums business time of running periods between createdAt and until.
func accruedHours(c *Calendar, createdAt time.Time, periods []StatusPeriod, until time.Time) float64 {
	var total time.Duration
	for _, p := range periods {
		if p.State != ClockRunning {
			continue
		}
		start := latest(p.Start, createdAt)
		if !start.Before(until) {
			continue
		}
		end := earliest(p.EndOr(until), until)
		total += c.BusinessDuration(start, end)
	}
	return total.Hours()
}

func percentOf(elapsed, target float64) float64 {
	if target <= 0 {
		if elapsed > 0 {
			return 100
		}
		return 0
	}
	pct := elapsed / target * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
