// Package sla computes first-response and resolution deadlines for tickets
// against a business-hours calendar.
package sla

import (
	"errors"
	"fmt"
	"time"

	"github.com/rickar/cal/v2"
)

// ErrInvalidCalendar is returned when calendar settings cannot describe any business time.
var ErrInvalidCalendar = errors.New("invalid business calendar")

// maxScanDays bounds every day-by-day walk.
const maxScanDays = 3660

// Holiday is a non-working date. A zero Year repeats every year.
type Holiday struct {
	Name  string     `yaml:"name" json:"name"`
	Month time.Month `yaml:"month" json:"month"`
	Day   int        `yaml:"day" json:"day"`
	Year  int        `yaml:"year,omitempty" json:"year,omitempty"`
}

// CalendarSettings describes the working-time window.
type CalendarSettings struct {
	Workdays  []time.Weekday
	StartHour int
	EndHour   int
	Location  *time.Location
	Holidays  []Holiday
}

// DefaultCalendarSettings returns Monday to Friday, 08:00 to 18:00 UTC.
func DefaultCalendarSettings() CalendarSettings {
	return CalendarSettings{
		Workdays:  []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		StartHour: 8,
		EndHour:   18,
		Location:  time.UTC,
	}
}

// Calendar performs date arithmetic that only counts business time.
// It is immutable after construction and safe for concurrent use.
type Calendar struct {
	business  *cal.BusinessCalendar
	loc       *time.Location
	startHour int
	endHour   int
}

// NewCalendar validates settings and builds a Calendar.
func NewCalendar(settings CalendarSettings) (*Calendar, error) {
	if settings.StartHour < 0 || settings.EndHour > 24 || settings.StartHour >= settings.EndHour {
		return nil, fmt.Errorf("%w: hours %d-%d", ErrInvalidCalendar, settings.StartHour, settings.EndHour)
	}
	if len(settings.Workdays) == 0 {
		return nil, fmt.Errorf("%w: no workdays", ErrInvalidCalendar)
	}
	loc := settings.Location
	if loc == nil {
		loc = time.UTC
	}

	business := cal.NewBusinessCalendar()
	for day := time.Sunday; day <= time.Saturday; day++ {
		business.SetWorkday(day, false)
	}
	for _, day := range settings.Workdays {
		if day < time.Sunday || day > time.Saturday {
			return nil, fmt.Errorf("%w: weekday %d", ErrInvalidCalendar, day)
		}
		business.SetWorkday(day, true)
	}
	open := time.Duration(settings.StartHour) * time.Hour
	closing := time.Duration(settings.EndHour) * time.Hour
	business.SetWorkHours(open, closing)

	for _, h := range settings.Holidays {
		if h.Month < time.January || h.Month > time.December || h.Day < 1 || h.Day > 31 {
			return nil, fmt.Errorf("%w: holiday %q", ErrInvalidCalendar, h.Name)
		}
		holiday := &cal.Holiday{
			Name:  h.Name,
			Type:  cal.ObservancePublic,
			Month: h.Month,
			Day:   h.Day,
			Func:  cal.CalcDayOfMonth,
		}
		if h.Year != 0 {
			holiday.StartYear = h.Year
			holiday.EndYear = h.Year
		}
		business.AddHoliday(holiday)
	}

	return &Calendar{business: business, loc: loc, startHour: settings.StartHour, endHour: settings.EndHour}, nil
}

// MustCalendar is NewCalendar for static settings known to be valid.
func MustCalendar(settings CalendarSettings) *Calendar {
	c, err := NewCalendar(settings)
	if err != nil {
		panic(err)
	}
	return c
}

// Location returns the calendar's time zone.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// IsBusinessTime reports whether t falls inside a business window.
func (c *Calendar) IsBusinessTime(t time.Time) bool {
	t = t.In(c.loc)
	if !c.business.IsWorkday(t) {
		return false
	}
	open, closing := c.window(t)
	return !t.Before(open) && t.Before(closing)
}

// NextBusinessInstant returns t when it is business time, otherwise the
// opening of the next business window.
func (c *Calendar) NextBusinessInstant(t time.Time) time.Time {
	t = t.In(c.loc)
	for i := 0; i < maxScanDays; i++ {
		if c.business.IsWorkday(t) {
			open, closing := c.window(t)
			if t.Before(open) {
				return open
			}
			if t.Before(closing) {
				return t
			}
		}
		t = nextDay(t)
	}
	return t
}

// AddBusinessTime advances start by hours of business time.
func (c *Calendar) AddBusinessTime(start time.Time, hours float64) time.Time {
	return c.AddBusinessDuration(start, hoursToDuration(hours))
}

// AddBusinessDuration is AddBusinessTime for a time.Duration.
func (c *Calendar) AddBusinessDuration(start time.Time, remaining time.Duration) time.Time {
	t := c.NextBusinessInstant(start)
	if remaining <= 0 {
		return t
	}
	for i := 0; i < maxScanDays; i++ {
		_, closing := c.window(t)
		available := closing.Sub(t)
		if remaining <= available {
			return t.Add(remaining)
		}
		remaining -= available
		t = c.NextBusinessInstant(closing)
	}
	return t
}

// BusinessDuration returns the business-time portion of [a, b].
func (c *Calendar) BusinessDuration(a, b time.Time) time.Duration {
	if !b.After(a) {
		return 0
	}
	a = a.In(c.loc)
	b = b.In(c.loc)

	var total time.Duration
	day := startOfDay(a)
	for i := 0; i < maxScanDays && day.Before(b); i++ {
		if c.business.IsWorkday(day) {
			open, closing := c.window(day)
			from := latest(open, a)
			to := earliest(closing, b)
			if to.After(from) {
				total += to.Sub(from)
			}
		}
		day = nextDay(day)
	}
	return total
}

// BusinessHoursBetween returns the business hours in [a, b]; 0 when b <= a.
func (c *Calendar) BusinessHoursBetween(a, b time.Time) float64 {
	return c.BusinessDuration(a, b).Hours()
}

// window returns the day's opening and closing instants by wall clock, so a
// DST change moves neither edge.
func (c *Calendar) window(t time.Time) (time.Time, time.Time) {
	y, m, d := t.Date()
	return time.Date(y, m, d, c.startHour, 0, 0, 0, t.Location()),
		time.Date(y, m, d, c.endHour, 0, 0, 0, t.Location())
}

// startOfDay is the first instant of t's date.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func nextDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}

func latest(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earliest(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func hoursToDuration(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}
