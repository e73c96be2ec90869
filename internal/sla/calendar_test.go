package sla

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2025-01-06 is a Monday.
func at(day, hour, minute int) time.Time {
	return time.Date(2025, 1, day, hour, minute, 0, 0, time.UTC)
}

func testCalendar(t *testing.T) *Calendar {
	t.Helper()
	c, err := NewCalendar(DefaultCalendarSettings())
	require.NoError(t, err)
	return c
}

func TestAddBusinessTime(t *testing.T) {
	c := testCalendar(t)

	tests := []struct {
		name  string
		start time.Time
		hours float64
		want  time.Time
	}{
		{"within the same day", at(6, 10, 0), 3, at(6, 13, 0)},
		{"forty hours from monday open ends friday close", at(6, 8, 0), 40, at(10, 18, 0)},
		{"friday late start rolls to monday", at(10, 17, 0), 2, at(13, 9, 0)},
		{"crossing end of day", at(6, 16, 0), 4, at(7, 10, 0)},
		{"start before opening is clamped", at(6, 6, 0), 1, at(6, 9, 0)},
		{"start on saturday is clamped", at(11, 10, 0), 1, at(13, 9, 0)},
		{"fractional hours", at(6, 8, 0), 1.5, at(6, 9, 30)},
		{"zero keeps a business start", at(6, 11, 0), 0, at(6, 11, 0)},
		{"zero clamps a weekend start", at(12, 11, 0), 0, at(13, 8, 0)},
		{"exactly one full day lands at close", at(7, 8, 0), 10, at(7, 18, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.AddBusinessTime(tt.start, tt.hours)
			assert.True(t, tt.want.Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}

func TestBusinessHoursBetween(t *testing.T) {
	c := testCalendar(t)

	tests := []struct {
		name string
		a, b time.Time
		want float64
	}{
		{"same instant", at(6, 10, 0), at(6, 10, 0), 0},
		{"reversed interval", at(7, 10, 0), at(6, 10, 0), 0},
		{"monday open to tuesday 14h", at(6, 8, 0), at(7, 14, 0), 16},
		{"weekend only", at(11, 0, 0), at(12, 23, 59), 0},
		{"friday evening to monday morning", at(10, 17, 0), at(13, 9, 0), 2},
		{"overnight outside hours", at(6, 19, 0), at(7, 7, 0), 0},
		{"full week", at(6, 0, 0), at(13, 0, 0), 50},
		{"partial hour", at(6, 8, 15), at(6, 8, 45), 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, c.BusinessHoursBetween(tt.a, tt.b), 1e-9)
		})
	}
}

func TestAddBusinessTimeRoundTrip(t *testing.T) {
	c := testCalendar(t)
	start := at(8, 15, 30)
	for _, hours := range []float64{0.25, 1, 2.5, 9, 10, 23, 55} {
		end := c.AddBusinessTime(start, hours)
		assert.InDelta(t, hours, c.BusinessHoursBetween(start, end), 1e-9, "hours=%v", hours)
	}
}

func TestIsBusinessTime(t *testing.T) {
	c := testCalendar(t)

	assert.True(t, c.IsBusinessTime(at(6, 8, 0)))
	assert.True(t, c.IsBusinessTime(at(6, 17, 59)))
	assert.False(t, c.IsBusinessTime(at(6, 18, 0)))
	assert.False(t, c.IsBusinessTime(at(6, 7, 59)))
	assert.False(t, c.IsBusinessTime(at(11, 10, 0)))
}

func TestCalendarHolidays(t *testing.T) {
	settings := DefaultCalendarSettings()
	settings.Holidays = []Holiday{
		{Name: "New Year", Month: time.January, Day: 1},
		{Name: "Company day", Month: time.January, Day: 8, Year: 2025},
	}
	c, err := NewCalendar(settings)
	require.NoError(t, err)

	t.Run("recurring holiday contributes nothing", func(t *testing.T) {
		from := time.Date(2024, 12, 31, 8, 0, 0, 0, time.UTC)
		to := time.Date(2025, 1, 2, 8, 0, 0, 0, time.UTC)
		assert.InDelta(t, 10, c.BusinessHoursBetween(from, to), 1e-9)
	})

	t.Run("one-time holiday is skipped when adding", func(t *testing.T) {
		got := c.AddBusinessTime(at(7, 17, 0), 2)
		assert.True(t, at(9, 9, 0).Equal(got), "got %s", got)
	})

	t.Run("one-time holiday only applies to its year", func(t *testing.T) {
		day := time.Date(2026, 1, 8, 10, 0, 0, 0, time.UTC) // Thursday
		assert.True(t, c.IsBusinessTime(day))
	})
}

func TestCalendarLocation(t *testing.T) {
	settings := DefaultCalendarSettings()
	settings.Location = time.FixedZone("BRT", -3*60*60)
	c, err := NewCalendar(settings)
	require.NoError(t, err)

	// 10:00 UTC is 07:00 local, before opening.
	got := c.AddBusinessTime(at(6, 10, 0), 1)
	assert.True(t, at(6, 12, 0).Equal(got), "got %s", got)
	assert.InDelta(t, 1, c.BusinessHoursBetween(at(6, 11, 0), at(6, 12, 0)), 1e-9)
}

func TestNewCalendarValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CalendarSettings)
	}{
		{"no workdays", func(s *CalendarSettings) { s.Workdays = nil }},
		{"start after end", func(s *CalendarSettings) { s.StartHour, s.EndHour = 18, 8 }},
		{"empty window", func(s *CalendarSettings) { s.StartHour, s.EndHour = 9, 9 }},
		{"end past midnight", func(s *CalendarSettings) { s.EndHour = 25 }},
		{"bad holiday", func(s *CalendarSettings) { s.Holidays = []Holiday{{Name: "x", Month: 13, Day: 1}} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := DefaultCalendarSettings()
			tt.mutate(&settings)
			_, err := NewCalendar(settings)
			assert.ErrorIs(t, err, ErrInvalidCalendar)
		})
	}
}

func TestCalendarWindowAcrossDSTChanges(t *testing.T) {
	everyDay := []time.Weekday{time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday}

	tests := []struct {
		zone  string
		year  int
		month time.Month
		day   int
	}{
		{"Asia/Tehran", 2022, time.March, 22},        // midnight skipped
		{"Asia/Tehran", 2022, time.September, 22},    // midnight repeated
		{"America/New_York", 2025, time.March, 9},    // 02:00 skipped
		{"America/New_York", 2025, time.November, 2}, // 01:00 repeated
	}

	for _, tt := range tests {
		t.Run(tt.zone+" "+tt.month.String(), func(t *testing.T) {
			loc, err := time.LoadLocation(tt.zone)
			require.NoError(t, err)
			c, err := NewCalendar(CalendarSettings{Workdays: everyDay, StartHour: 8, EndHour: 18, Location: loc})
			require.NoError(t, err)

			local := func(hour, minute int) time.Time {
				return time.Date(tt.year, tt.month, tt.day, hour, minute, 0, 0, loc)
			}

			assert.True(t, c.IsBusinessTime(local(8, 30)))
			assert.False(t, c.IsBusinessTime(local(7, 59)))
			assert.False(t, c.IsBusinessTime(local(18, 0)))
			assert.True(t, local(8, 0).Equal(c.NextBusinessInstant(local(6, 0))))
			assert.InDelta(t, 10, c.BusinessHoursBetween(local(8, 0), local(18, 0)), 1e-9)
			assert.True(t, local(17, 0).Equal(c.AddBusinessTime(local(8, 0), 9)))
		})
	}
}

func TestNextBusinessInstantFromSkippedMidnight(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Tehran")
	require.NoError(t, err)
	c, err := NewCalendar(CalendarSettings{
		Workdays:  []time.Weekday{time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday},
		StartHour: 8,
		EndHour:   18,
		Location:  loc,
	})
	require.NoError(t, err)

	midnight := time.Date(2022, time.March, 22, 0, 0, 0, 0, loc)
	want := time.Date(2022, time.March, 22, 8, 0, 0, 0, loc)
	assert.True(t, want.Equal(c.NextBusinessInstant(midnight)), "got %s", c.NextBusinessInstant(midnight))

	previousEvening := time.Date(2022, time.March, 21, 18, 0, 0, 0, loc)
	assert.True(t, want.Equal(c.NextBusinessInstant(previousEvening)))
}
