package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/ticket-sla/internal/sla"
)

// CalendarConfig is the business-hours definition shared by every evaluation.
type CalendarConfig struct {
	Workdays  []string      `yaml:"workdays"`
	StartHour int           `yaml:"start_hour"`
	EndHour   int           `yaml:"end_hour"`
	Timezone  string        `yaml:"timezone"`
	Holidays  []sla.Holiday `yaml:"holidays"`
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// DefaultCalendar is Monday to Friday, 08:00 to 18:00 UTC.
func DefaultCalendar() CalendarConfig {
	return CalendarConfig{
		Workdays:  []string{"mon", "tue", "wed", "thu", "fri"},
		StartHour: 8,
		EndHour:   18,
		Timezone:  "UTC",
	}
}

// LoadCalendar applies defaults, then the YAML file at path (if any), then
// BUSINESS_* environment overrides.
func LoadCalendar(path string) (CalendarConfig, error) {
	cfg := DefaultCalendar()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if v := os.Getenv("BUSINESS_TIMEZONE"); v != "" {
		cfg.Timezone = v
	}
	if v := os.Getenv("BUSINESS_WORKDAYS"); v != "" {
		cfg.Workdays = getEnvAsList("BUSINESS_WORKDAYS")
	}
	cfg.StartHour = getEnvAsInt("BUSINESS_START_HOUR", cfg.StartHour)
	cfg.EndHour = getEnvAsInt("BUSINESS_END_HOUR", cfg.EndHour)

	if _, err := cfg.Build(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Settings converts the configuration into calendar settings.
func (c CalendarConfig) Settings() (sla.CalendarSettings, error) {
	loc := time.UTC
	if c.Timezone != "" {
		l, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return sla.CalendarSettings{}, fmt.Errorf("timezone %q: %w", c.Timezone, err)
		}
		loc = l
	}

	workdays := make([]time.Weekday, 0, len(c.Workdays))
	for _, name := range c.Workdays {
		key := strings.ToLower(strings.TrimSpace(name))
		if len(key) > 3 {
			key = key[:3]
		}
		day, ok := weekdayNames[key]
		if !ok {
			return sla.CalendarSettings{}, fmt.Errorf("unknown workday %q", name)
		}
		workdays = append(workdays, day)
	}

	return sla.CalendarSettings{
		Workdays:  workdays,
		StartHour: c.StartHour,
		EndHour:   c.EndHour,
		Location:  loc,
		Holidays:  c.Holidays,
	}, nil
}

// Build validates the configuration and returns a ready calendar.
func (c CalendarConfig) Build() (*sla.Calendar, error) {
	settings, err := c.Settings()
	if err != nil {
		return nil, err
	}
	return sla.NewCalendar(settings)
}
