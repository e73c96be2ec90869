package sla

import "github.com/spec-kit/ticket-sla/internal/domain"

// Source records which configuration layer produced a Target.
type Source string

const (
	SourceCustom         Source = "custom"
	SourceCompanyDefault Source = "company_default"
	SourceSystemDefault  Source = "system_default"
)

// Target holds the SLA goals, in business hours, that apply to a ticket.
type Target struct {
	ResponseHours   float64 `json:"response_hours" yaml:"response_hours"`
	ResolutionHours float64 `json:"resolution_hours" yaml:"resolution_hours"`
	Source          Source  `json:"source" yaml:"source"`
	ConfigID        string  `json:"config_id,omitempty" yaml:"config_id,omitempty"`
}

func (t Target) valid() bool {
	return t.ResponseHours > 0 && t.ResolutionHours > 0
}

// Key identifies the ticket attributes that select an SLA target.
type Key struct {
	CompanyID      string
	DepartmentID   string
	IncidentTypeID string
	CategoryID     string
	PriorityName   string
	PriorityID     string
}

// KeyForTicket extracts the lookup key from a ticket.
func KeyForTicket(t *domain.Ticket) Key {
	key := Key{
		CompanyID:      t.CompanyID,
		DepartmentID:   t.DepartmentID,
		IncidentTypeID: t.IncidentTypeID,
		PriorityName:   t.Priority,
	}
	if t.CategoryID != nil {
		key.CategoryID = *t.CategoryID
	}
	if t.CustomPriorityID != nil {
		key.PriorityID = *t.CustomPriorityID
	}
	return key
}

func (k Key) hasPriority() bool {
	return k.PriorityName != "" || k.PriorityID != ""
}

// Strategy is one layer of SLA configuration.
type Strategy interface {
	Name() string
	Resolve(key Key) (Target, bool)
}

// Resolver asks each strategy in order; the first match wins.
type Resolver struct {
	strategies []Strategy
}

// NewResolver builds a resolver over the given layers.
func NewResolver(strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies}
}

// ForCompany returns the standard custom → company → system default chain.
func ForCompany(set domain.CompanySLAConfigSet) *Resolver {
	return NewResolver(
		NewCustomTable(set.Custom),
		NewCompanyTable(set.Legacy),
		NewDefaultTable(),
	)
}

// Resolve returns the applicable target, or nil when no layer knows the
// ticket's priority.
func (r *Resolver) Resolve(key Key) *Target {
	if !key.hasPriority() {
		return nil
	}
	for _, s := range r.strategies {
		if target, ok := s.Resolve(key); ok {
			return &target
		}
	}
	return nil
}

// ResolveTarget resolves a ticket's target against one company's configuration.
func ResolveTarget(set domain.CompanySLAConfigSet, key Key) *Target {
	return ForCompany(set).Resolve(key)
}

// CustomTable matches the per-department configuration on the exact
// company, department, incident type, category and priority combination.
type CustomTable struct {
	configs []domain.CustomSLAConfig
}

func NewCustomTable(configs []domain.CustomSLAConfig) CustomTable {
	return CustomTable{configs: configs}
}

func (CustomTable) Name() string { return string(SourceCustom) }

func (t CustomTable) Resolve(key Key) (Target, bool) {
	for _, cfg := range t.configs {
		if !cfg.Active ||
			cfg.CompanyID != key.CompanyID ||
			cfg.DepartmentID != key.DepartmentID ||
			cfg.IncidentTypeID != key.IncidentTypeID ||
			deref(cfg.CategoryID) != key.CategoryID {
			continue
		}
		if !customPriorityMatches(cfg, key) {
			continue
		}
		target := Target{
			ResponseHours:   cfg.ResponseHours,
			ResolutionHours: cfg.ResolutionHours,
			Source:          SourceCustom,
			ConfigID:        cfg.ID,
		}
		if target.valid() {
			return target, true
		}
	}
	return Target{}, false
}

func customPriorityMatches(cfg domain.CustomSLAConfig, key Key) bool {
	if cfg.PriorityID != nil && key.PriorityID != "" {
		return *cfg.PriorityID == key.PriorityID
	}
	return samePriority(cfg.PriorityName, key.PriorityName)
}

// CompanyTable is the legacy flat (company, priority) configuration.
type CompanyTable struct {
	configs []domain.CompanySLAConfig
}

func NewCompanyTable(configs []domain.CompanySLAConfig) CompanyTable {
	return CompanyTable{configs: configs}
}

func (CompanyTable) Name() string { return string(SourceCompanyDefault) }

func (t CompanyTable) Resolve(key Key) (Target, bool) {
	for _, cfg := range t.configs {
		if cfg.CompanyID != key.CompanyID || !samePriority(cfg.Priority, key.PriorityName) {
			continue
		}
		target := Target{
			ResponseHours:   cfg.ResponseHours,
			ResolutionHours: cfg.ResolutionHours,
			Source:          SourceCompanyDefault,
			ConfigID:        cfg.ID,
		}
		if target.valid() {
			return target, true
		}
	}
	return Target{}, false
}

// DefaultTable is the hardcoded last resort for the four canonical levels.
type DefaultTable struct {
	targets map[domain.TicketPriority]Target
}

// NewDefaultTable returns the built-in targets.
func NewDefaultTable() DefaultTable {
	return DefaultTable{targets: map[domain.TicketPriority]Target{
		domain.TicketPriorityLow:      {ResponseHours: 24, ResolutionHours: 48, Source: SourceSystemDefault},
		domain.TicketPriorityMedium:   {ResponseHours: 8, ResolutionHours: 24, Source: SourceSystemDefault},
		domain.TicketPriorityHigh:     {ResponseHours: 4, ResolutionHours: 8, Source: SourceSystemDefault},
		domain.TicketPriorityCritical: {ResponseHours: 1, ResolutionHours: 4, Source: SourceSystemDefault},
	}}
}

func (DefaultTable) Name() string { return string(SourceSystemDefault) }

func (t DefaultTable) Resolve(key Key) (Target, bool) {
	level, ok := CanonicalPriority(key.PriorityName)
	if !ok {
		return Target{}, false
	}
	target, ok := t.targets[level]
	return target, ok
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
