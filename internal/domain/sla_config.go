package domain

import "time"

// CustomSLAConfig is the per-department SLA rule keyed by the full
// company/department/incident type/category/priority combination.
type CustomSLAConfig struct {
	ID              string    `json:"id" yaml:"id"`
	CompanyID       string    `json:"company_id" yaml:"company_id"`
	DepartmentID    string    `json:"department_id" yaml:"department_id"`
	IncidentTypeID  string    `json:"incident_type_id" yaml:"incident_type_id"`
	CategoryID      *string   `json:"category_id,omitempty" yaml:"category_id,omitempty"`
	PriorityID      *string   `json:"priority_id,omitempty" yaml:"priority_id,omitempty"`
	PriorityName    string    `json:"priority_name" yaml:"priority_name"`
	ResponseHours   float64   `json:"response_hours" yaml:"response_hours"`
	ResolutionHours float64   `json:"resolution_hours" yaml:"resolution_hours"`
	Active          bool      `json:"active" yaml:"active"`
	CreatedAt       time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" yaml:"updated_at"`
}

// CompanySLAConfig is the legacy flat rule keyed by company and priority name.
type CompanySLAConfig struct {
	ID              string    `json:"id" yaml:"id"`
	CompanyID       string    `json:"company_id" yaml:"company_id"`
	Priority        string    `json:"priority" yaml:"priority"`
	ResponseHours   float64   `json:"response_hours" yaml:"response_hours"`
	ResolutionHours float64   `json:"resolution_hours" yaml:"resolution_hours"`
	CreatedAt       time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" yaml:"updated_at"`
}

// CompanySLAConfigSet bundles every SLA rule that belongs to one company.
type CompanySLAConfigSet struct {
	CompanyID string             `json:"company_id" yaml:"company_id"`
	Custom    []CustomSLAConfig  `json:"custom" yaml:"custom"`
	Legacy    []CompanySLAConfig `json:"legacy" yaml:"legacy"`
}
