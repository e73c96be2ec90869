package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-sla/internal/domain"
)

// SLAConfigRepository reads both SLA configuration tables.
type SLAConfigRepository interface {
	ListCustomByCompany(ctx context.Context, companyID string) ([]domain.CustomSLAConfig, error)
	ListLegacyByCompany(ctx context.Context, companyID string) ([]domain.CompanySLAConfig, error)
	LoadCompanySet(ctx context.Context, companyID string) (domain.CompanySLAConfigSet, error)
}

type slaConfigRepository struct {
	pool *pgxpool.Pool
}

// NewSLAConfigRepository builds repository.
func NewSLAConfigRepository(pool *pgxpool.Pool) SLAConfigRepository {
	return &slaConfigRepository{pool: pool}
}

func (r *slaConfigRepository) ListCustomByCompany(ctx context.Context, companyID string) ([]domain.CustomSLAConfig, error) {
	const query = `
        SELECT id, company_id, department_id, incident_type_id, category_id, priority_id, priority_name,
               response_hours, resolution_hours, active, created_at, updated_at
        FROM custom_sla_configs WHERE company_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CustomSLAConfig
	for rows.Next() {
		var cfg domain.CustomSLAConfig
		if err := rows.Scan(
			&cfg.ID,
			&cfg.CompanyID,
			&cfg.DepartmentID,
			&cfg.IncidentTypeID,
			&cfg.CategoryID,
			&cfg.PriorityID,
			&cfg.PriorityName,
			&cfg.ResponseHours,
			&cfg.ResolutionHours,
			&cfg.Active,
			&cfg.CreatedAt,
			&cfg.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, cfg)
	}
	return result, rows.Err()
}

func (r *slaConfigRepository) ListLegacyByCompany(ctx context.Context, companyID string) ([]domain.CompanySLAConfig, error) {
	const query = `
        SELECT id, company_id, priority, response_hours, resolution_hours, created_at, updated_at
        FROM company_sla_configs WHERE company_id=$1 ORDER BY priority ASC`
	rows, err := r.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CompanySLAConfig
	for rows.Next() {
		var cfg domain.CompanySLAConfig
		if err := rows.Scan(
			&cfg.ID,
			&cfg.CompanyID,
			&cfg.Priority,
			&cfg.ResponseHours,
			&cfg.ResolutionHours,
			&cfg.CreatedAt,
			&cfg.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, cfg)
	}
	return result, rows.Err()
}

func (r *slaConfigRepository) LoadCompanySet(ctx context.Context, companyID string) (domain.CompanySLAConfigSet, error) {
	set := domain.CompanySLAConfigSet{CompanyID: companyID}
	custom, err := r.ListCustomByCompany(ctx, companyID)
	if err != nil {
		return set, err
	}
	legacy, err := r.ListLegacyByCompany(ctx, companyID)
	if err != nil {
		return set, err
	}
	set.Custom = custom
	set.Legacy = legacy
	return set, nil
}
