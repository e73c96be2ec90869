package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/ticket-sla/internal/domain"
	"github.com/spec-kit/ticket-sla/internal/observability"
	"github.com/spec-kit/ticket-sla/internal/repository"
	"github.com/spec-kit/ticket-sla/internal/sla"
	apperrors "github.com/spec-kit/ticket-sla/pkg/util/errorutil"
)

// ConfigSource supplies a company's SLA configuration, usually through the cache.
type ConfigSource interface {
	LoadCompanySet(ctx context.Context, companyID string) (domain.CompanySLAConfigSet, error)
}

// SLAService loads tickets and their history, resolves targets and runs the clock.
type SLAService struct {
	tickets     repository.TicketRepository
	history     repository.TicketHistoryRepository
	configs     ConfigSource
	calendar    *sla.Calendar
	logger      *zap.Logger
	metrics     *observability.Metrics
	concurrency int
	maxBatch    int
}

// SLADependencies bundles collaborators for the SLA service.
type SLADependencies struct {
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.TicketHistoryRepository
	Configs     ConfigSource
	Calendar    *sla.Calendar
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	Concurrency int
	MaxBatch    int
}

// TicketSLA is one ticket's evaluation together with the periods it was computed from.
type TicketSLA struct {
	Ticket      domain.Ticket
	Status      sla.Status
	Periods     []sla.StatusPeriod
	EvaluatedAt time.Time
}

// BatchItem is one entry of a batch evaluation; exactly one of SLA or Err is set.
type BatchItem struct {
	TicketID string
	SLA      *TicketSLA
	Err      error
}

// NewSLAService constructs the service.
func NewSLAService(deps SLADependencies) *SLAService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	calendar := deps.Calendar
	if calendar == nil {
		calendar = sla.MustCalendar(sla.DefaultCalendarSettings())
	}
	concurrency := deps.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}
	maxBatch := deps.MaxBatch
	if maxBatch <= 0 {
		maxBatch = 200
	}
	return &SLAService{
		tickets:     deps.TicketRepo,
		history:     deps.HistoryRepo,
		configs:     deps.Configs,
		calendar:    calendar,
		logger:      logger,
		metrics:     deps.Metrics,
		concurrency: concurrency,
		maxBatch:    maxBatch,
	}
}

// Calendar returns the business calendar evaluations run against.
func (s *SLAService) Calendar() *sla.Calendar {
	return s.calendar
}

// EvaluateTicket evaluates one stored ticket as of now.
func (s *SLAService) EvaluateTicket(ctx context.Context, ticketID string, now time.Time) (*TicketSLA, error) {
	started := time.Now()

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, fmt.Errorf("load ticket %s: %w", ticketID, err)
	}
	history, err := s.history.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", ticket.ID, err)
	}
	set, err := s.configs.LoadCompanySet(ctx, ticket.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("load sla configs for company %s: %w", ticket.CompanyID, err)
	}

	result, err := s.evaluate(*ticket, domain.StatusEventsFromHistory(history), sla.ResolveTarget(set, sla.KeyForTicket(ticket)), now)
	s.record(result, started)
	return result, err
}

// EvaluateTickets evaluates many stored tickets against a single now. Results
// follow the order of ticketIDs; a failing ticket only fails its own entry.
func (s *SLAService) EvaluateTickets(ctx context.Context, ticketIDs []string, now time.Time) ([]BatchItem, error) {
	if len(ticketIDs) == 0 {
		return []BatchItem{}, nil
	}
	if len(ticketIDs) > s.maxBatch {
		return nil, apperrors.NewValidationError("too many tickets in one request", map[string]any{
			"max":      s.maxBatch,
			"received": len(ticketIDs),
		})
	}

	unique := dedupe(ticketIDs)
	tickets, err := s.tickets.GetByIDs(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("load tickets: %w", err)
	}
	byID := make(map[string]domain.Ticket, len(tickets))
	companies := make(map[string]struct{})
	for _, t := range tickets {
		byID[t.ID] = t
		companies[t.CompanyID] = struct{}{}
	}

	histories, err := s.history.ListByTickets(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	configSets := make(map[string]domain.CompanySLAConfigSet, len(companies))
	configErrs := make(map[string]error)
	for companyID := range companies {
		set, err := s.configs.LoadCompanySet(ctx, companyID)
		if err != nil {
			s.logger.Warn("sla config load failed", zap.String("company_id", companyID), zap.Error(err))
			configErrs[companyID] = err
			continue
		}
		configSets[companyID] = set
	}

	results := make(map[string]BatchItem, len(unique))
	slots := make([]BatchItem, len(unique))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, id := range unique {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				slots[i] = BatchItem{TicketID: id, Err: err}
				return nil
			}
			ticket, ok := byID[id]
			if !ok {
				slots[i] = BatchItem{TicketID: id, Err: apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})}
				return nil
			}
			if err := configErrs[ticket.CompanyID]; err != nil {
				slots[i] = BatchItem{TicketID: id, Err: fmt.Errorf("load sla configs for company %s: %w", ticket.CompanyID, err)}
				return nil
			}
			started := time.Now()
			target := sla.ResolveTarget(configSets[ticket.CompanyID], sla.KeyForTicket(&ticket))
			result, err := s.evaluate(ticket, domain.StatusEventsFromHistory(histories[id]), target, now)
			s.record(result, started)
			slots[i] = BatchItem{TicketID: id, SLA: result, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	for _, item := range slots {
		results[item.TicketID] = item
	}
	out := make([]BatchItem, len(ticketIDs))
	for i, id := range ticketIDs {
		out[i] = results[id]
	}
	return out, nil
}

// EvaluateSnapshot runs the evaluation on caller-supplied data without touching storage.
func (s *SLAService) EvaluateSnapshot(snapshot Snapshot, now time.Time) (*TicketSLA, error) {
	started := time.Now()
	ticket := snapshot.Ticket()
	target := snapshot.Target
	if target == nil {
		target = sla.ResolveTarget(snapshot.Configs, sla.KeyForTicket(&ticket))
	}
	result, err := s.evaluate(ticket, snapshot.History, target, now)
	s.record(result, started)
	return result, err
}

// Deadline projects hours of business time from start.
func (s *SLAService) Deadline(start time.Time, hours float64) (time.Time, error) {
	if start.IsZero() {
		return time.Time{}, apperrors.NewInvalidInput("start is required", sla.ErrInvalidTimestamp)
	}
	if hours < 0 {
		return time.Time{}, apperrors.NewValidationError("hours must not be negative", map[string]any{"hours": hours})
	}
	return sla.Deadline(s.calendar, start, hours), nil
}

// CompanyConfigs returns the configuration set used for a company.
func (s *SLAService) CompanyConfigs(ctx context.Context, companyID string) (domain.CompanySLAConfigSet, error) {
	return s.configs.LoadCompanySet(ctx, companyID)
}

func (s *SLAService) evaluate(ticket domain.Ticket, events []domain.StatusChangeEvent, target *sla.Target, now time.Time) (*TicketSLA, error) {
	periods := sla.BuildPeriods(ticket.CreatedAt, ticket.Status, events)
	status, err := sla.Evaluate(s.calendar, sla.EvaluationInput{
		CreatedAt:       ticket.CreatedAt,
		Target:          target,
		Now:             now,
		FirstResponseAt: ticket.FirstResponseAt,
		ResolvedAt:      ticket.ResolvedAt,
		Periods:         periods,
		CurrentStatus:   ticket.Status,
	})
	if err != nil {
		return nil, apperrors.NewInvalidInput(fmt.Sprintf("ticket %s has unusable timestamps", ticket.ID), err)
	}
	return &TicketSLA{Ticket: ticket, Status: status, Periods: periods, EvaluatedAt: now}, nil
}

func (s *SLAService) record(result *TicketSLA, started time.Time) {
	if result == nil {
		return
	}
	s.metrics.RecordEvaluation(string(result.Status.Level), time.Since(started))
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
