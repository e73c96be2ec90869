package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-sla/internal/domain"
	"github.com/spec-kit/ticket-sla/internal/repository"
	"github.com/spec-kit/ticket-sla/internal/sla"
	apperrors "github.com/spec-kit/ticket-sla/pkg/util/errorutil"
)

// 2025-01-06 is a Monday.
func at(day, hour, minute int) time.Time {
	return time.Date(2025, 1, day, hour, minute, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

type fakeTickets struct {
	byID map[string]domain.Ticket
}

func (f *fakeTickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	t, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (f *fakeTickets) GetByExternalKey(context.Context, string) (*domain.Ticket, error) {
	return nil, pgx.ErrNoRows
}

func (f *fakeTickets) GetByIDs(_ context.Context, ids []string) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, id := range ids {
		if t, ok := f.byID[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTickets) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, t := range f.byID {
		out = append(out, t)
	}
	return out, nil
}

type fakeHistory struct {
	byTicket map[string][]domain.TicketHistory
}

func (f *fakeHistory) ListByTicket(_ context.Context, id string) ([]domain.TicketHistory, error) {
	return f.byTicket[id], nil
}

func (f *fakeHistory) ListByTickets(_ context.Context, ids []string) (map[string][]domain.TicketHistory, error) {
	out := make(map[string][]domain.TicketHistory)
	for _, id := range ids {
		if h, ok := f.byTicket[id]; ok {
			out[id] = h
		}
	}
	return out, nil
}

type fakeConfigs struct {
	mu     sync.Mutex
	sets   map[string]domain.CompanySLAConfigSet
	broken map[string]bool
	calls  map[string]int
}

func (f *fakeConfigs) LoadCompanySet(_ context.Context, companyID string) (domain.CompanySLAConfigSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[companyID]++
	if f.broken[companyID] {
		return domain.CompanySLAConfigSet{}, errors.New("connection reset")
	}
	set := f.sets[companyID]
	set.CompanyID = companyID
	return set, nil
}

func statusRow(ticketID string, from, to domain.TicketStatus, when time.Time) domain.TicketHistory {
	return domain.TicketHistory{
		TicketID:   ticketID,
		ChangeType: domain.ChangeTypeStatus,
		OldValue:   map[string]any{"status": string(from)},
		NewValue:   map[string]any{"status": string(to)},
		CreatedAt:  when,
	}
}

func newTestService(t *testing.T) (*SLAService, *fakeConfigs) {
	t.Helper()
	tickets := &fakeTickets{byID: map[string]domain.Ticket{
		"t-1": {ID: "t-1", CompanyID: "acme", Status: domain.TicketStatusOngoing, Priority: "Alta", CreatedAt: at(6, 8, 0)},
		"t-2": {ID: "t-2", CompanyID: "globex", Status: domain.TicketStatusNew, Priority: "low", CreatedAt: at(6, 8, 0)},
		"t-3": {ID: "t-3", CompanyID: "initech", Status: domain.TicketStatusNew, Priority: "high", CreatedAt: at(6, 8, 0)},
		"t-4": {ID: "t-4", CompanyID: "acme", Status: domain.TicketStatusWaitingCustomer, Priority: "alta", CreatedAt: at(6, 8, 0)},
		"t-5": {ID: "t-5", CompanyID: "acme", Status: domain.TicketStatusNew, Priority: "alta", CreatedAt: at(6, 8, 0), FirstResponseAt: ptr(at(3, 8, 0))},
	}}
	history := &fakeHistory{byTicket: map[string][]domain.TicketHistory{
		"t-1": {statusRow("t-1", domain.TicketStatusNew, domain.TicketStatusOngoing, at(6, 9, 0))},
		"t-4": {
			statusRow("t-4", domain.TicketStatusNew, domain.TicketStatusWaitingCustomer, at(6, 10, 0)),
			{TicketID: "t-4", ChangeType: domain.ChangeTypePriority, NewValue: map[string]any{"priority": "low"}, CreatedAt: at(6, 11, 0)},
		},
	}}
	configs := &fakeConfigs{
		sets: map[string]domain.CompanySLAConfigSet{
			"acme": {Legacy: []domain.CompanySLAConfig{
				{ID: "cfg-alta", CompanyID: "acme", Priority: "alta", ResponseHours: 2, ResolutionHours: 6},
			}},
		},
		broken: map[string]bool{"initech": true},
	}
	svc := NewSLAService(SLADependencies{
		TicketRepo:  tickets,
		HistoryRepo: history,
		Configs:     configs,
		Concurrency: 2,
		MaxBatch:    10,
	})
	return svc, configs
}

func TestEvaluateTicket(t *testing.T) {
	svc, _ := newTestService(t)

	result, err := svc.EvaluateTicket(context.Background(), "t-1", at(6, 12, 0))
	require.NoError(t, err)

	status := result.Status
	require.True(t, status.Configured)
	assert.Equal(t, sla.SourceCompanyDefault, status.Target.Source)
	assert.Equal(t, "cfg-alta", status.Target.ConfigID)
	assert.InDelta(t, -2, status.Response.RemainingHours, 1e-9)
	assert.Equal(t, sla.LevelBreached, status.Response.Level)
	assert.InDelta(t, 2, status.Resolution.RemainingHours, 1e-9)
	assert.Equal(t, sla.LevelWarning, status.Resolution.Level)
	assert.Equal(t, sla.LevelBreached, status.Level)
	assert.Len(t, result.Periods, 2)
	assert.True(t, at(6, 12, 0).Equal(result.EvaluatedAt))
}

func TestEvaluateTicketPausedIgnoresOtherChanges(t *testing.T) {
	svc, _ := newTestService(t)

	early, err := svc.EvaluateTicket(context.Background(), "t-4", at(6, 12, 0))
	require.NoError(t, err)
	later, err := svc.EvaluateTicket(context.Background(), "t-4", at(8, 12, 0))
	require.NoError(t, err)

	assert.True(t, early.Status.Paused)
	assert.Len(t, early.Periods, 2, "priority change must not split periods")
	assert.InDelta(t, 4, early.Status.Resolution.RemainingHours, 1e-9)
	assert.Equal(t, early.Status, later.Status)
}

func TestEvaluateTicketErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.EvaluateTicket(ctx, "missing", at(6, 12, 0))
	de := apperrors.ToDomainError(err)
	assert.Equal(t, "NOT_FOUND", de.Code)

	_, err = svc.EvaluateTicket(ctx, "t-5", at(6, 12, 0))
	de = apperrors.ToDomainError(err)
	assert.Equal(t, "INVALID_INPUT", de.Code)
	assert.ErrorIs(t, err, sla.ErrInvalidTimestamp)

	_, err = svc.EvaluateTicket(ctx, "t-3", at(6, 12, 0))
	assert.ErrorContains(t, err, "connection reset")
}

func TestEvaluateTicketsPartialFailure(t *testing.T) {
	svc, configs := newTestService(t)
	now := at(6, 12, 0)

	items, err := svc.EvaluateTickets(context.Background(), []string{"t-2", "missing", "t-3", "t-1", "t-2"}, now)
	require.NoError(t, err)
	require.Len(t, items, 5)

	assert.Equal(t, "t-2", items[0].TicketID)
	require.NoError(t, items[0].Err)
	assert.Equal(t, sla.SourceSystemDefault, items[0].SLA.Status.Target.Source)
	assert.Equal(t, sla.LevelOK, items[0].SLA.Status.Level)

	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(items[1].Err).Code)
	assert.Error(t, items[2].Err)
	require.NoError(t, items[3].Err)
	assert.Equal(t, sla.LevelBreached, items[3].SLA.Status.Level)
	assert.Equal(t, items[0], items[4])

	assert.Equal(t, 1, configs.calls["acme"], "configs load once per company")
}

func TestEvaluateTicketsLimits(t *testing.T) {
	svc, _ := newTestService(t)

	items, err := svc.EvaluateTickets(context.Background(), nil, at(6, 12, 0))
	require.NoError(t, err)
	assert.Empty(t, items)

	ids := make([]string, 11)
	for i := range ids {
		ids[i] = "t-1"
	}
	_, err = svc.EvaluateTickets(context.Background(), ids, at(6, 12, 0))
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestEvaluateSnapshot(t *testing.T) {
	svc, _ := newTestService(t)

	snapshot := Snapshot{
		TicketID:  "ext-1",
		CompanyID: "acme",
		Priority:  "urgente",
		CreatedAt: at(6, 8, 0),
		Status:    domain.TicketStatusResolved,
		History: []domain.StatusChangeEvent{
			{OldStatus: domain.TicketStatusNew, NewStatus: domain.TicketStatusWaitingCustomer, At: at(6, 9, 0)},
			{OldStatus: domain.TicketStatusWaitingCustomer, NewStatus: domain.TicketStatusOngoing, At: at(6, 13, 0)},
			{OldStatus: domain.TicketStatusOngoing, NewStatus: domain.TicketStatusResolved, At: at(6, 15, 0)},
		},
		FirstResponseAt: ptr(at(6, 8, 30)),
		ResolvedAt:      ptr(at(6, 15, 0)),
	}

	result, err := svc.EvaluateSnapshot(snapshot, at(9, 9, 0))
	require.NoError(t, err)
	status := result.Status
	assert.Equal(t, sla.SourceSystemDefault, status.Target.Source)
	assert.True(t, status.Resolution.Met)
	assert.InDelta(t, 3, status.Resolution.ElapsedHours, 1e-9)
	assert.False(t, status.Resolution.MetLate)
	assert.Equal(t, sla.LevelOK, status.Level)

	snapshot.Target = &sla.Target{ResponseHours: 0.25, ResolutionHours: 2, Source: sla.SourceCustom}
	result, err = svc.EvaluateSnapshot(snapshot, at(9, 9, 0))
	require.NoError(t, err)
	assert.True(t, result.Status.Response.MetLate)
	assert.True(t, result.Status.Resolution.MetLate)
	assert.Equal(t, sla.LevelBreached, result.Status.Level)
}

func TestEvaluateSnapshotWithoutPriority(t *testing.T) {
	svc, _ := newTestService(t)

	result, err := svc.EvaluateSnapshot(Snapshot{TicketID: "x", CreatedAt: at(6, 8, 0)}, at(6, 9, 0))
	require.NoError(t, err)
	assert.False(t, result.Status.Configured)
	assert.Equal(t, domain.TicketStatusNew, result.Ticket.Status)
}

func TestDeadline(t *testing.T) {
	svc, _ := newTestService(t)

	got, err := svc.Deadline(at(10, 17, 0), 2)
	require.NoError(t, err)
	assert.True(t, at(13, 9, 0).Equal(got), "got %s", got)

	_, err = svc.Deadline(time.Time{}, 2)
	assert.Equal(t, "INVALID_INPUT", apperrors.ToDomainError(err).Code)
	_, err = svc.Deadline(at(10, 17, 0), -1)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}
