package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-sla/internal/domain"
	"github.com/spec-kit/ticket-sla/internal/events"
	"github.com/spec-kit/ticket-sla/internal/observability"
	"github.com/spec-kit/ticket-sla/internal/repository"
	"github.com/spec-kit/ticket-sla/internal/service"
	"github.com/spec-kit/ticket-sla/internal/sla"
)

type ticketLister interface {
	ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error)
}

type batchEvaluator interface {
	EvaluateTickets(ctx context.Context, ticketIDs []string, now time.Time) ([]service.BatchItem, error)
}

// LevelStore remembers the last level announced per ticket.
type LevelStore interface {
	Last(ctx context.Context, ticketID string) (string, error)
	Remember(ctx context.Context, ticketID, level string) error
	Forget(ctx context.Context, ticketID string) error
}

// SweepStats summarizes one sweep.
type SweepStats struct {
	Scanned   int
	Evaluated int
	Changed   int
	Failed    int
}

// SLASweeper periodically evaluates open tickets and publishes an event
// whenever a ticket's SLA level differs from the last one announced.
type SLASweeper struct {
	tickets    ticketLister
	evaluator  batchEvaluator
	levels     LevelStore
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	schedule   string
	pageSize   int
	now        func() time.Time
	cron       *cron.Cron
}

// SweeperDependencies bundles collaborators for the sweeper.
type SweeperDependencies struct {
	TicketRepo ticketLister
	Evaluator  batchEvaluator
	Levels     LevelStore
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Schedule   string
	PageSize   int
	Now        func() time.Time
}

// NewSLASweeper builds a sweeper. Without a level store, levels are kept in memory.
func NewSLASweeper(deps SweeperDependencies) *SLASweeper {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	levels := deps.Levels
	if levels == nil {
		levels = newMemoryLevels()
	}
	pageSize := deps.PageSize
	if pageSize <= 0 {
		pageSize = 200
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	schedule := deps.Schedule
	if schedule == "" {
		schedule = "@every 1m"
	}
	return &SLASweeper{
		tickets:    deps.TicketRepo,
		evaluator:  deps.Evaluator,
		levels:     levels,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		metrics:    deps.Metrics,
		schedule:   schedule,
		pageSize:   pageSize,
		now:        now,
	}
}

// Start schedules the sweep. Overlapping runs are skipped.
func (s *SLASweeper) Start(ctx context.Context) error {
	cronLogger := cronLogger{s.logger.Sugar()}
	s.cron = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	if _, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Error("sla sweep failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("schedule sla sweep %q: %w", s.schedule, err)
	}
	s.cron.Start()
	s.logger.Info("sla sweeper started", zap.String("schedule", s.schedule))
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *SLASweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// Sweep evaluates every open ticket once against a single instant.
func (s *SLASweeper) Sweep(ctx context.Context) (SweepStats, error) {
	var stats SweepStats
	now := s.now()

	for offset := 0; ; offset += s.pageSize {
		page, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
			Statuses:      openStatuses(),
			CreatedBefore: &now,
			Limit:         s.pageSize,
			Offset:        offset,
		})
		if err != nil {
			s.fail(ctx, "list", err)
			return stats, fmt.Errorf("list open tickets: %w", err)
		}
		if len(page) == 0 {
			break
		}
		stats.Scanned += len(page)

		if err := s.sweepPage(ctx, page, now, &stats); err != nil {
			s.fail(ctx, "evaluate", err)
			return stats, err
		}
		if len(page) < s.pageSize {
			break
		}
	}

	s.metrics.RecordSweep("ok")
	s.logger.Info("sla sweep finished",
		zap.Int("scanned", stats.Scanned),
		zap.Int("evaluated", stats.Evaluated),
		zap.Int("changed", stats.Changed),
		zap.Int("failed", stats.Failed))
	return stats, nil
}

func (s *SLASweeper) sweepPage(ctx context.Context, page []domain.Ticket, now time.Time, stats *SweepStats) error {
	ids := make([]string, len(page))
	for i, t := range page {
		ids[i] = t.ID
	}
	items, err := s.evaluator.EvaluateTickets(ctx, ids, now)
	if err != nil {
		return fmt.Errorf("evaluate tickets: %w", err)
	}

	for _, item := range items {
		if item.Err != nil {
			stats.Failed++
			s.logger.Warn("sla evaluation failed", zap.String("ticket_id", item.TicketID), zap.Error(item.Err))
			continue
		}
		stats.Evaluated++
		if sla.IsTerminal(item.SLA.Ticket.Status) {
			// resolved since the page was listed; it will not be swept again
			if err := s.levels.Forget(ctx, item.TicketID); err != nil {
				s.logger.Warn("forget sla level failed", zap.String("ticket_id", item.TicketID), zap.Error(err))
			}
			continue
		}
		if !item.SLA.Status.Configured {
			continue
		}
		changed, err := s.announce(ctx, item.SLA, now)
		if err != nil {
			stats.Failed++
			s.logger.Warn("sla level announcement failed", zap.String("ticket_id", item.TicketID), zap.Error(err))
			continue
		}
		if changed {
			stats.Changed++
		}
	}
	return nil
}

func (s *SLASweeper) announce(ctx context.Context, result *service.TicketSLA, now time.Time) (bool, error) {
	ticket := result.Ticket
	status := result.Status
	level := string(status.Level)

	previous, err := s.levels.Last(ctx, ticket.ID)
	if err != nil {
		return false, fmt.Errorf("read last level: %w", err)
	}
	if previous == level {
		return false, nil
	}

	payload := events.SLALevelChangedPayload{
		CompanyID:       ticket.CompanyID,
		ExternalKey:     ticket.ExternalKey,
		PreviousLevel:   previous,
		Level:           level,
		ResponseLevel:   string(status.Response.Level),
		ResolutionLevel: string(status.Resolution.Level),
		RemainingHours:  status.Resolution.RemainingHours,
		PercentConsumed: status.PercentConsumed,
		Paused:          status.Paused,
		Deadline:        status.Resolution.Deadline,
	}
	if status.Target != nil {
		payload.TargetSource = string(status.Target.Source)
	}

	if s.dispatcher != nil {
		event := events.NewEvent(events.EventSLALevelChanged, ticket.ID, now, payload)
		if err := s.dispatcher.Publish(ctx, event); err != nil {
			// the level is not remembered, so the next sweep retries
			return false, err
		}
	}
	if err := s.levels.Remember(ctx, ticket.ID, level); err != nil {
		return false, fmt.Errorf("remember level: %w", err)
	}
	s.metrics.RecordLevelChange(level)
	return true, nil
}

func (s *SLASweeper) fail(ctx context.Context, stage string, err error) {
	s.metrics.RecordSweep("failed")
	if s.dispatcher == nil || errors.Is(err, context.Canceled) {
		return
	}
	event := events.NewEvent(events.EventSLASweepFailed, "", s.now(), events.SLASweepFailedPayload{
		Stage: stage,
		Error: err.Error(),
	})
	_ = s.dispatcher.Publish(ctx, event)
}

func openStatuses() []domain.TicketStatus {
	out := make([]domain.TicketStatus, 0, len(domain.TicketStatuses))
	for _, status := range domain.TicketStatuses {
		if !sla.IsTerminal(status) {
			out = append(out, status)
		}
	}
	return out
}

type memoryLevels struct {
	mu     sync.Mutex
	levels map[string]string
}

func newMemoryLevels() *memoryLevels {
	return &memoryLevels{levels: make(map[string]string)}
}

func (m *memoryLevels) Last(_ context.Context, ticketID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.levels[ticketID], nil
}

func (m *memoryLevels) Remember(_ context.Context, ticketID, level string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels[ticketID] = level
	return nil
}

func (m *memoryLevels) Forget(_ context.Context, ticketID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.levels, ticketID)
	return nil
}

type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
