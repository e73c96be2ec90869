package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-sla/internal/api/http/handlers"
	"github.com/spec-kit/ticket-sla/internal/domain"
	"github.com/spec-kit/ticket-sla/internal/observability"
	"github.com/spec-kit/ticket-sla/internal/repository"
	"github.com/spec-kit/ticket-sla/internal/service"
)

// 2025-01-06 is a Monday.
func at(day, hour int) time.Time {
	return time.Date(2025, 1, day, hour, 0, 0, 0, time.UTC)
}

type stubTickets map[string]domain.Ticket

func (s stubTickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	t, ok := s[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (s stubTickets) GetByExternalKey(context.Context, string) (*domain.Ticket, error) {
	return nil, pgx.ErrNoRows
}

func (s stubTickets) GetByIDs(_ context.Context, ids []string) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, id := range ids {
		if t, ok := s[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s stubTickets) ListWithFilter(context.Context, repository.TicketFilter) ([]domain.Ticket, error) {
	return nil, nil
}

type stubHistory map[string][]domain.TicketHistory

func (s stubHistory) ListByTicket(_ context.Context, id string) ([]domain.TicketHistory, error) {
	return s[id], nil
}

func (s stubHistory) ListByTickets(_ context.Context, ids []string) (map[string][]domain.TicketHistory, error) {
	out := map[string][]domain.TicketHistory{}
	for _, id := range ids {
		out[id] = s[id]
	}
	return out, nil
}

type stubConfigs map[string]domain.CompanySLAConfigSet

func (s stubConfigs) LoadCompanySet(_ context.Context, companyID string) (domain.CompanySLAConfigSet, error) {
	set := s[companyID]
	set.CompanyID = companyID
	return set, nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func newTestApp(t *testing.T, postgres, redis error) *fiber.App {
	t.Helper()
	svc := service.NewSLAService(service.SLADependencies{
		TicketRepo: stubTickets{
			"t-1": {ID: "t-1", CompanyID: "acme", Status: domain.TicketStatusOngoing, Priority: "alta", CreatedAt: at(6, 8)},
		},
		HistoryRepo: stubHistory{
			"t-1": {{
				TicketID:   "t-1",
				ChangeType: domain.ChangeTypeStatus,
				OldValue:   map[string]any{"status": "new"},
				NewValue:   map[string]any{"status": "ongoing"},
				CreatedAt:  at(6, 9),
			}},
		},
		Configs: stubConfigs{
			"acme": {Legacy: []domain.CompanySLAConfig{
				{ID: "cfg-alta", CompanyID: "acme", Priority: "alta", ResponseHours: 2, ResolutionHours: 6},
			}},
		},
	})
	metrics := observability.NewMetrics()

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:  handlers.NewHealthHandler("ticket-sla", "test", stubPinger{postgres}, stubPinger{redis}),
		SLA:     handlers.NewSLAHandler(svc, func() time.Time { return at(6, 12) }),
		Metrics: metrics,
	})
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp.StatusCode, decoded
}

func errorCode(body map[string]any) string {
	return body["error"].(map[string]any)["code"].(string)
}

func TestGetTicketSLA(t *testing.T) {
	app := newTestApp(t, nil, nil)

	status, body := do(t, app, nethttp.MethodGet, "/tickets/t-1/sla?periods=true", "")
	require.Equal(t, fiber.StatusOK, status)

	data := body["data"].(map[string]any)
	assert.Equal(t, true, data["configured"])
	assert.Equal(t, "breached", data["level"])
	assert.Equal(t, "Response: exceeded by 2h", data["label"])
	assert.Equal(t, 2.0, data["resolution"].(map[string]any)["remaining_hours"])
	assert.Equal(t, "company_default", data["target"].(map[string]any)["source"])
	assert.Len(t, data["periods"], 2)
}

func TestGetTicketSLAExplicitNow(t *testing.T) {
	app := newTestApp(t, nil, nil)

	status, body := do(t, app, nethttp.MethodGet, "/tickets/t-1/sla?now=2025-01-06T09:00:00Z", "")
	require.Equal(t, fiber.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, "critical", data["level"])
	assert.Nil(t, data["periods"])
}

func TestGetTicketSLAErrors(t *testing.T) {
	app := newTestApp(t, nil, nil)

	status, body := do(t, app, nethttp.MethodGet, "/tickets/missing/sla", "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))

	status, body = do(t, app, nethttp.MethodGet, "/tickets/t-1/sla?now=yesterday", "")
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, "INVALID_INPUT", errorCode(body))
}

func TestBatchTicketSLA(t *testing.T) {
	app := newTestApp(t, nil, nil)

	status, body := do(t, app, nethttp.MethodPost, "/tickets/sla", `{"ticket_ids":["t-1","missing"]}`)
	require.Equal(t, fiber.StatusOK, status)

	items := body["data"].([]any)
	require.Len(t, items, 2)
	first := items[0].(map[string]any)
	assert.Equal(t, "breached", first["sla"].(map[string]any)["level"])
	second := items[1].(map[string]any)
	assert.Nil(t, second["sla"])
	assert.Equal(t, "NOT_FOUND", second["error"].(map[string]any)["code"])

	status, body = do(t, app, nethttp.MethodPost, "/tickets/sla", `{}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
}

func TestEvaluateSnapshotEndpoint(t *testing.T) {
	app := newTestApp(t, nil, nil)

	payload := `{
		"ticket_id": "ext-1",
		"priority": "urgent",
		"status": "waiting_customer",
		"created_at": "2025-01-06T08:00:00Z",
		"first_response_at": "2025-01-06T08:30:00Z",
		"history": [{"old_status": "new", "new_status": "waiting_customer", "at": "2025-01-06T10:00:00Z"}],
		"now": "2025-01-08T10:00:00Z"
	}`
	status, body := do(t, app, nethttp.MethodPost, "/sla/evaluate", payload)
	require.Equal(t, fiber.StatusOK, status)

	data := body["data"].(map[string]any)
	assert.Equal(t, true, data["paused"])
	assert.Equal(t, "system_default", data["target"].(map[string]any)["source"])
	resolution := data["resolution"].(map[string]any)
	assert.Equal(t, 2.0, resolution["remaining_hours"])
	assert.Equal(t, "paused, 2h remaining", resolution["label"])
	assert.Len(t, data["periods"], 2)
}

func TestDeadlineEndpoint(t *testing.T) {
	app := newTestApp(t, nil, nil)

	status, body := do(t, app, nethttp.MethodPost, "/sla/deadline", `{"start":"2025-01-10T17:00:00Z","hours":2}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "2025-01-13T09:00:00Z", body["data"].(map[string]any)["deadline"])

	status, body = do(t, app, nethttp.MethodPost, "/sla/deadline", `{"hours":2}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, "INVALID_INPUT", errorCode(body))
}

func TestBodyTimestampErrors(t *testing.T) {
	app := newTestApp(t, nil, nil)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"snapshot created_at", "/sla/evaluate", `{"priority":"high","created_at":"monday morning"}`, fiber.StatusUnprocessableEntity, "INVALID_INPUT"},
		{"snapshot now", "/sla/evaluate", `{"priority":"high","created_at":"2025-01-06T08:00:00Z","now":"2025-13-40T00:00:00Z"}`, fiber.StatusUnprocessableEntity, "INVALID_INPUT"},
		{"deadline start", "/sla/deadline", `{"start":"10/01/2025","hours":2}`, fiber.StatusUnprocessableEntity, "INVALID_INPUT"},
		{"batch now", "/tickets/sla", `{"ticket_ids":["t-1"],"now":"soon"}`, fiber.StatusUnprocessableEntity, "INVALID_INPUT"},
		{"malformed json", "/sla/deadline", `{"start":`, fiber.StatusBadRequest, "VALIDATION_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, app, nethttp.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, errorCode(body))
		})
	}
}

func TestCompanyConfigsEndpoint(t *testing.T) {
	app := newTestApp(t, nil, nil)

	status, body := do(t, app, nethttp.MethodGet, "/companies/acme/sla-configs", "")
	require.Equal(t, fiber.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, "acme", data["company_id"])
	assert.Len(t, data["legacy"], 1)
}

func TestHealthEndpoints(t *testing.T) {
	status, body := do(t, newTestApp(t, nil, nil), nethttp.MethodGet, "/health/live", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "alive", body["status"])

	status, body = do(t, newTestApp(t, nil, errors.New("redis down")), nethttp.MethodGet, "/health/ready", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "redis down", body["dependencies"].(map[string]any)["redis"])

	status, body = do(t, newTestApp(t, errors.New("pg down"), nil), nethttp.MethodGet, "/health/ready", "")
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", errorCode(body))
	details := body["error"].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, "pg down", details["postgres"])
	assert.Equal(t, "ok", details["redis"])
}

func TestMetricsAndUnknownRoutes(t *testing.T) {
	app := newTestApp(t, nil, nil)

	status, body := do(t, app, nethttp.MethodGet, "/nope", "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))

	_, _ = do(t, app, nethttp.MethodGet, "/tickets/t-1/sla", "")

	resp, err := app.Test(httptest.NewRequest(nethttp.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "http_requests_total")
	assert.Contains(t, string(raw), `sla_evaluations_total{level="breached"} 1`)
}
