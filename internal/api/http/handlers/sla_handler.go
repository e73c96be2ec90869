package handlers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-sla/internal/api/dto"
	"github.com/spec-kit/ticket-sla/internal/service"
	"github.com/spec-kit/ticket-sla/internal/sla"
	apperrors "github.com/spec-kit/ticket-sla/pkg/util/errorutil"
)

// SLAHandler exposes SLA evaluation endpoints.
type SLAHandler struct {
	service *service.SLAService
	clock   func() time.Time
}

// NewSLAHandler constructs handler. A nil clock means time.Now.
func NewSLAHandler(slaService *service.SLAService, clock func() time.Time) *SLAHandler {
	if clock == nil {
		clock = time.Now
	}
	return &SLAHandler{service: slaService, clock: clock}
}

// GetTicketSLA GET /tickets/:id/sla.
func (h *SLAHandler) GetTicketSLA(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if id == "" {
		return apperrors.NewValidationError("ticket id required", nil)
	}
	now, err := h.nowFromQuery(c)
	if err != nil {
		return err
	}
	result, err := h.service.EvaluateTicket(c.UserContext(), id, now)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSLAStatusResponse(result, c.QueryBool("periods"))})
}

// BatchTicketSLA POST /tickets/sla.
func (h *SLAHandler) BatchTicketSLA(c *fiber.Ctx) error {
	var req dto.BatchSLARequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if len(req.TicketIDs) == 0 {
		return apperrors.NewValidationError("ticket_ids required", nil)
	}
	now := h.nowOr(req.Now)

	items, err := h.service.EvaluateTickets(c.UserContext(), req.TicketIDs, now)
	if err != nil {
		return err
	}
	out := make([]dto.BatchSLAItem, 0, len(items))
	for _, item := range items {
		entry := dto.BatchSLAItem{TicketID: item.TicketID}
		if item.Err != nil {
			de := apperrors.ToDomainError(item.Err)
			entry.Error = &dto.ErrorBody{Code: de.Code, Message: de.Message}
		} else {
			rendered := dto.NewSLAStatusResponse(item.SLA, false)
			entry.SLA = &rendered
		}
		out = append(out, entry)
	}
	return c.JSON(fiber.Map{"data": out, "evaluated_at": now})
}

// EvaluateSnapshot POST /sla/evaluate.
func (h *SLAHandler) EvaluateSnapshot(c *fiber.Ctx) error {
	var req dto.EvaluateSnapshotRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.service.EvaluateSnapshot(req.Snapshot, h.nowOr(req.Now))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSLAStatusResponse(result, true)})
}

// Deadline POST /sla/deadline.
func (h *SLAHandler) Deadline(c *fiber.Ctx) error {
	var req dto.DeadlineRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	deadline, err := h.service.Deadline(req.Start, req.Hours)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DeadlineResponse{Start: req.Start, Hours: req.Hours, Deadline: deadline}})
}

// CompanyConfigs GET /companies/:companyID/sla-configs.
func (h *SLAHandler) CompanyConfigs(c *fiber.Ctx) error {
	companyID := strings.TrimSpace(c.Params("companyID"))
	if companyID == "" {
		return apperrors.NewValidationError("company id required", nil)
	}
	set, err := h.service.CompanyConfigs(c.UserContext(), companyID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": set})
}

// parseBody reports unparsable timestamps as invalid input and any other
// decoding problem as a validation failure.
func parseBody(c *fiber.Ctx, out any) error {
	err := c.BodyParser(out)
	if err == nil {
		return nil
	}
	var parseErr *time.ParseError
	if errors.As(err, &parseErr) {
		return apperrors.NewInvalidInput("timestamps must be RFC3339", fmt.Errorf("%w: %v", sla.ErrInvalidTimestamp, parseErr))
	}
	return apperrors.NewValidationError("invalid payload", nil)
}

func (h *SLAHandler) nowFromQuery(c *fiber.Ctx) (time.Time, error) {
	raw := c.Query("now")
	if raw == "" {
		return h.clock(), nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, apperrors.NewInvalidInput("now must be an RFC3339 timestamp", sla.ErrInvalidTimestamp)
	}
	return parsed, nil
}

func (h *SLAHandler) nowOr(requested *time.Time) time.Time {
	if requested != nil && !requested.IsZero() {
		return *requested
	}
	return h.clock()
}
