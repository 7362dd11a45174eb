package handlers

import (
	"bufio"
	"encoding/json"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/careflow-service/internal/api/dto"
	"github.com/spec-kit/careflow-service/internal/auth"
	"github.com/spec-kit/careflow-service/internal/domain"
	"github.com/spec-kit/careflow-service/internal/realtime"
	"github.com/spec-kit/careflow-service/internal/service"
)

// ApprovalsHandler exposes the staff onboarding surfaces.
type ApprovalsHandler struct {
	approvals *service.ApprovalService
	hub       realtime.Hub
	logger    *zap.Logger
}

// NewApprovalsHandler constructs handler.
func NewApprovalsHandler(approvals *service.ApprovalService, hub realtime.Hub, logger *zap.Logger) *ApprovalsHandler {
	return &ApprovalsHandler{approvals: approvals, hub: hub, logger: logger}
}

// ListPending handles GET /staff/approvals (admin only).
func (h *ApprovalsHandler) ListPending(c *fiber.Ctx) error {
	requests, err := h.approvals.ListPending(c.UserContext())
	if err != nil {
		return err
	}

	resp := make([]dto.ApprovalResponse, 0, len(requests))
	for i := range requests {
		resp = append(resp, approvalDTO(&requests[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Decide handles POST /staff/approvals/:id/decision (admin only).
func (h *ApprovalsHandler) Decide(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}

	var req dto.DecisionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	var decision domain.ApprovalDecision
	switch req.Decision {
	case "approve", "APPROVE":
		decision = domain.DecisionApprove
	case "reject", "REJECT":
		decision = domain.DecisionReject
	default:
		return fiber.NewError(http.StatusBadRequest, "decision must be approve or reject")
	}

	updated, err := h.approvals.Decide(c.UserContext(), c.Params("id"), decision, principal.Identity())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": approvalDTO(updated)})
}

// Status handles GET /staff/approvals/status. Clients poll this once on
// (re)connect since stream delivery is at-most-once.
func (h *ApprovalsHandler) Status(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}

	status, err := h.approvals.CurrentStatus(c.UserContext(), principal.Identity())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.StatusResponse{Status: string(status)}})
}

// Stream handles GET /staff/approvals/stream: an SSE stream of change events
// for the caller's own approval rows. The subscription is released when the
// client goes away.
func (h *ApprovalsHandler) Stream(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	identity := principal.Identity()

	sub, err := h.hub.Subscribe(c.UserContext(), identity)
	if err != nil {
		return err
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer sub.Close()
		for event := range sub.Events() {
			payload, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("marshal stream event", zap.Error(err))
				continue
			}
			if _, err := w.WriteString("data: " + string(payload) + "\n\n"); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				// Client disconnected; Close releases the registration.
				return
			}
		}
	})
	return nil
}

func approvalDTO(req *domain.ApprovalRequest) dto.ApprovalResponse {
	return dto.ApprovalResponse{
		ID:                    req.ID,
		Identity:              req.Identity,
		Email:                 req.Email,
		FullName:              req.FullName,
		RequestedRole:         string(req.RequestedRole),
		StoredRole:            string(req.StoredRole),
		Note:                  req.Note,
		Status:                string(req.Status),
		NeedsReclassification: req.NeedsReclassification(),
		CreatedAt:             req.CreatedAt,
	}
}
