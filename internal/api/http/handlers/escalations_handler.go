package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/careflow-service/internal/api/dto"
	"github.com/spec-kit/careflow-service/internal/auth"
	"github.com/spec-kit/careflow-service/internal/service"
)

// EscalationsHandler exposes the permission escalation endpoint.
type EscalationsHandler struct {
	escalations *service.EscalationService
}

// NewEscalationsHandler constructs handler.
func NewEscalationsHandler(escalations *service.EscalationService) *EscalationsHandler {
	return &EscalationsHandler{escalations: escalations}
}

// Create handles POST /escalations.
func (h *EscalationsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}

	var req dto.EscalationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	result, err := h.escalations.RequestApproval(c.UserContext(), principal.Identity(), req.Action, req.Justification)
	if err != nil {
		return err
	}

	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"data": fiber.Map{
			"admins_notified": result.Delivered,
			"failed":          result.Failed,
		},
	})
}
