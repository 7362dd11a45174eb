package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/careflow-service/internal/api/dto"
	"github.com/spec-kit/careflow-service/internal/auth"
	"github.com/spec-kit/careflow-service/internal/service"
)

// NotificationsHandler exposes the recipient inbox.
type NotificationsHandler struct {
	notifications *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notifications *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{notifications: notifications}
}

// List handles GET /notifications.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}

	limit := 0
	if val := c.Query("limit"); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil || parsed < 0 {
			return fiber.NewError(http.StatusBadRequest, "invalid limit")
		}
		limit = parsed
	}

	items, err := h.notifications.List(c.UserContext(), principal.Identity(), limit)
	if err != nil {
		return err
	}

	resp := make([]dto.NotificationResponse, 0, len(items))
	for _, n := range items {
		resp = append(resp, dto.NotificationResponse{
			ID:         n.ID,
			Recipient:  n.Recipient,
			Title:      n.Title,
			Message:    n.Message,
			Category:   string(n.Category),
			EntityType: n.EntityType,
			EntityID:   n.EntityID,
			Read:       n.Read,
			CreatedAt:  n.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": resp})
}

// MarkRead handles POST /notifications/:id/read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}

	if err := h.notifications.MarkRead(c.UserContext(), c.Params("id"), principal.Identity()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "read"}})
}
