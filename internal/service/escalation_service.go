package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/careflow-service/internal/domain"
	"github.com/spec-kit/careflow-service/internal/events"
	"github.com/spec-kit/careflow-service/internal/repository"
	apperrors "github.com/spec-kit/careflow-service/pkg/util"
)

// EscalationService lets an authenticated user without sufficient role ask
// administrators to approve a specific restricted action. It is deliberately
// fire-and-forget: no approval lifecycle is persisted, only the notifications
// it fans out. Administrators act out-of-band.
type EscalationService struct {
	roles      repository.RoleRepository
	notifier   *NotificationService
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewEscalationService builds the service.
func NewEscalationService(roles repository.RoleRepository, notifier *NotificationService, dispatcher events.Dispatcher, logger *zap.Logger) *EscalationService {
	return &EscalationService{roles: roles, notifier: notifier, dispatcher: dispatcher, logger: logger}
}

// RequestApproval fans one permission_request notification out per
// administrator, carrying the requester, the restricted action and the
// justification.
func (s *EscalationService) RequestApproval(ctx context.Context, requesterIdentity, actionDescription, justification string) (FanoutResult, error) {
	if strings.TrimSpace(actionDescription) == "" {
		return FanoutResult{}, apperrors.NewValidationError("an action description is required", nil)
	}
	if strings.TrimSpace(justification) == "" {
		return FanoutResult{}, apperrors.NewEmptyJustification()
	}

	admins, err := s.roles.ListIdentitiesByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return FanoutResult{}, apperrors.MapError(err)
	}
	if len(admins) == 0 {
		return FanoutResult{}, apperrors.NewNoAdministrators()
	}

	message := fmt.Sprintf("User %s requests approval for: %s. Justification: %s",
		requesterIdentity, actionDescription, justification)
	result, err := s.notifier.Notify(ctx, admins, "Permission escalation request", message,
		domain.CategoryPermissionRequest, &domain.EntityRef{Type: "identity", ID: requesterIdentity})
	if err != nil {
		return result, err
	}

	_ = s.dispatcher.Publish(ctx, events.NewEvent(events.EventEscalationRequested, requesterIdentity, events.EscalationRequestedPayload{
		Action:        actionDescription,
		Justification: justification,
		AdminCount:    len(admins),
	}))

	s.logger.Info("permission escalation requested",
		zap.String("requester", requesterIdentity),
		zap.String("action", actionDescription),
		zap.Int("admins_notified", result.Delivered))
	return result, nil
}
