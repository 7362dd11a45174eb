package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/careflow-service/internal/domain"
	"github.com/spec-kit/careflow-service/internal/events"
	"github.com/spec-kit/careflow-service/internal/repository"
	apperrors "github.com/spec-kit/careflow-service/pkg/util"
)

// ApprovalService is the staff access-request state machine:
// none -> pending -> {approved, rejected}. Approved authority lives in the
// role assignment, not the request record.
type ApprovalService struct {
	approvals  repository.ApprovalRepository
	roles      repository.RoleRepository
	notifier   *NotificationService
	dispatcher events.Dispatcher
	shim       *domain.RoleShim
	logger     *zap.Logger
}

// NewApprovalService builds the service.
func NewApprovalService(
	approvals repository.ApprovalRepository,
	roles repository.RoleRepository,
	notifier *NotificationService,
	dispatcher events.Dispatcher,
	logger *zap.Logger,
) *ApprovalService {
	return &ApprovalService{
		approvals:  approvals,
		roles:      roles,
		notifier:   notifier,
		dispatcher: dispatcher,
		shim:       domain.DefaultRoleShim(),
		logger:     logger,
	}
}

// SubmitRequest records a pending approval request and fans one notification
// out to every administrator. At most one pending request may exist per
// identity. The requested role must come from the intake enumeration; roles
// inside it that storage does not recognize are degraded to the nearest
// accepted role with the discrepancy annotated, never dropped.
func (s *ApprovalService) SubmitRequest(ctx context.Context, identity, email, fullName string, requestedRole domain.Role) (*domain.ApprovalRequest, error) {
	if !requestedRole.IsRequestable() {
		return nil, apperrors.NewUnsupportedRole(string(requestedRole))
	}

	pending, err := s.approvals.HasPending(ctx, identity)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if pending {
		return nil, apperrors.NewDuplicateRequest("an approval request is already pending for this account", map[string]any{"identity": identity})
	}

	storedRole, note := s.shim.Coerce(requestedRole)

	req := &domain.ApprovalRequest{
		Identity:      identity,
		Email:         email,
		FullName:      fullName,
		RequestedRole: requestedRole,
		StoredRole:    storedRole,
		Note:          note,
		Status:        domain.ApprovalStatusPending,
	}
	if err := s.approvals.Create(ctx, req); err != nil {
		return nil, apperrors.MapError(err)
	}

	admins, err := s.roles.ListIdentitiesByRole(ctx, domain.RoleAdmin)
	if err != nil {
		s.logger.Error("listing administrators failed", zap.Error(err))
	}
	if len(admins) == 0 {
		s.logger.Warn("approval request submitted with no administrators to notify",
			zap.String("request_id", req.ID))
	} else {
		message := fmt.Sprintf("%s (%s) requested staff access as %s.", fullName, email, requestedRole)
		if req.NeedsReclassification() {
			message += " " + note + "."
		}
		result, _ := s.notifier.Notify(ctx, admins, "New staff approval request", message,
			domain.CategoryApprovalRequest, &domain.EntityRef{Type: "approval_request", ID: req.ID})
		if result.Failed > 0 {
			s.logger.Warn("some administrators were not notified",
				zap.String("request_id", req.ID),
				zap.Int("failed", result.Failed))
		}
	}

	_ = s.dispatcher.Publish(ctx, events.NewEvent(events.EventApprovalSubmitted, identity, events.ApprovalSubmittedPayload{
		RequestID:     req.ID,
		RequestedRole: req.RequestedRole,
		StoredRole:    req.StoredRole,
		Status:        req.Status,
	}))

	return req, nil
}

// Decide applies an administrator decision to a pending request. Approval
// atomically creates the role assignment and flips the status; exactly one
// of two concurrent deciders wins, the other observes ALREADY_DECIDED.
func (s *ApprovalService) Decide(ctx context.Context, requestID string, decision domain.ApprovalDecision, adminIdentity string) (*domain.ApprovalRequest, error) {
	if decision != domain.DecisionApprove && decision != domain.DecisionReject {
		return nil, apperrors.NewValidationError("decision must be APPROVE or REJECT", map[string]any{"decision": decision})
	}

	req, err := s.approvals.Decide(ctx, requestID, decision, adminIdentity)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, apperrors.NewNotFound("approval request", map[string]any{"request_id": requestID})
		case errors.Is(err, repository.ErrAlreadyDecided):
			return nil, apperrors.NewAlreadyDecided("this request has already been decided")
		default:
			return nil, apperrors.MapError(err)
		}
	}

	title := "Staff access rejected"
	message := "Your staff access request was rejected."
	if req.Status == domain.ApprovalStatusApproved {
		title = "Staff access approved"
		message = fmt.Sprintf("Your staff access request was approved with role %s.", req.StoredRole)
	}
	if _, err := s.notifier.Notify(ctx, []string{req.Identity}, title, message,
		domain.CategoryApprovalResult, &domain.EntityRef{Type: "approval_request", ID: req.ID}); err != nil {
		s.logger.Error("notifying requester failed", zap.String("request_id", req.ID), zap.Error(err))
	}

	_ = s.dispatcher.Publish(ctx, events.NewEvent(events.EventApprovalDecided, req.Identity, events.ApprovalDecidedPayload{
		RequestID: req.ID,
		Status:    req.Status,
		DecidedBy: adminIdentity,
	}))

	return req, nil
}

// ListPending returns the open requests for the admin review screen.
func (s *ApprovalService) ListPending(ctx context.Context) ([]domain.ApprovalRequest, error) {
	return s.approvals.ListPending(ctx)
}

// CurrentStatus resolves the caller's onboarding state. A role assignment is
// authoritative and yields APPROVED regardless of any request record.
func (s *ApprovalService) CurrentStatus(ctx context.Context, identity string) (domain.ApprovalStatus, error) {
	if _, err := s.roles.GetByIdentity(ctx, identity); err == nil {
		return domain.ApprovalStatusApproved, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return domain.ApprovalStatusNone, apperrors.MapError(err)
	}

	req, err := s.approvals.LatestByIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ApprovalStatusNone, nil
		}
		return domain.ApprovalStatusNone, apperrors.MapError(err)
	}
	return req.Status, nil
}
