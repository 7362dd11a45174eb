package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/careflow-service/internal/domain"
	"github.com/spec-kit/careflow-service/internal/repository"
	apperrors "github.com/spec-kit/careflow-service/pkg/util"
)

// FanoutResult reports how a multi-recipient delivery went. Partial delivery
// is acceptable; failures are counted, never swallowed.
type FanoutResult struct {
	Delivered int
	Failed    int
}

// NotificationService persists individually addressed workflow notifications.
type NotificationService struct {
	notifications repository.NotificationRepository
	logger        *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(notifications repository.NotificationRepository, logger *zap.Logger) *NotificationService {
	return &NotificationService{notifications: notifications, logger: logger}
}

// Notify creates one persisted notification per distinct recipient. The
// operation is not atomic across recipients: a failure on one row does not
// roll back or stop the others.
func (s *NotificationService) Notify(ctx context.Context, recipients []string, title, message string, category domain.NotificationCategory, ref *domain.EntityRef) (FanoutResult, error) {
	seen := make(map[string]struct{}, len(recipients))
	var result FanoutResult

	for _, recipient := range recipients {
		if recipient == "" {
			continue
		}
		if _, dup := seen[recipient]; dup {
			continue
		}
		seen[recipient] = struct{}{}

		n := &domain.Notification{
			Recipient: recipient,
			Title:     title,
			Message:   message,
			Category:  category,
		}
		if ref != nil {
			n.EntityType = &ref.Type
			n.EntityID = &ref.ID
		}

		if err := s.notifications.Create(ctx, n); err != nil {
			result.Failed++
			s.logger.Error("notification delivery failed",
				zap.String("recipient", recipient),
				zap.String("category", string(category)),
				zap.Error(err))
			continue
		}
		result.Delivered++
	}

	if result.Failed > 0 {
		s.logger.Warn("partial notification fanout",
			zap.Int("delivered", result.Delivered),
			zap.Int("failed", result.Failed))
	}
	return result, nil
}

// List returns the recipient's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, recipient string, limit int) ([]domain.Notification, error) {
	return s.notifications.ListByRecipient(ctx, recipient, limit)
}

// MarkRead sets the read flag once. Only the recipient may mark a
// notification; marking twice is a no-op.
func (s *NotificationService) MarkRead(ctx context.Context, id, actingIdentity string) error {
	n, err := s.notifications.GetByID(ctx, id)
	if err != nil {
		return apperrors.MapError(err)
	}
	if n.Recipient != actingIdentity {
		return apperrors.NewForbidden("only the recipient may mark a notification read")
	}
	if n.Read {
		return nil
	}
	return s.notifications.MarkRead(ctx, id)
}
