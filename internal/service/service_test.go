package service

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/careflow-service/internal/domain"
	"github.com/spec-kit/careflow-service/internal/events"
	"github.com/spec-kit/careflow-service/internal/repository"
)

type testEnv struct {
	store         *repository.MemoryStore
	notifications *NotificationService
	approvals     *ApprovalService
	escalations   *EscalationService
	reconciler    *ReconcilerService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := repository.NewMemoryStore()
	logger := zap.NewNop()
	dispatcher := events.NewInMemoryDispatcher()

	notifications := NewNotificationService(store.Notifications(), logger)
	approvals := NewApprovalService(store.Approvals(), store.Roles(), notifications, dispatcher, logger)
	escalations := NewEscalationService(store.Roles(), notifications, dispatcher, logger)
	reconciler := NewReconcilerService(
		[]AppointmentSource{
			NewSelfServiceSource(store.Appointments()),
			NewScheduledSource(store.Schedule()),
		},
		notifications,
		dispatcher,
		logger,
	)

	return &testEnv{
		store:         store,
		notifications: notifications,
		approvals:     approvals,
		escalations:   escalations,
		reconciler:    reconciler,
	}
}

func (e *testEnv) addAdmin(t *testing.T, identity string) {
	t.Helper()
	if err := e.store.Roles().Assign(context.Background(), identity, domain.RoleAdmin); err != nil {
		t.Fatalf("assign admin: %v", err)
	}
}

func (e *testEnv) notificationsFor(t *testing.T, identity string) []domain.Notification {
	t.Helper()
	items, err := e.notifications.List(context.Background(), identity, 0)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	return items
}
