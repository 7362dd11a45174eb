package service

import (
	"context"
	"strings"
	"testing"

	"github.com/spec-kit/careflow-service/internal/domain"
	apperrors "github.com/spec-kit/careflow-service/pkg/util"
)

func TestEscalationRequiresJustification(t *testing.T) {
	env := newTestEnv(t)
	env.addAdmin(t, "admin-1")

	tests := []struct {
		name          string
		justification string
	}{
		{"empty", ""},
		{"whitespace only", "   \t"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.escalations.RequestApproval(context.Background(), "user-1", "delete patient record", tt.justification)
			if !apperrors.IsCode(err, "EMPTY_JUSTIFICATION") {
				t.Fatalf("expected EMPTY_JUSTIFICATION, got %v", err)
			}
		})
	}
}

func TestEscalationFailsWithoutAdministrators(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.escalations.RequestApproval(context.Background(), "user-1", "delete patient record", "duplicate chart")
	if !apperrors.IsCode(err, "NO_ADMINISTRATORS") {
		t.Fatalf("expected NO_ADMINISTRATORS, got %v", err)
	}
}

func TestEscalationNotifiesEveryAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.addAdmin(t, "admin-1")
	env.addAdmin(t, "admin-2")
	env.addAdmin(t, "admin-3")

	result, err := env.escalations.RequestApproval(context.Background(), "user-1", "discharge patient", "attending asked me to")
	if err != nil {
		t.Fatalf("escalation: %v", err)
	}
	if result.Delivered != 3 {
		t.Fatalf("expected 3 deliveries, got %+v", result)
	}

	for _, admin := range []string{"admin-1", "admin-2", "admin-3"} {
		items := env.notificationsFor(t, admin)
		if len(items) != 1 {
			t.Fatalf("expected 1 notification for %s, got %d", admin, len(items))
		}
		n := items[0]
		if n.Category != domain.CategoryPermissionRequest {
			t.Errorf("unexpected category %s", n.Category)
		}
		if !strings.Contains(n.Message, "user-1") ||
			!strings.Contains(n.Message, "discharge patient") ||
			!strings.Contains(n.Message, "attending asked me to") {
			t.Errorf("message missing requester/action/justification: %q", n.Message)
		}
	}
}
