package service

import (
	"context"
	"sync"
	"testing"

	"github.com/spec-kit/careflow-service/internal/domain"
	apperrors "github.com/spec-kit/careflow-service/pkg/util"
)

func TestCurrentStatusNoneForUnknownIdentity(t *testing.T) {
	env := newTestEnv(t)

	status, err := env.approvals.CurrentStatus(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != domain.ApprovalStatusNone {
		t.Fatalf("expected NONE, got %s", status)
	}
}

func TestSubmitRequestCreatesPendingAndNotifiesEachAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.addAdmin(t, "admin-1")
	env.addAdmin(t, "admin-2")

	req, err := env.approvals.SubmitRequest(context.Background(), "staff-1", "d@hospital.test", "Dr. Adams", domain.RoleDoctor)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if req.Status != domain.ApprovalStatusPending {
		t.Fatalf("expected PENDING, got %s", req.Status)
	}
	if req.StoredRole != domain.RoleDoctor || req.Note != "" {
		t.Fatalf("doctor should store verbatim, got role %s note %q", req.StoredRole, req.Note)
	}

	for _, admin := range []string{"admin-1", "admin-2"} {
		items := env.notificationsFor(t, admin)
		if len(items) != 1 {
			t.Fatalf("expected 1 notification for %s, got %d", admin, len(items))
		}
		if items[0].Category != domain.CategoryApprovalRequest {
			t.Errorf("unexpected category %s", items[0].Category)
		}
		if items[0].Recipient != admin {
			t.Errorf("notification must be individually addressed, got recipient %s", items[0].Recipient)
		}
	}

	status, err := env.approvals.CurrentStatus(context.Background(), "staff-1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != domain.ApprovalStatusPending {
		t.Fatalf("expected PENDING, got %s", status)
	}
}

func TestSubmitRequestDuplicatePending(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.approvals.SubmitRequest(context.Background(), "staff-1", "a@h.test", "A", domain.RoleNurse); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	_, err := env.approvals.SubmitRequest(context.Background(), "staff-1", "a@h.test", "A", domain.RoleNurse)
	if !apperrors.IsCode(err, "DUPLICATE_REQUEST") {
		t.Fatalf("expected DUPLICATE_REQUEST, got %v", err)
	}
}

func TestSubmitRequestAllowedAfterRejection(t *testing.T) {
	env := newTestEnv(t)

	first, err := env.approvals.SubmitRequest(context.Background(), "staff-1", "a@h.test", "A", domain.RoleNurse)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := env.approvals.Decide(context.Background(), first.ID, domain.DecisionReject, "admin-1"); err != nil {
		t.Fatalf("reject: %v", err)
	}

	if _, err := env.approvals.SubmitRequest(context.Background(), "staff-1", "a@h.test", "A", domain.RoleNurse); err != nil {
		t.Fatalf("resubmit after rejection should succeed, got %v", err)
	}
}

func TestApproveIsAtomicAcrossRoleAndStatus(t *testing.T) {
	env := newTestEnv(t)

	req, err := env.approvals.SubmitRequest(context.Background(), "staff-1", "a@h.test", "A", domain.RoleReceptionist)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	decided, err := env.approvals.Decide(context.Background(), req.ID, domain.DecisionApprove, "admin-1")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if decided.Status != domain.ApprovalStatusApproved {
		t.Fatalf("expected APPROVED, got %s", decided.Status)
	}

	assignment, err := env.store.Roles().GetByIdentity(context.Background(), "staff-1")
	if err != nil {
		t.Fatalf("role assignment must exist after approval: %v", err)
	}
	if assignment.Role != domain.RoleReceptionist {
		t.Fatalf("expected RECEPTIONIST, got %s", assignment.Role)
	}

	items := env.notificationsFor(t, "staff-1")
	if len(items) != 1 || items[0].Category != domain.CategoryApprovalResult {
		t.Fatalf("requester should get one approval_result notification, got %+v", items)
	}
}

func TestRejectDoesNotAssignRole(t *testing.T) {
	env := newTestEnv(t)

	req, err := env.approvals.SubmitRequest(context.Background(), "staff-1", "a@h.test", "A", domain.RoleNurse)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := env.approvals.Decide(context.Background(), req.ID, domain.DecisionReject, "admin-1"); err != nil {
		t.Fatalf("reject: %v", err)
	}

	if _, err := env.store.Roles().GetByIdentity(context.Background(), "staff-1"); err == nil {
		t.Fatal("rejected identity must not get a role assignment")
	}

	status, err := env.approvals.CurrentStatus(context.Background(), "staff-1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != domain.ApprovalStatusRejected {
		t.Fatalf("expected REJECTED, got %s", status)
	}
}

func TestDecideTwiceFailsAlreadyDecided(t *testing.T) {
	env := newTestEnv(t)

	req, err := env.approvals.SubmitRequest(context.Background(), "staff-1", "a@h.test", "A", domain.RoleNurse)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := env.approvals.Decide(context.Background(), req.ID, domain.DecisionApprove, "admin-1"); err != nil {
		t.Fatalf("approve: %v", err)
	}

	for _, retry := range []domain.ApprovalDecision{domain.DecisionApprove, domain.DecisionReject} {
		_, err := env.approvals.Decide(context.Background(), req.ID, retry, "admin-2")
		if !apperrors.IsCode(err, "ALREADY_DECIDED") {
			t.Fatalf("retry %s: expected ALREADY_DECIDED, got %v", retry, err)
		}
	}
}

func TestDecideUnknownRequest(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.approvals.Decide(context.Background(), "missing", domain.DecisionApprove, "admin-1")
	if !apperrors.IsCode(err, "NOT_FOUND") {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestConcurrentDecidersExactlyOneWinner(t *testing.T) {
	env := newTestEnv(t)

	req, err := env.approvals.SubmitRequest(context.Background(), "staff-1", "a@h.test", "A", domain.RoleNurse)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.approvals.Decide(context.Background(), req.ID, domain.DecisionApprove, "admin")
		}(i)
	}
	wg.Wait()

	winners, losers := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case apperrors.IsCode(err, "ALREADY_DECIDED"):
			losers++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if winners != 1 || losers != 1 {
		t.Fatalf("expected exactly one winner, got winners=%d losers=%d", winners, losers)
	}
}

func TestCurrentStatusSyntheticApprovedFromRoleAssignment(t *testing.T) {
	env := newTestEnv(t)
	env.addAdmin(t, "admin-1")

	// Role assignment is authoritative even with no request on file.
	status, err := env.approvals.CurrentStatus(context.Background(), "admin-1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != domain.ApprovalStatusApproved {
		t.Fatalf("expected synthetic APPROVED, got %s", status)
	}
}

func TestUnrecognizedRoleFallsBackWithAnnotation(t *testing.T) {
	env := newTestEnv(t)
	env.addAdmin(t, "admin-1")

	req, err := env.approvals.SubmitRequest(context.Background(), "staff-1", "c@h.test", "C", domain.Role("CASHIER"))
	if err != nil {
		t.Fatalf("cashier request must not raise an unhandled error: %v", err)
	}
	if req.RequestedRole != domain.Role("CASHIER") {
		t.Fatalf("original intent lost: %s", req.RequestedRole)
	}
	if req.StoredRole != domain.RoleReceptionist {
		t.Fatalf("expected nearest accepted role RECEPTIONIST, got %s", req.StoredRole)
	}
	if req.Note == "" || !req.NeedsReclassification() {
		t.Fatal("fallback must annotate the request for manual reclassification")
	}

	items := env.notificationsFor(t, "admin-1")
	if len(items) != 1 {
		t.Fatalf("expected 1 admin notification, got %d", len(items))
	}
}

func TestSubmitRoleOutsideIntakeEnumerationRejected(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		role domain.Role
	}{
		{"empty", ""},
		{"admin not self-requestable", domain.RoleAdmin},
		{"unknown string", domain.Role("WIZARD")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.approvals.SubmitRequest(context.Background(), "staff-1", "a@h.test", "A", tt.role)
			if !apperrors.IsCode(err, "UNSUPPORTED_ROLE") {
				t.Fatalf("expected UNSUPPORTED_ROLE, got %v", err)
			}
		})
	}

	status, err := env.approvals.CurrentStatus(context.Background(), "staff-1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != domain.ApprovalStatusNone {
		t.Fatalf("rejected submissions must leave no request on file, got %s", status)
	}
}

func TestAdminRoleNeverAssignableThroughSelfService(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.approvals.SubmitRequest(context.Background(), "mallory", "m@h.test", "M", domain.RoleAdmin); err == nil {
		t.Fatal("ADMIN request must not create a pending request")
	}

	if _, err := env.store.Roles().GetByIdentity(context.Background(), "mallory"); err == nil {
		t.Fatal("no role assignment may exist for a rejected ADMIN request")
	}
}
