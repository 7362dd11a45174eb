package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spec-kit/careflow-service/internal/domain"
)

func confirmCall(id, appointmentID string) ToolCall {
	return ToolCall{
		ID:        id,
		Name:      "confirmAppointment",
		Arguments: map[string]any{"appointmentId": appointmentID},
	}
}

func TestConfirmSelfServiceAppointment(t *testing.T) {
	env := newTestEnv(t)
	apptID := env.store.SeedSelfServiceAppointment(domain.SelfServiceAppointment{
		OwnerID:     "patient-account",
		PreferredAt: time.Now().Add(48 * time.Hour),
		Status:      domain.AppointmentPending,
	})

	results := env.reconciler.ProcessBatch(context.Background(), []ToolCall{confirmCall("call-1", apptID)})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if !strings.Contains(results[0].Result, "confirmed") {
		t.Fatalf("expected confirmed result, got %q", results[0].Result)
	}

	appt, err := env.store.Appointments().GetByID(context.Background(), apptID)
	if err != nil {
		t.Fatalf("get appointment: %v", err)
	}
	if appt.Status != domain.AppointmentConfirmed {
		t.Fatalf("expected CONFIRMED, got %s", appt.Status)
	}

	items := env.notificationsFor(t, "patient-account")
	if len(items) != 1 {
		t.Fatalf("expected exactly 1 notification for owner, got %d", len(items))
	}
	if items[0].Category != domain.CategorySuccess {
		t.Errorf("unexpected category %s", items[0].Category)
	}
}

func TestConfirmScheduledAppointmentResolvesLinkedAccount(t *testing.T) {
	env := newTestEnv(t)
	account := "linked-account"
	env.store.LinkPatientAccount("patient-7", &account)
	apptID := env.store.SeedScheduledAppointment(domain.ScheduledAppointment{
		PatientID:   "patient-7",
		DoctorID:    "doctor-1",
		ScheduledAt: time.Now().Add(24 * time.Hour),
		Status:      domain.AppointmentScheduled,
	})

	results := env.reconciler.ProcessBatch(context.Background(), []ToolCall{confirmCall("call-1", apptID)})
	if !strings.Contains(results[0].Result, "confirmed") {
		t.Fatalf("expected confirmed result, got %q", results[0].Result)
	}

	appt, err := env.store.Schedule().GetByID(context.Background(), apptID)
	if err != nil {
		t.Fatalf("get schedule entry: %v", err)
	}
	if appt.Status != domain.AppointmentConfirmed {
		t.Fatalf("expected CONFIRMED, got %s", appt.Status)
	}

	items := env.notificationsFor(t, account)
	if len(items) != 1 {
		t.Fatalf("expected 1 notification for linked account, got %d", len(items))
	}
}

func TestConfirmScheduledAppointmentWithoutPortalAccount(t *testing.T) {
	env := newTestEnv(t)
	env.store.LinkPatientAccount("patient-8", nil)
	apptID := env.store.SeedScheduledAppointment(domain.ScheduledAppointment{
		PatientID:   "patient-8",
		DoctorID:    "doctor-1",
		ScheduledAt: time.Now().Add(24 * time.Hour),
		Status:      domain.AppointmentScheduled,
	})

	results := env.reconciler.ProcessBatch(context.Background(), []ToolCall{confirmCall("call-1", apptID)})
	if !strings.Contains(results[0].Result, "confirmed") {
		t.Fatalf("unlinked patient should still confirm, got %q", results[0].Result)
	}

	appt, _ := env.store.Schedule().GetByID(context.Background(), apptID)
	if appt.Status != domain.AppointmentConfirmed {
		t.Fatalf("expected CONFIRMED, got %s", appt.Status)
	}
}

func TestConfirmUnknownAppointment(t *testing.T) {
	env := newTestEnv(t)

	results := env.reconciler.ProcessBatch(context.Background(), []ToolCall{confirmCall("call-1", "no-such-id")})
	if !strings.Contains(results[0].Result, "not found") {
		t.Fatalf("expected not found result, got %q", results[0].Result)
	}
}

func TestBatchIsolatesUnknownAction(t *testing.T) {
	env := newTestEnv(t)
	first := env.store.SeedSelfServiceAppointment(domain.SelfServiceAppointment{
		OwnerID:     "owner-1",
		PreferredAt: time.Now().Add(time.Hour),
		Status:      domain.AppointmentPending,
	})
	third := env.store.SeedSelfServiceAppointment(domain.SelfServiceAppointment{
		OwnerID:     "owner-2",
		PreferredAt: time.Now().Add(2 * time.Hour),
		Status:      domain.AppointmentPending,
	})

	calls := []ToolCall{
		confirmCall("call-1", first),
		{ID: "call-2", Name: "cancelEverything", Arguments: map[string]any{}},
		confirmCall("call-3", third),
	}
	results := env.reconciler.ProcessBatch(context.Background(), calls)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].CallID != "call-1" || !strings.Contains(results[0].Result, "confirmed") {
		t.Errorf("first call should confirm: %+v", results[0])
	}
	if results[1].CallID != "call-2" || !strings.Contains(results[1].Result, "not handled") {
		t.Errorf("second call should be unhandled: %+v", results[1])
	}
	if results[2].CallID != "call-3" || !strings.Contains(results[2].Result, "confirmed") {
		t.Errorf("third call should confirm: %+v", results[2])
	}
}

func TestRescheduleIsAcknowledgmentOnly(t *testing.T) {
	env := newTestEnv(t)
	apptID := env.store.SeedSelfServiceAppointment(domain.SelfServiceAppointment{
		OwnerID:     "owner-1",
		PreferredAt: time.Now().Add(time.Hour),
		Status:      domain.AppointmentPending,
	})

	results := env.reconciler.ProcessBatch(context.Background(), []ToolCall{{
		ID:        "call-1",
		Name:      "rescheduleAppointment",
		Arguments: map[string]any{"appointmentId": apptID},
	}})
	if !strings.Contains(results[0].Result, "received") {
		t.Fatalf("expected acknowledgment, got %q", results[0].Result)
	}

	appt, _ := env.store.Appointments().GetByID(context.Background(), apptID)
	if appt.Status != domain.AppointmentPending {
		t.Fatalf("reschedule must not mutate status, got %s", appt.Status)
	}
}

func TestConfirmMissingArgument(t *testing.T) {
	env := newTestEnv(t)

	results := env.reconciler.ProcessBatch(context.Background(), []ToolCall{{
		ID:        "call-1",
		Name:      "confirmAppointment",
		Arguments: map[string]any{},
	}})
	if !strings.Contains(results[0].Result, "failed") {
		t.Fatalf("expected per-call failure, got %q", results[0].Result)
	}
}
