package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/careflow-service/internal/api/dto"
	"github.com/spec-kit/careflow-service/internal/domain"
	"github.com/spec-kit/careflow-service/internal/events"
	"github.com/spec-kit/careflow-service/internal/repository"
	"github.com/spec-kit/careflow-service/internal/service"
)

const testWebhookSecret = "test-secret"

func newWebhookApp(t *testing.T, secret string) (*fiber.App, *repository.MemoryStore) {
	t.Helper()

	store := repository.NewMemoryStore()
	logger := zap.NewNop()
	dispatcher := events.NewInMemoryDispatcher()

	notifications := service.NewNotificationService(store.Notifications(), logger)
	reconciler := service.NewReconcilerService(
		[]service.AppointmentSource{
			service.NewSelfServiceSource(store.Appointments()),
			service.NewScheduledSource(store.Schedule()),
		},
		notifications,
		dispatcher,
		logger,
	)

	app := fiber.New()
	handler := NewWebhookHandler(reconciler, secret, logger)
	app.Post("/webhooks/voice", handler.HandleVoice)
	return app, store
}

func postWebhook(t *testing.T, app *fiber.App, secret string, body any) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/webhooks/voice", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("X-Webhook-Secret", secret)
	}
	resp, err := app.Test(req, int(5*time.Second/time.Millisecond))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp
}

func decodeResults(t *testing.T, resp *http.Response) dto.VoiceWebhookResponse {
	t.Helper()
	defer resp.Body.Close()

	var out dto.VoiceWebhookResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func toolCallBody(calls ...map[string]any) map[string]any {
	return map[string]any{
		"message": map[string]any{
			"type":      "tool-calls",
			"toolCalls": calls,
		},
	}
}

func TestWebhookFailsWhenSecretUnconfigured(t *testing.T) {
	app, _ := newWebhookApp(t, "")

	resp := postWebhook(t, app, "anything", toolCallBody())
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "error") {
		t.Fatalf("expected error payload, got %s", body)
	}
}

func TestWebhookRejectsWrongSecret(t *testing.T) {
	app, _ := newWebhookApp(t, testWebhookSecret)

	resp := postWebhook(t, app, "wrong", toolCallBody())
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestWebhookConfirmsWithObjectArguments(t *testing.T) {
	app, store := newWebhookApp(t, testWebhookSecret)
	apptID := store.SeedSelfServiceAppointment(domain.SelfServiceAppointment{
		OwnerID: "owner-1",
		Status:  domain.AppointmentPending,
	})

	resp := postWebhook(t, app, testWebhookSecret, toolCallBody(map[string]any{
		"id": "call-1",
		"function": map[string]any{
			"name":      "confirmAppointment",
			"arguments": map[string]any{"appointmentId": apptID},
		},
	}))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	out := decodeResults(t, resp)
	if len(out.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(out.Results))
	}
	if out.Results[0].CallID != "call-1" || !strings.Contains(out.Results[0].Result, "confirmed") {
		t.Fatalf("unexpected result %+v", out.Results[0])
	}

	appt, err := store.Appointments().GetByID(context.Background(), apptID)
	if err != nil {
		t.Fatalf("get appointment: %v", err)
	}
	if appt.Status != domain.AppointmentConfirmed {
		t.Fatalf("expected CONFIRMED, got %s", appt.Status)
	}
}

func TestWebhookDecodesStringEncodedArguments(t *testing.T) {
	app, store := newWebhookApp(t, testWebhookSecret)
	apptID := store.SeedSelfServiceAppointment(domain.SelfServiceAppointment{
		OwnerID: "owner-1",
		Status:  domain.AppointmentPending,
	})

	resp := postWebhook(t, app, testWebhookSecret, toolCallBody(map[string]any{
		"id": "call-1",
		"function": map[string]any{
			"name":      "confirmAppointment",
			"arguments": `{"appointmentId":"` + apptID + `"}`,
		},
	}))
	out := decodeResults(t, resp)
	if len(out.Results) != 1 || !strings.Contains(out.Results[0].Result, "confirmed") {
		t.Fatalf("string-encoded arguments should confirm, got %+v", out.Results)
	}
}

func TestWebhookIgnoresNonToolCallEvents(t *testing.T) {
	app, _ := newWebhookApp(t, testWebhookSecret)

	resp := postWebhook(t, app, testWebhookSecret, map[string]any{
		"message": map[string]any{"type": "status-update"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	out := decodeResults(t, resp)
	if len(out.Results) != 0 {
		t.Fatalf("expected empty results, got %+v", out.Results)
	}
}

func TestWebhookKeepsResultsAlignedWithInputOrder(t *testing.T) {
	app, store := newWebhookApp(t, testWebhookSecret)
	apptID := store.SeedSelfServiceAppointment(domain.SelfServiceAppointment{
		OwnerID: "owner-1",
		Status:  domain.AppointmentPending,
	})

	resp := postWebhook(t, app, testWebhookSecret, toolCallBody(
		map[string]any{
			"id": "call-1",
			"function": map[string]any{
				"name":      "confirmAppointment",
				"arguments": "{not json",
			},
		},
		map[string]any{
			"id": "call-2",
			"function": map[string]any{
				"name":      "confirmAppointment",
				"arguments": map[string]any{"appointmentId": apptID},
			},
		},
	))
	out := decodeResults(t, resp)
	if len(out.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(out.Results))
	}
	if out.Results[0].CallID != "call-1" || !strings.Contains(out.Results[0].Result, "invalid arguments") {
		t.Fatalf("first result should report argument failure, got %+v", out.Results[0])
	}
	if out.Results[1].CallID != "call-2" || !strings.Contains(out.Results[1].Result, "confirmed") {
		t.Fatalf("second result should confirm, got %+v", out.Results[1])
	}
}

func TestWebhookToleratesDuplicateCallIDs(t *testing.T) {
	app, store := newWebhookApp(t, testWebhookSecret)
	apptID := store.SeedSelfServiceAppointment(domain.SelfServiceAppointment{
		OwnerID: "owner-1",
		Status:  domain.AppointmentPending,
	})

	resp := postWebhook(t, app, testWebhookSecret, toolCallBody(
		map[string]any{
			"id": "call-1",
			"function": map[string]any{
				"name":      "confirmAppointment",
				"arguments": "{not json",
			},
		},
		map[string]any{
			"id": "call-1",
			"function": map[string]any{
				"name":      "confirmAppointment",
				"arguments": map[string]any{"appointmentId": apptID},
			},
		},
	))
	out := decodeResults(t, resp)
	if len(out.Results) != 2 {
		t.Fatalf("expected one result per input call, got %d", len(out.Results))
	}
	if !strings.Contains(out.Results[0].Result, "invalid arguments") {
		t.Fatalf("first entry should carry the argument failure, got %+v", out.Results[0])
	}
	if !strings.Contains(out.Results[1].Result, "confirmed") {
		t.Fatalf("second entry should carry the confirmation, got %+v", out.Results[1])
	}
}
