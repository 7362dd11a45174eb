package service

import (
	"context"
	"testing"

	"github.com/spec-kit/careflow-service/internal/domain"
	apperrors "github.com/spec-kit/careflow-service/pkg/util"
)

func TestNotifyFansOutOneRowPerRecipient(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.notifications.Notify(context.Background(),
		[]string{"a", "b", "c"}, "title", "message", domain.CategorySuccess, nil)
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if result.Delivered != 3 || result.Failed != 0 {
		t.Fatalf("expected 3 delivered, got %+v", result)
	}

	for _, recipient := range []string{"a", "b", "c"} {
		items := env.notificationsFor(t, recipient)
		if len(items) != 1 {
			t.Fatalf("expected 1 row for %s, got %d", recipient, len(items))
		}
		if items[0].Recipient != recipient {
			t.Errorf("row for %s addressed to %s", recipient, items[0].Recipient)
		}
	}
}

func TestNotifyDeduplicatesRecipients(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.notifications.Notify(context.Background(),
		[]string{"a", "a", ""}, "title", "message", domain.CategorySuccess, nil)
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if result.Delivered != 1 {
		t.Fatalf("expected 1 delivered, got %+v", result)
	}
}

func TestMarkReadByNonRecipientForbidden(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.notifications.Notify(context.Background(),
		[]string{"owner"}, "title", "message", domain.CategorySuccess, nil); err != nil {
		t.Fatalf("notify: %v", err)
	}
	items := env.notificationsFor(t, "owner")
	if len(items) != 1 {
		t.Fatalf("expected 1 row, got %d", len(items))
	}

	err := env.notifications.MarkRead(context.Background(), items[0].ID, "intruder")
	if !apperrors.IsCode(err, "FORBIDDEN") {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}

	items = env.notificationsFor(t, "owner")
	if items[0].Read {
		t.Fatal("read flag must be unchanged after forbidden attempt")
	}
}

func TestMarkReadIdempotent(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.notifications.Notify(context.Background(),
		[]string{"owner"}, "title", "message", domain.CategorySuccess, nil); err != nil {
		t.Fatalf("notify: %v", err)
	}
	id := env.notificationsFor(t, "owner")[0].ID

	for i := 0; i < 2; i++ {
		if err := env.notifications.MarkRead(context.Background(), id, "owner"); err != nil {
			t.Fatalf("mark read attempt %d: %v", i+1, err)
		}
	}
	if !env.notificationsFor(t, "owner")[0].Read {
		t.Fatal("read flag should be set")
	}
}

func TestMarkReadUnknownNotification(t *testing.T) {
	env := newTestEnv(t)

	err := env.notifications.MarkRead(context.Background(), "missing", "owner")
	if !apperrors.IsCode(err, "NOT_FOUND") {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}
