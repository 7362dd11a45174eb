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
)

// AppointmentSource is one storage representation of an appointment. The
// reconciler only depends on this capability set, so the two differently
// shaped tables look identical to it.
type AppointmentSource interface {
	Name() string
	// SetStatus applies a guarded single-row transition and reports whether
	// the id matched this representation.
	SetStatus(ctx context.Context, id string, status domain.AppointmentStatus) (bool, error)
	// ResolveRecipient returns the identity to notify for the appointment,
	// or "" when none can be resolved.
	ResolveRecipient(ctx context.Context, id string) (string, error)
}

type selfServiceSource struct {
	repo repository.AppointmentRepository
}

// NewSelfServiceSource exposes patient self-service bookings to the reconciler.
func NewSelfServiceSource(repo repository.AppointmentRepository) AppointmentSource {
	return selfServiceSource{repo: repo}
}

func (s selfServiceSource) Name() string { return "self_service" }

func (s selfServiceSource) SetStatus(ctx context.Context, id string, status domain.AppointmentStatus) (bool, error) {
	return s.repo.SetStatus(ctx, id, status)
}

func (s selfServiceSource) ResolveRecipient(ctx context.Context, id string) (string, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return appt.OwnerID, nil
}

type scheduledSource struct {
	repo repository.ScheduleRepository
}

// NewScheduledSource exposes staff-scheduled bookings to the reconciler. The
// recipient is resolved indirectly through the patient's linked portal
// account.
func NewScheduledSource(repo repository.ScheduleRepository) AppointmentSource {
	return scheduledSource{repo: repo}
}

func (s scheduledSource) Name() string { return "staff_schedule" }

func (s scheduledSource) SetStatus(ctx context.Context, id string, status domain.AppointmentStatus) (bool, error) {
	return s.repo.SetStatus(ctx, id, status)
}

func (s scheduledSource) ResolveRecipient(ctx context.Context, id string) (string, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	account, err := s.repo.LinkedAccount(ctx, appt.PatientID)
	if err != nil {
		return "", err
	}
	if account == nil {
		return "", nil
	}
	return *account, nil
}

// ToolCall is one structured function invocation from the voice platform.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// ToolResult is the per-call outcome, correlated by the caller's call id.
type ToolResult struct {
	CallID string `json:"callId"`
	Result string `json:"result"`
}

type toolHandler func(ctx context.Context, args map[string]any) (string, error)

// ReconcilerService resolves opaque appointment ids from voice tool calls
// against the registered appointment sources and applies the confirmation
// transition. Actions dispatch through a table keyed by function name so the
// voice layer can grow new tools without touching the control flow here.
type ReconcilerService struct {
	sources    []AppointmentSource
	notifier   *NotificationService
	dispatcher events.Dispatcher
	logger     *zap.Logger
	handlers   map[string]toolHandler
}

// NewReconcilerService builds the service. Source order is behavioral: the
// self-service representation is probed first because it is the more common
// origin of voice-initiated bookings.
func NewReconcilerService(sources []AppointmentSource, notifier *NotificationService, dispatcher events.Dispatcher, logger *zap.Logger) *ReconcilerService {
	s := &ReconcilerService{
		sources:    sources,
		notifier:   notifier,
		dispatcher: dispatcher,
		logger:     logger,
	}
	s.handlers = map[string]toolHandler{
		"confirmAppointment":    s.confirm,
		"rescheduleAppointment": s.reschedule,
	}
	return s
}

// ProcessBatch handles every tool call independently: a failing or unknown
// call never prevents its siblings from completing, and the response carries
// exactly one result per input call.
func (s *ReconcilerService) ProcessBatch(ctx context.Context, calls []ToolCall) []ToolResult {
	results := make([]ToolResult, 0, len(calls))
	for _, call := range calls {
		handler, ok := s.handlers[call.Name]
		if !ok {
			s.logger.Warn("unhandled tool call", zap.String("call_id", call.ID), zap.String("name", call.Name))
			results = append(results, ToolResult{
				CallID: call.ID,
				Result: fmt.Sprintf("tool %q is not handled by this service", call.Name),
			})
			continue
		}

		outcome, err := handler(ctx, call.Arguments)
		if err != nil {
			s.logger.Error("tool call failed",
				zap.String("call_id", call.ID),
				zap.String("name", call.Name),
				zap.Error(err))
			results = append(results, ToolResult{
				CallID: call.ID,
				Result: fmt.Sprintf("tool %q failed: %v", call.Name, err),
			})
			continue
		}
		results = append(results, ToolResult{CallID: call.ID, Result: outcome})
	}
	return results
}

func appointmentID(args map[string]any) (string, error) {
	raw, ok := args["appointmentId"]
	if !ok {
		return "", errors.New("missing appointmentId argument")
	}
	id, ok := raw.(string)
	if !ok || id == "" {
		return "", errors.New("appointmentId must be a non-empty string")
	}
	return id, nil
}

// confirm probes each source in order until the id matches, transitions that
// row to confirmed, and notifies the resolved recipient when there is one.
func (s *ReconcilerService) confirm(ctx context.Context, args map[string]any) (string, error) {
	id, err := appointmentID(args)
	if err != nil {
		return "", err
	}

	for _, source := range s.sources {
		matched, err := source.SetStatus(ctx, id, domain.AppointmentConfirmed)
		if err != nil {
			return "", fmt.Errorf("%s: %w", source.Name(), err)
		}
		if !matched {
			continue
		}

		recipient, err := source.ResolveRecipient(ctx, id)
		if err != nil {
			s.logger.Error("recipient resolution failed",
				zap.String("appointment_id", id),
				zap.String("source", source.Name()),
				zap.Error(err))
		}
		if recipient != "" {
			if _, err := s.notifier.Notify(ctx, []string{recipient},
				"Appointment confirmed",
				fmt.Sprintf("Your appointment %s has been confirmed.", id),
				domain.CategorySuccess,
				&domain.EntityRef{Type: "appointment", ID: id}); err != nil {
				s.logger.Error("confirmation notification failed", zap.String("appointment_id", id), zap.Error(err))
			}
		}

		_ = s.dispatcher.Publish(ctx, events.NewEvent(events.EventAppointmentConfirmed, recipient, events.AppointmentConfirmedPayload{
			AppointmentID: id,
			Source:        source.Name(),
		}))

		return fmt.Sprintf("appointment %s confirmed", id), nil
	}

	return fmt.Sprintf("appointment %s not found", id), nil
}

// reschedule acknowledges the request without mutating either representation.
// TODO: create a follow-up callback record once the voice platform exposes
// the patient's preferred slots in the tool arguments.
func (s *ReconcilerService) reschedule(_ context.Context, args map[string]any) (string, error) {
	id, err := appointmentID(args)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("reschedule request for appointment %s received", id), nil
}
