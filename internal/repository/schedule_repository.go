package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/careflow-service/internal/domain"
)

// ScheduleRepository covers the staff-scheduled appointment representation
// and the patient-chart to portal-account link used for notifications.
type ScheduleRepository interface {
	GetByID(ctx context.Context, id string) (*domain.ScheduledAppointment, error)
	SetStatus(ctx context.Context, id string, status domain.AppointmentStatus) (bool, error)
	// LinkedAccount returns the portal account identity for a patient chart,
	// or nil when the patient has no portal access.
	LinkedAccount(ctx context.Context, patientID string) (*string, error)
}

type scheduleRepository struct {
	pool *pgxpool.Pool
}

// NewScheduleRepository instantiates the repository.
func NewScheduleRepository(pool *pgxpool.Pool) ScheduleRepository {
	return &scheduleRepository{pool: pool}
}

func (r *scheduleRepository) GetByID(ctx context.Context, id string) (*domain.ScheduledAppointment, error) {
	const query = `
        SELECT id, patient_id, doctor_id, scheduled_at, status, created_at, updated_at
        FROM schedule_entries WHERE id=$1`

	var appt domain.ScheduledAppointment
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&appt.ID,
		&appt.PatientID,
		&appt.DoctorID,
		&appt.ScheduledAt,
		&appt.Status,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &appt, nil
}

func (r *scheduleRepository) SetStatus(ctx context.Context, id string, status domain.AppointmentStatus) (bool, error) {
	const query = `UPDATE schedule_entries SET status=$1, updated_at=NOW() WHERE id=$2`

	cmd, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *scheduleRepository) LinkedAccount(ctx context.Context, patientID string) (*string, error) {
	const query = `SELECT account_id FROM patient_accounts WHERE patient_id=$1`

	var accountID *string
	if err := r.pool.QueryRow(ctx, query, patientID).Scan(&accountID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return accountID, nil
}
