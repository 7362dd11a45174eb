package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/careflow-service/internal/domain"
)

// AppointmentRepository covers the self-service appointment representation.
type AppointmentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.SelfServiceAppointment, error)
	// SetStatus applies a single guarded status update by row id. It reports
	// whether a row matched; a concurrent writer on the same column is a
	// tolerated last-writer-wins.
	SetStatus(ctx context.Context, id string, status domain.AppointmentStatus) (bool, error)
}

type appointmentRepository struct {
	pool *pgxpool.Pool
}

// NewAppointmentRepository instantiates the repository.
func NewAppointmentRepository(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepository{pool: pool}
}

func (r *appointmentRepository) GetByID(ctx context.Context, id string) (*domain.SelfServiceAppointment, error) {
	const query = `
        SELECT id, owner_id, doctor_id, department_id, preferred_at, status, created_at, updated_at
        FROM appointments WHERE id=$1`

	var appt domain.SelfServiceAppointment
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&appt.ID,
		&appt.OwnerID,
		&appt.DoctorID,
		&appt.DepartmentID,
		&appt.PreferredAt,
		&appt.Status,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &appt, nil
}

func (r *appointmentRepository) SetStatus(ctx context.Context, id string, status domain.AppointmentStatus) (bool, error) {
	const query = `UPDATE appointments SET status=$1, updated_at=NOW() WHERE id=$2`

	cmd, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}
