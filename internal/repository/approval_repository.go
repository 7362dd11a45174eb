package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/careflow-service/internal/domain"
)

// ErrAlreadyDecided signals a decide attempt on a request that already
// reached a terminal state.
var ErrAlreadyDecided = errors.New("approval request already decided")

// ApprovalRepository handles persistence for staff approval requests.
type ApprovalRepository interface {
	Create(ctx context.Context, req *domain.ApprovalRequest) error
	GetByID(ctx context.Context, id string) (*domain.ApprovalRequest, error)
	LatestByIdentity(ctx context.Context, identity string) (*domain.ApprovalRequest, error)
	HasPending(ctx context.Context, identity string) (bool, error)
	ListPending(ctx context.Context) ([]domain.ApprovalRequest, error)
	// Decide flips a PENDING request to its terminal state and, on approval,
	// inserts the RoleAssignment in the same transaction. Exactly one
	// concurrent caller wins; losers get ErrAlreadyDecided, unknown ids get
	// pgx.ErrNoRows.
	Decide(ctx context.Context, id string, decision domain.ApprovalDecision, decidedBy string) (*domain.ApprovalRequest, error)
}

type approvalRepository struct {
	pool *pgxpool.Pool
}

// NewApprovalRepository instantiates the repository.
func NewApprovalRepository(pool *pgxpool.Pool) ApprovalRepository {
	return &approvalRepository{pool: pool}
}

const approvalColumns = `id, identity, email, full_name, requested_role, stored_role, note, status, decided_by, created_at, updated_at`

func scanApproval(row pgx.Row, req *domain.ApprovalRequest) error {
	return row.Scan(
		&req.ID,
		&req.Identity,
		&req.Email,
		&req.FullName,
		&req.RequestedRole,
		&req.StoredRole,
		&req.Note,
		&req.Status,
		&req.DecidedBy,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
}

func (r *approvalRepository) Create(ctx context.Context, req *domain.ApprovalRequest) error {
	const query = `
        INSERT INTO approval_requests (identity, email, full_name, requested_role, stored_role, note, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		req.Identity,
		req.Email,
		req.FullName,
		req.RequestedRole,
		req.StoredRole,
		req.Note,
		req.Status,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
}

func (r *approvalRepository) GetByID(ctx context.Context, id string) (*domain.ApprovalRequest, error) {
	const query = `SELECT ` + approvalColumns + ` FROM approval_requests WHERE id=$1`

	var req domain.ApprovalRequest
	if err := scanApproval(r.pool.QueryRow(ctx, query, id), &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *approvalRepository) LatestByIdentity(ctx context.Context, identity string) (*domain.ApprovalRequest, error) {
	const query = `
        SELECT ` + approvalColumns + `
        FROM approval_requests WHERE identity=$1
        ORDER BY created_at DESC LIMIT 1`

	var req domain.ApprovalRequest
	if err := scanApproval(r.pool.QueryRow(ctx, query, identity), &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *approvalRepository) HasPending(ctx context.Context, identity string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM approval_requests WHERE identity=$1 AND status=$2)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, identity, domain.ApprovalStatusPending).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *approvalRepository) ListPending(ctx context.Context) ([]domain.ApprovalRequest, error) {
	const query = `
        SELECT ` + approvalColumns + `
        FROM approval_requests WHERE status=$1
        ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, domain.ApprovalStatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ApprovalRequest
	for rows.Next() {
		var req domain.ApprovalRequest
		if err := scanApproval(rows, &req); err != nil {
			return nil, err
		}
		result = append(result, req)
	}
	return result, rows.Err()
}

func (r *approvalRepository) Decide(ctx context.Context, id string, decision domain.ApprovalDecision, decidedBy string) (*domain.ApprovalRequest, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	status := domain.ApprovalStatusRejected
	if decision == domain.DecisionApprove {
		status = domain.ApprovalStatusApproved
	}

	// The status=PENDING guard makes the transition winner-takes-all under
	// concurrent deciders.
	const update = `
        UPDATE approval_requests
        SET status=$1, decided_by=$2, updated_at=NOW()
        WHERE id=$3 AND status=$4
        RETURNING ` + approvalColumns

	var req domain.ApprovalRequest
	if err := scanApproval(tx.QueryRow(ctx, update, status, decidedBy, id, domain.ApprovalStatusPending), &req); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if checkErr := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM approval_requests WHERE id=$1)`, id).Scan(&exists); checkErr != nil {
				return nil, checkErr
			}
			if exists {
				return nil, ErrAlreadyDecided
			}
			return nil, pgx.ErrNoRows
		}
		return nil, err
	}

	if decision == domain.DecisionApprove {
		const insert = `
            INSERT INTO role_assignments (identity, role)
            VALUES ($1, $2)
            ON CONFLICT (identity) DO UPDATE SET role=EXCLUDED.role`
		if _, err := tx.Exec(ctx, insert, req.Identity, req.StoredRole); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &req, nil
}
