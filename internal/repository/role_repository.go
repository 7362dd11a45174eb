package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/careflow-service/internal/domain"
)

// RoleRepository is the read/write surface over role storage.
type RoleRepository interface {
	Assign(ctx context.Context, identity string, role domain.Role) error
	GetByIdentity(ctx context.Context, identity string) (*domain.RoleAssignment, error)
	ListIdentitiesByRole(ctx context.Context, role domain.Role) ([]string, error)
}

type roleRepository struct {
	pool *pgxpool.Pool
}

// NewRoleRepository instantiates the repository.
func NewRoleRepository(pool *pgxpool.Pool) RoleRepository {
	return &roleRepository{pool: pool}
}

func (r *roleRepository) Assign(ctx context.Context, identity string, role domain.Role) error {
	const query = `
        INSERT INTO role_assignments (identity, role)
        VALUES ($1, $2)
        ON CONFLICT (identity) DO UPDATE SET role=EXCLUDED.role`

	_, err := r.pool.Exec(ctx, query, identity, role)
	return err
}

func (r *roleRepository) GetByIdentity(ctx context.Context, identity string) (*domain.RoleAssignment, error) {
	const query = `SELECT identity, role, created_at FROM role_assignments WHERE identity=$1`

	var assignment domain.RoleAssignment
	if err := r.pool.QueryRow(ctx, query, identity).Scan(
		&assignment.Identity,
		&assignment.Role,
		&assignment.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *roleRepository) ListIdentitiesByRole(ctx context.Context, role domain.Role) ([]string, error) {
	const query = `SELECT identity FROM role_assignments WHERE role=$1 ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var identities []string
	for rows.Next() {
		var identity string
		if err := rows.Scan(&identity); err != nil {
			return nil, err
		}
		identities = append(identities, identity)
	}
	return identities, rows.Err()
}
