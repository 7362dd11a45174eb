package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/careflow-service/internal/auth"
	"github.com/spec-kit/careflow-service/internal/config"
	"github.com/spec-kit/careflow-service/internal/domain"
	"github.com/spec-kit/careflow-service/internal/repository"
	apperrors "github.com/spec-kit/careflow-service/pkg/util"
)

// AuthService coordinates registration and login flows. Staff registration
// also submits the approval request; the account stays role-less until an
// administrator approves it.
type AuthService struct {
	accounts   repository.AccountRepository
	roles      repository.RoleRepository
	approvals  *ApprovalService
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, accounts repository.AccountRepository, roles repository.RoleRepository, approvals *ApprovalService) *AuthService {
	return &AuthService{
		accounts:   accounts,
		roles:      roles,
		approvals:  approvals,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// TokenManager exposes the manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) createAccount(ctx context.Context, name, email, password string, kind domain.AccountKind) (*domain.Account, error) {
	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewValidationError("email already registered", map[string]any{"email": email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	account := &domain.Account{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Kind:         kind,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, apperrors.MapError(err)
	}
	return account, nil
}

// RegisterPatient creates a patient portal account and issues a token.
func (s *AuthService) RegisterPatient(ctx context.Context, name, email, password string) (*domain.Account, string, time.Time, error) {
	account, err := s.createAccount(ctx, name, email, password, domain.AccountKindPatient)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	token, exp, err := s.tokenMgr.GenerateToken(account.ID, account.Kind, nil)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return account, token, exp, nil
}

// RegisterStaff creates a staff account and submits its approval request in
// the same call. The returned token authenticates the caller while the
// request is pending; no role is attached until approval.
func (s *AuthService) RegisterStaff(ctx context.Context, name, email, password string, requestedRole domain.Role) (*domain.Account, *domain.ApprovalRequest, string, time.Time, error) {
	account, err := s.createAccount(ctx, name, email, password, domain.AccountKindStaff)
	if err != nil {
		return nil, nil, "", time.Time{}, err
	}

	req, err := s.approvals.SubmitRequest(ctx, account.ID, email, name, requestedRole)
	if err != nil {
		return nil, nil, "", time.Time{}, err
	}

	token, exp, err := s.tokenMgr.GenerateToken(account.ID, account.Kind, nil)
	if err != nil {
		return nil, nil, "", time.Time{}, err
	}
	return account, req, token, exp, nil
}

// Login authenticates any account. The issued token carries a role snapshot
// when an assignment exists.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.Account, string, time.Time, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}

	var role *domain.Role
	if assignment, err := s.roles.GetByIdentity(ctx, account.ID); err == nil {
		role = &assignment.Role
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	token, exp, err := s.tokenMgr.GenerateToken(account.ID, account.Kind, role)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return account, token, exp, nil
}
