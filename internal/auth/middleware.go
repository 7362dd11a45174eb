package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/careflow-service/internal/domain"
	"github.com/spec-kit/careflow-service/internal/repository"
	apperrors "github.com/spec-kit/careflow-service/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller. Role comes from the role
// store at request time, not from the token: the assignment row is the sole
// authority for staff capability.
type Principal struct {
	Account *domain.Account
	Role    *domain.Role
}

// Identity returns the caller's identity string.
func (p *Principal) Identity() string {
	return p.Account.ID
}

// IsAdmin reports whether the caller holds the administrative role.
func (p *Principal) IsAdmin() bool {
	return p.Role != nil && *p.Role == domain.RoleAdmin
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens   *TokenManager
	accounts repository.AccountRepository
	roles    repository.RoleRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, accounts repository.AccountRepository, roles repository.RoleRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, accounts: accounts, roles: roles}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	account, err := m.accounts.GetByID(c.Context(), claims.SubjectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("account not found")
		}
		return apperrors.MapError(err)
	}

	principal := &Principal{Account: account}
	if assignment, err := m.roles.GetByIdentity(c.Context(), claims.SubjectID); err == nil {
		principal.Role = &assignment.Role
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return apperrors.MapError(err)
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
