package auth

import (
	"context"

	common_models "go-approvals/internal/common/models"
	"go-approvals/internal/features/audit"
	"go-approvals/internal/features/identity"
	"go-approvals/pkg/utils"
)

type AuthService interface {
	Login(ctx context.Context, username, password string) (string, *identity.User, error)
}

type AuthServiceImpl struct {
	Identity     identity.IdentityService
	AuditService audit.AuditService
}

func NewAuthService(identityService identity.IdentityService, auditService audit.AuditService) AuthService {
	return &AuthServiceImpl{
		Identity:     identityService,
		AuditService: auditService,
	}
}

// Login validates credentials and issues a JWT carrying the user's current
// role slug. The slug in the token is informational; authorization decisions
// re-resolve roles from the directory.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (string, *identity.User, error) {
	user, err := s.Identity.ValidateCredentials(ctx, username, password)
	if err != nil {
		return "", nil, err
	}

	roleSlug, err := s.Identity.RoleSlugOf(ctx, user.ID.Hex())
	if err != nil {
		return "", nil, err
	}

	token, err := utils.GenerateToken(user.ID, user.Username, roleSlug)
	if err != nil {
		return "", nil, err
	}

	s.AuditService.LogChange(ctx, common_models.AuditActionLogin, "user", user.ID.Hex(), map[string]common_models.Change{
		"username": {New: user.Username},
	})

	return token, user, nil
}
