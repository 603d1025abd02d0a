package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	common_models "go-approvals/internal/common/models"
	"go-approvals/internal/features/audit"
	"go-approvals/pkg/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IdentityService is the engine's view of the identity directory: who holds
// which role right now. Role lookups fail softly (nil, nil) so that a deleted
// or renamed role renders a requirement unsatisfiable instead of erroring.
type IdentityService interface {
	RoleOf(ctx context.Context, userID string) (*Role, error)
	RoleBySlug(ctx context.Context, slug string) (*Role, error)
	RoleSlugOf(ctx context.Context, userID string) (string, error)

	CreateRole(ctx context.Context, role *Role) error
	ListRoles(ctx context.Context) ([]Role, error)
	UpdateRole(ctx context.Context, id string, name, description string) error
	DeleteRole(ctx context.Context, id string) error

	CreateUser(ctx context.Context, user *User, password string) error
	GetUser(ctx context.Context, id string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	AssignRole(ctx context.Context, userID string, roleID string) error
	DeleteUser(ctx context.Context, id string) error

	ValidateCredentials(ctx context.Context, username, password string) (*User, error)
}

type IdentityServiceImpl struct {
	UserRepo     UserRepository
	RoleRepo     RoleRepository
	AuditService audit.AuditService
}

func NewIdentityService(userRepo UserRepository, roleRepo RoleRepository, auditService audit.AuditService) IdentityService {
	return &IdentityServiceImpl{
		UserRepo:     userRepo,
		RoleRepo:     roleRepo,
		AuditService: auditService,
	}
}

func (s *IdentityServiceImpl) RoleOf(ctx context.Context, userID string) (*Role, error) {
	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil || user == nil {
		return nil, err
	}
	if user.RoleID == nil {
		return nil, nil
	}
	return s.RoleRepo.FindByID(ctx, user.RoleID.Hex())
}

func (s *IdentityServiceImpl) RoleBySlug(ctx context.Context, slug string) (*Role, error) {
	return s.RoleRepo.FindBySlug(ctx, slug)
}

// RoleSlugOf returns the user's current role slug, or "" when the user holds
// no role (or does not exist).
func (s *IdentityServiceImpl) RoleSlugOf(ctx context.Context, userID string) (string, error) {
	role, err := s.RoleOf(ctx, userID)
	if err != nil {
		return "", err
	}
	if role == nil {
		return "", nil
	}
	return role.Slug, nil
}

func (s *IdentityServiceImpl) CreateRole(ctx context.Context, role *Role) error {
	if role.Name == "" {
		return errors.New("role name is required")
	}

	role.Slug = utils.Slugify(role.Name)
	existing, err := s.RoleRepo.FindBySlug(ctx, role.Slug)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("role with slug %q already exists", role.Slug)
	}

	if role.ID.IsZero() {
		role.ID = primitive.NewObjectID()
	}
	role.CreatedAt = time.Now()
	role.UpdatedAt = time.Now()

	if err := s.RoleRepo.Create(ctx, role); err != nil {
		return err
	}

	s.AuditService.LogChange(ctx, common_models.AuditActionIdentity, "roles", role.ID.Hex(), map[string]common_models.Change{
		"role": {New: role},
	})
	return nil
}

func (s *IdentityServiceImpl) ListRoles(ctx context.Context) ([]Role, error) {
	return s.RoleRepo.List(ctx)
}

// UpdateRole changes the display name and description. The slug is
// intentionally left untouched: officer specs reference it.
func (s *IdentityServiceImpl) UpdateRole(ctx context.Context, id string, name, description string) error {
	role, err := s.RoleRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if role == nil {
		return errors.New("role not found")
	}

	update := bson.M{
		"name":        name,
		"description": description,
		"updated_at":  time.Now(),
	}
	if err := s.RoleRepo.Update(ctx, id, update); err != nil {
		return err
	}

	s.AuditService.LogChange(ctx, common_models.AuditActionIdentity, "roles", id, map[string]common_models.Change{
		"name": {Old: role.Name, New: name},
	})
	return nil
}

func (s *IdentityServiceImpl) DeleteRole(ctx context.Context, id string) error {
	role, err := s.RoleRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if role == nil {
		return errors.New("role not found")
	}
	if role.IsSystem {
		return errors.New("system roles cannot be deleted")
	}

	if err := s.RoleRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.AuditService.LogChange(ctx, common_models.AuditActionIdentity, "roles", id, map[string]common_models.Change{
		"role": {Old: role, New: "DELETED"},
	})
	return nil
}

func (s *IdentityServiceImpl) CreateUser(ctx context.Context, user *User, password string) error {
	if user.Username == "" || password == "" {
		return errors.New("username and password are required")
	}

	existing, err := s.UserRepo.FindByUsername(ctx, user.Username)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("user %q already exists", user.Username)
	}

	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.Password = utils.HashPassword(password)
	if user.Status == "" {
		user.Status = "active"
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()

	if err := s.UserRepo.Create(ctx, user); err != nil {
		return err
	}

	s.AuditService.LogChange(ctx, common_models.AuditActionIdentity, "users", user.ID.Hex(), map[string]common_models.Change{
		"username": {New: user.Username},
	})
	return nil
}

func (s *IdentityServiceImpl) GetUser(ctx context.Context, id string) (*User, error) {
	return s.UserRepo.FindByID(ctx, id)
}

func (s *IdentityServiceImpl) ListUsers(ctx context.Context) ([]User, error) {
	return s.UserRepo.List(ctx)
}

func (s *IdentityServiceImpl) AssignRole(ctx context.Context, userID string, roleID string) error {
	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return errors.New("user not found")
	}

	oid, err := primitive.ObjectIDFromHex(roleID)
	if err != nil {
		return err
	}
	role, err := s.RoleRepo.FindByID(ctx, roleID)
	if err != nil {
		return err
	}
	if role == nil {
		return errors.New("role not found")
	}

	update := bson.M{"role_id": oid, "updated_at": time.Now()}
	if err := s.UserRepo.Update(ctx, userID, update); err != nil {
		return err
	}

	s.AuditService.LogChange(ctx, common_models.AuditActionIdentity, "users", userID, map[string]common_models.Change{
		"role": {Old: user.RoleID, New: role.Slug},
	})
	return nil
}

func (s *IdentityServiceImpl) DeleteUser(ctx context.Context, id string) error {
	user, err := s.UserRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if user == nil {
		return errors.New("user not found")
	}

	if err := s.UserRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.AuditService.LogChange(ctx, common_models.AuditActionIdentity, "users", id, map[string]common_models.Change{
		"user": {Old: user.Username, New: "DELETED"},
	})
	return nil
}

func (s *IdentityServiceImpl) ValidateCredentials(ctx context.Context, username, password string) (*User, error) {
	user, err := s.UserRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Status != "active" {
		return nil, errors.New("invalid credentials")
	}
	if user.Password != utils.HashPassword(password) {
		return nil, errors.New("invalid credentials")
	}
	return user, nil
}
