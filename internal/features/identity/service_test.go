package identity

import (
	"context"
	"testing"

	common_models "go-approvals/internal/common/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memUserRepository struct {
	users map[string]*User
}

func (r *memUserRepository) Create(ctx context.Context, user *User) error {
	r.users[user.ID.Hex()] = user
	return nil
}

func (r *memUserRepository) FindByID(ctx context.Context, id string) (*User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (r *memUserRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	for _, u := range r.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memUserRepository) FindByIDs(ctx context.Context, ids []string) ([]User, error) {
	var out []User
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *memUserRepository) List(ctx context.Context) ([]User, error) {
	out := make([]User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, nil
}

func (r *memUserRepository) Update(ctx context.Context, id string, update bson.M) error {
	u, ok := r.users[id]
	if !ok {
		return nil
	}
	if v, ok := update["role_id"].(primitive.ObjectID); ok {
		u.RoleID = &v
	}
	if v, ok := update["status"].(string); ok {
		u.Status = v
	}
	return nil
}

func (r *memUserRepository) Delete(ctx context.Context, id string) error {
	delete(r.users, id)
	return nil
}

type memRoleRepository struct {
	roles map[string]*Role
}

func (r *memRoleRepository) Create(ctx context.Context, role *Role) error {
	r.roles[role.ID.Hex()] = role
	return nil
}

func (r *memRoleRepository) FindByID(ctx context.Context, id string) (*Role, error) {
	role, ok := r.roles[id]
	if !ok {
		return nil, nil
	}
	copied := *role
	return &copied, nil
}

func (r *memRoleRepository) FindBySlug(ctx context.Context, slug string) (*Role, error) {
	for _, role := range r.roles {
		if role.Slug == slug {
			copied := *role
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memRoleRepository) List(ctx context.Context) ([]Role, error) {
	out := make([]Role, 0, len(r.roles))
	for _, role := range r.roles {
		out = append(out, *role)
	}
	return out, nil
}

func (r *memRoleRepository) Update(ctx context.Context, id string, update bson.M) error {
	role, ok := r.roles[id]
	if !ok {
		return nil
	}
	if v, ok := update["name"].(string); ok {
		role.Name = v
	}
	if v, ok := update["description"].(string); ok {
		role.Description = v
	}
	return nil
}

func (r *memRoleRepository) Delete(ctx context.Context, id string) error {
	delete(r.roles, id)
	return nil
}

type nopAudit struct{}

func (nopAudit) LogChange(ctx context.Context, action common_models.AuditAction, objectType, objectID string, changes map[string]common_models.Change) error {
	return nil
}

func (nopAudit) LogFlowChange(ctx context.Context, action common_models.AuditAction, objectType, objectID, flowID string, changes map[string]common_models.Change) error {
	return nil
}

func (nopAudit) ListLogs(ctx context.Context, filter bson.M, page, limit int64) ([]common_models.AuditLog, error) {
	return nil, nil
}

func newIdentityService() IdentityService {
	return NewIdentityService(
		&memUserRepository{users: make(map[string]*User)},
		&memRoleRepository{roles: make(map[string]*Role)},
		nopAudit{},
	)
}

func TestRoleSlugOfUnknownUser(t *testing.T) {
	svc := newIdentityService()

	slug, err := svc.RoleSlugOf(context.Background(), primitive.NewObjectID().Hex())
	if err != nil {
		t.Fatalf("RoleSlugOf: %v", err)
	}
	if slug != "" {
		t.Fatalf("unknown user must resolve to empty slug, got %q", slug)
	}
}

func TestRoleSlugOfTracksAssignment(t *testing.T) {
	svc := newIdentityService()

	role := &Role{Name: "Chief Accountant"}
	if err := svc.CreateRole(context.Background(), role); err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	if role.Slug != "chief-accountant" {
		t.Fatalf("unexpected slug %q", role.Slug)
	}

	user := &User{Username: "bob"}
	if err := svc.CreateUser(context.Background(), user, "pw"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	slug, err := svc.RoleSlugOf(context.Background(), user.ID.Hex())
	if err != nil || slug != "" {
		t.Fatalf("user without role must resolve to \"\", got %q err %v", slug, err)
	}

	if err := svc.AssignRole(context.Background(), user.ID.Hex(), role.ID.Hex()); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}

	slug, err = svc.RoleSlugOf(context.Background(), user.ID.Hex())
	if err != nil || slug != "chief-accountant" {
		t.Fatalf("expected chief-accountant, got %q err %v", slug, err)
	}
}

func TestRoleSlugOfAfterRoleDeleted(t *testing.T) {
	svc := newIdentityService()

	role := &Role{Name: "Manager"}
	if err := svc.CreateRole(context.Background(), role); err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	user := &User{Username: "alice"}
	if err := svc.CreateUser(context.Background(), user, "pw"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := svc.AssignRole(context.Background(), user.ID.Hex(), role.ID.Hex()); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}

	if err := svc.DeleteRole(context.Background(), role.ID.Hex()); err != nil {
		t.Fatalf("DeleteRole: %v", err)
	}

	// The dangling role reference resolves softly to no role
	slug, err := svc.RoleSlugOf(context.Background(), user.ID.Hex())
	if err != nil {
		t.Fatalf("RoleSlugOf: %v", err)
	}
	if slug != "" {
		t.Fatalf("deleted role must resolve to empty slug, got %q", slug)
	}
}

func TestCreateRoleDuplicateSlug(t *testing.T) {
	svc := newIdentityService()

	if err := svc.CreateRole(context.Background(), &Role{Name: "Manager"}); err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	if err := svc.CreateRole(context.Background(), &Role{Name: "manager"}); err == nil {
		t.Fatal("expected duplicate-slug error")
	}
}

func TestDeleteSystemRoleProtected(t *testing.T) {
	svc := newIdentityService()

	role := &Role{Name: "Admin", IsSystem: true}
	if err := svc.CreateRole(context.Background(), role); err != nil {
		t.Fatalf("CreateRole: %v", err)
	}

	if err := svc.DeleteRole(context.Background(), role.ID.Hex()); err == nil {
		t.Fatal("system role deletion must be rejected")
	}
}

func TestValidateCredentials(t *testing.T) {
	svc := newIdentityService()

	user := &User{Username: "carol"}
	if err := svc.CreateUser(context.Background(), user, "s3cret"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	got, err := svc.ValidateCredentials(context.Background(), "carol", "s3cret")
	if err != nil || got == nil || got.Username != "carol" {
		t.Fatalf("valid credentials rejected: %v", err)
	}

	if _, err := svc.ValidateCredentials(context.Background(), "carol", "wrong"); err == nil {
		t.Fatal("wrong password must be rejected")
	}
	if _, err := svc.ValidateCredentials(context.Background(), "nobody", "s3cret"); err == nil {
		t.Fatal("unknown user must be rejected")
	}
}
