package template

import (
	"context"
	"strings"
	"testing"

	common_models "go-approvals/internal/common/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memTemplateRepository struct {
	templates map[string]ApprovalTemplate
}

func newMemTemplateRepository() *memTemplateRepository {
	return &memTemplateRepository{templates: make(map[string]ApprovalTemplate)}
}

func (r *memTemplateRepository) Create(ctx context.Context, tmpl ApprovalTemplate) error {
	r.templates[tmpl.ID.Hex()] = tmpl
	return nil
}

func (r *memTemplateRepository) GetByID(ctx context.Context, id string) (*ApprovalTemplate, error) {
	tmpl, ok := r.templates[id]
	if !ok {
		return nil, nil
	}
	return &tmpl, nil
}

func (r *memTemplateRepository) FindActive(ctx context.Context, objectType, objectSource string) (*ApprovalTemplate, error) {
	for _, tmpl := range r.templates {
		if tmpl.ObjectType == objectType && tmpl.ObjectSource == objectSource && tmpl.Active {
			return &tmpl, nil
		}
	}
	return nil, nil
}

func (r *memTemplateRepository) ListActive(ctx context.Context, objectType, objectSource string) ([]ApprovalTemplate, error) {
	var out []ApprovalTemplate
	for _, tmpl := range r.templates {
		if tmpl.ObjectType == objectType && tmpl.ObjectSource == objectSource && tmpl.Active {
			out = append(out, tmpl)
		}
	}
	return out, nil
}

func (r *memTemplateRepository) List(ctx context.Context) ([]ApprovalTemplate, error) {
	out := make([]ApprovalTemplate, 0, len(r.templates))
	for _, tmpl := range r.templates {
		out = append(out, tmpl)
	}
	return out, nil
}

func (r *memTemplateRepository) Update(ctx context.Context, id string, tmpl ApprovalTemplate) error {
	existing := r.templates[id]
	tmpl.ID = existing.ID
	r.templates[id] = tmpl
	return nil
}

func (r *memTemplateRepository) EnsureIndexes(ctx context.Context) error { return nil }

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

func validSample() ApprovalTemplate {
	return ApprovalTemplate{
		ObjectType:   "invoice",
		ObjectSource: "erp",
		Name:         "Invoice sign-off",
		Officers: []OfficerSpec{
			{Kind: OfficerKindRole, Reference: "manager", Action: ActionMustSign},
			{Kind: OfficerKindRole, Reference: "auditor", Action: ActionCanSign},
		},
		Active: true,
	}
}

func newService() (TemplateService, *memTemplateRepository) {
	repo := newMemTemplateRepository()
	return NewTemplateService(repo, nopAudit{}), repo
}

func TestCreateTemplateValid(t *testing.T) {
	svc, _ := newService()

	if err := svc.CreateTemplate(context.Background(), validSample()); err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}

	found, err := svc.FindActive(context.Background(), "invoice", "erp")
	if err != nil {
		t.Fatalf("FindActive: %v", err)
	}
	if found == nil || found.Name != "Invoice sign-off" {
		t.Fatalf("active template not found after create, got %+v", found)
	}
}

func TestCreateTemplateValidation(t *testing.T) {
	svc, _ := newService()

	cases := []struct {
		name   string
		mutate func(*ApprovalTemplate)
	}{
		{"missing object type", func(tm *ApprovalTemplate) { tm.ObjectType = "" }},
		{"missing name", func(tm *ApprovalTemplate) { tm.Name = "" }},
		{"no officers", func(tm *ApprovalTemplate) { tm.Officers = nil }},
		{"bad kind", func(tm *ApprovalTemplate) { tm.Officers[0].Kind = "group" }},
		{"bad action", func(tm *ApprovalTemplate) { tm.Officers[0].Action = "may_sign" }},
		{"empty reference", func(tm *ApprovalTemplate) { tm.Officers[0].Reference = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tmpl := validSample()
			tc.mutate(&tmpl)
			if err := svc.CreateTemplate(context.Background(), tmpl); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCreateTemplateSingleActive(t *testing.T) {
	svc, _ := newService()

	if err := svc.CreateTemplate(context.Background(), validSample()); err != nil {
		t.Fatalf("first create: %v", err)
	}

	second := validSample()
	second.Name = "Competing sign-off"
	err := svc.CreateTemplate(context.Background(), second)
	if err == nil || !strings.Contains(err.Error(), "active template already exists") {
		t.Fatalf("expected single-active violation, got %v", err)
	}

	// An inactive template for the same pair is fine
	second.Active = false
	if err := svc.CreateTemplate(context.Background(), second); err != nil {
		t.Fatalf("inactive duplicate rejected: %v", err)
	}
}

func TestUpdateTemplateKeepsTypeAndSource(t *testing.T) {
	svc, repo := newService()

	tmpl := validSample()
	tmpl.ID = primitive.NewObjectID()
	if err := svc.CreateTemplate(context.Background(), tmpl); err != nil {
		t.Fatalf("create: %v", err)
	}

	update := validSample()
	update.ObjectType = "purchase_order"
	update.ObjectSource = "other"
	update.Name = "Renamed"
	if err := svc.UpdateTemplate(context.Background(), tmpl.ID.Hex(), update); err != nil {
		t.Fatalf("update: %v", err)
	}

	stored := repo.templates[tmpl.ID.Hex()]
	if stored.ObjectType != "invoice" || stored.ObjectSource != "erp" {
		t.Fatalf("object type/source must be immutable, got %s/%s", stored.ObjectType, stored.ObjectSource)
	}
	if stored.Name != "Renamed" {
		t.Fatalf("name not updated, got %s", stored.Name)
	}
}

func TestUpdateTemplateUnknownID(t *testing.T) {
	svc, _ := newService()

	err := svc.UpdateTemplate(context.Background(), primitive.NewObjectID().Hex(), validSample())
	if err == nil {
		t.Fatal("expected error for unknown template id")
	}
}

func TestPartitionOfficers(t *testing.T) {
	officers := []OfficerSpec{
		{Kind: OfficerKindPerson, Reference: "u1", Action: ActionMustSign},
		{Kind: OfficerKindRole, Reference: "auditor", Action: ActionCanSign},
		{Kind: OfficerKindRole, Reference: "manager", Action: ActionMustSign},
	}

	required, optional := PartitionOfficers(officers)
	if len(required) != 2 || len(optional) != 1 {
		t.Fatalf("got %d required, %d optional", len(required), len(optional))
	}
	if optional[0].Reference != "auditor" {
		t.Fatalf("wrong optional officer: %+v", optional[0])
	}
}
