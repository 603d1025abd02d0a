package template

import (
	"context"
	"errors"
	"fmt"
	"time"

	common_models "go-approvals/internal/common/models"
	"go-approvals/internal/features/audit"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TemplateService interface {
	CreateTemplate(ctx context.Context, tmpl ApprovalTemplate) error
	UpdateTemplate(ctx context.Context, id string, tmpl ApprovalTemplate) error
	GetTemplateByID(ctx context.Context, id string) (*ApprovalTemplate, error)
	ListTemplates(ctx context.Context) ([]ApprovalTemplate, error)
	// FindActive returns nil when no active template matches the pair
	FindActive(ctx context.Context, objectType, objectSource string) (*ApprovalTemplate, error)
}

type TemplateServiceImpl struct {
	Repo         TemplateRepository
	AuditService audit.AuditService
}

func NewTemplateService(repo TemplateRepository, auditService audit.AuditService) TemplateService {
	return &TemplateServiceImpl{
		Repo:         repo,
		AuditService: auditService,
	}
}

func (s *TemplateServiceImpl) CreateTemplate(ctx context.Context, tmpl ApprovalTemplate) error {
	if err := validateTemplate(tmpl); err != nil {
		return err
	}
	if err := s.validateSingleActive(ctx, tmpl); err != nil {
		return err
	}

	if tmpl.ID.IsZero() {
		tmpl.ID = primitive.NewObjectID()
	}
	tmpl.CreatedAt = time.Now()
	tmpl.UpdatedAt = time.Now()

	if err := s.Repo.Create(ctx, tmpl); err != nil {
		return err
	}

	s.AuditService.LogChange(ctx, common_models.AuditActionTemplate, tmpl.ObjectType, tmpl.ID.Hex(), map[string]common_models.Change{
		"template": {New: tmpl},
	})
	return nil
}

func (s *TemplateServiceImpl) UpdateTemplate(ctx context.Context, id string, tmpl ApprovalTemplate) error {
	existing, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return errors.New("template not found")
	}

	// Type and source are immutable; in-flight flows were instantiated from a
	// copy and are unaffected either way.
	tmpl.ID = existing.ID
	tmpl.ObjectType = existing.ObjectType
	tmpl.ObjectSource = existing.ObjectSource

	if err := validateTemplate(tmpl); err != nil {
		return err
	}
	if err := s.validateSingleActive(ctx, tmpl); err != nil {
		return err
	}

	if err := s.Repo.Update(ctx, id, tmpl); err != nil {
		return err
	}

	s.AuditService.LogChange(ctx, common_models.AuditActionTemplate, existing.ObjectType, id, map[string]common_models.Change{
		"officers": {Old: existing.Officers, New: tmpl.Officers},
		"active":   {Old: existing.Active, New: tmpl.Active},
	})
	return nil
}

func (s *TemplateServiceImpl) GetTemplateByID(ctx context.Context, id string) (*ApprovalTemplate, error) {
	return s.Repo.GetByID(ctx, id)
}

func (s *TemplateServiceImpl) ListTemplates(ctx context.Context) ([]ApprovalTemplate, error) {
	return s.Repo.List(ctx)
}

func (s *TemplateServiceImpl) FindActive(ctx context.Context, objectType, objectSource string) (*ApprovalTemplate, error) {
	return s.Repo.FindActive(ctx, objectType, objectSource)
}

func validateTemplate(tmpl ApprovalTemplate) error {
	if tmpl.ObjectType == "" || tmpl.ObjectSource == "" {
		return errors.New("object_type and object_source are required")
	}
	if tmpl.Name == "" {
		return errors.New("template name is required")
	}
	if len(tmpl.Officers) == 0 {
		return errors.New("at least one officer is required")
	}
	for i, o := range tmpl.Officers {
		if o.Kind != OfficerKindPerson && o.Kind != OfficerKindRole {
			return fmt.Errorf("officer %d: unknown kind %q", i, o.Kind)
		}
		if o.Action != ActionMustSign && o.Action != ActionCanSign {
			return fmt.Errorf("officer %d: unknown action %q", i, o.Action)
		}
		if o.Reference == "" {
			return fmt.Errorf("officer %d: reference is required", i)
		}
	}
	return nil
}

// validateSingleActive enforces at most one active template per
// (objectType, objectSource) pair
func (s *TemplateServiceImpl) validateSingleActive(ctx context.Context, tmpl ApprovalTemplate) error {
	if !tmpl.Active {
		return nil
	}

	existing, err := s.Repo.ListActive(ctx, tmpl.ObjectType, tmpl.ObjectSource)
	if err != nil {
		return err
	}
	for _, e := range existing {
		if e.ID != tmpl.ID {
			return fmt.Errorf("an active template already exists for %s/%s", tmpl.ObjectType, tmpl.ObjectSource)
		}
	}
	return nil
}
