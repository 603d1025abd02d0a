package flow

import (
	"context"
	"fmt"
	"time"

	common_models "go-approvals/internal/common/models"
	"go-approvals/internal/features/audit"
	"go-approvals/internal/features/template"
	"go-approvals/pkg/condition"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// completeAttempts bounds the optimistic retry on the terminal transition
const completeAttempts = 3

type FlowService interface {
	InstantiateFlow(ctx context.Context, objectType, objectSource, objectID string) (*ApprovalFlow, error)
	SubmitSignature(ctx context.Context, flowID, userID, username string) (*ApprovalFlow, *EvaluationResult, error)
	RejectFlow(ctx context.Context, flowID, byUserID, reason string) (*ApprovalFlow, error)
	GetFlow(ctx context.Context, objectType, objectID string) (*ApprovalFlow, error)
	GetFlowByID(ctx context.Context, id string) (*ApprovalFlow, error)
	ListFlows(ctx context.Context, group *condition.Group, limit, offset int64) ([]ApprovalFlow, error)
	RepairFlow(ctx context.Context, flowID string) (*ApprovalFlow, error)

	// EvaluateFlow resolves every signer's current role and runs the pure
	// evaluator. Shared with the reconcile sweep and the report export.
	EvaluateFlow(ctx context.Context, f *ApprovalFlow) (*EvaluationResult, error)
}

type FlowServiceImpl struct {
	Repo            FlowRepository
	TemplateService template.TemplateService
	Directory       RoleDirectory
	Objects         ObjectFetcher
	Notifier        CompletionNotifier
	AuditService    audit.AuditService
	Logger          *zap.Logger
}

func NewFlowService(
	repo FlowRepository,
	templateService template.TemplateService,
	directory RoleDirectory,
	objects ObjectFetcher,
	notifier CompletionNotifier,
	auditService audit.AuditService,
	logger *zap.Logger,
) FlowService {
	return &FlowServiceImpl{
		Repo:            repo,
		TemplateService: templateService,
		Directory:       directory,
		Objects:         objects,
		Notifier:        notifier,
		AuditService:    auditService,
		Logger:          logger,
	}
}

func (s *FlowServiceImpl) InstantiateFlow(ctx context.Context, objectType, objectSource, objectID string) (*ApprovalFlow, error) {
	tmpl, err := s.TemplateService.FindActive(ctx, objectType, objectSource)
	if err != nil {
		return nil, err
	}
	if tmpl == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrTemplateNotFound, objectType, objectSource)
	}

	required, optional := template.PartitionOfficers(tmpl.Officers)

	now := time.Now()
	f := &ApprovalFlow{
		ID:               primitive.NewObjectID(),
		ObjectType:       objectType,
		ObjectID:         objectID,
		ObjectSource:     objectSource,
		TemplateID:       tmpl.ID.Hex(),
		RequiredOfficers: required,
		OptionalOfficers: optional,
		Signatures:       []Signature{},
		Status:           FlowStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.Repo.Create(ctx, f); err != nil {
		return nil, err
	}

	s.AuditService.LogFlowChange(ctx, common_models.AuditActionFlowCreated, objectType, objectID, f.ID.Hex(), map[string]common_models.Change{
		"template": {New: tmpl.Name},
		"status":   {New: FlowStatusPending},
	})

	return f, nil
}

func (s *FlowServiceImpl) SubmitSignature(ctx context.Context, flowID, userID, username string) (*ApprovalFlow, *EvaluationResult, error) {
	f, err := s.Repo.GetByID(ctx, flowID)
	if err != nil {
		return nil, nil, err
	}
	if f == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrFlowNotFound, flowID)
	}
	if f.IsTerminal() {
		return nil, nil, fmt.Errorf("%w: flow %s is %s", ErrAlreadyTerminal, flowID, f.Status)
	}
	if f.HasSigned(userID) {
		return nil, nil, fmt.Errorf("%w: flow %s, user %s", ErrAlreadySigned, flowID, userID)
	}

	if err := s.runGuard(ctx, f, userID, username); err != nil {
		return nil, nil, err
	}

	sig := Signature{
		UserID:   userID,
		Username: username,
		SignedAt: time.Now(),
	}

	// The repository folds the duplicate-signer and terminal checks into the
	// append itself, so the fast-path checks above are advisory only.
	updated, err := s.Repo.AppendSignature(ctx, flowID, sig)
	if err != nil {
		return nil, nil, err
	}

	s.AuditService.LogFlowChange(ctx, common_models.AuditActionFlowSigned, f.ObjectType, f.ObjectID, flowID, map[string]common_models.Change{
		"signer":     {New: username},
		"signatures": {Old: len(f.Signatures), New: len(updated.Signatures)},
	})

	final, result, err := s.completeIfSatisfied(ctx, updated)
	if err != nil {
		return nil, nil, err
	}
	return final, result, nil
}

// completeIfSatisfied evaluates the flow and, when complete, performs the
// terminal transition through a version compare-and-swap. Role resolution
// happens before each attempt, outside any storage guard, so the CAS is
// re-validated after every identity round-trip. Exactly one caller can win
// the CAS, so at most one completion notification is ever emitted.
func (s *FlowServiceImpl) completeIfSatisfied(ctx context.Context, f *ApprovalFlow) (*ApprovalFlow, *EvaluationResult, error) {
	current := f

	for attempt := 0; attempt < completeAttempts; attempt++ {
		result, err := s.EvaluateFlow(ctx, current)
		if err != nil {
			return nil, nil, err
		}
		if !result.IsComplete {
			return current, result, nil
		}

		completedAt := time.Now()
		won, err := s.Repo.Transition(ctx, current.ID.Hex(), current.Version, FlowStatusApproved, "", "", completedAt)
		if err != nil {
			return nil, nil, err
		}

		if won {
			s.AuditService.LogFlowChange(ctx, common_models.AuditActionFlowApproved, current.ObjectType, current.ObjectID, current.ID.Hex(), map[string]common_models.Change{
				"status": {Old: FlowStatusPending, New: FlowStatusApproved},
			})
			s.Notifier.NotifyFlowCompleted(ctx, CompletionEvent{
				FlowID:      current.ID.Hex(),
				ObjectType:  current.ObjectType,
				ObjectID:    current.ObjectID,
				Outcome:     FlowStatusApproved,
				CompletedAt: completedAt,
			})

			final, err := s.Repo.GetByID(ctx, current.ID.Hex())
			if err != nil {
				return nil, nil, err
			}
			return final, result, nil
		}

		// Lost the CAS: either another submission completed the flow, or a
		// concurrent append bumped the version. Re-read and decide.
		reread, err := s.Repo.GetByID(ctx, current.ID.Hex())
		if err != nil {
			return nil, nil, err
		}
		if reread == nil {
			return nil, nil, ErrFlowNotFound
		}
		if reread.IsTerminal() {
			return reread, result, nil
		}
		current = reread
	}

	s.Logger.Warn("flow completion conflict, attempts exhausted",
		zap.String("flow_id", current.ID.Hex()),
		zap.String("object_type", current.ObjectType),
		zap.String("object_id", current.ObjectID),
	)
	return nil, nil, fmt.Errorf("%w: flow %s", ErrConflict, current.ID.Hex())
}

func (s *FlowServiceImpl) RejectFlow(ctx context.Context, flowID, byUserID, reason string) (*ApprovalFlow, error) {
	f, err := s.Repo.GetByID(ctx, flowID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, fmt.Errorf("%w: %s", ErrFlowNotFound, flowID)
	}

	// Explicit rejection wins regardless of signature completeness, but never
	// reopens or overwrites a terminal flow.
	completedAt := time.Now()
	won, err := s.Repo.Transition(ctx, flowID, -1, FlowStatusRejected, byUserID, reason, completedAt)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, fmt.Errorf("%w: flow %s is %s", ErrAlreadyTerminal, flowID, f.Status)
	}

	s.AuditService.LogFlowChange(ctx, common_models.AuditActionFlowRejected, f.ObjectType, f.ObjectID, flowID, map[string]common_models.Change{
		"status": {Old: FlowStatusPending, New: FlowStatusRejected},
		"reason": {New: reason},
	})
	s.Notifier.NotifyFlowCompleted(ctx, CompletionEvent{
		FlowID:      flowID,
		ObjectType:  f.ObjectType,
		ObjectID:    f.ObjectID,
		Outcome:     FlowStatusRejected,
		CompletedAt: completedAt,
	})

	return s.Repo.GetByID(ctx, flowID)
}

func (s *FlowServiceImpl) GetFlow(ctx context.Context, objectType, objectID string) (*ApprovalFlow, error) {
	return s.Repo.GetByObject(ctx, objectType, objectID)
}

func (s *FlowServiceImpl) GetFlowByID(ctx context.Context, id string) (*ApprovalFlow, error) {
	return s.Repo.GetByID(ctx, id)
}

func (s *FlowServiceImpl) ListFlows(ctx context.Context, group *condition.Group, limit, offset int64) ([]ApprovalFlow, error) {
	filter := bson.M{}
	if group != nil {
		compiled, err := condition.NewCompiler(nil).Compile(group)
		if err != nil {
			return nil, err
		}
		filter = compiled
	}
	if limit <= 0 {
		limit = 50
	}
	return s.Repo.List(ctx, filter, limit, offset)
}

// RepairFlow is the auditable consistency tool: it re-evaluates a flow and
// re-synchronizes status/completedAt without requiring a new signature. With
// the transition CAS as the only completion path it should find nothing to
// do; it exists for operators, not for cron.
func (s *FlowServiceImpl) RepairFlow(ctx context.Context, flowID string) (*ApprovalFlow, error) {
	f, err := s.Repo.GetByID(ctx, flowID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, fmt.Errorf("%w: %s", ErrFlowNotFound, flowID)
	}

	if f.IsTerminal() {
		s.AuditService.LogFlowChange(ctx, common_models.AuditActionFlowRepaired, f.ObjectType, f.ObjectID, flowID, map[string]common_models.Change{
			"status": {Old: f.Status, New: f.Status},
		})
		return f, nil
	}

	result, err := s.EvaluateFlow(ctx, f)
	if err != nil {
		return nil, err
	}
	if !result.IsComplete {
		s.AuditService.LogFlowChange(ctx, common_models.AuditActionFlowRepaired, f.ObjectType, f.ObjectID, flowID, map[string]common_models.Change{
			"unsatisfied_required": {New: len(result.UnsatisfiedRequired)},
		})
		return f, nil
	}

	final, _, err := s.completeIfSatisfied(ctx, f)
	if err != nil {
		return nil, err
	}

	s.AuditService.LogFlowChange(ctx, common_models.AuditActionFlowRepaired, f.ObjectType, f.ObjectID, flowID, map[string]common_models.Change{
		"status": {Old: f.Status, New: final.Status},
	})
	return final, nil
}

func (s *FlowServiceImpl) EvaluateFlow(ctx context.Context, f *ApprovalFlow) (*EvaluationResult, error) {
	currentRoles := make(map[string]string, len(f.Signatures))
	for _, sig := range f.Signatures {
		slug, err := s.Directory.RoleSlugOf(ctx, sig.UserID)
		if err != nil {
			return nil, fmt.Errorf("resolving role of signer %s: %w", sig.UserID, err)
		}
		currentRoles[sig.UserID] = slug
	}

	result := Evaluate(f, currentRoles)
	return &result, nil
}

// runGuard executes the template's optional tengo guard. Guard failures are
// logged and fail open; an explicit veto surfaces as ErrNotEligible.
func (s *FlowServiceImpl) runGuard(ctx context.Context, f *ApprovalFlow, userID, username string) error {
	tmpl, err := s.TemplateService.GetTemplateByID(ctx, f.TemplateID)
	if err != nil || tmpl == nil || tmpl.GuardScript == "" {
		return nil
	}

	var object map[string]interface{}
	if s.Objects != nil {
		object, err = s.Objects.FetchObject(ctx, f.ObjectSource, f.ObjectType, f.ObjectID)
		if err != nil {
			s.Logger.Warn("object fetch failed, guard runs without payload",
				zap.String("flow_id", f.ID.Hex()), zap.Error(err))
		}
	}

	roleSlug, err := s.Directory.RoleSlugOf(ctx, userID)
	if err != nil {
		return err
	}

	allowed, reason, err := template.RunGuard(tmpl.GuardScript, template.GuardInput{
		SignerID:   userID,
		SignerName: username,
		SignerRole: roleSlug,
		Object:     object,
	})
	if err != nil {
		s.Logger.Warn("guard script failed, allowing signature",
			zap.String("flow_id", f.ID.Hex()), zap.Error(err))
		return nil
	}
	if !allowed {
		if reason == "" {
			reason = "not eligible"
		}
		return fmt.Errorf("%w: %s", ErrNotEligible, reason)
	}
	return nil
}
