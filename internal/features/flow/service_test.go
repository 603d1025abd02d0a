package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	common_models "go-approvals/internal/common/models"
	"go-approvals/internal/features/template"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// memFlowRepository mirrors the storage guard semantics in memory: every
// mutation holds the mutex for the whole check-and-write, matching the
// single-document atomicity of the real conditional updates.
type memFlowRepository struct {
	mu    sync.Mutex
	flows map[string]*ApprovalFlow
}

func newMemFlowRepository() *memFlowRepository {
	return &memFlowRepository{flows: make(map[string]*ApprovalFlow)}
}

func copyFlow(f *ApprovalFlow) *ApprovalFlow {
	out := *f
	out.Signatures = append([]Signature(nil), f.Signatures...)
	out.RequiredOfficers = append([]template.OfficerSpec(nil), f.RequiredOfficers...)
	out.OptionalOfficers = append([]template.OfficerSpec(nil), f.OptionalOfficers...)
	return &out
}

func (r *memFlowRepository) Create(ctx context.Context, f *ApprovalFlow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.flows {
		if existing.ObjectType == f.ObjectType && existing.ObjectID == f.ObjectID {
			return fmt.Errorf("%w: %s/%s", ErrDuplicateFlow, f.ObjectType, f.ObjectID)
		}
	}
	r.flows[f.ID.Hex()] = copyFlow(f)
	return nil
}

func (r *memFlowRepository) GetByID(ctx context.Context, id string) (*ApprovalFlow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.flows[id]
	if !ok {
		return nil, nil
	}
	return copyFlow(f), nil
}

func (r *memFlowRepository) GetByObject(ctx context.Context, objectType, objectID string) (*ApprovalFlow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.flows {
		if f.ObjectType == objectType && f.ObjectID == objectID {
			return copyFlow(f), nil
		}
	}
	return nil, nil
}

func (r *memFlowRepository) List(ctx context.Context, filter bson.M, limit, offset int64) ([]ApprovalFlow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ApprovalFlow, 0, len(r.flows))
	for _, f := range r.flows {
		out = append(out, *copyFlow(f))
	}
	return out, nil
}

func (r *memFlowRepository) ListByStatus(ctx context.Context, status FlowStatus) ([]ApprovalFlow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []ApprovalFlow{}
	for _, f := range r.flows {
		if f.Status == status {
			out = append(out, *copyFlow(f))
		}
	}
	return out, nil
}

func (r *memFlowRepository) AppendSignature(ctx context.Context, id string, sig Signature) (*ApprovalFlow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.flows[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFlowNotFound, id)
	}
	if f.Status != FlowStatusPending {
		return nil, fmt.Errorf("%w: flow %s is %s", ErrAlreadyTerminal, id, f.Status)
	}
	if f.HasSigned(sig.UserID) {
		return nil, fmt.Errorf("%w: flow %s, user %s", ErrAlreadySigned, id, sig.UserID)
	}
	f.Signatures = append(f.Signatures, sig)
	f.Version++
	f.UpdatedAt = time.Now()
	return copyFlow(f), nil
}

func (r *memFlowRepository) Transition(ctx context.Context, id string, version int64, status FlowStatus, by, reason string, completedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.flows[id]
	if !ok {
		return false, nil
	}
	if f.Status != FlowStatusPending {
		return false, nil
	}
	if version >= 0 && f.Version != version {
		return false, nil
	}
	f.Status = status
	f.Version++
	f.CompletedAt = &completedAt
	f.UpdatedAt = completedAt
	if by != "" {
		f.RejectedBy = by
		f.RejectReason = reason
	}
	return true, nil
}

func (r *memFlowRepository) EnsureIndexes(ctx context.Context) error { return nil }

type fakeTemplateService struct {
	active *template.ApprovalTemplate
}

func (s *fakeTemplateService) CreateTemplate(ctx context.Context, tmpl template.ApprovalTemplate) error {
	return nil
}

func (s *fakeTemplateService) UpdateTemplate(ctx context.Context, id string, tmpl template.ApprovalTemplate) error {
	return nil
}

func (s *fakeTemplateService) GetTemplateByID(ctx context.Context, id string) (*template.ApprovalTemplate, error) {
	if s.active != nil && s.active.ID.Hex() == id {
		return s.active, nil
	}
	return nil, nil
}

func (s *fakeTemplateService) ListTemplates(ctx context.Context) ([]template.ApprovalTemplate, error) {
	return nil, nil
}

func (s *fakeTemplateService) FindActive(ctx context.Context, objectType, objectSource string) (*template.ApprovalTemplate, error) {
	if s.active != nil && s.active.ObjectType == objectType && s.active.ObjectSource == objectSource {
		return s.active, nil
	}
	return nil, nil
}

type fakeDirectory struct {
	mu    sync.Mutex
	roles map[string]string
}

func (d *fakeDirectory) RoleSlugOf(ctx context.Context, userID string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.roles[userID], nil
}

func (d *fakeDirectory) set(userID, slug string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.roles[userID] = slug
}

type countingNotifier struct {
	mu     sync.Mutex
	events []CompletionEvent
}

func (n *countingNotifier) NotifyFlowCompleted(ctx context.Context, event CompletionEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *countingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
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

type testHarness struct {
	service  FlowService
	repo     *memFlowRepository
	dir      *fakeDirectory
	notifier *countingNotifier
	tmpl     *template.ApprovalTemplate
}

func newHarness(officers []template.OfficerSpec, guard string) *testHarness {
	tmpl := &template.ApprovalTemplate{
		ID:           primitive.NewObjectID(),
		ObjectType:   "invoice",
		ObjectSource: "erp",
		Name:         "Invoice sign-off",
		Officers:     officers,
		GuardScript:  guard,
		Active:       true,
	}
	repo := newMemFlowRepository()
	dir := &fakeDirectory{roles: make(map[string]string)}
	notifier := &countingNotifier{}
	svc := NewFlowService(repo, &fakeTemplateService{active: tmpl}, dir, nil, notifier, nopAudit{}, zap.NewNop())
	return &testHarness{service: svc, repo: repo, dir: dir, notifier: notifier, tmpl: tmpl}
}

func TestInstantiateFlowPartitionsOfficers(t *testing.T) {
	h := newHarness([]template.OfficerSpec{
		{Kind: template.OfficerKindPerson, Reference: "u1", Action: template.ActionMustSign},
		{Kind: template.OfficerKindRole, Reference: "accountant", Action: template.ActionMustSign},
		{Kind: template.OfficerKindRole, Reference: "auditor", Action: template.ActionCanSign},
	}, "")

	f, err := h.service.InstantiateFlow(context.Background(), "invoice", "erp", "inv-1")
	if err != nil {
		t.Fatalf("InstantiateFlow: %v", err)
	}
	if f.Status != FlowStatusPending {
		t.Fatalf("new flow must be pending, got %s", f.Status)
	}
	if len(f.RequiredOfficers) != 2 || len(f.OptionalOfficers) != 1 {
		t.Fatalf("officer partition wrong: required %d, optional %d", len(f.RequiredOfficers), len(f.OptionalOfficers))
	}
}

func TestInstantiateFlowNoTemplate(t *testing.T) {
	h := newHarness(nil, "")

	_, err := h.service.InstantiateFlow(context.Background(), "order", "erp", "ord-1")
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
}

func TestInstantiateFlowDuplicateObject(t *testing.T) {
	h := newHarness([]template.OfficerSpec{
		{Kind: template.OfficerKindPerson, Reference: "u1", Action: template.ActionMustSign},
	}, "")

	if _, err := h.service.InstantiateFlow(context.Background(), "invoice", "erp", "inv-1"); err != nil {
		t.Fatalf("first InstantiateFlow: %v", err)
	}
	_, err := h.service.InstantiateFlow(context.Background(), "invoice", "erp", "inv-1")
	if !errors.Is(err, ErrDuplicateFlow) {
		t.Fatalf("expected ErrDuplicateFlow, got %v", err)
	}
}

func TestSubmitSignatureCompletesFlow(t *testing.T) {
	h := newHarness([]template.OfficerSpec{
		{Kind: template.OfficerKindPerson, Reference: "u1", Action: template.ActionMustSign},
		{Kind: template.OfficerKindRole, Reference: "accountant", Action: template.ActionMustSign},
	}, "")
	h.dir.set("u1", "manager")
	h.dir.set("u2", "accountant")

	f, _ := h.service.InstantiateFlow(context.Background(), "invoice", "erp", "inv-1")

	mid, result, err := h.service.SubmitSignature(context.Background(), f.ID.Hex(), "u1", "alice")
	if err != nil {
		t.Fatalf("first signature: %v", err)
	}
	if result.IsComplete || mid.Status != FlowStatusPending {
		t.Fatal("flow must stay pending until every must-sign officer signed")
	}

	final, result, err := h.service.SubmitSignature(context.Background(), f.ID.Hex(), "u2", "bob")
	if err != nil {
		t.Fatalf("second signature: %v", err)
	}
	if !result.IsComplete || final.Status != FlowStatusApproved {
		t.Fatalf("expected approved flow, got status %s complete %v", final.Status, result.IsComplete)
	}
	if final.CompletedAt == nil {
		t.Fatal("approved flow must carry a completion timestamp")
	}
	if h.notifier.count() != 1 {
		t.Fatalf("expected exactly one completion notification, got %d", h.notifier.count())
	}
}

func TestSubmitSignatureAlreadySigned(t *testing.T) {
	h := newHarness([]template.OfficerSpec{
		{Kind: template.OfficerKindPerson, Reference: "u1", Action: template.ActionMustSign},
		{Kind: template.OfficerKindPerson, Reference: "u2", Action: template.ActionMustSign},
	}, "")

	f, _ := h.service.InstantiateFlow(context.Background(), "invoice", "erp", "inv-1")

	if _, _, err := h.service.SubmitSignature(context.Background(), f.ID.Hex(), "u1", "alice"); err != nil {
		t.Fatalf("first signature: %v", err)
	}
	_, _, err := h.service.SubmitSignature(context.Background(), f.ID.Hex(), "u1", "alice")
	if !errors.Is(err, ErrAlreadySigned) {
		t.Fatalf("expected ErrAlreadySigned, got %v", err)
	}
}

func TestSubmitSignatureOnTerminalFlow(t *testing.T) {
	h := newHarness([]template.OfficerSpec{
		{Kind: template.OfficerKindPerson, Reference: "u1", Action: template.ActionMustSign},
	}, "")

	f, _ := h.service.InstantiateFlow(context.Background(), "invoice", "erp", "inv-1")
	if _, _, err := h.service.SubmitSignature(context.Background(), f.ID.Hex(), "u1", "alice"); err != nil {
		t.Fatalf("completing signature: %v", err)
	}

	_, _, err := h.service.SubmitSignature(context.Background(), f.ID.Hex(), "u2", "bob")
	if !errors.Is(err, ErrAlreadyTerminal) {
		t.Fatalf("expected ErrAlreadyTerminal, got %v", err)
	}
}

func TestSubmitSignatureUnknownFlow(t *testing.T) {
	h := newHarness(nil, "")

	_, _, err := h.service.SubmitSignature(context.Background(), primitive.NewObjectID().Hex(), "u1", "alice")
	if !errors.Is(err, ErrFlowNotFound) {
		t.Fatalf("expected ErrFlowNotFound, got %v", err)
	}
}

func TestGuardScriptVeto(t *testing.T) {
	guard := `
allow = signer.role == "accountant"
if !allow {
	reason = "only accountants may sign invoices"
}
`
	h := newHarness([]template.OfficerSpec{
		{Kind: template.OfficerKindRole, Reference: "accountant", Action: template.ActionMustSign},
	}, guard)
	h.dir.set("u1", "manager")
	h.dir.set("u2", "accountant")

	f, _ := h.service.InstantiateFlow(context.Background(), "invoice", "erp", "inv-1")

	_, _, err := h.service.SubmitSignature(context.Background(), f.ID.Hex(), "u1", "alice")
	if !errors.Is(err, ErrNotEligible) {
		t.Fatalf("expected ErrNotEligible for vetoed signer, got %v", err)
	}

	if _, _, err := h.service.SubmitSignature(context.Background(), f.ID.Hex(), "u2", "bob"); err != nil {
		t.Fatalf("eligible signer rejected: %v", err)
	}
}

func TestGuardScriptErrorFailsOpen(t *testing.T) {
	h := newHarness([]template.OfficerSpec{
		{Kind: template.OfficerKindPerson, Reference: "u1", Action: template.ActionMustSign},
	}, `this is not a valid script (`)

	f, _ := h.service.InstantiateFlow(context.Background(), "invoice", "erp", "inv-1")

	if _, _, err := h.service.SubmitSignature(context.Background(), f.ID.Hex(), "u1", "alice"); err != nil {
		t.Fatalf("broken guard must not block signatures: %v", err)
	}
}

func TestRejectFlow(t *testing.T) {
	h := newHarness([]template.OfficerSpec{
		{Kind: template.OfficerKindPerson, Reference: "u1", Action: template.ActionMustSign},
		{Kind: template.OfficerKindPerson, Reference: "u2", Action: template.ActionMustSign},
	}, "")

	f, _ := h.service.InstantiateFlow(context.Background(), "invoice", "erp", "inv-1")
	if _, _, err := h.service.SubmitSignature(context.Background(), f.ID.Hex(), "u1", "alice"); err != nil {
		t.Fatalf("signature: %v", err)
	}

	rejected, err := h.service.RejectFlow(context.Background(), f.ID.Hex(), "u9", "amount disputed")
	if err != nil {
		t.Fatalf("RejectFlow: %v", err)
	}
	if rejected.Status != FlowStatusRejected || rejected.RejectedBy != "u9" || rejected.RejectReason != "amount disputed" {
		t.Fatalf("rejection not recorded: %+v", rejected)
	}
	if h.notifier.count() != 1 {
		t.Fatalf("expected one completion notification for rejection, got %d", h.notifier.count())
	}

	// Rejection is final even if the missing signature arrives afterwards
	_, _, err = h.service.SubmitSignature(context.Background(), f.ID.Hex(), "u2", "bob")
	if !errors.Is(err, ErrAlreadyTerminal) {
		t.Fatalf("expected ErrAlreadyTerminal after rejection, got %v", err)
	}
}

func TestRejectTerminalFlow(t *testing.T) {
	h := newHarness([]template.OfficerSpec{
		{Kind: template.OfficerKindPerson, Reference: "u1", Action: template.ActionMustSign},
	}, "")

	f, _ := h.service.InstantiateFlow(context.Background(), "invoice", "erp", "inv-1")
	if _, _, err := h.service.SubmitSignature(context.Background(), f.ID.Hex(), "u1", "alice"); err != nil {
		t.Fatalf("signature: %v", err)
	}

	_, err := h.service.RejectFlow(context.Background(), f.ID.Hex(), "u9", "too late")
	if !errors.Is(err, ErrAlreadyTerminal) {
		t.Fatalf("expected ErrAlreadyTerminal, got %v", err)
	}
}

// A role revocation between signing and the final signature means the flow
// stays pending even though every officer once signed.
func TestCompletionUsesCurrentRoles(t *testing.T) {
	h := newHarness([]template.OfficerSpec{
		{Kind: template.OfficerKindRole, Reference: "accountant", Action: template.ActionMustSign},
		{Kind: template.OfficerKindPerson, Reference: "u1", Action: template.ActionMustSign},
	}, "")
	h.dir.set("u2", "accountant")

	f, _ := h.service.InstantiateFlow(context.Background(), "invoice", "erp", "inv-1")
	if _, _, err := h.service.SubmitSignature(context.Background(), f.ID.Hex(), "u2", "bob"); err != nil {
		t.Fatalf("accountant signature: %v", err)
	}

	h.dir.set("u2", "")

	final, result, err := h.service.SubmitSignature(context.Background(), f.ID.Hex(), "u1", "alice")
	if err != nil {
		t.Fatalf("second signature: %v", err)
	}
	if result.IsComplete || final.Status != FlowStatusPending {
		t.Fatal("flow must stay pending after the accountant lost the role")
	}
	if h.notifier.count() != 0 {
		t.Fatalf("no notification expected, got %d", h.notifier.count())
	}
}

func TestConcurrentSignaturesSingleCompletion(t *testing.T) {
	const signers = 8

	officers := make([]template.OfficerSpec, signers)
	for i := range officers {
		officers[i] = template.OfficerSpec{
			Kind:      template.OfficerKindPerson,
			Reference: fmt.Sprintf("u%d", i),
			Action:    template.ActionMustSign,
		}
	}
	h := newHarness(officers, "")

	f, err := h.service.InstantiateFlow(context.Background(), "invoice", "erp", "inv-1")
	if err != nil {
		t.Fatalf("InstantiateFlow: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, signers)
	for i := 0; i < signers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			uid := fmt.Sprintf("u%d", i)
			if _, _, err := h.service.SubmitSignature(context.Background(), f.ID.Hex(), uid, uid); err != nil {
				errs <- fmt.Errorf("signer %s: %w", uid, err)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	// Losing the completion race surfaces as terminal-flow conflicts for the
	// stragglers; anything else is a real failure.
	for err := range errs {
		if !errors.Is(err, ErrAlreadyTerminal) && !errors.Is(err, ErrConflict) {
			t.Fatalf("unexpected signer error: %v", err)
		}
	}

	final, err := h.service.GetFlowByID(context.Background(), f.ID.Hex())
	if err != nil {
		t.Fatalf("GetFlowByID: %v", err)
	}
	if final.Status != FlowStatusApproved {
		t.Fatalf("expected approved, got %s", final.Status)
	}
	if got := h.notifier.count(); got != 1 {
		t.Fatalf("expected exactly one completion notification, got %d", got)
	}
}

func TestRepairFlowCompletesDriftedFlow(t *testing.T) {
	h := newHarness([]template.OfficerSpec{
		{Kind: template.OfficerKindPerson, Reference: "u1", Action: template.ActionMustSign},
	}, "")

	f, _ := h.service.InstantiateFlow(context.Background(), "invoice", "erp", "inv-1")

	// Simulate drift: the signature landed but the terminal transition was
	// lost before it could run.
	if _, err := h.repo.AppendSignature(context.Background(), f.ID.Hex(), sigAt("u1", "alice")); err != nil {
		t.Fatalf("AppendSignature: %v", err)
	}

	repaired, err := h.service.RepairFlow(context.Background(), f.ID.Hex())
	if err != nil {
		t.Fatalf("RepairFlow: %v", err)
	}
	if repaired.Status != FlowStatusApproved {
		t.Fatalf("repair must complete the drifted flow, got %s", repaired.Status)
	}
	if h.notifier.count() != 1 {
		t.Fatalf("repair completion must notify once, got %d", h.notifier.count())
	}
}

func TestRepairFlowNoop(t *testing.T) {
	h := newHarness([]template.OfficerSpec{
		{Kind: template.OfficerKindPerson, Reference: "u1", Action: template.ActionMustSign},
	}, "")

	f, _ := h.service.InstantiateFlow(context.Background(), "invoice", "erp", "inv-1")

	repaired, err := h.service.RepairFlow(context.Background(), f.ID.Hex())
	if err != nil {
		t.Fatalf("RepairFlow: %v", err)
	}
	if repaired.Status != FlowStatusPending {
		t.Fatalf("incomplete flow must stay pending, got %s", repaired.Status)
	}
}
