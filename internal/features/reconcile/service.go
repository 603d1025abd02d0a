package reconcile

import (
	"context"
	"time"

	common_models "go-approvals/internal/common/models"
	"go-approvals/internal/config"
	"go-approvals/internal/features/audit"
	"go-approvals/internal/features/flow"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SweepReport is what one reconciliation pass found
type SweepReport struct {
	StartedAt  time.Time `json:"started_at"`
	Duration   int64     `json:"duration_ms"`
	Scanned    int       `json:"scanned"`
	Drifted    int       `json:"drifted"`
	DriftedIDs []string  `json:"drifted_ids,omitempty"`
	Errors     int       `json:"errors"`
}

type ReconcileService interface {
	// RunNow performs one sweep over all pending flows. Drift is detected
	// and audited, never silently repaired; repair stays an explicit
	// operator action.
	RunNow(ctx context.Context) (*SweepReport, error)
	StartScheduler() error
	StopScheduler()
}

type ReconcileServiceImpl struct {
	FlowRepo     flow.FlowRepository
	FlowService  flow.FlowService
	AuditService audit.AuditService
	Logger       *zap.Logger
	Schedule     string

	scheduler *cron.Cron
}

func NewReconcileService(
	flowRepo flow.FlowRepository,
	flowService flow.FlowService,
	auditService audit.AuditService,
	cfg *config.Config,
	logger *zap.Logger,
) ReconcileService {
	schedule := cfg.ReconcileCron
	if schedule == "" {
		schedule = "@every 15m"
	}
	return &ReconcileServiceImpl{
		FlowRepo:     flowRepo,
		FlowService:  flowService,
		AuditService: auditService,
		Logger:       logger,
		Schedule:     schedule,
	}
}

func (s *ReconcileServiceImpl) StartScheduler() error {
	s.scheduler = cron.New()
	_, err := s.scheduler.AddFunc(s.Schedule, func() {
		if _, err := s.RunNow(context.Background()); err != nil {
			s.Logger.Error("reconciliation sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	s.scheduler.Start()
	s.Logger.Info("reconciliation scheduler started", zap.String("schedule", s.Schedule))
	return nil
}

func (s *ReconcileServiceImpl) StopScheduler() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func (s *ReconcileServiceImpl) RunNow(ctx context.Context) (*SweepReport, error) {
	report := &SweepReport{StartedAt: time.Now()}

	pending, err := s.FlowRepo.ListByStatus(ctx, flow.FlowStatusPending)
	if err != nil {
		return nil, err
	}
	report.Scanned = len(pending)

	for i := range pending {
		f := &pending[i]

		result, err := s.FlowService.EvaluateFlow(ctx, f)
		if err != nil {
			report.Errors++
			s.Logger.Warn("sweep evaluation failed",
				zap.String("flow_id", f.ID.Hex()), zap.Error(err))
			continue
		}

		// A pending flow whose requirements are all satisfied means a
		// completion transition was lost somewhere.
		if result.IsComplete {
			report.Drifted++
			report.DriftedIDs = append(report.DriftedIDs, f.ID.Hex())

			s.AuditService.LogFlowChange(ctx, common_models.AuditActionFlowDrift, f.ObjectType, f.ObjectID, f.ID.Hex(), map[string]common_models.Change{
				"status":     {Old: f.Status, New: "complete-but-pending"},
				"signatures": {New: len(f.Signatures)},
			})
			s.Logger.Warn("flow drift detected",
				zap.String("flow_id", f.ID.Hex()),
				zap.String("object_type", f.ObjectType),
				zap.String("object_id", f.ObjectID),
			)
		}
	}

	report.Duration = time.Since(report.StartedAt).Milliseconds()
	s.Logger.Info("reconciliation sweep finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("drifted", report.Drifted),
		zap.Int("errors", report.Errors),
	)
	return report, nil
}
