package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	common_models "go-approvals/internal/common/models"
	"go-approvals/internal/config"
	"go-approvals/internal/features/audit"
	"go-approvals/internal/features/flow"

	"go.uber.org/zap"
)

type NotifyService interface {
	CreateTarget(ctx context.Context, target *NotifyTarget) error
	ListTargets(ctx context.Context) ([]NotifyTarget, error)
	GetTarget(ctx context.Context, id string) (*NotifyTarget, error)
	UpdateTarget(ctx context.Context, id string, updates map[string]interface{}) error
	DeleteTarget(ctx context.Context, id string) error
	ListDeliveries(ctx context.Context, flowID string) ([]Delivery, error)

	// NotifyFlowCompleted satisfies the flow engine's notifier interface.
	// Delivery is best-effort: the flow has already transitioned and no
	// outcome here touches it again.
	NotifyFlowCompleted(ctx context.Context, event flow.CompletionEvent)
}

type NotifyServiceImpl struct {
	Targets      TargetRepository
	Deliveries   DeliveryRepository
	AuditService audit.AuditService
	Hub          *Hub
	Logger       *zap.Logger
	HttpClient   *http.Client
	MaxAttempts  int
}

func NewNotifyService(
	targets TargetRepository,
	deliveries DeliveryRepository,
	auditService audit.AuditService,
	hub *Hub,
	cfg *config.Config,
	logger *zap.Logger,
) NotifyService {
	maxAttempts := cfg.NotifyMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &NotifyServiceImpl{
		Targets:      targets,
		Deliveries:   deliveries,
		AuditService: auditService,
		Hub:          hub,
		Logger:       logger,
		HttpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		MaxAttempts: maxAttempts,
	}
}

func (s *NotifyServiceImpl) CreateTarget(ctx context.Context, target *NotifyTarget) error {
	err := s.Targets.Create(ctx, target)
	if err == nil {
		s.AuditService.LogChange(ctx, common_models.AuditActionNotify, "notify_targets", target.ID.Hex(), map[string]common_models.Change{
			"target": {New: target.URL},
		})
	}
	return err
}

func (s *NotifyServiceImpl) ListTargets(ctx context.Context) ([]NotifyTarget, error) {
	return s.Targets.List(ctx)
}

func (s *NotifyServiceImpl) GetTarget(ctx context.Context, id string) (*NotifyTarget, error) {
	return s.Targets.Get(ctx, id)
}

func (s *NotifyServiceImpl) UpdateTarget(ctx context.Context, id string, updates map[string]interface{}) error {
	old, _ := s.Targets.Get(ctx, id)

	err := s.Targets.Update(ctx, id, updates)
	if err == nil {
		s.AuditService.LogChange(ctx, common_models.AuditActionNotify, "notify_targets", id, map[string]common_models.Change{
			"target": {Old: old, New: updates},
		})
	}
	return err
}

func (s *NotifyServiceImpl) DeleteTarget(ctx context.Context, id string) error {
	old, _ := s.Targets.Get(ctx, id)

	err := s.Targets.Delete(ctx, id)
	if err == nil {
		name := id
		if old != nil {
			name = old.URL
		}
		s.AuditService.LogChange(ctx, common_models.AuditActionNotify, "notify_targets", name, map[string]common_models.Change{
			"target": {Old: old, New: "DELETED"},
		})
	}
	return err
}

func (s *NotifyServiceImpl) ListDeliveries(ctx context.Context, flowID string) ([]Delivery, error) {
	return s.Deliveries.ListByFlowID(ctx, flowID)
}

func (s *NotifyServiceImpl) NotifyFlowCompleted(ctx context.Context, event flow.CompletionEvent) {
	body, err := json.Marshal(event)
	if err != nil {
		s.Logger.Error("failed to marshal completion event", zap.Error(err))
		return
	}

	s.Hub.Broadcast(body)

	targets, err := s.Targets.ListForObjectType(ctx, event.ObjectType)
	if err != nil {
		s.Logger.Error("failed to load notify targets",
			zap.String("flow_id", event.FlowID), zap.Error(err))
		return
	}

	for _, target := range targets {
		go s.deliver(target, event, body)
	}
}

// deliver posts the event to one target, retrying with doubling backoff.
// Every attempt leaves a delivery record. Runs detached from the request
// context: the flow is already terminal and retries outlive the request.
func (s *NotifyServiceImpl) deliver(target NotifyTarget, event flow.CompletionEvent, body []byte) {
	backoff := time.Second

	for attempt := 1; attempt <= s.MaxAttempts; attempt++ {
		start := time.Now()
		statusCode, response, err := s.post(target, event, body)

		delivery := &Delivery{
			TargetID:   target.ID,
			URL:        target.URL,
			FlowID:     event.FlowID,
			Outcome:    string(event.Outcome),
			Attempt:    attempt,
			StatusCode: statusCode,
			Success:    err == nil && statusCode >= 200 && statusCode < 300,
			Response:   response,
			Duration:   time.Since(start).Milliseconds(),
		}
		if err != nil {
			delivery.Response = err.Error()
		}

		if dbErr := s.Deliveries.Create(context.Background(), delivery); dbErr != nil {
			s.Logger.Error("failed to record delivery attempt",
				zap.String("flow_id", event.FlowID), zap.Error(dbErr))
		}

		if delivery.Success {
			return
		}

		s.Logger.Warn("webhook delivery failed",
			zap.String("url", target.URL),
			zap.String("flow_id", event.FlowID),
			zap.Int("attempt", attempt),
			zap.Int("status", statusCode),
		)

		if attempt < s.MaxAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
}

func (s *NotifyServiceImpl) post(target NotifyTarget, event flow.CompletionEvent, body []byte) (int, string, error) {
	start := time.Now()

	req, err := http.NewRequest(http.MethodPost, target.URL, bytes.NewReader(body))
	if err != nil {
		return 0, "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Go-Approvals-Notify")
	req.Header.Set("X-Approvals-Outcome", string(event.Outcome))
	req.Header.Set("X-Approvals-Delivery", fmt.Sprintf("%d", start.UnixNano()))

	for k, v := range target.Headers {
		req.Header.Set(k, v)
	}

	if target.Secret != "" {
		mac := hmac.New(sha256.New, []byte(target.Secret))
		mac.Write(body)
		signature := hex.EncodeToString(mac.Sum(nil))
		req.Header.Set("X-Approvals-Signature", "sha256="+signature)
	}

	resp, err := s.HttpClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return resp.StatusCode, string(respBody), nil
}
