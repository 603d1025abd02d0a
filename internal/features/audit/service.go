package audit

import (
	"context"
	"time"

	common_models "go-approvals/internal/common/models"
	"go-approvals/pkg/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserFinder resolves actor ids to display names. Implemented by the identity
// feature; declared here to break the import cycle.
type UserFinder interface {
	FindUsernames(ctx context.Context, ids []string) (map[string]string, error)
}

type AuditService interface {
	LogChange(ctx context.Context, action common_models.AuditAction, objectType, objectID string, changes map[string]common_models.Change) error
	LogFlowChange(ctx context.Context, action common_models.AuditAction, objectType, objectID, flowID string, changes map[string]common_models.Change) error
	ListLogs(ctx context.Context, filter bson.M, page, limit int64) ([]common_models.AuditLog, error)
}

type AuditServiceImpl struct {
	Repo     AuditRepository
	UserRepo UserFinder
}

func NewAuditService(repo AuditRepository, userRepo UserFinder) AuditService {
	return &AuditServiceImpl{
		Repo:     repo,
		UserRepo: userRepo,
	}
}

func (s *AuditServiceImpl) LogChange(ctx context.Context, action common_models.AuditAction, objectType, objectID string, changes map[string]common_models.Change) error {
	return s.LogFlowChange(ctx, action, objectType, objectID, "", changes)
}

func (s *AuditServiceImpl) LogFlowChange(ctx context.Context, action common_models.AuditAction, objectType, objectID, flowID string, changes map[string]common_models.Change) error {
	// Extract Actor from Context
	actorID := "system"
	if claims, ok := ctx.Value(utils.ClaimsContextKey).(*utils.UserClaims); ok {
		actorID = claims.UserID
	}

	log := common_models.AuditLog{
		ID:         primitive.NewObjectID(),
		Action:     action,
		ObjectType: objectType,
		ObjectID:   objectID,
		FlowID:     flowID,
		ActorID:    actorID,
		Changes:    changes,
		Timestamp:  time.Now(),
	}

	return s.Repo.Create(ctx, log)
}

func (s *AuditServiceImpl) ListLogs(ctx context.Context, filter bson.M, page, limit int64) ([]common_models.AuditLog, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	offset := (page - 1) * limit

	logs, err := s.Repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, err
	}

	// Collect actor IDs
	actorIDs := make([]string, 0)
	uniqueIDs := make(map[string]bool)
	for _, log := range logs {
		if log.ActorID != "system" && log.ActorID != "" && !uniqueIDs[log.ActorID] {
			uniqueIDs[log.ActorID] = true
			actorIDs = append(actorIDs, log.ActorID)
		}
	}

	if len(actorIDs) > 0 {
		names, err := s.UserRepo.FindUsernames(ctx, actorIDs)
		if err == nil {
			for i := range logs {
				logs[i].ActorName = names[logs[i].ActorID]
			}
		}
	}

	return logs, nil
}
