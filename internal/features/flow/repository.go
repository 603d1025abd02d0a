package flow

import (
	"context"
	"time"

	"go-approvals/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// FlowRepository owns all flow persistence. The single-document conditional
// updates here are the engine's serialization point: AppendSignature is
// atomic with respect to the duplicate-signer check, and Transition is an
// at-most-once compare-and-swap out of Pending.
type FlowRepository interface {
	Create(ctx context.Context, f *ApprovalFlow) error
	GetByID(ctx context.Context, id string) (*ApprovalFlow, error)
	GetByObject(ctx context.Context, objectType, objectID string) (*ApprovalFlow, error)
	List(ctx context.Context, filter bson.M, limit, offset int64) ([]ApprovalFlow, error)
	ListByStatus(ctx context.Context, status FlowStatus) ([]ApprovalFlow, error)
	AppendSignature(ctx context.Context, id string, sig Signature) (*ApprovalFlow, error)
	Transition(ctx context.Context, id string, version int64, status FlowStatus, by, reason string, completedAt time.Time) (bool, error)
	EnsureIndexes(ctx context.Context) error
}

type FlowRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewFlowRepository(mongodb *database.MongodbDB) FlowRepository {
	return &FlowRepositoryImpl{
		Collection: mongodb.DB.Collection("approval_flows"),
	}
}

// EnsureIndexes creates the uniqueness guarantee for one flow per object
func (r *FlowRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "object_type", Value: 1}, {Key: "object_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}},
		},
	})
	return err
}

func (r *FlowRepositoryImpl) Create(ctx context.Context, f *ApprovalFlow) error {
	_, err := r.Collection.InsertOne(ctx, f)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateFlow
		}
		return err
	}
	return nil
}

func (r *FlowRepositoryImpl) GetByID(ctx context.Context, id string) (*ApprovalFlow, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var f ApprovalFlow
	err = r.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&f)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}

func (r *FlowRepositoryImpl) GetByObject(ctx context.Context, objectType, objectID string) (*ApprovalFlow, error) {
	var f ApprovalFlow
	err := r.Collection.FindOne(ctx, bson.M{"object_type": objectType, "object_id": objectID}).Decode(&f)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}

func (r *FlowRepositoryImpl) List(ctx context.Context, filter bson.M, limit, offset int64) ([]ApprovalFlow, error) {
	if filter == nil {
		filter = bson.M{}
	}
	opts := options.Find().SetLimit(limit).SetSkip(offset).SetSort(bson.M{"created_at": -1})

	cursor, err := r.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var flows []ApprovalFlow
	if err = cursor.All(ctx, &flows); err != nil {
		return nil, err
	}
	return flows, nil
}

func (r *FlowRepositoryImpl) ListByStatus(ctx context.Context, status FlowStatus) ([]ApprovalFlow, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{"status": status})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var flows []ApprovalFlow
	if err = cursor.All(ctx, &flows); err != nil {
		return nil, err
	}
	return flows, nil
}

// AppendSignature appends atomically with the duplicate-signer and terminal
// checks folded into the update filter, so two concurrent submissions by the
// same user can never both land.
func (r *FlowRepositoryImpl) AppendSignature(ctx context.Context, id string, sig Signature) (*ApprovalFlow, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrFlowNotFound
	}

	filter := bson.M{
		"_id":                oid,
		"status":             FlowStatusPending,
		"signatures.user_id": bson.M{"$ne": sig.UserID},
	}
	update := bson.M{
		"$push": bson.M{"signatures": sig},
		"$set":  bson.M{"updated_at": sig.SignedAt},
		"$inc":  bson.M{"version": 1},
	}

	res, err := r.Collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, err
	}

	if res.ModifiedCount == 0 {
		// Classify why the guard rejected the write
		f, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		switch {
		case f == nil:
			return nil, ErrFlowNotFound
		case f.IsTerminal():
			return nil, ErrAlreadyTerminal
		default:
			return nil, ErrAlreadySigned
		}
	}

	return r.GetByID(ctx, id)
}

// Transition moves a Pending flow to a terminal status. When version >= 0 the
// update is a compare-and-swap on that version; with version < 0 only the
// Pending guard applies (explicit rejection does not care about concurrent
// signature appends). Returns false when the guard did not match.
func (r *FlowRepositoryImpl) Transition(ctx context.Context, id string, version int64, status FlowStatus, by, reason string, completedAt time.Time) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, ErrFlowNotFound
	}

	filter := bson.M{"_id": oid, "status": FlowStatusPending}
	if version >= 0 {
		filter["version"] = version
	}

	set := bson.M{
		"status":       status,
		"completed_at": completedAt,
		"updated_at":   completedAt,
	}
	if by != "" {
		set["rejected_by"] = by
		set["reject_reason"] = reason
	}

	res, err := r.Collection.UpdateOne(ctx, filter, bson.M{"$set": set, "$inc": bson.M{"version": 1}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}
