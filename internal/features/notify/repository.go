package notify

import (
	"context"
	"time"

	"go-approvals/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TargetRepository interface {
	Create(ctx context.Context, target *NotifyTarget) error
	Get(ctx context.Context, id string) (*NotifyTarget, error)
	List(ctx context.Context) ([]NotifyTarget, error)
	ListForObjectType(ctx context.Context, objectType string) ([]NotifyTarget, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) error
	Delete(ctx context.Context, id string) error
}

type DeliveryRepository interface {
	Create(ctx context.Context, delivery *Delivery) error
	ListByFlowID(ctx context.Context, flowID string) ([]Delivery, error)
	ListByTargetID(ctx context.Context, targetID string) ([]Delivery, error)
}

type TargetRepositoryImpl struct {
	collection *mongo.Collection
}

func NewTargetRepository(db *database.MongodbDB) TargetRepository {
	return &TargetRepositoryImpl{
		collection: db.DB.Collection("notify_targets"),
	}
}

func (r *TargetRepositoryImpl) Create(ctx context.Context, target *NotifyTarget) error {
	if target.ID.IsZero() {
		target.ID = primitive.NewObjectID()
	}
	target.CreatedAt = time.Now()
	target.UpdatedAt = time.Now()
	target.IsActive = true

	_, err := r.collection.InsertOne(ctx, target)
	return err
}

func (r *TargetRepositoryImpl) Get(ctx context.Context, id string) (*NotifyTarget, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var target NotifyTarget
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&target)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &target, nil
}

func (r *TargetRepositoryImpl) List(ctx context.Context) ([]NotifyTarget, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var targets []NotifyTarget
	if err = cursor.All(ctx, &targets); err != nil {
		return nil, err
	}
	return targets, nil
}

// ListForObjectType returns active targets subscribed to the object type,
// including catch-all targets with no object type set.
func (r *TargetRepositoryImpl) ListForObjectType(ctx context.Context, objectType string) ([]NotifyTarget, error) {
	filter := bson.M{
		"is_active": true,
		"$or": []bson.M{
			{"object_type": objectType},
			{"object_type": ""},
			{"object_type": bson.M{"$exists": false}},
		},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var targets []NotifyTarget
	if err = cursor.All(ctx, &targets); err != nil {
		return nil, err
	}
	return targets, nil
}

func (r *TargetRepositoryImpl) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	updates["updated_at"] = time.Now()
	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": updates})
	return err
}

func (r *TargetRepositoryImpl) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	_, err = r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}

type DeliveryRepositoryImpl struct {
	collection *mongo.Collection
}

func NewDeliveryRepository(db *database.MongodbDB) DeliveryRepository {
	return &DeliveryRepositoryImpl{
		collection: db.DB.Collection("notify_deliveries"),
	}
}

func (r *DeliveryRepositoryImpl) Create(ctx context.Context, delivery *Delivery) error {
	if delivery.ID.IsZero() {
		delivery.ID = primitive.NewObjectID()
	}
	delivery.CreatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, delivery)
	return err
}

func (r *DeliveryRepositoryImpl) ListByFlowID(ctx context.Context, flowID string) ([]Delivery, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(100)
	cursor, err := r.collection.Find(ctx, bson.M{"flow_id": flowID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var deliveries []Delivery
	if err = cursor.All(ctx, &deliveries); err != nil {
		return nil, err
	}
	return deliveries, nil
}

func (r *DeliveryRepositoryImpl) ListByTargetID(ctx context.Context, targetID string) ([]Delivery, error) {
	oid, err := primitive.ObjectIDFromHex(targetID)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(100)
	cursor, err := r.collection.Find(ctx, bson.M{"target_id": oid}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var deliveries []Delivery
	if err = cursor.All(ctx, &deliveries); err != nil {
		return nil, err
	}
	return deliveries, nil
}
