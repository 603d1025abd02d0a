package source

import (
	"context"
	"time"

	"go-approvals/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type SourceRepository interface {
	Create(ctx context.Context, src *ObjectSource) error
	Get(ctx context.Context, id string) (*ObjectSource, error)
	GetByName(ctx context.Context, name string) (*ObjectSource, error)
	List(ctx context.Context) ([]ObjectSource, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) error
	Delete(ctx context.Context, id string) error
}

type SourceRepositoryImpl struct {
	collection *mongo.Collection
}

func NewSourceRepository(db *database.MongodbDB) SourceRepository {
	return &SourceRepositoryImpl{
		collection: db.DB.Collection("object_sources"),
	}
}

func (r *SourceRepositoryImpl) Create(ctx context.Context, src *ObjectSource) error {
	if src.ID.IsZero() {
		src.ID = primitive.NewObjectID()
	}
	src.CreatedAt = time.Now()
	src.UpdatedAt = time.Now()
	src.IsActive = true

	_, err := r.collection.InsertOne(ctx, src)
	return err
}

func (r *SourceRepositoryImpl) Get(ctx context.Context, id string) (*ObjectSource, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var src ObjectSource
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&src)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &src, nil
}

func (r *SourceRepositoryImpl) GetByName(ctx context.Context, name string) (*ObjectSource, error) {
	var src ObjectSource
	err := r.collection.FindOne(ctx, bson.M{"name": name, "is_active": true}).Decode(&src)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &src, nil
}

func (r *SourceRepositoryImpl) List(ctx context.Context) ([]ObjectSource, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sources []ObjectSource
	if err = cursor.All(ctx, &sources); err != nil {
		return nil, err
	}
	return sources, nil
}

func (r *SourceRepositoryImpl) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	updates["updated_at"] = time.Now()
	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": updates})
	return err
}

func (r *SourceRepositoryImpl) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	_, err = r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}
