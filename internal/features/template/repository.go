package template

import (
	"context"
	"time"

	"go-approvals/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TemplateRepository interface {
	Create(ctx context.Context, tmpl ApprovalTemplate) error
	GetByID(ctx context.Context, id string) (*ApprovalTemplate, error)
	// FindActive is an exact match on both fields, never a prefix match
	FindActive(ctx context.Context, objectType, objectSource string) (*ApprovalTemplate, error)
	ListActive(ctx context.Context, objectType, objectSource string) ([]ApprovalTemplate, error)
	List(ctx context.Context) ([]ApprovalTemplate, error)
	Update(ctx context.Context, id string, tmpl ApprovalTemplate) error
	EnsureIndexes(ctx context.Context) error
}

type TemplateRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewTemplateRepository(mongodb *database.MongodbDB) TemplateRepository {
	return &TemplateRepositoryImpl{
		Collection: mongodb.DB.Collection("approval_templates"),
	}
}

func (r *TemplateRepositoryImpl) Create(ctx context.Context, tmpl ApprovalTemplate) error {
	_, err := r.Collection.InsertOne(ctx, tmpl)
	return err
}

func (r *TemplateRepositoryImpl) GetByID(ctx context.Context, id string) (*ApprovalTemplate, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var tmpl ApprovalTemplate
	err = r.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&tmpl)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &tmpl, nil
}

func (r *TemplateRepositoryImpl) FindActive(ctx context.Context, objectType, objectSource string) (*ApprovalTemplate, error) {
	var tmpl ApprovalTemplate
	err := r.Collection.FindOne(ctx, bson.M{
		"object_type":   objectType,
		"object_source": objectSource,
		"active":        true,
	}).Decode(&tmpl)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &tmpl, nil
}

func (r *TemplateRepositoryImpl) ListActive(ctx context.Context, objectType, objectSource string) ([]ApprovalTemplate, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{
		"object_type":   objectType,
		"object_source": objectSource,
		"active":        true,
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var templates []ApprovalTemplate
	if err = cursor.All(ctx, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

func (r *TemplateRepositoryImpl) List(ctx context.Context) ([]ApprovalTemplate, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var templates []ApprovalTemplate
	if err = cursor.All(ctx, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

func (r *TemplateRepositoryImpl) Update(ctx context.Context, id string, tmpl ApprovalTemplate) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	update := bson.M{
		"$set": bson.M{
			"name":         tmpl.Name,
			"description":  tmpl.Description,
			"officers":     tmpl.Officers,
			"guard_script": tmpl.GuardScript,
			"active":       tmpl.Active,
			"updated_at":   time.Now(),
		},
	}
	_, err = r.Collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	return err
}

// EnsureIndexes backs the one-active-template-per-pair rule at the storage
// level; the service validates it too, the index closes the race.
func (r *TemplateRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "object_type", Value: 1},
			{Key: "object_source", Value: 1},
		},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"active": true}),
	})
	return err
}
