package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go-approvals/internal/config"
	"go-approvals/internal/features/flow"
	"go-approvals/internal/features/identity"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Offline drift report: reads every flow straight from Mongo, re-evaluates
// it against the current directory, and prints any flow whose persisted
// status disagrees with evaluation. Read-only.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		fmt.Printf("Failed to connect to MongoDB: %v\n", err)
		os.Exit(1)
	}
	defer client.Disconnect(ctx)

	db := client.Database(cfg.DBName)

	roleSlugs, err := loadRoleSlugs(ctx, db)
	if err != nil {
		fmt.Printf("Failed to load directory: %v\n", err)
		os.Exit(1)
	}

	cursor, err := db.Collection("approval_flows").Find(ctx, bson.M{})
	if err != nil {
		fmt.Printf("Failed to list flows: %v\n", err)
		os.Exit(1)
	}
	defer cursor.Close(ctx)

	var scanned, drifted int
	for cursor.Next(ctx) {
		var f flow.ApprovalFlow
		if err := cursor.Decode(&f); err != nil {
			fmt.Printf("Failed to decode flow: %v\n", err)
			continue
		}
		scanned++

		currentRoles := make(map[string]string, len(f.Signatures))
		for _, sig := range f.Signatures {
			currentRoles[sig.UserID] = roleSlugs[sig.UserID]
		}

		result := flow.Evaluate(&f, currentRoles)

		switch {
		case f.Status == flow.FlowStatusPending && result.IsComplete:
			drifted++
			fmt.Printf("DRIFT %s %s/%s: all required officers satisfied but flow is pending\n",
				f.ID.Hex(), f.ObjectType, f.ObjectID)
		case f.Status == flow.FlowStatusApproved && !result.IsComplete:
			drifted++
			fmt.Printf("DRIFT %s %s/%s: flow approved but %d required officer(s) no longer satisfied\n",
				f.ID.Hex(), f.ObjectType, f.ObjectID, len(result.UnsatisfiedRequired))
		}
	}
	if err := cursor.Err(); err != nil {
		fmt.Printf("Cursor error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Scanned %d flows, %d drifted\n", scanned, drifted)
	if drifted > 0 {
		os.Exit(2)
	}
}

// loadRoleSlugs maps every user id to their current role slug
func loadRoleSlugs(ctx context.Context, db *mongo.Database) (map[string]string, error) {
	roleNames := map[primitive.ObjectID]string{}

	roleCursor, err := db.Collection("roles").Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer roleCursor.Close(ctx)

	for roleCursor.Next(ctx) {
		var r identity.Role
		if err := roleCursor.Decode(&r); err != nil {
			return nil, err
		}
		roleNames[r.ID] = r.Slug
	}
	if err := roleCursor.Err(); err != nil {
		return nil, err
	}

	slugs := map[string]string{}

	userCursor, err := db.Collection("users").Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer userCursor.Close(ctx)

	for userCursor.Next(ctx) {
		var u identity.User
		if err := userCursor.Decode(&u); err != nil {
			return nil, err
		}
		if u.RoleID != nil {
			slugs[u.ID.Hex()] = roleNames[*u.RoleID]
		}
	}
	return slugs, userCursor.Err()
}
