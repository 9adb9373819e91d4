package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"scribe/internal/config"
	"scribe/internal/middleware"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names in the document store.
const (
	UsersCollection = "users"
	PostsCollection = "posts"
)

const mongoConnectTimeout = 10 * time.Second

// ConnectMongo connects to MongoDB, verifies the connection and installs the
// collection validators and indexes.
func ConnectMongo(ctx context.Context, cfg *config.Config) (*mongo.Client, *mongo.Database, error) {
	connectCtx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(cfg.MongoDatabase)
	middleware.Logger.Info("MongoDB connected successfully", slog.String("database", cfg.MongoDatabase))

	if err := EnsureMongoSchema(connectCtx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}
	return client, db, nil
}

// PostSchema is the $jsonSchema validator for the posts collection.
func PostSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"author", "title", "content", "date_posted"},
			"properties": bson.M{
				"author": bson.M{
					"bsonType":    "objectId",
					"description": "must be an objectId and is required",
				},
				"title": bson.M{
					"bsonType":    "string",
					"description": "must be a string and is required",
				},
				"content": bson.M{
					"bsonType":    "string",
					"description": "must be a string and is required",
				},
				"date_posted": bson.M{
					"bsonType":    "date",
					"description": "must be a date and is required",
				},
			},
		},
	}
}

// UserSchema is the $jsonSchema validator for the users collection.
func UserSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"username", "email", "password"},
			"properties": bson.M{
				"username": bson.M{
					"bsonType":    "string",
					"description": "must be a string and is required",
				},
				"email": bson.M{
					"bsonType":    "string",
					"description": "must be a string and is required",
				},
				"password": bson.M{
					"bsonType":    "string",
					"description": "must be a string and is required",
				},
				"date_joined": bson.M{"bsonType": "date"},
				"image":       bson.M{"bsonType": "string"},
				"posts": bson.M{
					"bsonType": "array",
					"items":    bson.M{"bsonType": "objectId"},
				},
			},
		},
	}
}

// EnsureMongoSchema creates missing collections with their validators,
// re-applies validators on existing ones and builds the indexes.
func EnsureMongoSchema(ctx context.Context, db *mongo.Database) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	present := make(map[string]bool, len(existing))
	for _, name := range existing {
		present[name] = true
	}

	validators := map[string]bson.M{
		UsersCollection: UserSchema(),
		PostsCollection: PostSchema(),
	}
	for name, validator := range validators {
		if present[name] {
			cmd := bson.D{{Key: "collMod", Value: name}, {Key: "validator", Value: validator}}
			if err := db.RunCommand(ctx, cmd).Err(); err != nil {
				return fmt.Errorf("failed to update validator for %s: %w", name, err)
			}
			continue
		}
		if err := db.CreateCollection(ctx, name, options.CreateCollection().SetValidator(validator)); err != nil {
			return fmt.Errorf("failed to create collection %s: %w", name, err)
		}
	}

	_, err = db.Collection(UsersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}

	_, err = db.Collection(PostsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "date_posted", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "author", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create post indexes: %w", err)
	}

	middleware.Logger.Info("MongoDB schema ensured")
	return nil
}
