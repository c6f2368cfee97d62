package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewMongoDatabase connects to MongoDB and registers a disconnect hook.
func NewMongoDatabase(lc fx.Lifecycle, cfg *Config, logger *zap.Logger) (*mongo.Database, error) {
	clientOptions := options.Client().ApplyURI(cfg.MongoURI)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	logger.Info("connected to MongoDB", zap.String("database", cfg.MongoDB))

	lc.Append(fx.Hook{
		OnStop: func(stopCtx context.Context) error {
			logger.Info("closing MongoDB connection")
			return client.Disconnect(stopCtx)
		},
	})
	return client.Database(cfg.MongoDB), nil
}

// EnsureIndexes creates the indexes the repositories query on. The OTP TTL
// index only reclaims space; expiry is still enforced on read.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	specs := map[string][]mongo.IndexModel{
		"notices": {
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "created_by", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "approval_status", Value: 1}}},
		},
		"approvals": {
			{Keys: bson.D{{Key: "notice_id", Value: 1}}},
			{Keys: bson.D{{Key: "approver_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		"approval_otps": {
			{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		},
	}
	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", coll, err)
		}
	}
	return nil
}
