package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vsrlabs/positions-indexer/internal/config"
)

const (
	SnapshotStatsCollection = "snapshot_stats"

	// SnapshotStatsTTL bounds how long archived statistics are kept.
	SnapshotStatsTTL = 90 * 24 * time.Hour
)

type index struct {
	Keys    bson.D
	Options *options.IndexOptions
}

var collections = map[string][]index{
	SnapshotStatsCollection: {
		{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(SnapshotStatsTTL.Seconds())),
		},
	},
}

// Setup creates the collections and indexes the indexer writes to.
func Setup(ctx context.Context, cfg *config.DbConfig) error {
	credential := options.Credential{
		Username: cfg.Username,
		Password: cfg.Password,
	}
	clientOps := options.Client().ApplyURI(cfg.Address).SetAuth(credential)
	client, err := mongo.Connect(ctx, clientOps)
	if err != nil {
		return fmt.Errorf("failed to connect to mongo: %w", err)
	}
	defer func() {
		if err := client.Disconnect(ctx); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("failed to disconnect setup client")
		}
	}()

	database := client.Database(cfg.DbName)
	for name, indexes := range collections {
		if err := createCollection(ctx, database, name); err != nil {
			return err
		}
		for _, idx := range indexes {
			model := mongo.IndexModel{Keys: idx.Keys, Options: idx.Options}
			if _, err := database.Collection(name).Indexes().CreateOne(ctx, model); err != nil {
				return fmt.Errorf("failed to create index on %s: %w", name, err)
			}
		}
	}

	log.Ctx(ctx).Info().Str("db", cfg.DbName).Msg("collections and indexes are ready")
	return nil
}

func createCollection(ctx context.Context, database *mongo.Database, name string) error {
	err := database.CreateCollection(ctx, name)
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Name == "NamespaceExists" {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	return nil
}
