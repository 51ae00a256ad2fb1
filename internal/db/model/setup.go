package model

import (
	"context"
	"fmt"

	"github.com/babylonlabs-io/simple-staking/internal/config"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type index struct {
	Indexes map[string]int
	Unique  bool
}

var collections = map[string][]index{
	StakerCollection: {
		{Indexes: map[string]int{"referrer": 1}, Unique: false},
		{Indexes: map[string]int{"last_claim": 1}, Unique: false},
	},
	TokenCollection: {{Indexes: map[string]int{}}},
}

// Setup creates the collections and indexes the service relies on
func Setup(ctx context.Context, cfg *config.DbConfig) error {
	credential := options.Credential{
		Username: cfg.Username,
		Password: cfg.Password,
	}
	clientOps := options.Client().ApplyURI(cfg.Address).SetAuth(credential)
	client, err := mongo.Connect(ctx, clientOps)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(ctx); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("Failed to disconnect setup client")
		}
	}()

	database := client.Database(cfg.DbName)

	existing, err := database.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	for name := range collections {
		if err := createCollection(ctx, database, name, existing); err != nil {
			return err
		}
	}

	for name, idxs := range collections {
		for _, idx := range idxs {
			if err := createIndex(ctx, database, name, idx); err != nil {
				return err
			}
		}
	}

	log.Ctx(ctx).Info().Msg("Collections and Indexes created successfully.")
	return nil
}

func createCollection(ctx context.Context, database *mongo.Database, name string, existing []string) error {
	for _, e := range existing {
		if e == name {
			return nil
		}
	}

	if err := database.CreateCollection(ctx, name); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	log.Ctx(ctx).Debug().Msg("Collection created successfully: " + name)
	return nil
}

func createIndex(ctx context.Context, database *mongo.Database, collectionName string, idx index) error {
	if len(idx.Indexes) == 0 {
		return nil
	}

	keys := bson.D{}
	for k, v := range idx.Indexes {
		keys = append(keys, bson.E{Key: k, Value: v})
	}

	indexModel := mongo.IndexModel{
		Keys:    keys,
		Options: options.Index().SetUnique(idx.Unique),
	}

	if _, err := database.Collection(collectionName).Indexes().CreateOne(ctx, indexModel); err != nil {
		return fmt.Errorf("failed to create index on %s: %w", collectionName, err)
	}

	log.Ctx(ctx).Debug().Msg("Index created successfully on collection: " + collectionName)
	return nil
}
