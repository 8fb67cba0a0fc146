package migrations

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureMongoCollection creates the indexes backing the campaign search
// projection. The collection itself is created lazily on first upsert.
func EnsureMongoCollection(ctx context.Context, db *mongo.Database) error {
	collection := db.Collection("campaign_search")

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "updated_at", Value: -1}},
			Options: options.Index().SetName("idx_campaign_search_status_updated_at"),
		},
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}},
			Options: options.Index().SetName("idx_campaign_search_owner_id"),
		},
		{
			Keys:    bson.D{{Key: "title", Value: "text"}, {Key: "description", Value: "text"}},
			Options: options.Index().SetName("idx_campaign_search_text"),
		},
		{
			Keys:    bson.D{{Key: "total_raised", Value: -1}},
			Options: options.Index().SetName("idx_campaign_search_total_raised"),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		if !strings.Contains(err.Error(), "already exists") {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
	}

	return nil
}
