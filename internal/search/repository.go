package search

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fundline/pkg/metrics"
)

// CampaignDocument is the denormalized search projection of a campaign.
// It is rebuilt wholesale from each campaign event, never patched, so
// re-applying an event converges on the same document.
type CampaignDocument struct {
	ID          string    `bson:"_id" json:"id"`
	Title       string    `bson:"title" json:"title"`
	Description string    `bson:"description" json:"description"`
	OwnerID     string    `bson:"owner_id" json:"owner_id"`
	Status      string    `bson:"status" json:"status"`
	GoalAmount  float64   `bson:"goal_amount" json:"goal_amount"`
	TotalRaised float64   `bson:"total_raised" json:"total_raised"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}

type Repository interface {
	Upsert(ctx context.Context, doc CampaignDocument) error
	Delete(ctx context.Context, campaignID string) error
	Get(ctx context.Context, campaignID string) (*CampaignDocument, error)
}

type mongoRepository struct {
	collection *mongo.Collection
}

func NewRepository(db *mongo.Database) Repository {
	return &mongoRepository{
		collection: db.Collection("campaign_search"),
	}
}

func (r *mongoRepository) Upsert(ctx context.Context, doc CampaignDocument) error {
	doc.UpdatedAt = time.Now().UTC()

	filter := bson.M{"_id": doc.ID}
	opts := options.Replace().SetUpsert(true)

	_, err := r.collection.ReplaceOne(ctx, filter, doc, opts)
	if err != nil {
		metrics.ProjectionWritesTotal.WithLabelValues("campaign_search", "error").Inc()
		return fmt.Errorf("failed to upsert campaign document: %w", err)
	}

	metrics.ProjectionWritesTotal.WithLabelValues("campaign_search", "success").Inc()
	return nil
}

// Delete removes the projection for a deleted campaign. Deleting a document
// that is already gone is not an error.
func (r *mongoRepository) Delete(ctx context.Context, campaignID string) error {
	filter := bson.M{"_id": campaignID}

	_, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		metrics.ProjectionWritesTotal.WithLabelValues("campaign_search", "error").Inc()
		return fmt.Errorf("failed to delete campaign document: %w", err)
	}

	metrics.ProjectionWritesTotal.WithLabelValues("campaign_search", "success").Inc()
	return nil
}

func (r *mongoRepository) Get(ctx context.Context, campaignID string) (*CampaignDocument, error) {
	filter := bson.M{"_id": campaignID}

	var doc CampaignDocument
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign document: %w", err)
	}

	return &doc, nil
}
