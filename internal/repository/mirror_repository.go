package repository

import (
	"context"
	"fmt"
	"membership-service/internal/models"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MirrorRepository keeps a copy of every saved profile in MongoDB, keyed by
// identifier. The JSON files stay authoritative.
type MirrorRepository struct {
	collection *mongo.Collection
}

func NewMirrorRepository(db *mongo.Database, collection string) *MirrorRepository {
	return &MirrorRepository{
		collection: db.Collection(collection),
	}
}

func (r *MirrorRepository) Upsert(ctx context.Context, profile *models.Profile) error {
	doc := bson.M{
		"_id":       profile.Identifier,
		"document":  profile.Data.Interface(),
		"updatedAt": time.Now().Unix(),
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, bson.M{"_id": profile.Identifier}, doc, opts); err != nil {
		return fmt.Errorf("failed to mirror profile %s: %w", profile.Identifier, err)
	}
	return nil
}
