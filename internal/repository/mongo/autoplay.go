package mongo

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type autoPlayDoc struct {
	ID        string `bson:"_id"`
	Enabled   bool   `bson:"enabled"`
	UpdatedAt int64  `bson:"updatedAt"`
}

// AutoPlayRepository stores the per-series auto-play toggle. The document
// id is the series content id, so one setting exists per show.
type AutoPlayRepository struct {
	collection *mongo.Collection
}

func NewAutoPlayRepository(client *mongo.Client, dbName string) *AutoPlayRepository {
	return &AutoPlayRepository{collection: client.Database(dbName).Collection("autoplay_settings")}
}

func (r *AutoPlayRepository) Get(ctx context.Context, seriesID string) (bool, bool, error) {
	id := strings.TrimSpace(seriesID)
	if id == "" {
		return false, false, nil
	}
	var doc autoPlayDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, false, nil
		}
		return false, false, err
	}
	return doc.Enabled, true, nil
}

func (r *AutoPlayRepository) Set(ctx context.Context, seriesID string, enabled bool) error {
	update := bson.M{
		"$set": bson.M{
			"enabled":   enabled,
			"updatedAt": time.Now().Unix(),
		},
	}
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": strings.TrimSpace(seriesID)},
		update,
		options.Update().SetUpsert(true),
	)
	return err
}
