package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"streampilot/internal/domain"
)

type watchProgressDoc struct {
	ID         string `bson:"_id"`
	ContentID  string `bson:"contentId"`
	Season     int    `bson:"season,omitempty"`
	Episode    int    `bson:"episode,omitempty"`
	Kind       string `bson:"kind"`
	Title      string `bson:"title,omitempty"`
	PositionMs int64  `bson:"positionMs"`
	DurationMs int64  `bson:"durationMs"`
	Completed  bool   `bson:"completed"`
	UpdatedAt  int64  `bson:"updatedAt"`
}

type WatchProgressRepository struct {
	collection *mongo.Collection
}

func NewWatchProgressRepository(client *mongo.Client, dbName string) *WatchProgressRepository {
	return &WatchProgressRepository{collection: client.Database(dbName).Collection("watch_progress")}
}

// progressDocID builds the document key: the bare content id for movies,
// "contentId:sN:eN" for episodes.
func progressDocID(key domain.ContentKey) string {
	if key.Season > 0 || key.Episode > 0 {
		return fmt.Sprintf("%s:s%d:e%d", key.ContentID, key.Season, key.Episode)
	}
	return key.ContentID
}

func (r *WatchProgressRepository) EnsureIndexes(ctx context.Context) error {
	if r == nil || r.collection == nil {
		return nil
	}
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "contentId", Value: 1}}},
		{Keys: bson.D{{Key: "updatedAt", Value: -1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, models)
	return err
}

func (r *WatchProgressRepository) Upsert(ctx context.Context, wp domain.WatchProgress) error {
	update := bson.M{
		"$set": bson.M{
			"contentId":  wp.Key.ContentID,
			"season":     wp.Key.Season,
			"episode":    wp.Key.Episode,
			"kind":       string(wp.Kind),
			"title":      wp.Title,
			"positionMs": wp.PositionMs,
			"durationMs": wp.DurationMs,
			"completed":  wp.Completed,
			"updatedAt":  time.Now().Unix(),
		},
	}
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": progressDocID(wp.Key)},
		update,
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *WatchProgressRepository) Get(ctx context.Context, key domain.ContentKey) (domain.WatchProgress, error) {
	var doc watchProgressDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": progressDocID(key)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.WatchProgress{}, domain.ErrNotFound
		}
		return domain.WatchProgress{}, err
	}
	return progressDocToRecord(doc), nil
}

func (r *WatchProgressRepository) ListRecent(ctx context.Context, limit int) ([]domain.WatchProgress, error) {
	if limit <= 0 {
		limit = 20
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "updatedAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []watchProgressDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	records := make([]domain.WatchProgress, 0, len(docs))
	for _, doc := range docs {
		records = append(records, progressDocToRecord(doc))
	}
	return records, nil
}

func progressDocToRecord(doc watchProgressDoc) domain.WatchProgress {
	return domain.WatchProgress{
		Key: domain.ContentKey{
			ContentID: doc.ContentID,
			Season:    doc.Season,
			Episode:   doc.Episode,
		},
		Kind:       domain.ContentKind(doc.Kind),
		Title:      doc.Title,
		PositionMs: doc.PositionMs,
		DurationMs: doc.DurationMs,
		Completed:  doc.Completed,
		UpdatedAt:  time.Unix(doc.UpdatedAt, 0).UTC(),
	}
}
