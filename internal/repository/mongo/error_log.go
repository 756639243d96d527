package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"streampilot/internal/domain"
)

type playbackErrorDoc struct {
	ContentID string `bson:"contentId"`
	Season    int    `bson:"season,omitempty"`
	Episode   int    `bson:"episode,omitempty"`
	StreamURL string `bson:"streamUrl,omitempty"`
	Code      string `bson:"code,omitempty"`
	Cause     string `bson:"cause,omitempty"`
	Fatal     bool   `bson:"fatal"`
	At        int64  `bson:"at"`
}

type ErrorLogRepository struct {
	collection *mongo.Collection
}

func NewErrorLogRepository(client *mongo.Client, dbName string) *ErrorLogRepository {
	return &ErrorLogRepository{collection: client.Database(dbName).Collection("playback_errors")}
}

func (r *ErrorLogRepository) EnsureIndexes(ctx context.Context) error {
	if r == nil || r.collection == nil {
		return nil
	}
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "contentId", Value: 1}}},
		{Keys: bson.D{{Key: "at", Value: -1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, models)
	return err
}

func (r *ErrorLogRepository) Append(ctx context.Context, record domain.PlaybackErrorRecord) error {
	at := record.At
	if at.IsZero() {
		at = time.Now()
	}
	doc := playbackErrorDoc{
		ContentID: record.Key.ContentID,
		Season:    record.Key.Season,
		Episode:   record.Key.Episode,
		StreamURL: record.StreamURL,
		Code:      record.Code,
		Cause:     record.Cause,
		Fatal:     record.Fatal,
		At:        at.Unix(),
	}
	_, err := r.collection.InsertOne(ctx, doc)
	return err
}

func (r *ErrorLogRepository) ListRecent(ctx context.Context, limit int) ([]domain.PlaybackErrorRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []playbackErrorDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	records := make([]domain.PlaybackErrorRecord, 0, len(docs))
	for _, doc := range docs {
		records = append(records, errorDocToRecord(doc))
	}
	return records, nil
}

func errorDocToRecord(doc playbackErrorDoc) domain.PlaybackErrorRecord {
	return domain.PlaybackErrorRecord{
		Key: domain.ContentKey{
			ContentID: doc.ContentID,
			Season:    doc.Season,
			Episode:   doc.Episode,
		},
		StreamURL: doc.StreamURL,
		Code:      doc.Code,
		Cause:     doc.Cause,
		Fatal:     doc.Fatal,
		At:        time.Unix(doc.At, 0).UTC(),
	}
}
