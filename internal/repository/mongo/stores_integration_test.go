package mongo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"streampilot/internal/domain"
)

// testMongoURI returns the MongoDB connection URI for integration tests.
// Defaults to localhost:27017. Set MONGO_TEST_URI to override.
func testMongoURI() string {
	if uri := os.Getenv("MONGO_TEST_URI"); uri != "" {
		return uri
	}
	return "mongodb://localhost:27017"
}

// setupTestDB connects to MongoDB and returns a client plus a unique test
// database name. The cleanup function drops the database and disconnects.
// Calls t.Skip if MongoDB is unreachable.
func setupTestDB(t *testing.T) (*mongo.Client, string, func()) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	uri := testMongoURI()
	client, err := Connect(ctx, uri, options.Client().SetConnectTimeout(3*time.Second))
	if err != nil {
		t.Skipf("MongoDB not available at %s: %v", uri, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		t.Skipf("MongoDB ping failed at %s: %v", uri, err)
	}

	dbName := fmt.Sprintf("streampilot_test_%d", time.Now().UnixNano())
	cleanup := func() {
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = client.Database(dbName).Drop(ctx2)
		_ = client.Disconnect(ctx2)
	}
	return client, dbName, cleanup
}

func makeProgress(contentID string, season, episode int, positionMs int64) domain.WatchProgress {
	key := domain.ContentKey{ContentID: contentID, Season: season, Episode: episode}
	kind := domain.KindMovie
	if season > 0 {
		kind = domain.KindEpisode
	}
	return domain.WatchProgress{
		Key:        key,
		Kind:       kind,
		Title:      "Title " + contentID,
		PositionMs: positionMs,
		DurationMs: 2_400_000,
	}
}

func TestIntegrationProgressUpsertGet(t *testing.T) {
	client, dbName, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewWatchProgressRepository(client, dbName)

	ctx := context.Background()
	if err := repo.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes: %v", err)
	}

	wp := makeProgress("7", 1, 2, 120_000)
	if err := repo.Upsert(ctx, wp); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := repo.Get(ctx, wp.Key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.PositionMs != 120_000 || got.Kind != domain.KindEpisode {
		t.Errorf("unexpected record: %+v", got)
	}

	// Second upsert replaces the same document.
	wp.PositionMs = 240_000
	wp.Completed = true
	if err := repo.Upsert(ctx, wp); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	got, err = repo.Get(ctx, wp.Key)
	if err != nil {
		t.Fatalf("Get after update: %v", err)
	}
	if got.PositionMs != 240_000 || !got.Completed {
		t.Errorf("upsert did not replace: %+v", got)
	}
}

func TestIntegrationProgressGetMissing(t *testing.T) {
	client, dbName, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewWatchProgressRepository(client, dbName)

	_, err := repo.Get(context.Background(), domain.ContentKey{ContentID: "missing"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestIntegrationProgressEpisodesAreSeparate(t *testing.T) {
	client, dbName, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewWatchProgressRepository(client, dbName)

	ctx := context.Background()
	if err := repo.Upsert(ctx, makeProgress("7", 1, 1, 100)); err != nil {
		t.Fatalf("Upsert e1: %v", err)
	}
	if err := repo.Upsert(ctx, makeProgress("7", 1, 2, 200)); err != nil {
		t.Fatalf("Upsert e2: %v", err)
	}

	e1, err := repo.Get(ctx, domain.ContentKey{ContentID: "7", Season: 1, Episode: 1})
	if err != nil {
		t.Fatalf("Get e1: %v", err)
	}
	e2, err := repo.Get(ctx, domain.ContentKey{ContentID: "7", Season: 1, Episode: 2})
	if err != nil {
		t.Fatalf("Get e2: %v", err)
	}
	if e1.PositionMs != 100 || e2.PositionMs != 200 {
		t.Errorf("episodes share a document: %+v %+v", e1, e2)
	}
}

func TestIntegrationProgressListRecent(t *testing.T) {
	client, dbName, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewWatchProgressRepository(client, dbName)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := repo.Upsert(ctx, makeProgress(fmt.Sprintf("m%d", i), 0, 0, int64(i))); err != nil {
			t.Fatalf("Upsert %d: %v", i, err)
		}
	}

	records, err := repo.ListRecent(ctx, 3)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("expected 3 records, got %d", len(records))
	}
}

func TestIntegrationErrorLogAppendList(t *testing.T) {
	client, dbName, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewErrorLogRepository(client, dbName)

	ctx := context.Background()
	if err := repo.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes: %v", err)
	}

	rec := domain.PlaybackErrorRecord{
		Key:   domain.ContentKey{ContentID: "7", Season: 1, Episode: 2},
		Code:  "SOURCE_ERROR",
		Cause: "connection reset",
		Fatal: true,
	}
	if err := repo.Append(ctx, rec); err != nil {
		t.Fatalf("Append: %v", err)
	}

	records, err := repo.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(records) != 1 || records[0].Code != "SOURCE_ERROR" || !records[0].Fatal {
		t.Errorf("unexpected records: %+v", records)
	}
	if records[0].At.IsZero() {
		t.Error("Append must stamp the record time")
	}
}

func TestIntegrationAutoPlayRoundTrip(t *testing.T) {
	client, dbName, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewAutoPlayRepository(client, dbName)

	ctx := context.Background()
	if _, ok, err := repo.Get(ctx, "7"); err != nil || ok {
		t.Fatalf("expected no stored value, got ok=%v err=%v", ok, err)
	}

	if err := repo.Set(ctx, "7", false); err != nil {
		t.Fatalf("Set: %v", err)
	}
	enabled, ok, err := repo.Get(ctx, "7")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || enabled {
		t.Errorf("expected stored disabled toggle, got enabled=%v ok=%v", enabled, ok)
	}

	if err := repo.Set(ctx, "7", true); err != nil {
		t.Fatalf("second Set: %v", err)
	}
	enabled, ok, err = repo.Get(ctx, "7")
	if err != nil || !ok || !enabled {
		t.Errorf("expected enabled toggle, got enabled=%v ok=%v err=%v", enabled, ok, err)
	}
}
