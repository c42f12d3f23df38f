package repositories

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/machinemessiah/tagify-sub000/internal/models"
	"github.com/machinemessiah/tagify-sub000/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

var testTag = models.TagKey{Category: "genre", Subcategory: "electronic", ID: "house"}

func TestItemRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewItemRepository(db)
		item := models.NewPersistedItem(0, models.Item{Key: "track1", Rating: models.IntFrom(4)})

		if err := repo.Create(item); err != nil {
			t.Fatalf("failed to create item: %v", err)
		}

		if item.ID() == "" {
			t.Error("item ID should be set after creation")
		}
	})

	t.Run("GetByKey", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewItemRepository(db)
		item := models.NewPersistedItem(0, models.Item{
			Key:    "track1",
			Rating: models.IntFrom(4),
			Tempo:  models.IntFrom(128),
			Tags:   []models.TagKey{testTag},
		})

		if err := repo.Create(item); err != nil {
			t.Fatalf("failed to create item: %v", err)
		}

		retrieved, err := repo.GetByKey("track1")
		if err != nil {
			t.Fatalf("failed to get item: %v", err)
		}

		if retrieved.Rating().Or(0) != 4 {
			t.Errorf("expected rating 4, got %v", retrieved.Rating())
		}

		if retrieved.Tempo().Or(0) != 128 {
			t.Errorf("expected tempo 128, got %v", retrieved.Tempo())
		}

		if retrieved.Energy().Valid {
			t.Error("energy should be unset")
		}

		tags := retrieved.Tags()
		if len(tags) != 1 || tags[0] != testTag {
			t.Errorf("expected tags [%s], got %v", testTag.String(), tags)
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewItemRepository(db)
		item := models.NewPersistedItem(0, models.Item{Key: "track1", Rating: models.IntFrom(2)})

		if err := repo.Create(item); err != nil {
			t.Fatalf("failed to create item: %v", err)
		}

		item.SetRating(models.IntFrom(5))
		item.SetTags([]models.TagKey{testTag})

		if err := repo.Update(item); err != nil {
			t.Fatalf("failed to update item: %v", err)
		}

		retrieved, err := repo.GetByKey("track1")
		if err != nil {
			t.Fatalf("failed to get item: %v", err)
		}

		if retrieved.Rating().Or(0) != 5 {
			t.Errorf("expected rating 5, got %v", retrieved.Rating())
		}

		if len(retrieved.Tags()) != 1 {
			t.Errorf("expected 1 tag, got %d", len(retrieved.Tags()))
		}
	})

	t.Run("ClearRating", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewItemRepository(db)
		item := models.NewPersistedItem(0, models.Item{Key: "track1", Rating: models.IntFrom(5), Energy: models.IntFrom(3)})

		if err := repo.Create(item); err != nil {
			t.Fatalf("failed to create item: %v", err)
		}

		item.SetRating(models.NullInt{})
		if err := repo.Update(item); err != nil {
			t.Fatalf("failed to update item: %v", err)
		}

		retrieved, err := repo.GetByKey("track1")
		if err != nil {
			t.Fatalf("failed to get item: %v", err)
		}

		if retrieved.Rating().Valid {
			t.Error("cleared rating should scan back as unset")
		}

		if retrieved.Energy().Or(0) != 3 {
			t.Errorf("expected energy 3, got %v", retrieved.Energy())
		}
	})

	t.Run("DeleteByKey", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewItemRepository(db)
		item := models.NewPersistedItem(0, models.Item{Key: "track1", Tags: []models.TagKey{testTag}})

		if err := repo.Create(item); err != nil {
			t.Fatalf("failed to create item: %v", err)
		}

		if err := repo.DeleteByKey("track1"); err != nil {
			t.Fatalf("failed to delete item: %v", err)
		}

		if _, err := repo.GetByKey("track1"); !errors.Is(err, shared.ErrItemNotFound) {
			t.Errorf("expected ErrItemNotFound for deleted item, got %v", err)
		}

		var junction int
		if err := db.QueryRow(`SELECT COUNT(*) FROM item_tags WHERE item_key = ?`, "track1").Scan(&junction); err != nil {
			t.Fatalf("failed to count junction rows: %v", err)
		}
		if junction != 0 {
			t.Errorf("expected junction rows cleared, got %d", junction)
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewItemRepository(db)

		tagged := models.NewPersistedItem(0, models.Item{Key: "track1", Tags: []models.TagKey{testTag}})
		plain := models.NewPersistedItem(0, models.Item{Key: "track2", Rating: models.IntFrom(1)})
		local := models.NewPersistedItem(0, models.Item{Key: "local:demo", Energy: models.IntFrom(2)})

		for _, item := range []*models.PersistedItem{tagged, plain, local} {
			if err := repo.Create(item); err != nil {
				t.Fatalf("failed to create item %s: %v", item.Key(), err)
			}
		}

		all, err := repo.List(map[string]any{})
		if err != nil {
			t.Fatalf("failed to list items: %v", err)
		}
		if len(all) != 3 {
			t.Errorf("expected 3 items, got %d", len(all))
		}

		byTag, err := repo.List(map[string]any{"tag": testTag.String()})
		if err != nil {
			t.Fatalf("failed to list items by tag: %v", err)
		}
		if len(byTag) != 1 || byTag[0].Key() != "track1" {
			t.Errorf("expected [track1], got %d items", len(byTag))
		}

		locals, err := repo.List(map[string]any{"key_prefix": models.LocalKeyPrefix})
		if err != nil {
			t.Fatalf("failed to list local items: %v", err)
		}
		if len(locals) != 1 || locals[0].Key() != "local:demo" {
			t.Errorf("expected [local:demo], got %d items", len(locals))
		}
	})

	t.Run("Items", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewItemRepository(db)
		item := models.NewPersistedItem(0, models.Item{Key: "track1", Tags: []models.TagKey{testTag}})

		if err := repo.Create(item); err != nil {
			t.Fatalf("failed to create item: %v", err)
		}

		items, err := repo.Items()
		if err != nil {
			t.Fatalf("failed to load catalog: %v", err)
		}

		if len(items) != 1 {
			t.Fatalf("expected 1 item, got %d", len(items))
		}

		if !items[0].HasTag(testTag) {
			t.Error("catalog item should carry its tags")
		}
	})
}

func TestTagRepository(t *testing.T) {
	t.Run("GetOrCreate", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTagRepository(db)

		created, err := repo.GetOrCreate(testTag)
		if err != nil {
			t.Fatalf("failed to register tag: %v", err)
		}

		if created.Label() != "house" {
			t.Errorf("expected default label house, got %q", created.Label())
		}

		again, err := repo.GetOrCreate(testTag)
		if err != nil {
			t.Fatalf("failed to resolve existing tag: %v", err)
		}

		if again.ID() != created.ID() {
			t.Errorf("expected the same row, got %s and %s", created.ID(), again.ID())
		}
	})

	t.Run("UpdateLabel", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTagRepository(db)

		tag, err := repo.GetOrCreate(testTag)
		if err != nil {
			t.Fatalf("failed to register tag: %v", err)
		}

		tag.SetLabel("House")
		if err := repo.Update(tag); err != nil {
			t.Fatalf("failed to update tag: %v", err)
		}

		retrieved, err := repo.GetByKey(testTag)
		if err != nil {
			t.Fatalf("failed to get tag: %v", err)
		}

		if retrieved.Label() != "House" {
			t.Errorf("expected label House, got %q", retrieved.Label())
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTagRepository(db)

		keys := []models.TagKey{
			{Category: "mood", Subcategory: "calm", ID: "chill"},
			{Category: "genre", Subcategory: "electronic", ID: "techno"},
			{Category: "genre", Subcategory: "electronic", ID: "house"},
		}
		for _, key := range keys {
			if _, err := repo.GetOrCreate(key); err != nil {
				t.Fatalf("failed to register %s: %v", key.String(), err)
			}
		}

		all, err := repo.List(map[string]any{})
		if err != nil {
			t.Fatalf("failed to list tags: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("expected 3 tags, got %d", len(all))
		}

		if all[0].Key().Category != "genre" || all[0].Key().ID != "house" {
			t.Errorf("expected genre:electronic:house first, got %s", all[0].Key().String())
		}

		genre, err := repo.List(map[string]any{"category": "genre"})
		if err != nil {
			t.Fatalf("failed to list genre tags: %v", err)
		}
		if len(genre) != 2 {
			t.Errorf("expected 2 genre tags, got %d", len(genre))
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTagRepository(db)

		tag, err := repo.GetOrCreate(testTag)
		if err != nil {
			t.Fatalf("failed to register tag: %v", err)
		}

		if err := repo.Delete(tag.ID()); err != nil {
			t.Fatalf("failed to delete tag: %v", err)
		}

		if _, err := repo.GetByKey(testTag); !errors.Is(err, shared.ErrTagNotFound) {
			t.Errorf("expected ErrTagNotFound for deleted tag, got %v", err)
		}
	})
}

func TestKVRepository(t *testing.T) {
	t.Run("PutGet", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewKVRepository(db)

		if err := repo.Put("smart_playlists", `{"v":1}`); err != nil {
			t.Fatalf("failed to put value: %v", err)
		}

		value, err := repo.Get("smart_playlists")
		if err != nil {
			t.Fatalf("failed to get value: %v", err)
		}

		if value != `{"v":1}` {
			t.Errorf("expected stored value, got %q", value)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewKVRepository(db)

		if err := repo.Put("k", "one"); err != nil {
			t.Fatalf("failed to put first value: %v", err)
		}
		if err := repo.Put("k", "two"); err != nil {
			t.Fatalf("failed to overwrite value: %v", err)
		}

		value, err := repo.Get("k")
		if err != nil {
			t.Fatalf("failed to get value: %v", err)
		}

		if value != "two" {
			t.Errorf("expected two, got %q", value)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewKVRepository(db)

		_, err := repo.Get("absent")
		if !errors.Is(err, shared.ErrKeyNotFound) {
			t.Errorf("expected ErrKeyNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewKVRepository(db)

		if err := repo.Put("k", "v"); err != nil {
			t.Fatalf("failed to put value: %v", err)
		}

		if err := repo.Delete("k"); err != nil {
			t.Fatalf("failed to delete value: %v", err)
		}

		if _, err := repo.Get("k"); !errors.Is(err, shared.ErrKeyNotFound) {
			t.Errorf("expected ErrKeyNotFound after delete, got %v", err)
		}

		if err := repo.Delete("k"); err != nil {
			t.Errorf("deleting a missing key should not error, got %v", err)
		}
	})
}

func TestMetadataRepository(t *testing.T) {
	t.Run("CacheGet", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewMetadataRepository(db)
		track := models.Track{ID: "track1", Title: "One More Time", Artist: "Daft Punk", Album: "Discovery", Duration: 320000}

		if err := repo.Cache(track); err != nil {
			t.Fatalf("failed to cache track: %v", err)
		}

		retrieved, err := repo.Get("track1")
		if err != nil {
			t.Fatalf("failed to get cached track: %v", err)
		}

		if retrieved != track {
			t.Errorf("expected %+v, got %+v", track, retrieved)
		}
	})

	t.Run("Refresh", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewMetadataRepository(db)

		if err := repo.Cache(models.Track{ID: "track1", Title: "Old", Artist: "A"}); err != nil {
			t.Fatalf("failed to cache track: %v", err)
		}
		if err := repo.Cache(models.Track{ID: "track1", Title: "New", Artist: "A"}); err != nil {
			t.Fatalf("failed to refresh track: %v", err)
		}

		retrieved, err := repo.Get("track1")
		if err != nil {
			t.Fatalf("failed to get cached track: %v", err)
		}

		if retrieved.Title != "New" {
			t.Errorf("expected refreshed title, got %q", retrieved.Title)
		}
	})

	t.Run("GetBatch", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewMetadataRepository(db)

		for _, track := range []models.Track{
			{ID: "track1", Title: "One", Artist: "A"},
			{ID: "track2", Title: "Two", Artist: "B"},
		} {
			if err := repo.Cache(track); err != nil {
				t.Fatalf("failed to cache %s: %v", track.ID, err)
			}
		}

		batch, err := repo.GetBatch([]string{"track1", "track2", "missing"})
		if err != nil {
			t.Fatalf("failed to get batch: %v", err)
		}

		if len(batch) != 2 {
			t.Errorf("expected 2 cached tracks, got %d", len(batch))
		}

		if batch["track1"].Title != "One" {
			t.Errorf("expected One, got %q", batch["track1"].Title)
		}

		if _, ok := batch["missing"]; ok {
			t.Error("missing key should be absent from the result")
		}
	})
}

func TestSyncLogRepository(t *testing.T) {
	t.Run("CreateGet", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSyncLogRepository(db)
		run := models.NewSyncRun(0, "col1", "High Energy", models.SyncKindFullReconcile)

		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create sync run: %v", err)
		}

		retrieved, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get sync run: %v", err)
		}

		if retrieved.Status() != models.SyncStatusRunning {
			t.Errorf("expected running status, got %q", retrieved.Status())
		}

		if retrieved.StartedAt() == nil {
			t.Error("started timestamp should round trip")
		}

		if retrieved.CompletedAt() != nil {
			t.Error("completed timestamp should be nil for a running run")
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSyncLogRepository(db)
		run := models.NewSyncRun(0, "col1", "High Energy", models.SyncKindFullReconcile)

		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create sync run: %v", err)
		}

		now := run.CreatedAt()
		run.SetStatus(models.SyncStatusCompleted)
		run.SetAdded(3)
		run.SetRemoved(1)
		run.SetDeduplicated(2)
		run.SetDataLoss(true)
		run.SetCompletedAt(&now)

		if err := repo.Update(run); err != nil {
			t.Fatalf("failed to update sync run: %v", err)
		}

		retrieved, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get sync run: %v", err)
		}

		if retrieved.Added() != 3 || retrieved.Removed() != 1 || retrieved.Deduplicated() != 2 {
			t.Errorf("counters did not round trip: %d/%d/%d", retrieved.Added(), retrieved.Removed(), retrieved.Deduplicated())
		}

		if !retrieved.DataLoss() {
			t.Error("data loss flag should round trip")
		}

		if retrieved.CompletedAt() == nil {
			t.Error("completed timestamp should round trip")
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSyncLogRepository(db)

		first := models.NewSyncRun(0, "col1", "High Energy", models.SyncKindFullReconcile)
		second := models.NewSyncRun(0, "col2", "Chill", models.SyncKindSingleItem)

		if err := repo.Create(first); err != nil {
			t.Fatalf("failed to create first run: %v", err)
		}
		if err := repo.Create(second); err != nil {
			t.Fatalf("failed to create second run: %v", err)
		}

		runs, err := repo.List(map[string]any{})
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}

		if len(runs) != 2 {
			t.Fatalf("expected 2 runs, got %d", len(runs))
		}

		if runs[0].PlaylistID() != "col2" {
			t.Errorf("expected most recent run first, got %s", runs[0].PlaylistID())
		}

		limited, err := repo.List(map[string]any{"limit": 1})
		if err != nil {
			t.Fatalf("failed to list limited runs: %v", err)
		}
		if len(limited) != 1 {
			t.Errorf("expected 1 run, got %d", len(limited))
		}

		byPlaylist, err := repo.List(map[string]any{"playlist_id": "col1"})
		if err != nil {
			t.Fatalf("failed to list runs by playlist: %v", err)
		}
		if len(byPlaylist) != 1 || byPlaylist[0].PlaylistID() != "col1" {
			t.Errorf("expected col1 run only, got %d runs", len(byPlaylist))
		}
	})
}
