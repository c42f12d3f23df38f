package repositories

import (
	"testing"

	"github.com/machinemessiah/tagify-sub000/internal/models"
)

func TestItemRepositoryErrors(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		t.Run("ValidationError", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewItemRepository(db)
			item := models.NewPersistedItem(0, models.Item{})

			if err := repo.Create(item); err == nil {
				t.Fatal("expected validation error for missing key")
			}
		})

		t.Run("DuplicateKey", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewItemRepository(db)

			first := models.NewPersistedItem(0, models.Item{Key: "track1"})
			if err := repo.Create(first); err != nil {
				t.Fatalf("failed to create first item: %v", err)
			}

			second := models.NewPersistedItem(0, models.Item{Key: "track1"})
			if err := repo.Create(second); err == nil {
				t.Fatal("expected error when creating item with duplicate key")
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewItemRepository(db)

			if _, err := repo.Get("nonexistent-id"); err == nil {
				t.Fatal("expected error when getting nonexistent item")
			}
		})
	})

	t.Run("Update", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewItemRepository(db)
			item := models.NewPersistedItem(0, models.Item{Key: "track1"})
			item.SetID("nonexistent-id")

			if err := repo.Update(item); err == nil {
				t.Fatal("expected error when updating nonexistent item")
			}
		})

		t.Run("Deleted", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewItemRepository(db)
			item := models.NewPersistedItem(0, models.Item{Key: "track1"})

			if err := repo.Create(item); err != nil {
				t.Fatalf("failed to create item: %v", err)
			}

			if err := repo.Delete(item.ID()); err != nil {
				t.Fatalf("failed to delete item: %v", err)
			}

			if err := repo.Update(item); err == nil {
				t.Fatal("expected error when updating deleted item")
			}
		})
	})

	t.Run("Delete", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewItemRepository(db)

			if err := repo.Delete("nonexistent-id"); err == nil {
				t.Fatal("expected error when deleting nonexistent item")
			}
		})
	})
}

func TestTagRepositoryErrors(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		t.Run("ValidationError", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewTagRepository(db)
			tag := models.NewPersistedTag(0, models.TagKey{Category: "genre"}, "")

			if err := repo.Create(tag); err == nil {
				t.Fatal("expected validation error for incomplete key")
			}
		})

		t.Run("DuplicateKey", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewTagRepository(db)

			if err := repo.Create(models.NewPersistedTag(0, testTag, "")); err != nil {
				t.Fatalf("failed to create first tag: %v", err)
			}

			if err := repo.Create(models.NewPersistedTag(0, testTag, "")); err == nil {
				t.Fatal("expected error when creating tag with duplicate key")
			}
		})
	})

	t.Run("Update", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewTagRepository(db)
			tag := models.NewPersistedTag(0, testTag, "House")
			tag.SetID("nonexistent-id")

			if err := repo.Update(tag); err == nil {
				t.Fatal("expected error when updating nonexistent tag")
			}
		})
	})
}

func TestSyncLogRepositoryErrors(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		t.Run("ValidationError", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewSyncLogRepository(db)
			run := models.NewSyncRun(0, "col1", "High Energy", "partial")

			if err := repo.Create(run); err == nil {
				t.Fatal("expected validation error for unknown kind")
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewSyncLogRepository(db)

			if _, err := repo.Get("nonexistent-id"); err == nil {
				t.Fatal("expected error when getting nonexistent sync run")
			}
		})
	})
}
