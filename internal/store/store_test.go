package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/machinemessiah/tagify-sub000/internal/models"
	"github.com/machinemessiah/tagify-sub000/internal/shared"
)

// memPersistence is an in-memory Persistence fake. When failing is set every
// Put returns an error.
type memPersistence struct {
	mu      sync.Mutex
	values  map[string]string
	failing bool
}

func newMemPersistence() *memPersistence {
	return &memPersistence{values: make(map[string]string)}
}

func (m *memPersistence) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	value, ok := m.values[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", shared.ErrKeyNotFound, key)
	}
	return value, nil
}

func (m *memPersistence) Put(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failing {
		return errors.New("disk full")
	}
	m.values[key] = value
	return nil
}

func testPlaylist(id, name string) models.SmartPlaylist {
	return models.SmartPlaylist{CollectionID: id, Name: name, Active: true}
}

func TestStoreLoad(t *testing.T) {
	t.Run("MissingBlob", func(t *testing.T) {
		s := New(newMemPersistence(), nil)

		if err := s.Load(); err != nil {
			t.Fatalf("fresh install should load cleanly: %v", err)
		}

		if s.Len() != 0 {
			t.Errorf("expected empty store, got %d playlists", s.Len())
		}
	})

	t.Run("DropsInvalidRecords", func(t *testing.T) {
		persist := newMemPersistence()
		blob, _ := json.Marshal([]models.SmartPlaylist{
			testPlaylist("col1", "Keep Me"),
			{CollectionID: "col2"},
			testPlaylist("col3", "Keep Me Too"),
		})
		persist.values[BlobKey] = string(blob)

		s := New(persist, nil)
		if err := s.Load(); err != nil {
			t.Fatalf("load failed: %v", err)
		}

		if s.Len() != 2 {
			t.Errorf("expected 2 playlists after dropping the invalid record, got %d", s.Len())
		}

		if _, ok := s.Get("col2"); ok {
			t.Error("invalid record should have been dropped")
		}
	})

	t.Run("DropsUndecodableRecords", func(t *testing.T) {
		persist := newMemPersistence()
		valid, _ := json.Marshal(testPlaylist("col1", "Keep Me"))
		persist.values[BlobKey] = fmt.Sprintf(`[%s, 42]`, valid)

		s := New(persist, nil)
		if err := s.Load(); err != nil {
			t.Fatalf("load failed: %v", err)
		}

		if s.Len() != 1 {
			t.Errorf("expected 1 playlist, got %d", s.Len())
		}
	})

	t.Run("CorruptSnapshot", func(t *testing.T) {
		persist := newMemPersistence()
		persist.values[BlobKey] = "{not json"

		s := New(persist, nil)
		if err := s.Load(); err == nil {
			t.Fatal("expected error for corrupt snapshot")
		}
	})
}

func TestStorePutGet(t *testing.T) {
	s := New(newMemPersistence(), nil)

	if err := s.Put(testPlaylist("col1", "High Energy")); err != nil {
		t.Fatalf("failed to put playlist: %v", err)
	}

	got, ok := s.Get("col1")
	if !ok {
		t.Fatal("stored playlist should be retrievable")
	}

	if got.Name != "High Energy" {
		t.Errorf("expected name High Energy, got %q", got.Name)
	}

	if err := s.Put(models.SmartPlaylist{CollectionID: "col2"}); err == nil {
		t.Error("expected validation error for nameless playlist")
	}
}

func TestStoreGetReturnsDetachedCopy(t *testing.T) {
	s := New(newMemPersistence(), nil)

	playlist := testPlaylist("col1", "High Energy")
	playlist.Expected = []string{"a"}
	if err := s.Put(playlist); err != nil {
		t.Fatalf("failed to put playlist: %v", err)
	}

	got, _ := s.Get("col1")
	got.Expected[0] = "mutated"
	got.Name = "mutated"

	fresh, _ := s.Get("col1")
	if fresh.Expected[0] != "a" || fresh.Name != "High Energy" {
		t.Error("mutating a returned copy must not change the stored state")
	}
}

func TestStoreUpdate(t *testing.T) {
	t.Run("AppliesLatestState", func(t *testing.T) {
		s := New(newMemPersistence(), nil)

		if err := s.Put(testPlaylist("col1", "High Energy")); err != nil {
			t.Fatalf("failed to put playlist: %v", err)
		}

		if err := s.Update("col1", func(p *models.SmartPlaylist) {
			p.Expected = append(p.Expected, "a")
		}); err != nil {
			t.Fatalf("first update failed: %v", err)
		}

		if err := s.Update("col1", func(p *models.SmartPlaylist) {
			p.Expected = append(p.Expected, "b")
		}); err != nil {
			t.Fatalf("second update failed: %v", err)
		}

		got, _ := s.Get("col1")
		if len(got.Expected) != 2 {
			t.Errorf("expected both appends to survive, got %v", got.Expected)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		s := New(newMemPersistence(), nil)

		err := s.Update("absent", func(*models.SmartPlaylist) {})
		if !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("PersistsSnapshot", func(t *testing.T) {
		persist := newMemPersistence()
		s := New(persist, nil)

		if err := s.Put(testPlaylist("col1", "High Energy")); err != nil {
			t.Fatalf("failed to put playlist: %v", err)
		}

		if err := s.Update("col1", func(p *models.SmartPlaylist) {
			p.Name = "Renamed"
		}); err != nil {
			t.Fatalf("update failed: %v", err)
		}

		if !strings.Contains(persist.values[BlobKey], "Renamed") {
			t.Error("snapshot should contain the updated name")
		}
	})

	t.Run("ConcurrentAppendsAreNotLost", func(t *testing.T) {
		s := New(newMemPersistence(), nil)

		if err := s.Put(testPlaylist("col1", "High Energy")); err != nil {
			t.Fatalf("failed to put playlist: %v", err)
		}

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				_ = s.Update("col1", func(p *models.SmartPlaylist) {
					p.Expected = append(p.Expected, fmt.Sprintf("key%d", n))
				})
			}(i)
		}
		wg.Wait()

		got, _ := s.Get("col1")
		if len(got.Expected) != 50 {
			t.Errorf("expected 50 members, got %d", len(got.Expected))
		}
	})
}

func TestStoreSaveFailureTolerated(t *testing.T) {
	persist := newMemPersistence()
	persist.failing = true

	s := New(persist, nil)

	if err := s.Put(testPlaylist("col1", "High Energy")); err != nil {
		t.Fatalf("put should tolerate a failing save: %v", err)
	}

	if _, ok := s.Get("col1"); !ok {
		t.Error("in-memory state should update even when the save fails")
	}
}

func TestStoreRemove(t *testing.T) {
	s := New(newMemPersistence(), nil)

	if err := s.Put(testPlaylist("col1", "High Energy")); err != nil {
		t.Fatalf("failed to put playlist: %v", err)
	}

	if err := s.Remove("col1"); err != nil {
		t.Fatalf("failed to remove playlist: %v", err)
	}

	if _, ok := s.Get("col1"); ok {
		t.Error("removed playlist should be gone")
	}

	if err := s.Remove("col1"); !errors.Is(err, shared.ErrPlaylistNotFound) {
		t.Errorf("expected ErrPlaylistNotFound, got %v", err)
	}
}

func TestStoreReplace(t *testing.T) {
	s := New(newMemPersistence(), nil)

	if err := s.Put(testPlaylist("old", "Old")); err != nil {
		t.Fatalf("failed to put playlist: %v", err)
	}

	err := s.Replace([]models.SmartPlaylist{
		testPlaylist("col1", "One"),
		testPlaylist("col2", "Two"),
	})
	if err != nil {
		t.Fatalf("replace failed: %v", err)
	}

	if _, ok := s.Get("old"); ok {
		t.Error("replace should drop playlists absent from the new set")
	}

	if s.Len() != 2 {
		t.Errorf("expected 2 playlists, got %d", s.Len())
	}

	err = s.Replace([]models.SmartPlaylist{{CollectionID: "bad"}})
	if err == nil {
		t.Error("expected validation error for invalid replacement set")
	}

	if s.Len() != 2 {
		t.Error("failed replace should leave the store unchanged")
	}
}

func TestStoreRoundTrip(t *testing.T) {
	persist := newMemPersistence()

	s := New(persist, nil)
	playlist := testPlaylist("col1", "High Energy")
	playlist.Criteria.IncludeTags = []models.TagKey{{Category: "genre", Subcategory: "electronic", ID: "house"}}
	playlist.Expected = []string{"a", "b"}
	if err := s.Put(playlist); err != nil {
		t.Fatalf("failed to put playlist: %v", err)
	}

	reloaded := New(persist, nil)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	got, ok := reloaded.Get("col1")
	if !ok {
		t.Fatal("playlist should survive a reload")
	}

	if len(got.Criteria.IncludeTags) != 1 || len(got.Expected) != 2 {
		t.Errorf("reloaded playlist lost state: %+v", got)
	}
}

func TestStoreActive(t *testing.T) {
	s := New(newMemPersistence(), nil)

	active := testPlaylist("col1", "Active")
	paused := testPlaylist("col2", "Paused")
	paused.Active = false

	if err := s.Put(active); err != nil {
		t.Fatalf("failed to put playlist: %v", err)
	}
	if err := s.Put(paused); err != nil {
		t.Fatalf("failed to put playlist: %v", err)
	}

	got := s.Active()
	if len(got) != 1 || got[0].CollectionID != "col1" {
		t.Errorf("expected only the active playlist, got %d entries", len(got))
	}

	if len(s.Playlists()) != 2 {
		t.Error("Playlists should return every playlist")
	}
}
