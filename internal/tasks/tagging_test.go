package tasks

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/machinemessiah/tagify-sub000/internal/models"
	"github.com/machinemessiah/tagify-sub000/internal/shared"
)

// fakeItems is an in-memory ItemWriter. GetByKey hands out detached copies
// the way a repository scan would, so a forgotten Update shows up as a
// failing assertion.
type fakeItems struct {
	mu    sync.Mutex
	seq   int
	byKey map[string]*models.PersistedItem
}

func newFakeItems() *fakeItems {
	return &fakeItems{byKey: make(map[string]*models.PersistedItem)}
}

func (f *fakeItems) GetByKey(key string) (*models.PersistedItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, ok := f.byKey[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrItemNotFound, key)
	}

	clone := models.NewPersistedItem(stored.Sequence(), stored.Item())
	clone.SetID(stored.ID())
	return clone, nil
}

func (f *fakeItems) Create(item *models.PersistedItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := item.Validate(); err != nil {
		return err
	}

	f.seq++
	item.SetID(fmt.Sprintf("item-%d", f.seq))

	stored := models.NewPersistedItem(item.Sequence(), item.Item())
	stored.SetID(item.ID())
	f.byKey[item.Key()] = stored
	return nil
}

func (f *fakeItems) Update(item *models.PersistedItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := item.Validate(); err != nil {
		return err
	}
	if _, ok := f.byKey[item.Key()]; !ok {
		return fmt.Errorf("%w: %s", shared.ErrItemNotFound, item.Key())
	}

	stored := models.NewPersistedItem(item.Sequence(), item.Item())
	stored.SetID(item.ID())
	f.byKey[item.Key()] = stored
	return nil
}

func (f *fakeItems) DeleteByKey(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.byKey[key]; !ok {
		return fmt.Errorf("%w: %s", shared.ErrItemNotFound, key)
	}
	delete(f.byKey, key)
	return nil
}

// seed stores items directly, bypassing the tagger.
func (f *fakeItems) seed(t *testing.T, items ...models.Item) {
	t.Helper()

	for _, item := range items {
		if err := f.Create(models.NewPersistedItem(0, item)); err != nil {
			t.Fatalf("seed %s: %v", item.Key, err)
		}
	}
}

func (f *fakeItems) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.byKey[key]
	return ok
}

// get fails the test when the item is missing.
func (f *fakeItems) get(t *testing.T, key string) models.Item {
	t.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()

	stored, ok := f.byKey[key]
	if !ok {
		t.Fatalf("item %s not stored", key)
	}
	return stored.Item()
}

// fakeTags records taxonomy registrations.
type fakeTags struct {
	mu         sync.Mutex
	seq        int
	registered []models.TagKey
	err        error
}

func (f *fakeTags) GetOrCreate(key models.TagKey) (*models.PersistedTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	f.seq++
	f.registered = append(f.registered, key)

	tag := models.NewPersistedTag(f.seq, key, "")
	tag.SetID(fmt.Sprintf("tag-%d", f.seq))
	return tag, nil
}

func (f *fakeTags) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.registered)
}

// newTestTagger wires a tagger over in-memory repositories. engine may be
// nil for purely local tests.
func newTestTagger(engine *Engine) (*Tagger, *fakeItems, *fakeTags) {
	items := newFakeItems()
	tags := &fakeTags{}
	return NewTagger(items, tags, engine, nil), items, tags
}

func intPtr(v int) *int { return &v }

func TestRate(t *testing.T) {
	t.Run("creates unknown item", func(t *testing.T) {
		tagger, items, _ := newTestTagger(nil)

		res, err := tagger.Rate("song1", 8)
		if err != nil {
			t.Fatalf("Rate() error = %v", err)
		}
		if !res.Created {
			t.Error("Created = false, want true")
		}

		if got := items.get(t, "song1").Rating; got != models.IntFrom(8) {
			t.Errorf("stored rating = %+v, want 8", got)
		}
	})

	t.Run("updates existing item", func(t *testing.T) {
		tagger, items, _ := newTestTagger(nil)
		items.seed(t, models.Item{Key: "song1", Rating: models.IntFrom(8)})

		res, err := tagger.Rate("song1", 5)
		if err != nil {
			t.Fatalf("Rate() error = %v", err)
		}
		if res.Created || res.Pruned {
			t.Errorf("result = %+v, want plain update", res)
		}

		if got := items.get(t, "song1").Rating; got != models.IntFrom(5) {
			t.Errorf("stored rating = %+v, want 5", got)
		}
	})

	t.Run("clearing the last value prunes", func(t *testing.T) {
		tagger, items, _ := newTestTagger(nil)
		items.seed(t, models.Item{Key: "song1", Rating: models.IntFrom(8)})

		res, err := tagger.Rate("song1", 0)
		if err != nil {
			t.Fatalf("Rate() error = %v", err)
		}
		if !res.Pruned {
			t.Error("Pruned = false, want true")
		}

		if items.has("song1") {
			t.Error("empty item kept in catalog")
		}
	})

	t.Run("clearing an unknown key stores nothing", func(t *testing.T) {
		tagger, items, _ := newTestTagger(nil)

		res, err := tagger.Rate("ghost", 0)
		if err != nil {
			t.Fatalf("Rate() error = %v", err)
		}
		if res.Created || res.Pruned {
			t.Errorf("result = %+v, want no-op", res)
		}

		if items.has("ghost") {
			t.Error("no-op edit created an item")
		}
	})

	t.Run("rejects out of range", func(t *testing.T) {
		tagger, items, _ := newTestTagger(nil)

		for _, rating := range []int{-1, 11} {
			if _, err := tagger.Rate("song1", rating); !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("Rate(%d) error = %v, want ErrInvalidInput", rating, err)
			}
		}
		if items.has("song1") {
			t.Error("rejected edit created an item")
		}
	})
}

func TestSetEnergyKeepsItemWithOtherData(t *testing.T) {
	tagger, items, _ := newTestTagger(nil)
	items.seed(t, models.Item{Key: "song1", Rating: models.IntFrom(7), Energy: models.IntFrom(3)})

	res, err := tagger.SetEnergy("song1", 0)
	if err != nil {
		t.Fatalf("SetEnergy() error = %v", err)
	}
	if res.Pruned {
		t.Error("item pruned while still rated")
	}

	stored := items.get(t, "song1")
	if stored.Energy.Valid {
		t.Errorf("energy = %+v, want unset", stored.Energy)
	}
	if stored.Rating != models.IntFrom(7) {
		t.Errorf("rating = %+v, want 7 untouched", stored.Rating)
	}
}

func TestSetTempo(t *testing.T) {
	t.Run("never creates an item", func(t *testing.T) {
		tagger, items, _ := newTestTagger(nil)

		if _, err := tagger.SetTempo("ghost", 128); !errors.Is(err, shared.ErrItemNotFound) {
			t.Errorf("SetTempo() error = %v, want ErrItemNotFound", err)
		}
		if items.has("ghost") {
			t.Error("tempo edit created an item")
		}
	})

	t.Run("stores tempo on a known item", func(t *testing.T) {
		tagger, items, _ := newTestTagger(nil)
		items.seed(t, models.Item{Key: "song1", Rating: models.IntFrom(5)})

		if _, err := tagger.SetTempo("song1", 128); err != nil {
			t.Fatalf("SetTempo() error = %v", err)
		}

		if got := items.get(t, "song1").Tempo; got != models.IntFrom(128) {
			t.Errorf("stored tempo = %+v, want 128", got)
		}
	})

	t.Run("does not keep an item alive", func(t *testing.T) {
		tagger, items, _ := newTestTagger(nil)
		items.seed(t, models.Item{Key: "song1", Rating: models.IntFrom(5), Tempo: models.IntFrom(128)})

		res, err := tagger.Rate("song1", 0)
		if err != nil {
			t.Fatalf("Rate() error = %v", err)
		}
		if !res.Pruned {
			t.Error("item with only tempo left was kept")
		}
		if items.has("song1") {
			t.Error("item still stored")
		}
	})

	t.Run("rejects negative tempo", func(t *testing.T) {
		tagger, _, _ := newTestTagger(nil)

		if _, err := tagger.SetTempo("song1", -10); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("SetTempo() error = %v, want ErrInvalidInput", err)
		}
	})
}

func TestToggleTag(t *testing.T) {
	house := testTag("house")

	t.Run("adds and registers on first use", func(t *testing.T) {
		tagger, items, tags := newTestTagger(nil)

		res, err := tagger.ToggleTag("song1", house)
		if err != nil {
			t.Fatalf("ToggleTag() error = %v", err)
		}
		if !res.Applied || !res.Created {
			t.Errorf("result = %+v, want applied on a new item", res)
		}

		if got := items.get(t, "song1").Tags; !reflect.DeepEqual(got, []models.TagKey{house}) {
			t.Errorf("stored tags = %v, want [%s]", got, house)
		}
		if tags.count() != 1 {
			t.Errorf("taxonomy registrations = %d, want 1", tags.count())
		}
	})

	t.Run("toggles off and prunes", func(t *testing.T) {
		tagger, items, tags := newTestTagger(nil)
		items.seed(t, models.Item{Key: "song1", Tags: []models.TagKey{house}})

		res, err := tagger.ToggleTag("song1", house)
		if err != nil {
			t.Fatalf("ToggleTag() error = %v", err)
		}
		if res.Applied {
			t.Error("Applied = true after removal")
		}
		if !res.Pruned {
			t.Error("Pruned = false, want true: the tag was the only data")
		}

		if items.has("song1") {
			t.Error("item still stored")
		}
		if tags.count() != 0 {
			t.Errorf("removal registered a taxonomy entry: %d", tags.count())
		}
	})

	t.Run("toggle off keeps a rated item", func(t *testing.T) {
		tagger, items, _ := newTestTagger(nil)
		items.seed(t, models.Item{Key: "song1", Rating: models.IntFrom(6), Tags: []models.TagKey{house}})

		res, err := tagger.ToggleTag("song1", house)
		if err != nil {
			t.Fatalf("ToggleTag() error = %v", err)
		}
		if res.Pruned {
			t.Error("rated item pruned")
		}

		if got := items.get(t, "song1").Tags; len(got) != 0 {
			t.Errorf("stored tags = %v, want none", got)
		}
	})

	t.Run("rejects incomplete key", func(t *testing.T) {
		tagger, _, _ := newTestTagger(nil)

		bad := models.TagKey{Category: "genre"}
		if _, err := tagger.ToggleTag("song1", bad); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("ToggleTag() error = %v, want ErrInvalidInput", err)
		}
	})

	t.Run("registration failure aborts the edit", func(t *testing.T) {
		tagger, items, tags := newTestTagger(nil)
		tags.err = errors.New("taxonomy down")

		if _, err := tagger.ToggleTag("song1", house); err == nil {
			t.Fatal("ToggleTag() error = nil, want registration failure")
		}
		if items.has("song1") {
			t.Error("item stored despite failed registration")
		}
	})
}

func TestTaggerDispatchesToEngine(t *testing.T) {
	house := testTag("house")

	remote := newFakeRemote()
	remote.collections["col-1"] = []string{}

	engine, _, _ := newTestEngine(t, remote)
	if err := engine.store.Put(tagPlaylist("col-1", "House", house)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	items := newFakeItems()
	tags := &fakeTags{}
	tagger := NewTagger(items, tags, engine, nil)

	if _, err := tagger.ToggleTag("song1", house); err != nil {
		t.Fatalf("ToggleTag() error = %v", err)
	}
	engine.Queue().Wait()

	if got := remote.members("col-1"); !reflect.DeepEqual(got, []string{"song1"}) {
		t.Errorf("members after tagging = %v, want [song1]", got)
	}

	// Toggling off prunes the item; the deletion must flow through too.
	if _, err := tagger.ToggleTag("song1", house); err != nil {
		t.Fatalf("ToggleTag() error = %v", err)
	}
	engine.Queue().Wait()

	if got := remote.members("col-1"); len(got) != 0 {
		t.Errorf("members after untagging = %v, want none", got)
	}
}

func TestTaggerWithoutEngine(t *testing.T) {
	tagger, items, _ := newTestTagger(nil)

	if _, err := tagger.Rate("song1", 9); err != nil {
		t.Fatalf("Rate() error = %v", err)
	}
	if !items.has("song1") {
		t.Error("edit not stored")
	}
}

func TestApplyBatch(t *testing.T) {
	house := testTag("house")

	t.Run("counts outcomes", func(t *testing.T) {
		tagger, items, _ := newTestTagger(nil)
		items.seed(t, models.Item{Key: "d", Rating: models.IntFrom(4)})

		res, err := tagger.ApplyBatch([]BatchEdit{
			{Key: "a", Rating: intPtr(8), AddTags: []models.TagKey{house}},
			{Key: "b", Tempo: intPtr(120)},
			{Key: "c", Rating: intPtr(12)},
			{Key: "d", Rating: intPtr(0)},
		})
		if err != nil {
			t.Fatalf("ApplyBatch() error = %v", err)
		}

		want := BatchResult{Edited: 1, Pruned: 1, Skipped: 1, Failed: 1}
		if *res != want {
			t.Errorf("result = %+v, want %+v", *res, want)
		}

		if !items.has("a") {
			t.Error("edited item not stored")
		}
		if items.has("b") {
			t.Error("tempo-only edit created an item")
		}
		if items.has("d") {
			t.Error("cleared item still stored")
		}
	})

	t.Run("remove tags", func(t *testing.T) {
		tagger, items, _ := newTestTagger(nil)
		items.seed(t, models.Item{Key: "a", Tags: []models.TagKey{house}})

		res, err := tagger.ApplyBatch([]BatchEdit{
			{Key: "a", RemoveTags: []models.TagKey{house}},
		})
		if err != nil {
			t.Fatalf("ApplyBatch() error = %v", err)
		}
		if res.Pruned != 1 {
			t.Errorf("Pruned = %d, want 1", res.Pruned)
		}
		if items.has("a") {
			t.Error("untagged item still stored")
		}
	})

	t.Run("dispatches surviving items as one batch", func(t *testing.T) {
		remote := newFakeRemote()
		remote.collections["col-1"] = []string{}

		engine, _, _ := newTestEngine(t, remote)
		if err := engine.store.Put(tagPlaylist("col-1", "House", house)); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		items := newFakeItems()
		tagger := NewTagger(items, &fakeTags{}, engine, nil)

		_, err := tagger.ApplyBatch([]BatchEdit{
			{Key: "a1", AddTags: []models.TagKey{house}},
			{Key: "a2", AddTags: []models.TagKey{house}},
		})
		if err != nil {
			t.Fatalf("ApplyBatch() error = %v", err)
		}
		engine.Queue().Wait()

		if got := remote.members("col-1"); !reflect.DeepEqual(got, []string{"a1", "a2"}) {
			t.Errorf("members = %v, want [a1 a2]", got)
		}
	})
}

// fakeCache records cached metadata.
type fakeCache struct {
	mu     sync.Mutex
	tracks []models.Track
	err    error
}

func (f *fakeCache) Cache(track models.Track) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.tracks = append(f.tracks, track)
	return nil
}

func (f *fakeCache) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.tracks)
}

func TestEnrich(t *testing.T) {
	newFixture := func(t *testing.T) (*Tagger, *fakeItems, *fakeRemote, *fakeCatalog) {
		t.Helper()

		remote := newFakeRemote()
		remote.tracks["s1"] = models.Track{ID: "s1", Title: "One", Artist: "X"}
		remote.tracks["s2"] = models.Track{ID: "s2", Title: "Two", Artist: "Y"}
		remote.tempos["s1"] = 128

		catalog := &fakeCatalog{items: []models.Item{
			{Key: "s1", Rating: models.IntFrom(7)},
			{Key: "s2", Rating: models.IntFrom(6)},
			{Key: "local:x", Rating: models.IntFrom(5)},
		}}

		tagger, items, _ := newTestTagger(nil)
		items.seed(t,
			models.Item{Key: "s1", Rating: models.IntFrom(7)},
			models.Item{Key: "s2", Rating: models.IntFrom(6)},
		)

		return tagger, items, remote, catalog
	}

	t.Run("caches metadata and stores tempo", func(t *testing.T) {
		tagger, items, remote, catalog := newFixture(t)
		cache := &fakeCache{}
		prog := make(chan ProgressUpdate, 16)

		res, err := tagger.Enrich(context.Background(), remote, catalog, cache, prog, EnrichOpts{})
		if err != nil {
			t.Fatalf("Enrich() error = %v", err)
		}

		if res.Total != 2 || res.LocalOnly != 1 || res.Failed != 0 {
			t.Errorf("result = %+v, want Total 2, LocalOnly 1, Failed 0", *res)
		}
		if res.Cached != 2 {
			t.Errorf("Cached = %d, want 2", res.Cached)
		}
		if cache.count() != 2 {
			t.Errorf("cache writes = %d, want 2", cache.count())
		}

		// Only s1 has a remote tempo; s2 stays untouched.
		if res.TempoSet != 1 {
			t.Errorf("TempoSet = %d, want 1", res.TempoSet)
		}
		if got := items.get(t, "s1").Tempo; got != models.IntFrom(128) {
			t.Errorf("s1 tempo = %+v, want 128", got)
		}
		if got := items.get(t, "s2").Tempo; got.Valid {
			t.Errorf("s2 tempo = %+v, want unset", got)
		}

		close(prog)
		steps := 0
		for update := range prog {
			if update.Phase != EnrichItems {
				t.Errorf("phase = %v, want enrich_items", update.Phase)
			}
			steps++
		}
		if steps != 2 {
			t.Errorf("progress updates = %d, want 2", steps)
		}
	})

	t.Run("skip tempo", func(t *testing.T) {
		tagger, items, remote, catalog := newFixture(t)
		cache := &fakeCache{}

		res, err := tagger.Enrich(context.Background(), remote, catalog, cache, nil, EnrichOpts{SkipTempo: true})
		if err != nil {
			t.Fatalf("Enrich() error = %v", err)
		}

		if res.TempoSet != 0 {
			t.Errorf("TempoSet = %d, want 0", res.TempoSet)
		}
		if res.Cached != 2 {
			t.Errorf("Cached = %d, want 2", res.Cached)
		}
		if got := items.get(t, "s1").Tempo; got.Valid {
			t.Errorf("s1 tempo = %+v, want unset", got)
		}
	})

	t.Run("key filter restricts the run", func(t *testing.T) {
		tagger, _, remote, catalog := newFixture(t)
		cache := &fakeCache{}

		res, err := tagger.Enrich(context.Background(), remote, catalog, cache, nil, EnrichOpts{Keys: []string{"s1"}})
		if err != nil {
			t.Fatalf("Enrich() error = %v", err)
		}

		if res.Total != 1 || res.Cached != 1 {
			t.Errorf("result = %+v, want Total 1, Cached 1", *res)
		}
	})

	t.Run("fetch failure is counted not fatal", func(t *testing.T) {
		tagger, items, remote, catalog := newFixture(t)
		catalog.set(
			models.Item{Key: "s1", Rating: models.IntFrom(7)},
			models.Item{Key: "s2", Rating: models.IntFrom(6)},
			models.Item{Key: "s3", Rating: models.IntFrom(5)},
		)
		items.seed(t, models.Item{Key: "s3", Rating: models.IntFrom(5)})
		cache := &fakeCache{}

		res, err := tagger.Enrich(context.Background(), remote, catalog, cache, nil, EnrichOpts{})
		if err != nil {
			t.Fatalf("Enrich() error = %v", err)
		}

		if res.Total != 3 || res.Failed != 1 || res.Cached != 2 {
			t.Errorf("result = %+v, want Total 3, Failed 1, Cached 2", *res)
		}
	})

	t.Run("dispatches tempo changes", func(t *testing.T) {
		house := testTag("house")

		remote := newFakeRemote()
		remote.collections["col-1"] = []string{}
		remote.tracks["s1"] = models.Track{ID: "s1", Title: "One", Artist: "X"}
		remote.tempos["s1"] = 128

		engine, catalog, _ := newTestEngine(t, remote)
		if err := engine.store.Put(tagPlaylist("col-1", "House", house)); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		items := newFakeItems()
		items.seed(t, models.Item{Key: "s1", Tags: []models.TagKey{house}})
		catalog.set(models.Item{Key: "s1", Tags: []models.TagKey{house}})

		tagger := NewTagger(items, &fakeTags{}, engine, nil)

		res, err := tagger.Enrich(context.Background(), remote, catalog, nil, nil, EnrichOpts{})
		if err != nil {
			t.Fatalf("Enrich() error = %v", err)
		}
		if res.TempoSet != 1 {
			t.Fatalf("TempoSet = %d, want 1", res.TempoSet)
		}

		engine.Queue().Wait()

		if got := remote.members("col-1"); !reflect.DeepEqual(got, []string{"s1"}) {
			t.Errorf("members = %v, want [s1]", got)
		}
	})

	t.Run("requires a service", func(t *testing.T) {
		tagger, _, _, catalog := newFixture(t)

		if _, err := tagger.Enrich(context.Background(), nil, catalog, nil, nil, EnrichOpts{}); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("Enrich() error = %v, want ErrServiceUnavailable", err)
		}
	})

	t.Run("cancelled context stops the run", func(t *testing.T) {
		tagger, _, remote, catalog := newFixture(t)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		res, err := tagger.Enrich(ctx, remote, catalog, &fakeCache{}, nil, EnrichOpts{})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Enrich() error = %v, want context.Canceled", err)
		}
		if res.Cached != 0 {
			t.Errorf("Cached = %d, want 0 after cancellation", res.Cached)
		}
	})
}
