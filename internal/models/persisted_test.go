package models

import (
	"testing"
	"time"
)

func TestNewPersistedItem(t *testing.T) {
	item := NewPersistedItem(1, Item{Key: "item1", Rating: IntFrom(4)})

	if item.CreatedAt().IsZero() || item.UpdatedAt().IsZero() {
		t.Error("timestamps should be stamped on construction")
	}

	if err := item.Validate(); err != nil {
		t.Errorf("valid item failed validation: %v", err)
	}

	preset := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	existing := NewPersistedItem(2, Item{Key: "item2", CreatedAt: preset, UpdatedAt: preset})
	if !existing.CreatedAt().Equal(preset) {
		t.Error("existing timestamps should be preserved")
	}
}

func TestPersistedItemValidate(t *testing.T) {
	tc := []struct {
		name    string
		item    Item
		wantErr bool
	}{
		{name: "valid", item: Item{Key: "item1", Rating: IntFrom(5), Energy: IntFrom(10)}},
		{name: "missing key", item: Item{}, wantErr: true},
		{name: "rating too high", item: Item{Key: "item1", Rating: IntFrom(11)}, wantErr: true},
		{name: "energy too high", item: Item{Key: "item1", Energy: IntFrom(11)}, wantErr: true},
		{name: "negative tempo", item: Item{Key: "item1", Tempo: NullInt{Value: -10, Valid: true}}, wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			err := NewPersistedItem(0, tt.item).Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewPersistedTag(t *testing.T) {
	tag := NewPersistedTag(1, houseTag, "")
	if tag.Label() != "house" {
		t.Errorf("empty label should default to the leaf id, got %q", tag.Label())
	}

	labeled := NewPersistedTag(2, houseTag, "House")
	if labeled.Label() != "House" {
		t.Errorf("label = %q, want House", labeled.Label())
	}

	if err := labeled.Validate(); err != nil {
		t.Errorf("valid tag failed validation: %v", err)
	}

	incomplete := NewPersistedTag(3, TagKey{Category: "genre"}, "x")
	if err := incomplete.Validate(); err == nil {
		t.Error("incomplete key should fail validation")
	}
}

func TestNewSyncRun(t *testing.T) {
	run := NewSyncRun(1, "col1", "High Energy", SyncKindFullReconcile)

	if run.Status() != SyncStatusRunning {
		t.Errorf("status = %q, want %q", run.Status(), SyncStatusRunning)
	}

	if run.StartedAt() == nil {
		t.Error("started timestamp should be stamped on construction")
	}

	if err := run.Validate(); err != nil {
		t.Errorf("valid run failed validation: %v", err)
	}
}

func TestSyncRunValidate(t *testing.T) {
	tc := []struct {
		name    string
		mutate  func(*SyncRun)
		wantErr bool
	}{
		{name: "valid", mutate: func(*SyncRun) {}},
		{name: "completed", mutate: func(r *SyncRun) { r.SetStatus(SyncStatusCompleted) }},
		{name: "unknown status", mutate: func(r *SyncRun) { r.SetStatus("paused") }, wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			run := NewSyncRun(1, "col1", "High Energy", SyncKindSingleItem)
			tt.mutate(run)

			err := run.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	noPlaylist := &SyncRun{kind: SyncKindSingleItem, status: SyncStatusRunning}
	if err := noPlaylist.Validate(); err == nil {
		t.Error("missing playlist id should fail validation")
	}

	badKind := NewSyncRun(1, "col1", "High Energy", "partial")
	if err := badKind.Validate(); err == nil {
		t.Error("unknown kind should fail validation")
	}
}
