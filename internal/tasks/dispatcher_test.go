package tasks

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/machinemessiah/tagify-sub000/internal/models"
	"github.com/machinemessiah/tagify-sub000/internal/shared"
)

func TestOnItemChangedAddsToMatchingPlaylists(t *testing.T) {
	house := testTag("house")
	techno := testTag("techno")

	remote := newFakeRemote()
	remote.collections["col-1"] = []string{}
	remote.collections["col-2"] = []string{}

	engine, _, audit := newTestEngine(t, remote)

	for _, p := range []models.SmartPlaylist{
		tagPlaylist("col-1", "House", house),
		tagPlaylist("col-2", "Techno", techno),
	} {
		if err := engine.store.Put(p); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}

	item := testItem("song1", house)
	op, err := engine.OnItemChanged("song1", &item)
	if err != nil {
		t.Fatalf("OnItemChanged() error = %v", err)
	}
	if err := <-op.Done(); err != nil {
		t.Fatalf("operation error = %v", err)
	}

	if got := remote.members("col-1"); !reflect.DeepEqual(got, []string{"song1"}) {
		t.Errorf("col-1 members = %v, want [song1]", got)
	}
	if got := remote.members("col-2"); len(got) != 0 {
		t.Errorf("col-2 members = %v, want none", got)
	}

	stored, _ := engine.store.Get("col-1")
	if !stored.Expects("song1") {
		t.Error("expectation not recorded for col-1")
	}

	run := audit.lastRun()
	if run == nil {
		t.Fatal("no sync run recorded")
	}
	if run.Kind() != models.SyncKindSingleItem {
		t.Errorf("kind = %q, want single_item", run.Kind())
	}
	if run.Added() != 1 {
		t.Errorf("Added() = %d, want 1", run.Added())
	}

	ns := drainNotifications(engine)
	if len(ns) != 1 || ns[0].Kind != NotifyItemAdded || ns[0].PlaylistID != "col-1" {
		t.Errorf("notifications = %+v, want one item_added for col-1", ns)
	}
}

func TestOnItemChangedRemovesWhenNoLongerMatching(t *testing.T) {
	house := testTag("house")

	remote := newFakeRemote()
	remote.collections["col-1"] = []string{"song1"}

	engine, _, audit := newTestEngine(t, remote)

	p := tagPlaylist("col-1", "House", house)
	p.Expected = []string{"song1"}
	if err := engine.store.Put(p); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	// The tag that qualified the item is gone.
	item := testItem("song1")
	op, err := engine.OnItemChanged("song1", &item)
	if err != nil {
		t.Fatalf("OnItemChanged() error = %v", err)
	}
	if err := <-op.Done(); err != nil {
		t.Fatalf("operation error = %v", err)
	}

	if got := remote.members("col-1"); len(got) != 0 {
		t.Errorf("col-1 members = %v, want none", got)
	}

	stored, _ := engine.store.Get("col-1")
	if stored.Expects("song1") {
		t.Error("expectation not dropped")
	}

	if run := audit.lastRun(); run.Removed() != 1 {
		t.Errorf("Removed() = %d, want 1", run.Removed())
	}

	ns := drainNotifications(engine)
	if len(ns) != 1 || ns[0].Kind != NotifyItemRemoved {
		t.Errorf("notifications = %v, want one item_removed", notificationKinds(ns))
	}
}

func TestOnItemChangedDeletionRemovesFromEveryMember(t *testing.T) {
	remote := newFakeRemote()
	remote.collections["col-1"] = []string{"song1", "other"}
	remote.collections["col-2"] = []string{"song1"}
	remote.collections["col-3"] = []string{}

	engine, _, _ := newTestEngine(t, remote)

	p1 := tagPlaylist("col-1", "One")
	p1.Expected = []string{"song1", "other"}
	p2 := tagPlaylist("col-2", "Two")
	p2.Expected = []string{"song1"}
	p3 := tagPlaylist("col-3", "Three")

	for _, p := range []models.SmartPlaylist{p1, p2, p3} {
		if err := engine.store.Put(p); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}

	op, err := engine.OnItemChanged("song1", nil)
	if err != nil {
		t.Fatalf("OnItemChanged() error = %v", err)
	}
	if err := <-op.Done(); err != nil {
		t.Fatalf("operation error = %v", err)
	}

	if got := remote.members("col-1"); !reflect.DeepEqual(got, []string{"other"}) {
		t.Errorf("col-1 members = %v, want [other]", got)
	}
	if got := remote.members("col-2"); len(got) != 0 {
		t.Errorf("col-2 members = %v, want none", got)
	}

	// Exactly one remove per member playlist, none for non-members.
	removes := 0
	for _, call := range remote.callLog() {
		if strings.HasPrefix(call, "remove ") {
			removes++
			if call != "remove song1 col-1" && call != "remove song1 col-2" {
				t.Errorf("unexpected remove call %q", call)
			}
		}
	}
	if removes != 2 {
		t.Errorf("remove calls = %d, want 2", removes)
	}

	kinds := notificationKinds(drainNotifications(engine))
	if !reflect.DeepEqual(kinds, []NotificationKind{NotifyItemRemoved, NotifyItemRemoved}) {
		t.Errorf("notification kinds = %v, want two item_removed", kinds)
	}
}

func TestOnItemChangedLocalOnlyNeedsManualAction(t *testing.T) {
	house := testTag("house")

	remote := newFakeRemote()
	remote.collections["col-1"] = []string{}

	engine, _, _ := newTestEngine(t, remote)

	if err := engine.store.Put(tagPlaylist("col-1", "House", house)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	item := testItem("local:rip1", house)
	op, err := engine.OnItemChanged("local:rip1", &item)
	if err != nil {
		t.Fatalf("OnItemChanged() error = %v", err)
	}
	if err := <-op.Done(); err != nil {
		t.Fatalf("operation error = %v", err)
	}

	for _, call := range remote.callLog() {
		if strings.HasPrefix(call, "add ") || strings.HasPrefix(call, "remove ") {
			t.Errorf("local-only item reached the remote: %q", call)
		}
	}

	stored, _ := engine.store.Get("col-1")
	if stored.Expects("local:rip1") {
		t.Error("expectation recorded for unsyncable item")
	}

	ns := drainNotifications(engine)
	if len(ns) != 1 || ns[0].Kind != NotifyManualAction {
		t.Fatalf("notifications = %v, want one manual_action", notificationKinds(ns))
	}
	if ns[0].ItemKey != "local:rip1" {
		t.Errorf("notification item = %q", ns[0].ItemKey)
	}
}

func TestOnItemChangedNoOpCases(t *testing.T) {
	house := testTag("house")

	tests := []struct {
		name     string
		expected []string
		item     func() *models.Item
	}{
		{
			name:     "matching member stays",
			expected: []string{"song1"},
			item: func() *models.Item {
				item := testItem("song1", house)
				return &item
			},
		},
		{
			name: "non-matching non-member ignored",
			item: func() *models.Item {
				item := testItem("song1")
				return &item
			},
		},
		{
			name: "deleted non-member ignored",
			item: func() *models.Item { return nil },
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			remote := newFakeRemote()
			remote.collections["col-1"] = append([]string(nil), tc.expected...)

			engine, _, audit := newTestEngine(t, remote)

			p := tagPlaylist("col-1", "House", house)
			p.Expected = tc.expected
			if err := engine.store.Put(p); err != nil {
				t.Fatalf("Put() error = %v", err)
			}

			op, err := engine.OnItemChanged("song1", tc.item())
			if err != nil {
				t.Fatalf("OnItemChanged() error = %v", err)
			}
			if err := <-op.Done(); err != nil {
				t.Fatalf("operation error = %v", err)
			}

			for _, call := range remote.callLog() {
				if strings.HasPrefix(call, "add ") || strings.HasPrefix(call, "remove ") {
					t.Errorf("no-op case touched the remote: %q", call)
				}
			}
			if n := audit.runCount(); n != 0 {
				t.Errorf("sync runs recorded = %d, want 0", n)
			}
			if ns := drainNotifications(engine); len(ns) != 0 {
				t.Errorf("notifications = %v, want none", notificationKinds(ns))
			}
		})
	}
}

func TestOnItemChangedReadsStateAtExecutionTime(t *testing.T) {
	house := testTag("house")

	remote := newFakeRemote()
	remote.collections["col-1"] = []string{}

	engine, _, _ := newTestEngine(t, remote)

	if err := engine.store.Put(tagPlaylist("col-1", "House", house)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	// Hold the drainer so the deactivation lands before the change runs.
	release := make(chan struct{})
	err := engine.Queue().Enqueue(&Operation{
		Label: "hold",
		Run: func(ctx context.Context) error {
			<-release
			return nil
		},
	})
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	item := testItem("song1", house)
	op, err := engine.OnItemChanged("song1", &item)
	if err != nil {
		t.Fatalf("OnItemChanged() error = %v", err)
	}

	// Deactivation bypasses the queue, so it wins the race against the
	// queued change.
	if err := engine.Deactivate("col-1"); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	close(release)

	if err := <-op.Done(); err != nil {
		t.Fatalf("operation error = %v", err)
	}

	for _, call := range remote.callLog() {
		if strings.HasPrefix(call, "add ") {
			t.Errorf("deactivated playlist received a change: %q", call)
		}
	}
}

func TestOnItemChangedContinuesPastPlaylistFailure(t *testing.T) {
	house := testTag("house")

	remote := newFakeRemote()
	// Alpha's collection does not exist remotely, so its add fails. Beta's
	// must still be processed.
	remote.collections["col-2"] = []string{}

	engine, _, audit := newTestEngine(t, remote)

	for _, p := range []models.SmartPlaylist{
		tagPlaylist("col-1", "Alpha", house),
		tagPlaylist("col-2", "Beta", house),
	} {
		if err := engine.store.Put(p); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}

	item := testItem("song1", house)
	op, err := engine.OnItemChanged("song1", &item)
	if err != nil {
		t.Fatalf("OnItemChanged() error = %v", err)
	}

	if err := <-op.Done(); !errors.Is(err, shared.ErrCollectionNotFound) {
		t.Errorf("operation error = %v, want the first playlist's failure", err)
	}

	if got := remote.members("col-2"); !reflect.DeepEqual(got, []string{"song1"}) {
		t.Errorf("col-2 members = %v, want [song1]: loop must continue past a failure", got)
	}

	stored, _ := engine.store.Get("col-1")
	if stored.Expects("song1") {
		t.Error("expectation recorded despite failed add")
	}

	if n := audit.runCount(); n != 2 {
		t.Errorf("sync runs recorded = %d, want 2", n)
	}
}

func TestOnItemsChangedBatch(t *testing.T) {
	house := testTag("house")

	remote := newFakeRemote()
	remote.collections["col-1"] = []string{}

	engine, _, _ := newTestEngine(t, remote)

	if err := engine.store.Put(tagPlaylist("col-1", "House", house)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	ops, err := engine.OnItemsChangedBatch([]models.Item{
		testItem("s1", house),
		testItem("s2", house),
	})
	if err != nil {
		t.Fatalf("OnItemsChangedBatch() error = %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("queued %d operations, want 2", len(ops))
	}

	engine.Queue().Wait()

	if got := remote.members("col-1"); !reflect.DeepEqual(got, []string{"s1", "s2"}) {
		t.Errorf("col-1 members = %v, want [s1 s2]", got)
	}
}

func TestOnItemChangedSnapshotIsDetached(t *testing.T) {
	house := testTag("house")

	remote := newFakeRemote()
	remote.collections["col-1"] = []string{}

	engine, _, _ := newTestEngine(t, remote)

	if err := engine.store.Put(tagPlaylist("col-1", "House", house)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	item := testItem("song1", house)
	op, err := engine.OnItemChanged("song1", &item)
	if err != nil {
		t.Fatalf("OnItemChanged() error = %v", err)
	}

	// Mutating the caller's copy after enqueue must not affect the op.
	item.Tags = nil

	if err := <-op.Done(); err != nil {
		t.Fatalf("operation error = %v", err)
	}

	if got := remote.members("col-1"); !reflect.DeepEqual(got, []string{"song1"}) {
		t.Errorf("col-1 members = %v, want [song1]", got)
	}
}

func TestOnItemChangedRequiresRemote(t *testing.T) {
	house := testTag("house")

	t.Run("active playlists", func(t *testing.T) {
		engine, _, _ := newTestEngine(t, nil)

		if err := engine.store.Put(tagPlaylist("col-1", "House", house)); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		item := testItem("song1", house)
		op, err := engine.OnItemChanged("song1", &item)
		if err != nil {
			t.Fatalf("OnItemChanged() error = %v", err)
		}
		if err := <-op.Done(); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("operation error = %v, want ErrServiceUnavailable", err)
		}
	})

	t.Run("no active playlists", func(t *testing.T) {
		engine, _, _ := newTestEngine(t, nil)

		item := testItem("song1", house)
		op, err := engine.OnItemChanged("song1", &item)
		if err != nil {
			t.Fatalf("OnItemChanged() error = %v", err)
		}
		if err := <-op.Done(); err != nil {
			t.Errorf("operation error = %v, want nil when there is nothing to sync", err)
		}
	})
}
