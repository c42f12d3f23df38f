// package tasks: user-facing notification constructors
package tasks

import (
	"fmt"

	"github.com/machinemessiah/tagify-sub000/internal/models"
)

// NotificationKind classifies a notification for consumers that want to
// filter or style them.
type NotificationKind int

const (
	NotifySyncSummary NotificationKind = iota
	NotifyAlreadyInSync
	NotifyItemAdded
	NotifyItemRemoved
	NotifyManualAction
	NotifyDataLoss
	NotifyPlaylistCreated
)

// String returns a short identifier for the kind.
func (k NotificationKind) String() string {
	switch k {
	case NotifySyncSummary:
		return "sync_summary"
	case NotifyAlreadyInSync:
		return "already_in_sync"
	case NotifyItemAdded:
		return "item_added"
	case NotifyItemRemoved:
		return "item_removed"
	case NotifyManualAction:
		return "manual_action"
	case NotifyDataLoss:
		return "data_loss"
	case NotifyPlaylistCreated:
		return "playlist_created"
	default:
		return "unknown"
	}
}

// Notification is one user-facing message emitted on the engine's
// notification channel.
type Notification struct {
	Kind         NotificationKind // What happened
	PlaylistID   string           // Collection the message is about
	PlaylistName string           // Display name of the playlist
	ItemKey      string           // Item involved, when the message is about one
	Message      string           // Ready-to-display text
	Added        int              // Members added (sync summaries only)
	Removed      int              // Members removed (sync summaries only)
	Deduplicated int              // Duplicates repaired (sync summaries only)
}

// syncSummary builds the single consolidated notification for a
// reconciliation that changed the remote.
func syncSummary(p models.SmartPlaylist, added, removed, deduplicated int) Notification {
	return Notification{
		Kind:         NotifySyncSummary,
		PlaylistID:   p.CollectionID,
		PlaylistName: p.Name,
		Message: fmt.Sprintf("%s: %d added, %d removed, %d duplicates repaired",
			p.Name, added, removed, deduplicated),
		Added:        added,
		Removed:      removed,
		Deduplicated: deduplicated,
	}
}

// alreadyInSync builds the notification for a reconciliation that found
// nothing to do.
func alreadyInSync(p models.SmartPlaylist) Notification {
	return Notification{
		Kind:         NotifyAlreadyInSync,
		PlaylistID:   p.CollectionID,
		PlaylistName: p.Name,
		Message:      fmt.Sprintf("%s is already in sync", p.Name),
	}
}

// itemAdded reports a single item joining a playlist outside a full pass.
func itemAdded(p models.SmartPlaylist, key string) Notification {
	return Notification{
		Kind:         NotifyItemAdded,
		PlaylistID:   p.CollectionID,
		PlaylistName: p.Name,
		ItemKey:      key,
		Message:      fmt.Sprintf("added %s to %s", key, p.Name),
	}
}

// itemRemoved reports a single item leaving a playlist outside a full pass.
func itemRemoved(p models.SmartPlaylist, key string) Notification {
	return Notification{
		Kind:         NotifyItemRemoved,
		PlaylistID:   p.CollectionID,
		PlaylistName: p.Name,
		ItemKey:      key,
		Message:      fmt.Sprintf("removed %s from %s", key, p.Name),
	}
}

// manualAction reports a local-only item that now matches a playlist. The
// engine cannot add it to the remote; the user has to.
func manualAction(p models.SmartPlaylist, key string) Notification {
	return Notification{
		Kind:         NotifyManualAction,
		PlaylistID:   p.CollectionID,
		PlaylistName: p.Name,
		ItemKey:      key,
		Message:      fmt.Sprintf("%s matches %s but only exists locally, add it manually", key, p.Name),
	}
}

// dataLoss reports a duplicate repair that removed an item and failed to put
// it back.
func dataLoss(p models.SmartPlaylist, key string) Notification {
	return Notification{
		Kind:         NotifyDataLoss,
		PlaylistID:   p.CollectionID,
		PlaylistName: p.Name,
		ItemKey:      key,
		Message:      fmt.Sprintf("failed to restore %s after duplicate repair on %s, re-add it manually", key, p.Name),
	}
}

// playlistCreated reports a new remote collection bound to a criteria.
func playlistCreated(p models.SmartPlaylist) Notification {
	return Notification{
		Kind:         NotifyPlaylistCreated,
		PlaylistID:   p.CollectionID,
		PlaylistName: p.Name,
		Message:      fmt.Sprintf("created playlist %s", p.Name),
	}
}
