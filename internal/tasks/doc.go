// Package tasks keeps remote playlist membership in step with the local
// catalog's criteria matches.
//
// # Core Operations
//
// The [Engine] exposes the sync surface:
//
//  1. [Engine.OnItemChanged] / [Engine.OnItemsChangedBatch] : incremental sync
//     - Reacts to one catalog edit (or a batch) without a full pass
//     - Fans out across active playlists, adding or removing the one item
//     - Local-only items surface a "manual action needed" notification
//
//  2. [Engine.EnqueueReconcile] / [Engine.ReconcileAll] : full reconciliation
//     - Fetches remote membership, repairs duplicate entries, re-verifies
//     - Diffs the criteria's desired set against the remote, removals first
//     - Commits expected membership and emits one consolidated notification
//
//  3. [Engine.CreatePlaylist], [Engine.Activate], [Engine.PruneOrphans] :
//     playlist lifecycle, each keeping the local registry and the remote
//     provider consistent
//
// # Serialization
//
// Every remote mutation flows through [Queue], a strict FIFO drained by one
// goroutine at a time. Operations read store state when they run, not when
// they are enqueued, so each sees the changes of everything queued before
// it. A dequeued operation always runs to completion; failures land on the
// operation's done channel and in the log, never in the drainer.
//
// # Progress And Notifications
//
// Reconciliations report [ProgressUpdate] values on a caller-supplied
// channel; user-facing outcomes arrive as [Notification] values on the
// engine's own channel. Both use select with default so a slow consumer
// drops messages instead of stalling a sync.
//
// # Tagging
//
// [Tagger] is the write path into the catalog: ratings, energy, tempo and
// tag toggles. Every edit prunes items left without user-authored data and
// hands the change event to the dispatcher.
package tasks
