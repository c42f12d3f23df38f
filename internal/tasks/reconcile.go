// package tasks: full reconciliation passes
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/machinemessiah/tagify-sub000/internal/metrics"
	"github.com/machinemessiah/tagify-sub000/internal/models"
	"github.com/machinemessiah/tagify-sub000/internal/shared"
)

// reconcileResult aggregates the counters for one reconciliation pass.
type reconcileResult struct {
	added        int  // Members added to the remote
	removed      int  // Members removed from the remote
	deduplicated int  // Surplus duplicate entries repaired
	failed       int  // Per-item remote calls that failed
	dataLoss     bool // A dedup re-add failed, an item may be gone
}

// EnqueueReconcile queues a full reconciliation for the playlist. The
// returned operation's Done channel reports the result. Only the id is
// captured: the pass reads the playlist's current state when it runs.
func (e *Engine) EnqueueReconcile(id string, progress chan<- ProgressUpdate) (*Operation, error) {
	p, ok := e.store.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}

	op := &Operation{
		Kind:  models.SyncKindFullReconcile,
		Label: fmt.Sprintf("reconcile %q", p.Name),
		Run: func(ctx context.Context) error {
			return e.reconcilePlaylist(ctx, id, progress)
		},
	}

	if err := e.queue.Enqueue(op); err != nil {
		return nil, err
	}
	return op, nil
}

// Reconcile queues a reconciliation and blocks until it finishes.
func (e *Engine) Reconcile(id string, progress chan<- ProgressUpdate) error {
	op, err := e.EnqueueReconcile(id, progress)
	if err != nil {
		return err
	}
	return <-op.Done()
}

// ReconcileAll queues one reconciliation per active playlist, in store
// order, and returns the queued operations.
func (e *Engine) ReconcileAll(progress chan<- ProgressUpdate) ([]*Operation, error) {
	active := e.store.Active()

	ops := make([]*Operation, 0, len(active))
	for _, p := range active {
		op, err := e.EnqueueReconcile(p.CollectionID, progress)
		if err != nil {
			return ops, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// reconcilePlaylist runs one pass for the playlist and records it in the
// audit trail.
func (e *Engine) reconcilePlaylist(ctx context.Context, id string, progress chan<- ProgressUpdate) error {
	p, ok := e.store.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}

	start := time.Now()
	defer func() {
		metrics.SyncOperationDuration.WithLabelValues(models.SyncKindFullReconcile).Observe(time.Since(start).Seconds())
	}()

	run := models.NewSyncRun(0, p.CollectionID, p.Name, models.SyncKindFullReconcile)
	if e.audit != nil {
		if err := e.audit.Create(run); err != nil {
			e.logger.Warn("failed to record sync run", "playlist", p.Name, "error", err)
		}
	}

	res, err := e.runReconcile(ctx, p, progress)

	run.SetAdded(res.added)
	run.SetRemoved(res.removed)
	run.SetDeduplicated(res.deduplicated)
	run.SetFailed(res.failed)
	run.SetDataLoss(res.dataLoss)
	now := time.Now()
	run.SetCompletedAt(&now)

	status := models.SyncStatusCompleted
	if err != nil {
		status = models.SyncStatusFailed
		run.SetErrorMessage(err.Error())
	}
	run.SetStatus(status)
	metrics.SyncOperationsTotal.WithLabelValues(models.SyncKindFullReconcile, status).Inc()

	if e.audit != nil && run.ID() != "" {
		if uerr := e.audit.Update(run); uerr != nil {
			e.logger.Warn("failed to finalize sync run", "playlist", p.Name, "error", uerr)
		}
	}

	return err
}

// runReconcile executes the phases of one pass. Counters accumulate in res
// even when the pass aborts, so the audit row reflects work already done.
func (e *Engine) runReconcile(ctx context.Context, p models.SmartPlaylist, progress chan<- ProgressUpdate) (reconcileResult, error) {
	var res reconcileResult

	if err := e.remoteReady(); err != nil {
		return res, err
	}

	// Read the authoritative membership.
	sendProgress(progress, fetchRemoteUpdate(p.Name))
	members, err := e.remote.ListMembers(ctx, p.CollectionID)
	if err != nil {
		return res, fmt.Errorf("%w: failed to fetch members of %q: %v", shared.ErrSyncAborted, p.Name, err)
	}

	// Repair duplicate entries before diffing.
	e.dedupMembers(ctx, p, members, &res, progress)

	// Re-read so the diff works from post-repair reality. Fail closed: a
	// stale member list here would corrupt the diff.
	sendProgress(progress, verifyUpdate(p.Name))
	members, err = e.remote.ListMembers(ctx, p.CollectionID)
	if err != nil {
		return res, fmt.Errorf("%w: failed to verify members of %q: %v", shared.ErrSyncAborted, p.Name, err)
	}

	// Evaluate the criteria against the local catalog. Local-only items
	// can match but never sync, so they stay out of the desired set.
	matching, err := e.Matches(p)
	if err != nil {
		return res, fmt.Errorf("%w: %v", shared.ErrSyncAborted, err)
	}

	desired := make([]string, 0, len(matching))
	for _, key := range matching {
		if models.IsLocalKey(key) {
			continue
		}
		desired = append(desired, key)
	}
	sendProgress(progress, evaluateUpdate(len(desired), p.Name))

	toAdd, toRemove := diffKeys(desired, members)
	sendProgress(progress, diffUpdate(len(toAdd), len(toRemove)))

	// Removals run before additions.
	for i, key := range toRemove {
		sendProgress(progress, removeMemberUpdate(i+1, len(toRemove), key))

		if _, err := e.remote.RemoveMember(ctx, key, p.CollectionID); err != nil {
			e.logger.Error("failed to remove member", "playlist", p.Name, "item", key, "error", err)
			res.failed++
			continue
		}

		res.removed++
		metrics.MembersRemovedTotal.Inc()
	}

	if len(toRemove) > 0 {
		e.settleRemote(ctx)
	}

	for i, key := range toAdd {
		sendProgress(progress, addMemberUpdate(i+1, len(toAdd), key))

		result, err := e.remote.AddMember(ctx, key, p.CollectionID)
		if err != nil {
			e.logger.Error("failed to add member", "playlist", p.Name, "item", key, "error", err)
			res.failed++
			continue
		}

		if result.WasAdded {
			res.added++
			metrics.MembersAddedTotal.Inc()
		}
	}

	// Commit the intent. Expected reflects the full desired set even when
	// individual calls failed; the next pass retries the gap.
	err = e.store.Update(p.CollectionID, func(sp *models.SmartPlaylist) {
		sp.Expected = append([]string(nil), desired...)
		sp.LastSyncAt = time.Now()
	})
	if err != nil {
		return res, fmt.Errorf("failed to commit expected membership: %w", err)
	}
	sendProgress(progress, commitUpdate(len(desired)))

	if res.added == 0 && res.removed == 0 && res.deduplicated == 0 {
		e.sendNotification(alreadyInSync(p))
	} else {
		e.sendNotification(syncSummary(p, res.added, res.removed, res.deduplicated))
	}

	return res, nil
}

// dedupMembers repairs every key appearing more than once: remove all
// occurrences, let the remote settle, then re-add a single one. A re-add
// failure after a successful removal means the item is gone from the
// collection; that is surfaced as data loss and never retried.
func (e *Engine) dedupMembers(ctx context.Context, p models.SmartPlaylist, members []string, res *reconcileResult, progress chan<- ProgressUpdate) {
	counts := make(map[string]int, len(members))
	for _, k := range members {
		counts[k]++
	}

	var dups []string
	seen := make(map[string]struct{})
	for _, k := range members {
		if counts[k] < 2 {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		dups = append(dups, k)
	}

	for i, key := range dups {
		sendProgress(progress, dedupUpdate(i+1, len(dups), key))

		if _, err := e.remote.RemoveMember(ctx, key, p.CollectionID); err != nil {
			e.logger.Error("failed to clear duplicate entries", "playlist", p.Name, "item", key, "error", err)
			res.failed++
			continue
		}

		e.settleRemote(ctx)

		if _, err := e.remote.AddMember(ctx, key, p.CollectionID); err != nil {
			e.logger.Error("item lost during duplicate repair", "playlist", p.Name, "item", key, "error", err)
			res.dataLoss = true
			res.failed++
			metrics.DataLossEventsTotal.Inc()
			e.sendNotification(dataLoss(p, key))
			continue
		}

		surplus := counts[key] - 1
		res.deduplicated += surplus
		metrics.DuplicatesRemovedTotal.Add(float64(surplus))
	}
}

// settleRemote waits out the settle delay, cutting short only when the
// context ends.
func (e *Engine) settleRemote(ctx context.Context) {
	if e.settle <= 0 {
		return
	}

	select {
	case <-time.After(e.settle):
	case <-ctx.Done():
	}
}
