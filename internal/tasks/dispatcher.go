// package tasks: incremental single-item sync
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/machinemessiah/tagify-sub000/internal/metrics"
	"github.com/machinemessiah/tagify-sub000/internal/models"
)

// OnItemChanged queues a single-item sync reacting to one catalog edit.
// item is nil when the item was deleted. The snapshot is cloned, so later
// edits by the caller cannot leak into the queued work; the active playlist
// set is read when the operation runs, not now.
func (e *Engine) OnItemChanged(key string, item *models.Item) (*Operation, error) {
	var snapshot *models.Item
	if item != nil {
		clone := item.Clone()
		snapshot = &clone
	}

	op := &Operation{
		Kind:  models.SyncKindSingleItem,
		Label: fmt.Sprintf("item change %s", key),
		Run: func(ctx context.Context) error {
			return e.applyItemChange(ctx, key, snapshot)
		},
	}

	if err := e.queue.Enqueue(op); err != nil {
		return nil, err
	}
	return op, nil
}

// OnItemsChangedBatch queues one single-item sync per edited item, in input
// order.
func (e *Engine) OnItemsChangedBatch(items []models.Item) ([]*Operation, error) {
	ops := make([]*Operation, 0, len(items))
	for i := range items {
		op, err := e.OnItemChanged(items[i].Key, &items[i])
		if err != nil {
			return ops, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// applyItemChange fans one item edit out across every active playlist.
// Per-playlist failures are logged and counted but do not stop the loop;
// the next full reconciliation repairs any drift they leave.
func (e *Engine) applyItemChange(ctx context.Context, key string, item *models.Item) error {
	active := e.store.Active()
	if len(active) == 0 {
		return nil
	}

	if err := e.remoteReady(); err != nil {
		return err
	}

	start := time.Now()
	defer func() {
		metrics.SyncOperationDuration.WithLabelValues(models.SyncKindSingleItem).Observe(time.Since(start).Seconds())
	}()

	var firstErr error
	for _, p := range active {
		if err := e.applyToPlaylist(ctx, p, key, item); err != nil {
			e.logger.Error("failed to apply item change", "playlist", p.Name, "item", key, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	status := models.SyncStatusCompleted
	if firstErr != nil {
		status = models.SyncStatusFailed
	}
	metrics.SyncOperationsTotal.WithLabelValues(models.SyncKindSingleItem, status).Inc()

	return firstErr
}

// applyToPlaylist decides and applies the change for a single playlist,
// consulting its current expected membership.
func (e *Engine) applyToPlaylist(ctx context.Context, p models.SmartPlaylist, key string, item *models.Item) error {
	member := p.Expects(key)

	if item == nil {
		if member {
			return e.removeFromPlaylist(ctx, p, key)
		}
		return nil
	}

	match := p.Criteria.Matches(*item)
	switch {
	case match && !member:
		if item.LocalOnly() {
			// The remote cannot resolve local-only keys; the user has
			// to add the item by hand.
			e.sendNotification(manualAction(p, key))
			return nil
		}
		return e.addToPlaylist(ctx, p, key)
	case !match && member:
		return e.removeFromPlaylist(ctx, p, key)
	default:
		return nil
	}
}

// addToPlaylist adds the item to the remote and records the expectation.
func (e *Engine) addToPlaylist(ctx context.Context, p models.SmartPlaylist, key string) error {
	result, err := e.remote.AddMember(ctx, key, p.CollectionID)
	added := 0
	if err == nil && result.WasAdded {
		added = 1
	}
	e.recordItemRun(p, added, 0, err)
	if err != nil {
		return fmt.Errorf("failed to add %s to %q: %w", key, p.Name, err)
	}

	if err := e.store.Update(p.CollectionID, func(sp *models.SmartPlaylist) {
		if !sp.Expects(key) {
			sp.Expected = append(sp.Expected, key)
		}
	}); err != nil {
		return err
	}

	if result.WasAdded {
		metrics.MembersAddedTotal.Inc()
		e.sendNotification(itemAdded(p, key))
	}
	return nil
}

// removeFromPlaylist removes the item from the remote and drops it from the
// expected membership.
func (e *Engine) removeFromPlaylist(ctx context.Context, p models.SmartPlaylist, key string) error {
	_, err := e.remote.RemoveMember(ctx, key, p.CollectionID)
	removed := 0
	if err == nil {
		removed = 1
	}
	e.recordItemRun(p, 0, removed, err)
	if err != nil {
		return fmt.Errorf("failed to remove %s from %q: %w", key, p.Name, err)
	}

	if err := e.store.Update(p.CollectionID, func(sp *models.SmartPlaylist) {
		kept := sp.Expected[:0]
		for _, k := range sp.Expected {
			if k != key {
				kept = append(kept, k)
			}
		}
		sp.Expected = kept
	}); err != nil {
		return err
	}

	metrics.MembersRemovedTotal.Inc()
	e.sendNotification(itemRemoved(p, key))
	return nil
}

// recordItemRun writes one audit row for a single-item remote mutation.
// Audit problems are logged, never propagated.
func (e *Engine) recordItemRun(p models.SmartPlaylist, added, removed int, opErr error) {
	if e.audit == nil {
		return
	}

	run := models.NewSyncRun(0, p.CollectionID, p.Name, models.SyncKindSingleItem)
	run.SetAdded(added)
	run.SetRemoved(removed)

	now := time.Now()
	run.SetCompletedAt(&now)

	if opErr != nil {
		run.SetStatus(models.SyncStatusFailed)
		run.SetErrorMessage(opErr.Error())
		run.SetFailed(1)
	} else {
		run.SetStatus(models.SyncStatusCompleted)
	}

	if err := e.audit.Create(run); err != nil {
		e.logger.Warn("failed to record sync run", "playlist", p.Name, "error", err)
	}
}
