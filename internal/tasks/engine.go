// package tasks implements the smart playlist sync engine.
//
// The core abstraction is Engine, which evaluates playlist criteria against
// the local catalog and keeps remote collection membership in step with the
// results. Every remote mutation flows through a FIFO operation queue, so
// concurrent triggers (tag edits, manual syncs, activation) never interleave
// their remote calls. Operations emit progress updates via channels for
// non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/machinemessiah/tagify-sub000/internal/models"
	"github.com/machinemessiah/tagify-sub000/internal/services"
	"github.com/machinemessiah/tagify-sub000/internal/shared"
	"github.com/machinemessiah/tagify-sub000/internal/store"
)

// CatalogReader is the slice of the item repository the engine reads: the
// full local catalog as evaluation DTOs.
type CatalogReader interface {
	Items() ([]models.Item, error)
}

// SyncLogWriter records sync runs in the audit trail.
type SyncLogWriter interface {
	Create(run *models.SyncRun) error
	Update(run *models.SyncRun) error
}

// PreviewResult describes what a reconciliation would change, computed
// against the engine's expected membership without touching the remote.
type PreviewResult struct {
	Playlist  models.SmartPlaylist // Playlist the preview is for
	Matching  []string             // Catalog keys matching the criteria
	LocalOnly []string             // Matching keys that cannot be synced
	ToAdd     []string             // Keys a sync would add
	ToRemove  []string             // Keys a sync would remove
}

// InSync reports whether a reconciliation would be a no-op.
func (r *PreviewResult) InSync() bool {
	return len(r.ToAdd) == 0 && len(r.ToRemove) == 0
}

// Engine orchestrates playlist synchronization. Construct one per process
// with NewEngine; it owns the operation queue and the notification channel.
type Engine struct {
	store   *store.Store
	catalog CatalogReader
	remote  services.Service
	audit   SyncLogWriter
	queue   *Queue
	logger  *log.Logger
	settle  time.Duration
	notify  chan Notification
}

// NewEngine wires an engine around the playlist store and the local catalog.
// The remote service may be nil until SetRemote installs one (commands
// authenticate first); any operation that needs the network fails until then.
func NewEngine(st *store.Store, catalog CatalogReader, remote services.Service, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}

	return &Engine{
		store:   st,
		catalog: catalog,
		remote:  remote,
		queue:   NewQueue(logger),
		logger:  logger,
		notify:  make(chan Notification, 16),
	}
}

// SetRemote installs the remote collection service.
func (e *Engine) SetRemote(svc services.Service) {
	e.remote = svc
}

// SetAudit installs the sync run recorder. Without one the engine still
// syncs, it just leaves no audit trail.
func (e *Engine) SetAudit(w SyncLogWriter) {
	e.audit = w
}

// SetSettleDelay sets the pause inserted after destructive remote phases.
func (e *Engine) SetSettleDelay(d time.Duration) {
	e.settle = d
}

// Notifications returns the engine's notification stream. Messages are
// dropped, not queued, when the consumer falls behind.
func (e *Engine) Notifications() <-chan Notification {
	return e.notify
}

// Queue exposes the operation queue for callers that need to Wait.
func (e *Engine) Queue() *Queue {
	return e.queue
}

// Close drains the queue and closes the notification channel.
func (e *Engine) Close() {
	e.queue.Close()
	close(e.notify)
}

// remoteReady guards operations that touch the network.
func (e *Engine) remoteReady() error {
	if e.remote == nil {
		return fmt.Errorf("%w: remote service not initialized", shared.ErrServiceUnavailable)
	}
	return nil
}

// sendNotification logs and delivers a notification without blocking. A slow
// or absent consumer drops messages rather than stalling the sync.
func (e *Engine) sendNotification(n Notification) {
	e.logger.Info("notification", "kind", n.Kind.String(), "message", n.Message)
	select {
	case e.notify <- n:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

// Evaluate reports whether a single item satisfies the criteria. Thin
// wrapper used by UI layers previewing criteria edits.
func (e *Engine) Evaluate(item models.Item, criteria models.Criteria) bool {
	return criteria.Matches(item)
}

// Matches evaluates the playlist's criteria against the local catalog and
// returns the matching item keys in catalog order.
func (e *Engine) Matches(p models.SmartPlaylist) ([]string, error) {
	items, err := e.catalog.Items()
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	keys := make([]string, 0, len(items))
	for _, item := range items {
		if p.Criteria.Matches(item) {
			keys = append(keys, item.Key)
		}
	}
	return keys, nil
}

// Preview computes the change set a reconciliation would apply, using the
// expected membership in place of a remote fetch. No network calls.
func (e *Engine) Preview(id string) (*PreviewResult, error) {
	p, ok := e.store.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}

	matching, err := e.Matches(p)
	if err != nil {
		return nil, err
	}

	result := &PreviewResult{Playlist: p, Matching: matching}

	desired := make([]string, 0, len(matching))
	for _, key := range matching {
		if models.IsLocalKey(key) {
			result.LocalOnly = append(result.LocalOnly, key)
			continue
		}
		desired = append(desired, key)
	}

	result.ToAdd, result.ToRemove = diffKeys(desired, p.Expected)
	return result, nil
}

// Playlists returns every registered playlist.
func (e *Engine) Playlists() []models.SmartPlaylist {
	return e.store.Playlists()
}

// CreatePlaylist creates the remote collection, registers an active smart
// playlist bound to it, and queues the first reconciliation.
func (e *Engine) CreatePlaylist(ctx context.Context, name, description string, criteria models.Criteria) (models.SmartPlaylist, error) {
	if err := e.remoteReady(); err != nil {
		return models.SmartPlaylist{}, err
	}

	if err := criteria.Validate(); err != nil {
		return models.SmartPlaylist{}, err
	}

	id, err := e.remote.CreateCollection(ctx, name, description)
	if err != nil {
		return models.SmartPlaylist{}, fmt.Errorf("failed to create collection: %w", err)
	}

	p := models.SmartPlaylist{
		CollectionID: id,
		Name:         name,
		Criteria:     criteria,
		Active:       true,
		CreatedAt:    time.Now(),
	}

	if err := e.store.Put(p); err != nil {
		return models.SmartPlaylist{}, err
	}

	e.sendNotification(playlistCreated(p))

	if _, err := e.EnqueueReconcile(p.CollectionID, nil); err != nil {
		e.logger.Warn("failed to queue initial sync", "playlist", p.Name, "error", err)
	}

	return p, nil
}

// SetPlaylists replaces the whole playlist set, used after an import.
func (e *Engine) SetPlaylists(playlists []models.SmartPlaylist) error {
	return e.store.Replace(playlists)
}

// Activate marks the playlist active and queues a catch-up reconciliation.
func (e *Engine) Activate(id string) error {
	if err := e.store.Update(id, func(p *models.SmartPlaylist) { p.Active = true }); err != nil {
		return err
	}

	_, err := e.EnqueueReconcile(id, nil)
	return err
}

// Deactivate stops syncing the playlist. Remote membership is left as-is.
func (e *Engine) Deactivate(id string) error {
	return e.store.Update(id, func(p *models.SmartPlaylist) { p.Active = false })
}

// RemovePlaylist unregisters the playlist. The remote collection survives,
// it just stops being managed.
func (e *Engine) RemovePlaylist(id string) error {
	return e.store.Remove(id)
}

// PruneOrphans drops every playlist whose backing remote collection no
// longer exists. Runs outside the queue: it only mutates the local store.
func (e *Engine) PruneOrphans(ctx context.Context) ([]models.SmartPlaylist, error) {
	if err := e.remoteReady(); err != nil {
		return nil, err
	}

	ids, err := e.remote.ListCollectionIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list remote collections: %w", err)
	}

	known := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		known[id] = struct{}{}
	}

	var pruned []models.SmartPlaylist
	for _, p := range e.store.Playlists() {
		if _, ok := known[p.CollectionID]; ok {
			continue
		}

		if err := e.store.Remove(p.CollectionID); err != nil {
			return pruned, err
		}

		e.logger.Info("pruned orphaned playlist", "playlist", p.Name, "collection", p.CollectionID)
		pruned = append(pruned, p)
	}

	return pruned, nil
}

// diffKeys splits the change set: keys in want missing from have, and keys
// in have absent from want. Order follows the inputs; duplicates in have
// are reported once.
func diffKeys(want, have []string) (toAdd, toRemove []string) {
	haveSet := make(map[string]struct{}, len(have))
	for _, k := range have {
		haveSet[k] = struct{}{}
	}

	wantSet := make(map[string]struct{}, len(want))
	for _, k := range want {
		wantSet[k] = struct{}{}
	}

	for _, k := range want {
		if _, ok := haveSet[k]; !ok {
			toAdd = append(toAdd, k)
		}
	}

	reported := make(map[string]struct{}, len(have))
	for _, k := range have {
		if _, ok := wantSet[k]; ok {
			continue
		}
		if _, ok := reported[k]; ok {
			continue
		}
		reported[k] = struct{}{}
		toRemove = append(toRemove, k)
	}

	return toAdd, toRemove
}
