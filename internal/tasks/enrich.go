// package tasks: bulk catalog enrichment from the remote
package tasks

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/machinemessiah/tagify-sub000/internal/models"
	"github.com/machinemessiah/tagify-sub000/internal/services"
	"github.com/machinemessiah/tagify-sub000/internal/shared"
)

// MetadataCacher persists remote track metadata for offline display.
type MetadataCacher interface {
	Cache(track models.Track) error
}

// EnrichOpts contains configuration for catalog enrichment runs.
type EnrichOpts struct {
	NumWorkers int      // Concurrent fetchers (default: 4)
	RateLimit  float64  // Requests per second shared by all workers (default: 5)
	SkipTempo  bool     // Fetch metadata only, leave tempo untouched
	Keys       []string // Restrict the run to these keys (default: whole catalog)
}

// EnrichResult summarizes a catalog enrichment run.
type EnrichResult struct {
	Total     int // Resolvable items processed
	Cached    int // Metadata records written
	TempoSet  int // Items whose stored tempo changed
	LocalOnly int // Items skipped as unresolvable
	Failed    int // Items that errored
}

// enrichOutcome carries one item's fetch results out of the worker pool.
type enrichOutcome struct {
	item  models.Item
	track *models.Track
	tempo models.NullInt
	err   error
}

// Enrich pulls remote metadata, and tempo unless disabled, for every
// resolvable catalog item. Network fetches run on a rate-limited worker
// pool; catalog writes stay on the calling goroutine, and tempo changes are
// dispatched as one batch at the end.
func (t *Tagger) Enrich(ctx context.Context, svc services.Service, catalog CatalogReader, cache MetadataCacher, prog chan<- ProgressUpdate, opts EnrichOpts) (*EnrichResult, error) {
	if svc == nil {
		return nil, fmt.Errorf("%w: remote service not initialized", shared.ErrServiceUnavailable)
	}

	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 8 {
		opts.NumWorkers = 8
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	items, err := catalog.Items()
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	if len(opts.Keys) > 0 {
		wanted := make(map[string]struct{}, len(opts.Keys))
		for _, k := range opts.Keys {
			wanted[k] = struct{}{}
		}

		kept := items[:0]
		for _, item := range items {
			if _, ok := wanted[item.Key]; ok {
				kept = append(kept, item)
			}
		}
		items = kept
	}

	result := &EnrichResult{}

	resolvable := make([]models.Item, 0, len(items))
	for _, item := range items {
		if item.LocalOnly() {
			result.LocalOnly++
			continue
		}
		resolvable = append(resolvable, item)
	}
	result.Total = len(resolvable)

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan models.Item, len(resolvable))
	outcomes := make(chan enrichOutcome, len(resolvable))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go t.enrichWorker(ctx, &wg, svc, limiter, !opts.SkipTempo, jobs, outcomes)
	}

	for _, item := range resolvable {
		jobs <- item
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	var changed []models.Item
	step := 0
	for out := range outcomes {
		step++
		sendProgress(prog, enrichUpdate(step, len(resolvable), out.item.Key))

		if out.track != nil && cache != nil {
			if err := cache.Cache(*out.track); err != nil {
				t.logger.Warn("failed to cache metadata", "item", out.item.Key, "error", err)
			} else {
				result.Cached++
			}
		}

		if out.err != nil {
			t.logger.Warn("enrichment fetch failed", "item", out.item.Key, "error", out.err)
			result.Failed++
			continue
		}

		if opts.SkipTempo || out.tempo == out.item.Tempo {
			continue
		}

		res, err := t.applyEdit(out.item.Key, false, func(p *models.PersistedItem) error {
			p.SetTempo(out.tempo)
			return nil
		})
		if err != nil {
			t.logger.Warn("failed to store tempo", "item", out.item.Key, "error", err)
			result.Failed++
			continue
		}

		result.TempoSet++
		if !res.Pruned {
			changed = append(changed, res.Item)
		}
	}

	if t.engine != nil && len(changed) > 0 {
		if _, err := t.engine.OnItemsChangedBatch(changed); err != nil {
			t.logger.Warn("failed to queue batch sync", "error", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// enrichWorker fetches metadata and tempo for items off the jobs channel.
func (t *Tagger) enrichWorker(ctx context.Context, wg *sync.WaitGroup, svc services.Service, limiter *rate.Limiter, wantTempo bool, jobs <-chan models.Item, outcomes chan<- enrichOutcome) {
	defer wg.Done()

	for item := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		out := enrichOutcome{item: item, tempo: item.Tempo}

		if err := limiter.Wait(ctx); err != nil {
			out.err = err
			outcomes <- out
			continue
		}

		track, err := svc.GetTrack(ctx, item.Key)
		if err != nil {
			out.err = err
			outcomes <- out
			continue
		}
		out.track = track

		if wantTempo {
			tempo, err := svc.GetTempo(ctx, item.Key)
			if err != nil {
				out.err = err
				outcomes <- out
				continue
			}
			out.tempo = tempo
		}

		outcomes <- out
	}
}
