package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/machinemessiah/tagify-sub000/internal/models"
	"github.com/machinemessiah/tagify-sub000/internal/shared"
	"github.com/machinemessiah/tagify-sub000/internal/tasks"
)

// ItemsList prints the catalog, optionally narrowed to one tag.
func (r *Runner) ItemsList(ctx context.Context, cmd *cli.Command) error {
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")
	tagFilter := cmd.String("tag")

	if err := r.openStack(); err != nil {
		return err
	}

	criteria := map[string]any{}
	if tagFilter != "" {
		criteria["tag"] = tagFilter
	}

	persisted, err := r.items.List(criteria)
	if err != nil {
		return fmt.Errorf("failed to list items: %w", err)
	}

	items := make([]models.Item, 0, len(persisted))
	for _, p := range persisted {
		items = append(items, p.Item())
	}

	if useJSON {
		return r.writeJSON(items, pretty)
	}

	if len(items) == 0 {
		if tagFilter != "" {
			r.writePlain("No items carry %s\n", tagFilter)
		} else {
			r.writePlain("The catalog is empty. Rate or tag something first.\n")
		}
		return nil
	}

	r.writePlain("Found %d items:\n\n", len(items))
	for i, item := range items {
		r.writePlain("%d. %s\n", i+1, item.Key)
		if item.Rating.Valid {
			r.writePlain("   Rating: %d/10\n", item.Rating.Value)
		}
		if item.Energy.Valid {
			r.writePlain("   Energy: %d/10\n", item.Energy.Value)
		}
		if item.Tempo.Valid {
			r.writePlain("   Tempo:  %d BPM\n", item.Tempo.Value)
		}
		if len(item.Tags) > 0 {
			r.writePlain("   Tags:   %s\n", joinTagKeys(item.Tags))
		}
		r.writePlain("\n")
	}

	return nil
}

// ItemsShow prints one item together with any cached remote metadata.
func (r *Runner) ItemsShow(ctx context.Context, cmd *cli.Command) error {
	key := cmd.StringArg("key")
	if key == "" {
		return fmt.Errorf("%w: item key", shared.ErrMissingArgument)
	}
	useJSON := cmd.Bool("json")

	if err := r.openStack(); err != nil {
		return err
	}

	persisted, err := r.items.GetByKey(key)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", key, err)
	}
	item := persisted.Item()

	track, trackErr := r.metadata.Get(key)

	if useJSON {
		payload := map[string]any{"item": item}
		if trackErr == nil {
			payload["metadata"] = track
		}
		return r.writeJSON(payload, true)
	}

	r.writePlainHeader(item.Key)
	if trackErr == nil {
		r.writePlain("Title:  %s\n", track.Title)
		r.writePlain("Artist: %s\n", track.Artist)
		if track.Album != "" {
			r.writePlain("Album:  %s\n", track.Album)
		}
		if track.Duration > 0 {
			r.writePlain("Length: %s\n", shared.FormatDuration(track.Duration))
		}
		r.writePlain("\n")
	} else if !item.LocalOnly() {
		r.writePlain("No cached metadata. Run 'tagify items enrich' to fetch it.\n\n")
	}

	r.writePlain("Rating: %s\n", nullIntLabel(item.Rating, "/10"))
	r.writePlain("Energy: %s\n", nullIntLabel(item.Energy, "/10"))
	r.writePlain("Tempo:  %s\n", nullIntLabel(item.Tempo, " BPM"))
	if len(item.Tags) > 0 {
		r.writePlain("Tags:   %s\n", joinTagKeys(item.Tags))
	} else {
		r.writePlain("Tags:   none\n")
	}
	r.writePlain("Since:  %s\n", item.CreatedAt.Format("2006-01-02"))

	return nil
}

// ItemsEnrich pulls remote metadata and tempo for every resolvable item on a
// rate-limited worker pool.
func (r *Runner) ItemsEnrich(ctx context.Context, cmd *cli.Command) error {
	if err := r.openStack(); err != nil {
		return err
	}
	if r.remote == nil {
		return fmt.Errorf("%w: authenticate first to enrich the catalog", shared.ErrServiceUnavailable)
	}

	opts := tasks.EnrichOpts{
		NumWorkers: cmd.Int("workers"),
		RateLimit:  float64(cmd.Int("rate")),
		SkipTempo:  cmd.Bool("skip-tempo"),
		Keys:       cmd.StringSlice("key"),
	}

	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			if update.Total > 0 {
				r.writePlain("  [%d/%d] %s\n", update.Step, update.Total, update.Message)
			} else {
				r.writePlain("  %s\n", update.Message)
			}
		}
	}()

	r.writePlain("→ Enriching catalog from %s...\n", r.remote.Name())

	result, err := r.tagger.Enrich(ctx, r.remote, r.items, r.metadata, progress, opts)
	close(progress)
	<-done

	if err != nil {
		return fmt.Errorf("enrichment failed: %w", err)
	}

	r.writePlain("\n✓ Enriched %d items\n", result.Total)
	r.writePlain("  Metadata cached: %d\n", result.Cached)
	if !opts.SkipTempo {
		r.writePlain("  Tempo updated:   %d\n", result.TempoSet)
	}
	if result.LocalOnly > 0 {
		r.writePlain("  Local-only:      %d (skipped)\n", result.LocalOnly)
	}
	if result.Failed > 0 {
		r.writePlain("  Failed:          %d\n", result.Failed)
	}

	r.settleQueue()
	return nil
}

func joinTagKeys(tags []models.TagKey) string {
	parts := make([]string, 0, len(tags))
	for _, tag := range tags {
		parts = append(parts, tag.String())
	}
	return strings.Join(parts, ", ")
}

func nullIntLabel(n models.NullInt, suffix string) string {
	if !n.Valid {
		return "unset"
	}
	return fmt.Sprintf("%d%s", n.Value, suffix)
}
