package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/machinemessiah/tagify-sub000/internal/models"
	"github.com/machinemessiah/tagify-sub000/internal/shared"
)

// PlaylistCreate creates a remote collection, binds it to the given criteria
// and queues the first reconciliation.
func (r *Runner) PlaylistCreate(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("name")
	if name == "" {
		return fmt.Errorf("%w: playlist name", shared.ErrMissingArgument)
	}

	criteria, err := criteriaFromFlags(cmd)
	if err != nil {
		return err
	}

	if err := r.openStack(); err != nil {
		return err
	}

	playlist, err := r.engine.CreatePlaylist(ctx, name, cmd.String("description"), criteria)
	if err != nil {
		return fmt.Errorf("failed to create playlist: %w", err)
	}

	r.writePlain("✓ Created %q\n", playlist.Name)
	r.writePlain("  ID:       %s\n", playlist.CollectionID)
	r.writePlain("  Criteria: %s\n", describeCriteria(playlist.Criteria))

	r.settleQueue()
	return nil
}

// PlaylistList prints every registered smart playlist.
func (r *Runner) PlaylistList(ctx context.Context, cmd *cli.Command) error {
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	if err := r.openStack(); err != nil {
		return err
	}

	playlists := r.engine.Playlists()

	if useJSON {
		return r.writeJSON(playlists, pretty)
	}

	if len(playlists) == 0 {
		r.writePlain("No smart playlists yet. Create one with 'tagify playlist create'.\n")
		return nil
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		r.writePlain("   ID: %s\n", p.CollectionID)
		if p.Active {
			r.writePlain("   Status: active\n")
		} else {
			r.writePlain("   Status: inactive\n")
		}
		r.writePlain("   Criteria: %s\n", describeCriteria(p.Criteria))
		r.writePlain("   Members: %d\n", len(p.Expected))
		if !p.LastSyncAt.IsZero() {
			r.writePlain("   Last sync: %s\n", p.LastSyncAt.Format("2006-01-02 15:04"))
		}
		r.writePlain("\n")
	}

	return nil
}

// PlaylistShow prints one playlist and what a sync would change right now.
// The preview runs against the expected membership, no remote calls.
func (r *Runner) PlaylistShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}
	useJSON := cmd.Bool("json")

	if err := r.openStack(); err != nil {
		return err
	}

	preview, err := r.engine.Preview(id)
	if err != nil {
		return err
	}

	if useJSON {
		return r.writeJSON(preview, true)
	}

	p := preview.Playlist
	r.writePlainHeader(p.Name)
	r.writePlain("ID:       %s\n", p.CollectionID)
	if p.Active {
		r.writePlain("Status:   active\n")
	} else {
		r.writePlain("Status:   inactive\n")
	}
	r.writePlain("Criteria: %s\n", describeCriteria(p.Criteria))
	if !p.LastSyncAt.IsZero() {
		r.writePlain("Synced:   %s\n", p.LastSyncAt.Format("2006-01-02 15:04"))
	} else {
		r.writePlain("Synced:   never\n")
	}

	r.writePlain("\nMatching items: %d\n", len(preview.Matching))

	if preview.InSync() {
		r.writePlain("\n✓ In sync, a reconciliation would change nothing\n")
	} else {
		r.writePlain("\nA sync would make %d additions and %d removals:\n", len(preview.ToAdd), len(preview.ToRemove))
		for _, key := range preview.ToAdd {
			r.writePlain("  + %s\n", key)
		}
		for _, key := range preview.ToRemove {
			r.writePlain("  - %s\n", key)
		}
	}

	if len(preview.LocalOnly) > 0 {
		r.writePlain("\n⚠ %d matching items are local-only and need manual handling:\n", len(preview.LocalOnly))
		for _, key := range preview.LocalOnly {
			r.writePlain("  • %s\n", key)
		}
	}

	return nil
}

// PlaylistSetCriteria replaces a playlist's criteria and queues a sync so the
// remote catches up.
func (r *Runner) PlaylistSetCriteria(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	criteria, err := criteriaFromFlags(cmd)
	if err != nil {
		return err
	}

	if err := r.openStack(); err != nil {
		return err
	}

	if err := r.store.Update(id, func(p *models.SmartPlaylist) {
		p.Criteria = criteria
	}); err != nil {
		return err
	}

	r.writePlain("✓ Criteria replaced: %s\n", describeCriteria(criteria))

	if _, err := r.engine.EnqueueReconcile(id, nil); err != nil {
		r.logger.Warn("failed to queue sync after criteria change", "playlist", id, "error", err)
	}

	r.settleQueue()
	return nil
}

// PlaylistActivate turns a playlist on and queues a catch-up sync.
func (r *Runner) PlaylistActivate(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	if err := r.openStack(); err != nil {
		return err
	}

	if err := r.engine.Activate(id); err != nil {
		return err
	}

	r.writePlain("✓ Activated %s\n", id)
	r.settleQueue()
	return nil
}

// PlaylistDeactivate turns a playlist off. The remote collection keeps its
// current members.
func (r *Runner) PlaylistDeactivate(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	if err := r.openStack(); err != nil {
		return err
	}

	if err := r.engine.Deactivate(id); err != nil {
		return err
	}

	r.writePlain("✓ Deactivated %s\n", id)
	return nil
}

// PlaylistRemove forgets a playlist locally. The remote collection survives.
func (r *Runner) PlaylistRemove(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	if err := r.openStack(); err != nil {
		return err
	}

	if err := r.engine.RemovePlaylist(id); err != nil {
		return err
	}

	r.writePlain("✓ Removed %s (the remote collection is untouched)\n", id)
	return nil
}

// criteriaFromFlags assembles and validates a criteria from the shared
// playlist flag set.
func criteriaFromFlags(cmd *cli.Command) (models.Criteria, error) {
	criteria := models.Criteria{}

	for _, raw := range cmd.StringSlice("include") {
		key, err := models.ParseTagKey(raw)
		if err != nil {
			return criteria, err
		}
		criteria.IncludeTags = append(criteria.IncludeTags, key)
	}

	for _, raw := range cmd.StringSlice("exclude") {
		key, err := models.ParseTagKey(raw)
		if err != nil {
			return criteria, err
		}
		criteria.ExcludeTags = append(criteria.ExcludeTags, key)
	}

	criteria.MatchMode = models.MatchMode(cmd.String("match"))

	for _, raw := range cmd.StringSlice("rating") {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return criteria, fmt.Errorf("%w: rating must be a number, got %q", shared.ErrInvalidFlag, raw)
		}
		criteria.RatingSet = append(criteria.RatingSet, n)
	}

	criteria.EnergyMin = models.IntFrom(cmd.Int("energy-min"))
	criteria.EnergyMax = models.IntFrom(cmd.Int("energy-max"))
	criteria.TempoMin = models.IntFrom(cmd.Int("tempo-min"))
	criteria.TempoMax = models.IntFrom(cmd.Int("tempo-max"))

	if err := criteria.Validate(); err != nil {
		return criteria, err
	}

	return criteria, nil
}

// describeCriteria renders a criteria as one line for terminal output.
func describeCriteria(c models.Criteria) string {
	parts := []string{}

	if len(c.IncludeTags) > 0 {
		mode := "all of"
		if c.MatchMode == models.MatchAny {
			mode = "any of"
		}
		parts = append(parts, fmt.Sprintf("%s %s", mode, joinTagKeys(c.IncludeTags)))
	}

	if len(c.ExcludeTags) > 0 {
		parts = append(parts, fmt.Sprintf("none of %s", joinTagKeys(c.ExcludeTags)))
	}

	if len(c.RatingSet) > 0 {
		values := make([]string, 0, len(c.RatingSet))
		for _, v := range c.RatingSet {
			values = append(values, strconv.Itoa(v))
		}
		parts = append(parts, fmt.Sprintf("rating in {%s}", strings.Join(values, ", ")))
	}

	if c.EnergyMin.Valid || c.EnergyMax.Valid {
		parts = append(parts, fmt.Sprintf("energy %s", boundsLabel(c.EnergyMin, c.EnergyMax)))
	}

	if c.TempoMin.Valid || c.TempoMax.Valid {
		parts = append(parts, fmt.Sprintf("tempo %s BPM", boundsLabel(c.TempoMin, c.TempoMax)))
	}

	if len(parts) == 0 {
		return "matches every item"
	}
	return strings.Join(parts, ", ")
}

func boundsLabel(min, max models.NullInt) string {
	switch {
	case min.Valid && max.Valid:
		return fmt.Sprintf("%d..%d", min.Value, max.Value)
	case min.Valid:
		return fmt.Sprintf(">= %d", min.Value)
	default:
		return fmt.Sprintf("<= %d", max.Value)
	}
}
