package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/machinemessiah/tagify-sub000/internal/models"
	"github.com/machinemessiah/tagify-sub000/internal/shared"
	"github.com/machinemessiah/tagify-sub000/internal/tasks"
)

// SyncNow reconciles one playlist (--id) or every active playlist.
func (r *Runner) SyncNow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.String("id")
	if cmd.Bool("all") && id != "" {
		return fmt.Errorf("%w: --id and --all are mutually exclusive", shared.ErrInvalidFlag)
	}

	if err := r.openStack(); err != nil {
		return err
	}
	if r.remote == nil {
		return fmt.Errorf("%w: authenticate first to sync", shared.ErrServiceUnavailable)
	}

	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			if update.Total > 0 {
				r.writePlain("  [%s] %s (%d/%d)\n", update.Phase.String(), update.Message, update.Step, update.Total)
			} else {
				r.writePlain("  [%s] %s\n", update.Phase.String(), update.Message)
			}
		}
	}()

	var runErr error
	if id != "" {
		r.writePlain("→ Syncing %s...\n", id)
		runErr = r.engine.Reconcile(id, progress)
	} else {
		ops, err := r.engine.ReconcileAll(progress)
		if err != nil {
			runErr = err
		} else if len(ops) == 0 {
			r.writePlain("No active playlists to sync.\n")
		} else {
			r.writePlain("→ Syncing %d playlists...\n", len(ops))
			failures := 0
			for _, op := range ops {
				if opErr := <-op.Done(); opErr != nil {
					failures++
					r.logger.Error("sync failed", "operation", op.Label, "error", opErr)
				}
			}
			if failures > 0 {
				runErr = fmt.Errorf("%d of %d syncs failed", failures, len(ops))
			}
		}
	}

	close(progress)
	<-done

	r.writePlain("\n")
	r.flushNotifications()

	if runErr != nil {
		return runErr
	}
	r.writePlain("✓ Sync complete\n")
	return nil
}

// SyncPrune drops every registered playlist whose remote collection no longer
// exists.
func (r *Runner) SyncPrune(ctx context.Context, cmd *cli.Command) error {
	if err := r.openStack(); err != nil {
		return err
	}
	if r.remote == nil {
		return fmt.Errorf("%w: authenticate first to prune", shared.ErrServiceUnavailable)
	}

	removed, err := r.engine.PruneOrphans(ctx)
	if err != nil {
		return fmt.Errorf("prune failed: %w", err)
	}

	if len(removed) == 0 {
		r.writePlain("✓ Nothing to prune, every playlist still exists remotely\n")
		return nil
	}

	r.writePlain("✓ Pruned %d orphaned playlists:\n", len(removed))
	for _, p := range removed {
		r.writePlain("  • %s (%s)\n", p.Name, p.CollectionID)
	}

	return nil
}

// SyncLog prints recent reconciliation runs from the audit trail, newest
// first.
func (r *Runner) SyncLog(ctx context.Context, cmd *cli.Command) error {
	limit := cmd.Int("limit")
	playlistID := cmd.String("playlist")
	useJSON := cmd.Bool("json")

	if err := r.openStack(); err != nil {
		return err
	}

	criteria := map[string]any{"limit": limit}
	if playlistID != "" {
		criteria["playlist_id"] = playlistID
	}

	runs, err := r.syncLog.List(criteria)
	if err != nil {
		return fmt.Errorf("failed to read sync log: %w", err)
	}

	if useJSON {
		type entry struct {
			Sequence     int    `json:"sequence"`
			Playlist     string `json:"playlist"`
			PlaylistID   string `json:"playlistId"`
			Kind         string `json:"kind"`
			Status       string `json:"status"`
			Added        int    `json:"added"`
			Removed      int    `json:"removed"`
			Deduplicated int    `json:"deduplicated"`
			Failed       int    `json:"failed"`
			DataLoss     bool   `json:"dataLoss"`
			Error        string `json:"error,omitempty"`
			CompletedAt  string `json:"completedAt,omitempty"`
		}
		out := make([]entry, 0, len(runs))
		for _, run := range runs {
			e := entry{
				Sequence:     run.Sequence(),
				Playlist:     run.PlaylistName(),
				PlaylistID:   run.PlaylistID(),
				Kind:         run.Kind(),
				Status:       run.Status(),
				Added:        run.Added(),
				Removed:      run.Removed(),
				Deduplicated: run.Deduplicated(),
				Failed:       run.Failed(),
				DataLoss:     run.DataLoss(),
				Error:        run.ErrorMessage(),
			}
			if t := run.CompletedAt(); t != nil {
				e.CompletedAt = t.Format("2006-01-02 15:04:05")
			}
			out = append(out, e)
		}
		return r.writeJSON(out, true)
	}

	if len(runs) == 0 {
		r.writePlain("The sync log is empty.\n")
		return nil
	}

	r.writePlain("Last %d sync runs:\n\n", len(runs))
	for _, run := range runs {
		when := "pending"
		if t := run.CompletedAt(); t != nil {
			when = t.Format("2006-01-02 15:04")
		}

		r.writePlain("#%d  %s  %s  %s  %s\n", run.Sequence(), when, run.Kind(), run.Status(), run.PlaylistName())
		r.writePlain("    +%d added, -%d removed, %d duplicates repaired", run.Added(), run.Removed(), run.Deduplicated())
		if run.Failed() > 0 {
			r.writePlain(", %d failed", run.Failed())
		}
		r.writePlain("\n")
		if run.DataLoss() {
			r.writePlain("    ⚠ data loss reported during duplicate repair\n")
		}
		if run.Status() == models.SyncStatusFailed && run.ErrorMessage() != "" {
			r.writePlain("    error: %s\n", run.ErrorMessage())
		}
	}

	return nil
}
