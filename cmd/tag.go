package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/machinemessiah/tagify-sub000/internal/models"
	"github.com/machinemessiah/tagify-sub000/internal/shared"
	"github.com/machinemessiah/tagify-sub000/internal/tasks"
)

// TagRate sets or clears an item's rating.
func (r *Runner) TagRate(ctx context.Context, cmd *cli.Command) error {
	key := cmd.StringArg("key")
	if key == "" {
		return fmt.Errorf("%w: item key", shared.ErrMissingArgument)
	}
	rating, err := parseIntArg("value", cmd.StringArg("value"))
	if err != nil {
		return err
	}

	if err := r.openStack(); err != nil {
		return err
	}

	result, err := r.tagger.Rate(key, rating)
	if err != nil {
		return fmt.Errorf("failed to rate %s: %w", key, err)
	}

	if rating == 0 {
		r.writePlain("✓ Cleared rating on %s\n", key)
	} else {
		r.writePlain("✓ Rated %s %d/10\n", key, rating)
	}
	r.reportEdit(key, result)

	r.settleQueue()
	return nil
}

// TagEnergy sets or clears an item's energy level.
func (r *Runner) TagEnergy(ctx context.Context, cmd *cli.Command) error {
	key := cmd.StringArg("key")
	if key == "" {
		return fmt.Errorf("%w: item key", shared.ErrMissingArgument)
	}
	energy, err := parseIntArg("value", cmd.StringArg("value"))
	if err != nil {
		return err
	}

	if err := r.openStack(); err != nil {
		return err
	}

	result, err := r.tagger.SetEnergy(key, energy)
	if err != nil {
		return fmt.Errorf("failed to set energy on %s: %w", key, err)
	}

	if energy == 0 {
		r.writePlain("✓ Cleared energy on %s\n", key)
	} else {
		r.writePlain("✓ Set energy %d/10 on %s\n", energy, key)
	}
	r.reportEdit(key, result)

	r.settleQueue()
	return nil
}

// TagTempo stores an item's BPM, either from the command line or fetched from
// the provider's audio analysis with --fetch.
func (r *Runner) TagTempo(ctx context.Context, cmd *cli.Command) error {
	key := cmd.StringArg("key")
	if key == "" {
		return fmt.Errorf("%w: item key", shared.ErrMissingArgument)
	}

	if err := r.openStack(); err != nil {
		return err
	}

	var tempo int
	if cmd.Bool("fetch") {
		if r.remote == nil {
			return fmt.Errorf("%w: authenticate first to fetch tempo", shared.ErrServiceUnavailable)
		}

		measured, err := r.remote.GetTempo(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to fetch tempo for %s: %w", key, err)
		}
		if !measured.Valid {
			r.writePlain("No audio analysis available for %s\n", key)
			return nil
		}
		tempo = measured.Value
		r.writePlain("→ Provider reports %d BPM\n", tempo)
	} else {
		var err error
		if tempo, err = parseIntArg("value", cmd.StringArg("value")); err != nil {
			return err
		}
	}

	result, err := r.tagger.SetTempo(key, tempo)
	if err != nil {
		return fmt.Errorf("failed to set tempo on %s: %w", key, err)
	}

	if tempo == 0 {
		r.writePlain("✓ Cleared tempo on %s\n", key)
	} else {
		r.writePlain("✓ Set tempo %d BPM on %s\n", tempo, key)
	}
	r.reportEdit(key, result)

	r.settleQueue()
	return nil
}

// TagToggle flips a tag's presence on an item.
func (r *Runner) TagToggle(ctx context.Context, cmd *cli.Command) error {
	key := cmd.StringArg("key")
	if key == "" {
		return fmt.Errorf("%w: item key", shared.ErrMissingArgument)
	}

	tag, err := models.ParseTagKey(cmd.StringArg("tag"))
	if err != nil {
		return err
	}

	if err := r.openStack(); err != nil {
		return err
	}

	result, err := r.tagger.ToggleTag(key, tag)
	if err != nil {
		return fmt.Errorf("failed to toggle %s on %s: %w", tag.String(), key, err)
	}

	if result.Applied {
		r.writePlain("✓ Added %s to %s\n", tag.String(), key)
	} else {
		r.writePlain("✓ Removed %s from %s\n", tag.String(), key)
	}
	r.reportEdit(key, result)

	r.settleQueue()
	return nil
}

// TagBatch applies a JSON file of edits as a single batch, then dispatches
// one consolidated change event.
func (r *Runner) TagBatch(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("file")

	data, err := shared.VerifyAndReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read edits file: %w", err)
	}

	var edits []tasks.BatchEdit
	if err := json.Unmarshal(data, &edits); err != nil {
		return fmt.Errorf("%w: edits file is not a JSON array of edits: %v", shared.ErrInvalidInput, err)
	}
	if len(edits) == 0 {
		r.writePlain("Nothing to do, %s holds no edits\n", path)
		return nil
	}

	if err := r.openStack(); err != nil {
		return err
	}

	r.logger.Info("applying batch edits", "file", path, "edits", len(edits))

	result, err := r.tagger.ApplyBatch(edits)
	if err != nil {
		return fmt.Errorf("batch failed: %w", err)
	}

	r.writePlain("✓ Batch applied: %d edited, %d pruned, %d skipped, %d failed\n",
		result.Edited, result.Pruned, result.Skipped, result.Failed)

	r.settleQueue()
	return nil
}

// reportEdit surfaces the catalog side effects of a tagging operation.
func (r *Runner) reportEdit(key string, result *tasks.EditResult) {
	if result == nil {
		return
	}
	if result.Created {
		r.writePlain("  %s entered the catalog\n", key)
	}
	if result.Pruned {
		r.writePlain("  %s left the catalog (no user data remained)\n", key)
	}
}

func parseIntArg(name, raw string) (int, error) {
	if raw == "" {
		return 0, fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number, got %q", shared.ErrInvalidArgument, name, raw)
	}
	return n, nil
}
