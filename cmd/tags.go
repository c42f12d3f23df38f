package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/machinemessiah/tagify-sub000/internal/models"
	"github.com/machinemessiah/tagify-sub000/internal/shared"
)

// TagsList prints the taxonomy grouped by category.
func (r *Runner) TagsList(ctx context.Context, cmd *cli.Command) error {
	useJSON := cmd.Bool("json")
	category := cmd.String("category")

	if err := r.openStack(); err != nil {
		return err
	}

	criteria := map[string]any{}
	if category != "" {
		criteria["category"] = category
	}

	tags, err := r.tags.List(criteria)
	if err != nil {
		return fmt.Errorf("failed to list tags: %w", err)
	}

	if useJSON {
		type entry struct {
			Key   string `json:"key"`
			Label string `json:"label,omitempty"`
		}
		out := make([]entry, 0, len(tags))
		for _, tag := range tags {
			out = append(out, entry{Key: tag.Key().String(), Label: tag.Label()})
		}
		return r.writeJSON(out, true)
	}

	if len(tags) == 0 {
		if category != "" {
			r.writePlain("No tags in category %q\n", category)
		} else {
			r.writePlain("The taxonomy is empty. Tags register on first use, or add one with 'tagify tags add'.\n")
		}
		return nil
	}

	// The repository orders by category/subcategory/leaf, so grouping is a
	// matter of watching the category change.
	current := ""
	for _, tag := range tags {
		key := tag.Key()
		if key.Category != current {
			if current != "" {
				r.writePlain("\n")
			}
			current = key.Category
			r.writePlain("%s\n", current)
		}
		// Labels default to the leaf id; only show them when they add something.
		if tag.Label() != key.ID {
			r.writePlain("  %s  (%s)\n", key.String(), tag.Label())
		} else {
			r.writePlain("  %s\n", key.String())
		}
	}

	return nil
}

// TagsAdd registers a tag in the taxonomy, updating the label when the tag
// already exists.
func (r *Runner) TagsAdd(ctx context.Context, cmd *cli.Command) error {
	key, err := models.ParseTagKey(cmd.StringArg("tag"))
	if err != nil {
		return err
	}
	label := cmd.String("label")

	if err := r.openStack(); err != nil {
		return err
	}

	tag, err := r.tags.GetOrCreate(key)
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", key.String(), err)
	}

	if label != "" && label != tag.Label() {
		tag.SetLabel(label)
		if err := r.tags.Update(tag); err != nil {
			return fmt.Errorf("failed to set label on %s: %w", key.String(), err)
		}
	}

	if tag.Label() != key.ID {
		r.writePlain("✓ Registered %s (%s)\n", key.String(), tag.Label())
	} else {
		r.writePlain("✓ Registered %s\n", key.String())
	}

	return nil
}

// TagsRemove drops a tag from the taxonomy. Items keep carrying the key;
// only the registry entry goes away.
func (r *Runner) TagsRemove(ctx context.Context, cmd *cli.Command) error {
	key, err := models.ParseTagKey(cmd.StringArg("tag"))
	if err != nil {
		return err
	}

	if err := r.openStack(); err != nil {
		return err
	}

	tag, err := r.tags.GetByKey(key)
	if err != nil {
		return fmt.Errorf("%w: %s", shared.ErrTagNotFound, key.String())
	}

	if err := r.tags.Delete(tag.ID()); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key.String(), err)
	}

	r.writePlain("✓ Removed %s from the taxonomy\n", key.String())
	return nil
}
