package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/machinemessiah/tagify-sub000/internal/formatter"
	"github.com/machinemessiah/tagify-sub000/internal/models"
	"github.com/machinemessiah/tagify-sub000/internal/shared"
)

// Export writes the library to disk as a JSON envelope, a catalog CSV or one
// Markdown file per playlist.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	format := cmd.String("format")
	output := cmd.String("output")

	if err := r.openStack(); err != nil {
		return err
	}

	items, err := r.items.Items()
	if err != nil {
		return fmt.Errorf("failed to read catalog: %w", err)
	}

	switch format {
	case "json":
		lib, err := r.buildLibrary(items)
		if err != nil {
			return err
		}

		path, err := formatter.WriteLibraryExport(lib, output)
		if err != nil {
			return err
		}

		r.writePlain("✓ Library exported to %s\n", path)
		r.writePlain("  Items:     %d\n", len(lib.Items))
		r.writePlain("  Playlists: %d\n", len(lib.Playlists))
		r.writePlain("  Taxonomy:  %d tags\n", len(lib.Taxonomy))
		return nil

	case "csv":
		path, err := formatter.WriteCSVExport(items, output)
		if err != nil {
			return err
		}

		r.writePlain("✓ Catalog exported to %s (%d items)\n", path, len(items))
		return nil

	case "md":
		playlists := r.engine.Playlists()
		if len(playlists) == 0 {
			r.writePlain("No playlists to export.\n")
			return nil
		}

		for _, p := range playlists {
			tracks, err := r.metadata.GetBatch(p.Expected)
			if err != nil {
				r.logger.Warn("failed to load cached metadata", "playlist", p.Name, "error", err)
				tracks = map[string]models.Track{}
			}

			dir := ""
			if output != "" {
				dir = filepath.Join(output, p.CollectionID)
			}

			path, err := formatter.WriteMarkdownExport(p, tracks, dir)
			if err != nil {
				return fmt.Errorf("failed to export %q: %w", p.Name, err)
			}
			r.writePlain("✓ %s → %s\n", p.Name, path)
		}
		return nil

	default:
		return fmt.Errorf("%w: unknown format %q (want json, csv or md)", shared.ErrInvalidFlag, format)
	}
}

// Import restores a library export: items are upserted, taxonomy entries
// registered, and the playlist set replaced wholesale.
func (r *Runner) Import(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("file")
	if path == "" {
		return fmt.Errorf("%w: import file", shared.ErrMissingArgument)
	}

	data, err := shared.VerifyAndReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read import file: %w", err)
	}

	lib, err := formatter.ImportLibrary(data)
	if err != nil {
		return err
	}

	if err := r.openStack(); err != nil {
		return err
	}

	r.logger.Info("importing library", "file", path,
		"items", len(lib.Items), "playlists", len(lib.Playlists), "tags", len(lib.Taxonomy))

	created, updated, failed := 0, 0, 0
	for _, item := range lib.Items {
		existing, getErr := r.items.GetByKey(item.Key)
		if getErr == nil && existing != nil {
			existing.SetRating(item.Rating)
			existing.SetEnergy(item.Energy)
			existing.SetTempo(item.Tempo)
			existing.SetTags(item.Tags)
			if err := r.items.Update(existing); err != nil {
				r.logger.Warn("failed to update item", "key", item.Key, "error", err)
				failed++
				continue
			}
			updated++
			continue
		}

		if err := r.items.Create(models.NewPersistedItem(0, item)); err != nil {
			r.logger.Warn("failed to import item", "key", item.Key, "error", err)
			failed++
			continue
		}
		created++
	}

	for _, def := range lib.Taxonomy {
		tag, err := r.tags.GetOrCreate(def.Key())
		if err != nil {
			r.logger.Warn("failed to register tag", "key", def.Key().String(), "error", err)
			continue
		}
		if def.Label != "" && def.Label != tag.Label() {
			tag.SetLabel(def.Label)
			if err := r.tags.Update(tag); err != nil {
				r.logger.Warn("failed to set tag label", "key", def.Key().String(), "error", err)
			}
		}
	}

	if err := r.engine.SetPlaylists(lib.Playlists); err != nil {
		return fmt.Errorf("failed to install playlists: %w", err)
	}

	r.writePlain("✓ Import complete\n")
	r.writePlain("  Items:     %d created, %d updated", created, updated)
	if failed > 0 {
		r.writePlain(", %d failed", failed)
	}
	r.writePlain("\n")
	r.writePlain("  Playlists: %d installed\n", len(lib.Playlists))
	r.writePlain("  Taxonomy:  %d tags\n", len(lib.Taxonomy))
	r.writePlain("\nRun 'tagify sync now' to bring the remote in line.\n")

	return nil
}

// buildLibrary assembles the export envelope from the repositories and the
// playlist store.
func (r *Runner) buildLibrary(items []models.Item) (models.Library, error) {
	tags, err := r.tags.List(map[string]any{})
	if err != nil {
		return models.Library{}, fmt.Errorf("failed to read taxonomy: %w", err)
	}

	taxonomy := make([]models.TagDef, 0, len(tags))
	for _, tag := range tags {
		key := tag.Key()
		taxonomy = append(taxonomy, models.TagDef{
			Category:    key.Category,
			Subcategory: key.Subcategory,
			ID:          key.ID,
			Label:       tag.Label(),
		})
	}

	return models.Library{
		Items:     items,
		Playlists: r.engine.Playlists(),
		Taxonomy:  taxonomy,
	}, nil
}
