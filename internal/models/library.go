package models

import (
	"fmt"
	"time"
)

// TagDef is one flattened taxonomy entry in a library export.
type TagDef struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	ID          string `json:"id"`
	Label       string `json:"label"`
}

// Key returns the compound key for the definition.
func (d TagDef) Key() TagKey {
	return TagKey{Category: d.Category, Subcategory: d.Subcategory, ID: d.ID}
}

// Library is the export/import envelope: the whole catalog, every smart
// playlist and the tag taxonomy in one JSON document.
type Library struct {
	ExportedAt time.Time       `json:"exportedAt"`
	Items      []Item          `json:"items"`
	Playlists  []SmartPlaylist `json:"playlists"`
	Taxonomy   []TagDef        `json:"taxonomy"`
}

// Validate checks every entry in the envelope before an import is applied.
func (l Library) Validate() error {
	for i, item := range l.Items {
		if item.Key == "" {
			return fmt.Errorf("item %d has no key", i)
		}
	}

	for i, playlist := range l.Playlists {
		if err := playlist.Validate(); err != nil {
			return fmt.Errorf("playlist %d: %w", i, err)
		}
	}

	for i, def := range l.Taxonomy {
		if def.Key().Zero() {
			return fmt.Errorf("taxonomy entry %d incomplete", i)
		}
	}

	return nil
}
