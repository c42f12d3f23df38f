package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/machinemessiah/tagify-sub000/internal/models"
	"github.com/machinemessiah/tagify-sub000/internal/tasks"
)

var (
	_ list.Item = playlistEntry{}
	_ list.Item = previewEntry{}
)

// playlistEntry wraps [models.SmartPlaylist] to implement [list.Item].
type playlistEntry struct {
	playlist models.SmartPlaylist
}

func (e playlistEntry) FilterValue() string { return e.playlist.Name }
func (e playlistEntry) Title() string       { return e.playlist.Name }
func (e playlistEntry) Description() string {
	status := "inactive"
	if e.playlist.Active {
		status = "active"
	}
	return fmt.Sprintf("%d members • %s • %s", len(e.playlist.Expected), status, e.playlist.CollectionID)
}

// previewEntry is one catalog key in a sync preview, annotated with what a
// pass would do to it.
type previewEntry struct {
	key    string
	status string
}

func (e previewEntry) FilterValue() string { return e.key }
func (e previewEntry) Title() string       { return e.key }
func (e previewEntry) Description() string { return e.status }

// previewEntries flattens a preview into displayable rows: matching keys
// first with their pending action, then the members a pass would drop.
func previewEntries(p *tasks.PreviewResult) []list.Item {
	toAdd := stringSet(p.ToAdd)
	local := stringSet(p.LocalOnly)

	entries := make([]list.Item, 0, len(p.Matching)+len(p.ToRemove))
	for _, key := range p.Matching {
		switch {
		case local[key]:
			entries = append(entries, previewEntry{key: key, status: "local only, add manually"})
		case toAdd[key]:
			entries = append(entries, previewEntry{key: key, status: "will be added"})
		default:
			entries = append(entries, previewEntry{key: key, status: "in sync"})
		}
	}
	for _, key := range p.ToRemove {
		entries = append(entries, previewEntry{key: key, status: "will be removed"})
	}
	return entries
}

func stringSet(keys []string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}

// criteriaSummary renders a one-line description of what a playlist selects.
func criteriaSummary(c models.Criteria) string {
	var parts []string
	if len(c.IncludeTags) > 0 {
		tags := make([]string, len(c.IncludeTags))
		for i, t := range c.IncludeTags {
			tags[i] = t.String()
		}
		parts = append(parts, strings.Join(tags, ", "))
	}
	if len(c.RatingSet) > 0 {
		parts = append(parts, fmt.Sprintf("%d rating values", len(c.RatingSet)))
	}
	if c.EnergyMin.Valid || c.EnergyMax.Valid {
		parts = append(parts, "energy range")
	}
	if c.TempoMin.Valid || c.TempoMax.Valid {
		parts = append(parts, "tempo range")
	}
	if len(parts) == 0 {
		return "matches every item"
	}
	return strings.Join(parts, " • ")
}
