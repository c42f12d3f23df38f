// package formatter renders the library to export formats (JSON, CSV,
// Markdown) and parses library imports
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/machinemessiah/tagify-sub000/internal/models"
	"github.com/machinemessiah/tagify-sub000/internal/shared"
)

// ExportLibrary encodes the library envelope as JSON, stamping the export
// time when the caller left it unset.
func ExportLibrary(lib models.Library, pretty bool) ([]byte, error) {
	if lib.ExportedAt.IsZero() {
		lib.ExportedAt = time.Now().UTC()
	}

	data, err := shared.MarshalJSON(lib, pretty)
	if err != nil {
		return nil, fmt.Errorf("failed to encode library: %w", err)
	}
	return data, nil
}

// ImportLibrary parses and validates a library envelope. Nothing is applied
// here; the caller decides what to do with the result.
func ImportLibrary(data []byte) (*models.Library, error) {
	if err := shared.ValidateJSON(data); err != nil {
		return nil, err
	}

	var lib models.Library
	if err := json.Unmarshal(data, &lib); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	if err := lib.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	return &lib, nil
}

// ItemsToCSV renders the catalog with columns: Key, Rating, Energy, Tempo,
// Tags. Unset values become empty cells; tags are joined with ";".
func ItemsToCSV(items []models.Item) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Key", "Rating", "Energy", "Tempo", "Tags"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, item := range items {
		record := []string{
			item.Key,
			nullIntCell(item.Rating),
			nullIntCell(item.Energy),
			nullIntCell(item.Tempo),
			joinTags(item.Tags),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// PlaylistToMarkdown renders one smart playlist: criteria, sync state and
// the expected member listing. tracks maps item keys to cached metadata;
// members without an entry render as their bare key.
func PlaylistToMarkdown(p models.SmartPlaylist, tracks map[string]models.Track) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", p.Name))
	buf.WriteString(fmt.Sprintf("**Collection**: %s\n", p.CollectionID))

	if p.Active {
		buf.WriteString("**Status**: active\n")
	} else {
		buf.WriteString("**Status**: inactive\n")
	}

	if p.LastSyncAt.IsZero() {
		buf.WriteString("**Last synced**: never\n\n")
	} else {
		buf.WriteString(fmt.Sprintf("**Last synced**: %s\n\n", p.LastSyncAt.UTC().Format(time.RFC3339)))
	}

	buf.WriteString("## Criteria\n\n")
	for _, line := range criteriaLines(p.Criteria) {
		buf.WriteString(fmt.Sprintf("- %s\n", line))
	}
	buf.WriteString("\n")

	buf.WriteString(fmt.Sprintf("## Members (%d)\n\n", len(p.Expected)))
	for i, key := range p.Expected {
		track, ok := tracks[key]
		if !ok {
			buf.WriteString(fmt.Sprintf("%d. %s\n", i+1, key))
			continue
		}

		albumPart := ""
		if track.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album)
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s [%s]\n",
			i+1, track.Artist, track.Title, albumPart, shared.FormatDuration(track.Duration)))
	}

	return buf.Bytes(), nil
}

// criteriaLines flattens a criteria into display lines, one per configured
// check.
func criteriaLines(c models.Criteria) []string {
	var lines []string

	if len(c.IncludeTags) > 0 {
		mode := "all"
		if c.MatchMode == models.MatchAny {
			mode = "any"
		}
		lines = append(lines, fmt.Sprintf("include (%s of): %s", mode, joinTags(c.IncludeTags)))
	}

	if len(c.ExcludeTags) > 0 {
		lines = append(lines, fmt.Sprintf("exclude: %s", joinTags(c.ExcludeTags)))
	}

	if len(c.RatingSet) > 0 {
		parts := make([]string, len(c.RatingSet))
		for i, r := range c.RatingSet {
			parts[i] = strconv.Itoa(r)
		}
		lines = append(lines, fmt.Sprintf("rating in {%s}", strings.Join(parts, ", ")))
	}

	if c.EnergyMin.Valid || c.EnergyMax.Valid {
		lines = append(lines, fmt.Sprintf("energy %s..%s", nullIntCell(c.EnergyMin), nullIntCell(c.EnergyMax)))
	}

	if c.TempoMin.Valid || c.TempoMax.Valid {
		lines = append(lines, fmt.Sprintf("tempo %s..%s BPM", nullIntCell(c.TempoMin), nullIntCell(c.TempoMax)))
	}

	if len(lines) == 0 {
		lines = append(lines, "matches every item")
	}

	return lines
}

// WriteLibraryExport writes the JSON envelope to path, defaulting to
// tagify_library.json.
func WriteLibraryExport(lib models.Library, path string) (string, error) {
	if path == "" {
		path = "tagify_library.json"
	}

	data, err := ExportLibrary(lib, true)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write library file: %w", err)
	}

	return path, nil
}

// WriteCSVExport writes the catalog CSV to path, defaulting to
// tagify_items.csv.
func WriteCSVExport(items []models.Item, path string) (string, error) {
	if path == "" {
		path = "tagify_items.csv"
	}

	data, err := ItemsToCSV(items)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write CSV file: %w", err)
	}

	return path, nil
}

// WriteMarkdownExport writes one README.md per playlist into outputDir,
// which defaults to the collection id.
func WriteMarkdownExport(p models.SmartPlaylist, tracks map[string]models.Track, outputDir string) (string, error) {
	if outputDir == "" {
		outputDir = p.CollectionID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := PlaylistToMarkdown(p, tracks)
	if err != nil {
		return "", err
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}

	return mdFile, nil
}

func nullIntCell(n models.NullInt) string {
	if !n.Valid {
		return ""
	}
	return strconv.Itoa(n.Value)
}

func joinTags(tags []models.TagKey) string {
	parts := make([]string, len(tags))
	for i, tag := range tags {
		parts[i] = tag.String()
	}
	return strings.Join(parts, ";")
}
