package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/machinemessiah/tagify-sub000/internal/models"
)

// MetadataRepository caches remote track metadata in the track_meta table so
// listings and the TUI can render titles without a network round trip.
//
// Rows are keyed by the remote item key and overwritten on every cache call;
// there is no soft delete, the cache is disposable.
type MetadataRepository struct {
	db *sql.DB
}

// NewMetadataRepository creates a new MetadataRepository with the given database connection
func NewMetadataRepository(db *sql.DB) *MetadataRepository {
	return &MetadataRepository{db: db}
}

// Cache stores or refreshes the metadata row for a track
func (r *MetadataRepository) Cache(track models.Track) error {
	if track.ID == "" {
		return fmt.Errorf("track has no id")
	}

	query := `
		INSERT INTO track_meta (service_id, title, artist, album, duration, cached_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(service_id) DO UPDATE SET
			title = excluded.title,
			artist = excluded.artist,
			album = excluded.album,
			duration = excluded.duration,
			cached_at = excluded.cached_at
	`

	_, err := r.db.Exec(query, track.ID, track.Title, track.Artist, track.Album, track.Duration, time.Now())
	if err != nil {
		return fmt.Errorf("failed to cache track metadata: %w", err)
	}

	return nil
}

// Get retrieves cached metadata for one item key
func (r *MetadataRepository) Get(serviceID string) (models.Track, error) {
	query := `
		SELECT service_id, title, artist, album, duration
		FROM track_meta
		WHERE service_id = ?
	`

	var track models.Track
	err := r.db.QueryRow(query, serviceID).Scan(&track.ID, &track.Title, &track.Artist, &track.Album, &track.Duration)
	if err == sql.ErrNoRows {
		return models.Track{}, fmt.Errorf("track metadata not cached: %s", serviceID)
	}
	if err != nil {
		return models.Track{}, fmt.Errorf("failed to scan track metadata: %w", err)
	}

	return track, nil
}

// GetBatch retrieves cached metadata for many item keys at once. Missing keys
// are simply absent from the result map.
func (r *MetadataRepository) GetBatch(serviceIDs []string) (map[string]models.Track, error) {
	result := make(map[string]models.Track, len(serviceIDs))
	if len(serviceIDs) == 0 {
		return result, nil
	}

	placeholders := strings.Repeat("?,", len(serviceIDs))
	placeholders = placeholders[:len(placeholders)-1]

	query := fmt.Sprintf(`
		SELECT service_id, title, artist, album, duration
		FROM track_meta
		WHERE service_id IN (%s)
	`, placeholders)

	args := make([]any, len(serviceIDs))
	for i, id := range serviceIDs {
		args[i] = id
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query track metadata: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var track models.Track
		if err := rows.Scan(&track.ID, &track.Title, &track.Artist, &track.Album, &track.Duration); err != nil {
			return nil, fmt.Errorf("failed to scan track metadata: %w", err)
		}
		result[track.ID] = track
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return result, nil
}
