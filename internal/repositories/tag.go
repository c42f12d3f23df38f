package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/machinemessiah/tagify-sub000/internal/models"
	"github.com/machinemessiah/tagify-sub000/internal/shared"
)

// TagRepository implements models.Repository[*models.PersistedTag] for the
// tag taxonomy.
//
// The taxonomy is lazily populated: GetOrCreate registers a tag the first
// time it is applied to an item, so users never have to pre-declare keys.
type TagRepository struct {
	db *sql.DB
}

// NewTagRepository creates a new TagRepository with the given database connection
func NewTagRepository(db *sql.DB) *TagRepository {
	return &TagRepository{db: db}
}

// Create inserts a new taxonomy entry into the database with generated ID and sequence
func (r *TagRepository) Create(tag *models.PersistedTag) error {
	sequence, err := NextSequence(r.db, "tags")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	tag.SetID(id)

	if err := tag.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO tags (id, sequence, category, subcategory, leaf, label, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	key := tag.Key()
	_, err = r.db.Exec(query,
		id,
		sequence,
		key.Category,
		key.Subcategory,
		key.ID,
		tag.Label(),
		tag.CreatedAt(),
		tag.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert tag: %w", err)
	}

	return nil
}

// Get retrieves a taxonomy entry by ID, excluding soft-deleted tags
func (r *TagRepository) Get(id string) (*models.PersistedTag, error) {
	query := `
		SELECT id, sequence, category, subcategory, leaf, label, created_at, updated_at, deleted_at
		FROM tags
		WHERE id = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByKey retrieves a taxonomy entry by its compound key
func (r *TagRepository) GetByKey(key models.TagKey) (*models.PersistedTag, error) {
	query := `
		SELECT id, sequence, category, subcategory, leaf, label, created_at, updated_at, deleted_at
		FROM tags
		WHERE category = ? AND subcategory = ? AND leaf = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, key.Category, key.Subcategory, key.ID))
}

// GetOrCreate returns the taxonomy entry for the key, registering it on first use.
// Concurrent registration (UNIQUE constraint violations) resolves to the winning row.
func (r *TagRepository) GetOrCreate(key models.TagKey) (*models.PersistedTag, error) {
	existing, err := r.GetByKey(key)
	if err == nil && existing != nil {
		return existing, nil
	}

	tag := models.NewPersistedTag(0, key, "")
	if err := r.Create(tag); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return r.GetByKey(key)
		}
		return nil, fmt.Errorf("failed to register tag: %w", err)
	}

	return tag, nil
}

// Update modifies an existing taxonomy entry's label
func (r *TagRepository) Update(tag *models.PersistedTag) error {
	if err := tag.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	tag.SetUpdatedAt(now)

	query := `
		UPDATE tags
		SET label = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, tag.Label(), now, tag.ID())
	if err != nil {
		return fmt.Errorf("failed to update tag: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("tag not found or already deleted: %s", tag.ID())
	}

	return nil
}

// Delete soft-deletes a taxonomy entry by ID
func (r *TagRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE tags
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("tag not found or already deleted: %s", id)
	}

	return nil
}

// List retrieves all taxonomy entries matching the given criteria, excluding soft-deleted tags.
// Entries are ordered by category, subcategory and leaf for grouped display.
func (r *TagRepository) List(criteria map[string]any) ([]*models.PersistedTag, error) {
	query := `
		SELECT id, sequence, category, subcategory, leaf, label, created_at, updated_at, deleted_at
		FROM tags
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if category, ok := criteria["category"].(string); ok && category != "" {
		query += " AND category = ?"
		args = append(args, category)
	}

	if subcategory, ok := criteria["subcategory"].(string); ok && subcategory != "" {
		query += " AND subcategory = ?"
		args = append(args, subcategory)
	}

	query += " ORDER BY category ASC, subcategory ASC, leaf ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	var tags []*models.PersistedTag
	for rows.Next() {
		tag, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tags, nil
}

// scanOne scans a single [sql.Row] into a [models.PersistedTag]
func (r *TagRepository) scanOne(row *sql.Row) (*models.PersistedTag, error) {
	var (
		id          string
		sequence    int
		category    string
		subcategory string
		leaf        string
		label       string
		createdAt   time.Time
		updatedAt   time.Time
		deletedAt   sql.NullTime
	)

	err := row.Scan(&id, &sequence, &category, &subcategory, &leaf, &label, &createdAt, &updatedAt, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, shared.ErrTagNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan tag: %w", err)
	}

	key := models.TagKey{Category: category, Subcategory: subcategory, ID: leaf}
	tag := models.NewPersistedTag(sequence, key, label)
	tag.SetID(id)
	tag.SetCreatedAt(createdAt)
	tag.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		tag.SetDeletedAt(&deletedAt.Time)
	}

	return tag, nil
}

// scanRow scans a row from [sql.Rows] into a [models.PersistedTag]
func (r *TagRepository) scanRow(rows *sql.Rows) (*models.PersistedTag, error) {
	var (
		id          string
		sequence    int
		category    string
		subcategory string
		leaf        string
		label       string
		createdAt   time.Time
		updatedAt   time.Time
		deletedAt   sql.NullTime
	)

	err := rows.Scan(&id, &sequence, &category, &subcategory, &leaf, &label, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan tag: %w", err)
	}

	key := models.TagKey{Category: category, Subcategory: subcategory, ID: leaf}
	tag := models.NewPersistedTag(sequence, key, label)
	tag.SetID(id)
	tag.SetCreatedAt(createdAt)
	tag.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		tag.SetDeletedAt(&deletedAt.Time)
	}

	return tag, nil
}
