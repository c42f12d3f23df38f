package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/machinemessiah/tagify-sub000/internal/models"
	"github.com/machinemessiah/tagify-sub000/internal/shared"
)

// ItemRepository implements models.Repository[*models.PersistedItem] for the
// tagged catalog.
//
// Items live in the items table; applied tags live in the item_tags junction
// table keyed by item key. Both are written together: Create and Update
// replace the junction rows with the entity's current tag set.
type ItemRepository struct {
	db *sql.DB
}

// NewItemRepository creates a new ItemRepository with the given database connection
func NewItemRepository(db *sql.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// Create inserts a new [models.PersistedItem] into the database with generated ID and sequence
func (r *ItemRepository) Create(item *models.PersistedItem) error {
	sequence, err := NextSequence(r.db, "items")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	item.SetID(id)

	if err := item.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO items (id, sequence, key, rating, energy, tempo, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		item.Key(),
		nullArg(item.Rating()),
		nullArg(item.Energy()),
		nullArg(item.Tempo()),
		item.CreatedAt(),
		item.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}

	return r.replaceTags(item.Key(), item.Tags())
}

// Get retrieves an item by ID, excluding soft-deleted items
func (r *ItemRepository) Get(id string) (*models.PersistedItem, error) {
	query := `
		SELECT id, sequence, key, rating, energy, tempo, created_at, updated_at, deleted_at
		FROM items
		WHERE id = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByKey retrieves an item by its catalog key
func (r *ItemRepository) GetByKey(key string) (*models.PersistedItem, error) {
	query := `
		SELECT id, sequence, key, rating, energy, tempo, created_at, updated_at, deleted_at
		FROM items
		WHERE key = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, key))
}

// Update modifies an existing item and replaces its junction rows
func (r *ItemRepository) Update(item *models.PersistedItem) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	item.SetUpdatedAt(now)

	query := `
		UPDATE items
		SET rating = ?, energy = ?, tempo = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		nullArg(item.Rating()),
		nullArg(item.Energy()),
		nullArg(item.Tempo()),
		now,
		item.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("item not found or already deleted: %s", item.ID())
	}

	return r.replaceTags(item.Key(), item.Tags())
}

// Delete soft-deletes an item by ID and clears its junction rows
func (r *ItemRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE items
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("item not found or already deleted: %s", id)
	}

	_, err = r.db.Exec(`DELETE FROM item_tags WHERE item_key IN (SELECT key FROM items WHERE id = ?)`, id)
	if err != nil {
		return fmt.Errorf("failed to clear item tags: %w", err)
	}

	return nil
}

// DeleteByKey soft-deletes an item by its catalog key and clears its junction rows
func (r *ItemRepository) DeleteByKey(key string) error {
	item, err := r.GetByKey(key)
	if err != nil {
		return err
	}

	return r.Delete(item.ID())
}

// List retrieves all items matching the given criteria, excluding soft-deleted items
func (r *ItemRepository) List(criteria map[string]any) ([]*models.PersistedItem, error) {
	query := `
		SELECT id, sequence, key, rating, energy, tempo, created_at, updated_at, deleted_at
		FROM items
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if tag, ok := criteria["tag"].(string); ok && tag != "" {
		key, err := models.ParseTagKey(tag)
		if err != nil {
			return nil, err
		}

		query += ` AND key IN (
			SELECT item_key FROM item_tags
			WHERE category = ? AND subcategory = ? AND tag_id = ?
		)`
		args = append(args, key.Category, key.Subcategory, key.ID)
	}

	if prefix, ok := criteria["key_prefix"].(string); ok && prefix != "" {
		query += " AND key LIKE ?"
		args = append(args, prefix+"%")
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []*models.PersistedItem
	for rows.Next() {
		item, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	for _, item := range items {
		tags, err := r.loadTags(item.Key())
		if err != nil {
			return nil, err
		}
		item.SetTags(tags)
	}

	return items, nil
}

// Items returns the whole active catalog as flat DTOs, tags attached, for
// criteria evaluation.
func (r *ItemRepository) Items() ([]models.Item, error) {
	persisted, err := r.List(map[string]any{})
	if err != nil {
		return nil, err
	}

	items := make([]models.Item, 0, len(persisted))
	for _, p := range persisted {
		items = append(items, p.Item())
	}

	return items, nil
}

// replaceTags overwrites the junction rows for an item key with the given set
func (r *ItemRepository) replaceTags(key string, tags []models.TagKey) error {
	if _, err := r.db.Exec(`DELETE FROM item_tags WHERE item_key = ?`, key); err != nil {
		return fmt.Errorf("failed to clear item tags: %w", err)
	}

	now := time.Now()
	for _, tag := range tags {
		_, err := r.db.Exec(
			`INSERT INTO item_tags (item_key, category, subcategory, tag_id, created_at) VALUES (?, ?, ?, ?, ?)`,
			key, tag.Category, tag.Subcategory, tag.ID, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert item tag %s: %w", tag.String(), err)
		}
	}

	return nil
}

// loadTags reads the junction rows for an item key in insertion order
func (r *ItemRepository) loadTags(key string) ([]models.TagKey, error) {
	rows, err := r.db.Query(
		`SELECT category, subcategory, tag_id FROM item_tags WHERE item_key = ? ORDER BY rowid ASC`,
		key,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query item tags: %w", err)
	}
	defer rows.Close()

	var tags []models.TagKey
	for rows.Next() {
		var tag models.TagKey
		if err := rows.Scan(&tag.Category, &tag.Subcategory, &tag.ID); err != nil {
			return nil, fmt.Errorf("failed to scan item tag: %w", err)
		}
		tags = append(tags, tag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tags, nil
}

// scanOne scans a single [sql.Row] into a [models.PersistedItem] and attaches its tags
func (r *ItemRepository) scanOne(row *sql.Row) (*models.PersistedItem, error) {
	var (
		id        string
		sequence  int
		key       string
		rating    sql.NullInt64
		energy    sql.NullInt64
		tempo     sql.NullInt64
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := row.Scan(&id, &sequence, &key, &rating, &energy, &tempo, &createdAt, &updatedAt, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, shared.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan item: %w", err)
	}

	dto := models.Item{
		Key:       key,
		Rating:    fromNull(rating),
		Energy:    fromNull(energy),
		Tempo:     fromNull(tempo),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}

	item := models.NewPersistedItem(sequence, dto)
	item.SetID(id)
	if deletedAt.Valid {
		item.SetDeletedAt(&deletedAt.Time)
	}

	tags, err := r.loadTags(key)
	if err != nil {
		return nil, err
	}
	item.SetTags(tags)

	return item, nil
}

// scanRow scans a row from [sql.Rows] into a [models.PersistedItem] without tags
func (r *ItemRepository) scanRow(rows *sql.Rows) (*models.PersistedItem, error) {
	var (
		id        string
		sequence  int
		key       string
		rating    sql.NullInt64
		energy    sql.NullInt64
		tempo     sql.NullInt64
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := rows.Scan(&id, &sequence, &key, &rating, &energy, &tempo, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan item: %w", err)
	}

	dto := models.Item{
		Key:       key,
		Rating:    fromNull(rating),
		Energy:    fromNull(energy),
		Tempo:     fromNull(tempo),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}

	item := models.NewPersistedItem(sequence, dto)
	item.SetID(id)
	if deletedAt.Valid {
		item.SetDeletedAt(&deletedAt.Time)
	}

	return item, nil
}
