package models

import (
	"fmt"
	"time"
)

// PersistedItem wraps an [Item] DTO with database identity for the items
// table. Applied tags live in the item_tags junction table and are attached
// by the repository after scanning.
type PersistedItem struct {
	id        string
	sequence  int
	item      Item
	deletedAt *time.Time
}

// NewPersistedItem creates a persisted item from a DTO, stamping timestamps
// when the DTO carries none.
func NewPersistedItem(sequence int, dto Item) *PersistedItem {
	now := time.Now()
	if dto.CreatedAt.IsZero() {
		dto.CreatedAt = now
	}
	if dto.UpdatedAt.IsZero() {
		dto.UpdatedAt = now
	}

	return &PersistedItem{sequence: sequence, item: dto}
}

func (p *PersistedItem) ID() string            { return p.id }
func (p *PersistedItem) SetID(id string)       { p.id = id }
func (p *PersistedItem) Sequence() int         { return p.sequence }
func (p *PersistedItem) Key() string           { return p.item.Key }
func (p *PersistedItem) Rating() NullInt       { return p.item.Rating }
func (p *PersistedItem) Energy() NullInt       { return p.item.Energy }
func (p *PersistedItem) Tempo() NullInt        { return p.item.Tempo }
func (p *PersistedItem) Tags() []TagKey        { return p.item.Tags }
func (p *PersistedItem) CreatedAt() time.Time  { return p.item.CreatedAt }
func (p *PersistedItem) UpdatedAt() time.Time  { return p.item.UpdatedAt }
func (p *PersistedItem) DeletedAt() *time.Time { return p.deletedAt }

func (p *PersistedItem) SetRating(v NullInt)       { p.item.Rating = v }
func (p *PersistedItem) SetEnergy(v NullInt)       { p.item.Energy = v }
func (p *PersistedItem) SetTempo(v NullInt)        { p.item.Tempo = v }
func (p *PersistedItem) SetTags(tags []TagKey)     { p.item.Tags = tags }
func (p *PersistedItem) SetCreatedAt(t time.Time)  { p.item.CreatedAt = t }
func (p *PersistedItem) SetUpdatedAt(t time.Time)  { p.item.UpdatedAt = t }
func (p *PersistedItem) SetDeletedAt(t *time.Time) { p.deletedAt = t }

// Item returns a detached copy of the wrapped DTO.
func (p *PersistedItem) Item() Item {
	return p.item.Clone()
}

// Validate checks key presence and value ranges.
func (p *PersistedItem) Validate() error {
	if p.item.Key == "" {
		return fmt.Errorf("item has no key")
	}

	if p.item.Rating.Valid && (p.item.Rating.Value < 1 || p.item.Rating.Value > 10) {
		return fmt.Errorf("rating %d out of range for %s", p.item.Rating.Value, p.item.Key)
	}

	if p.item.Energy.Valid && (p.item.Energy.Value < 1 || p.item.Energy.Value > 10) {
		return fmt.Errorf("energy %d out of range for %s", p.item.Energy.Value, p.item.Key)
	}

	if p.item.Tempo.Valid && p.item.Tempo.Value < 1 {
		return fmt.Errorf("tempo %d out of range for %s", p.item.Tempo.Value, p.item.Key)
	}

	return nil
}

// PersistedTag is one taxonomy entry in the tags table. The key's ID part is
// stored in the leaf column.
type PersistedTag struct {
	id        string
	sequence  int
	key       TagKey
	label     string
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewPersistedTag creates a taxonomy entry. An empty label defaults to the
// key's leaf id.
func NewPersistedTag(sequence int, key TagKey, label string) *PersistedTag {
	if label == "" {
		label = key.ID
	}

	now := time.Now()
	return &PersistedTag{
		sequence:  sequence,
		key:       key,
		label:     label,
		createdAt: now,
		updatedAt: now,
	}
}

func (t *PersistedTag) ID() string            { return t.id }
func (t *PersistedTag) SetID(id string)       { t.id = id }
func (t *PersistedTag) Sequence() int         { return t.sequence }
func (t *PersistedTag) Key() TagKey           { return t.key }
func (t *PersistedTag) Label() string         { return t.label }
func (t *PersistedTag) CreatedAt() time.Time  { return t.createdAt }
func (t *PersistedTag) UpdatedAt() time.Time  { return t.updatedAt }
func (t *PersistedTag) DeletedAt() *time.Time { return t.deletedAt }

func (t *PersistedTag) SetLabel(label string)      { t.label = label }
func (t *PersistedTag) SetCreatedAt(tm time.Time)  { t.createdAt = tm }
func (t *PersistedTag) SetUpdatedAt(tm time.Time)  { t.updatedAt = tm }
func (t *PersistedTag) SetDeletedAt(tm *time.Time) { t.deletedAt = tm }

// Validate checks the compound key and label.
func (t *PersistedTag) Validate() error {
	if t.key.Zero() {
		return fmt.Errorf("tag key incomplete: %q", t.key.String())
	}

	if t.label == "" {
		return fmt.Errorf("tag %s has no label", t.key.String())
	}

	return nil
}

// Sync run kinds.
const (
	SyncKindSingleItem    = "single_item"
	SyncKindFullReconcile = "full_reconcile"
)

// Sync run statuses.
const (
	SyncStatusRunning   = "running"
	SyncStatusCompleted = "completed"
	SyncStatusFailed    = "failed"
)

// SyncRun is one audit record in the sync_runs table, written for every
// reconciliation pass and every single-item operation that touched the
// remote.
type SyncRun struct {
	id           string
	sequence     int
	playlistID   string
	playlistName string
	kind         string
	status       string
	added        int
	removed      int
	deduplicated int
	failed       int
	dataLoss     bool
	errorMessage string
	startedAt    *time.Time
	completedAt  *time.Time
	createdAt    time.Time
	updatedAt    time.Time
	deletedAt    *time.Time
}

// NewSyncRun creates a running sync record stamped with the current time.
func NewSyncRun(sequence int, playlistID, playlistName, kind string) *SyncRun {
	now := time.Now()
	return &SyncRun{
		sequence:     sequence,
		playlistID:   playlistID,
		playlistName: playlistName,
		kind:         kind,
		status:       SyncStatusRunning,
		startedAt:    &now,
		createdAt:    now,
		updatedAt:    now,
	}
}

func (s *SyncRun) ID() string              { return s.id }
func (s *SyncRun) SetID(id string)         { s.id = id }
func (s *SyncRun) Sequence() int           { return s.sequence }
func (s *SyncRun) PlaylistID() string      { return s.playlistID }
func (s *SyncRun) PlaylistName() string    { return s.playlistName }
func (s *SyncRun) Kind() string            { return s.kind }
func (s *SyncRun) Status() string          { return s.status }
func (s *SyncRun) Added() int              { return s.added }
func (s *SyncRun) Removed() int            { return s.removed }
func (s *SyncRun) Deduplicated() int       { return s.deduplicated }
func (s *SyncRun) Failed() int             { return s.failed }
func (s *SyncRun) DataLoss() bool          { return s.dataLoss }
func (s *SyncRun) ErrorMessage() string    { return s.errorMessage }
func (s *SyncRun) StartedAt() *time.Time   { return s.startedAt }
func (s *SyncRun) CompletedAt() *time.Time { return s.completedAt }
func (s *SyncRun) CreatedAt() time.Time    { return s.createdAt }
func (s *SyncRun) UpdatedAt() time.Time    { return s.updatedAt }
func (s *SyncRun) DeletedAt() *time.Time   { return s.deletedAt }

func (s *SyncRun) SetStatus(status string)     { s.status = status }
func (s *SyncRun) SetAdded(n int)              { s.added = n }
func (s *SyncRun) SetRemoved(n int)            { s.removed = n }
func (s *SyncRun) SetDeduplicated(n int)       { s.deduplicated = n }
func (s *SyncRun) SetFailed(n int)             { s.failed = n }
func (s *SyncRun) SetDataLoss(v bool)          { s.dataLoss = v }
func (s *SyncRun) SetErrorMessage(msg string)  { s.errorMessage = msg }
func (s *SyncRun) SetStartedAt(t *time.Time)   { s.startedAt = t }
func (s *SyncRun) SetCompletedAt(t *time.Time) { s.completedAt = t }
func (s *SyncRun) SetCreatedAt(t time.Time)    { s.createdAt = t }
func (s *SyncRun) SetUpdatedAt(t time.Time)    { s.updatedAt = t }
func (s *SyncRun) SetDeletedAt(t *time.Time)   { s.deletedAt = t }

// Validate checks identity and enum fields.
func (s *SyncRun) Validate() error {
	if s.playlistID == "" {
		return fmt.Errorf("sync run has no playlist id")
	}

	switch s.kind {
	case SyncKindSingleItem, SyncKindFullReconcile:
	default:
		return fmt.Errorf("unknown sync kind %q", s.kind)
	}

	switch s.status {
	case SyncStatusRunning, SyncStatusCompleted, SyncStatusFailed:
	default:
		return fmt.Errorf("unknown sync status %q", s.status)
	}

	return nil
}
