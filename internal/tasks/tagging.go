// package tasks: catalog edits feeding the dispatcher
package tasks

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/machinemessiah/tagify-sub000/internal/models"
	"github.com/machinemessiah/tagify-sub000/internal/shared"
)

// ItemWriter is the slice of the item repository the tagger mutates.
type ItemWriter interface {
	GetByKey(key string) (*models.PersistedItem, error)
	Create(item *models.PersistedItem) error
	Update(item *models.PersistedItem) error
	DeleteByKey(key string) error
}

// TagResolver registers tag keys in the taxonomy as they are first used.
type TagResolver interface {
	GetOrCreate(key models.TagKey) (*models.PersistedTag, error)
}

// EditResult describes the catalog state after one tagging operation.
type EditResult struct {
	Item    models.Item // Item state after the edit
	Created bool        // The item entered the catalog with this edit
	Pruned  bool        // The item left the catalog (no data remained)
	Applied bool        // ToggleTag only: the tag is present afterwards
}

// BatchResult summarizes a bulk tagging request.
type BatchResult struct {
	Edited  int // Items changed and kept
	Pruned  int // Items that left the catalog
	Skipped int // Edits that produced no stored state
	Failed  int // Edits that errored
}

// Tagger applies catalog edits and hands the resulting change events to the
// engine's dispatcher. Every mutation follows the same arc: load or create
// the item, apply the edit, prune the item when nothing user-authored
// remains, then dispatch.
type Tagger struct {
	items  ItemWriter
	tags   TagResolver
	engine *Engine
	logger *log.Logger
}

// NewTagger wires a tagger. engine may be nil when no sync is configured;
// edits then stay local.
func NewTagger(items ItemWriter, tags TagResolver, engine *Engine, logger *log.Logger) *Tagger {
	if logger == nil {
		logger = log.Default()
	}

	return &Tagger{items: items, tags: tags, engine: engine, logger: logger}
}

// Rate sets the item's rating (1-10). Zero clears it. Rating an unknown key
// creates the item.
func (t *Tagger) Rate(key string, rating int) (*EditResult, error) {
	if rating < 0 || rating > 10 {
		return nil, fmt.Errorf("%w: rating %d out of range", shared.ErrInvalidInput, rating)
	}

	return t.mutate(key, rating > 0, func(p *models.PersistedItem) error {
		p.SetRating(models.IntFrom(rating))
		return nil
	})
}

// SetEnergy sets the item's energy level (1-10). Zero clears it.
func (t *Tagger) SetEnergy(key string, energy int) (*EditResult, error) {
	if energy < 0 || energy > 10 {
		return nil, fmt.Errorf("%w: energy %d out of range", shared.ErrInvalidInput, energy)
	}

	return t.mutate(key, energy > 0, func(p *models.PersistedItem) error {
		p.SetEnergy(models.IntFrom(energy))
		return nil
	})
}

// SetTempo stores the measured BPM. Zero clears it. Tempo is derived data:
// it never creates an item on its own and never keeps one alive.
func (t *Tagger) SetTempo(key string, tempo int) (*EditResult, error) {
	if tempo < 0 {
		return nil, fmt.Errorf("%w: tempo %d out of range", shared.ErrInvalidInput, tempo)
	}

	return t.mutate(key, false, func(p *models.PersistedItem) error {
		p.SetTempo(models.IntFrom(tempo))
		return nil
	})
}

// ToggleTag flips the tag's presence on the item, registering the key in
// the taxonomy on first use. Tagging an unknown item key creates the item.
func (t *Tagger) ToggleTag(key string, tag models.TagKey) (*EditResult, error) {
	if tag.Zero() {
		return nil, fmt.Errorf("%w: incomplete tag key %q", shared.ErrInvalidInput, tag.String())
	}

	applied := false
	result, err := t.mutate(key, true, func(p *models.PersistedItem) error {
		item := p.Item()
		if item.RemoveTag(tag) {
			p.SetTags(item.Tags)
			return nil
		}

		if t.tags != nil {
			if _, err := t.tags.GetOrCreate(tag); err != nil {
				return fmt.Errorf("failed to register tag %s: %w", tag.String(), err)
			}
		}

		item.AddTag(tag)
		p.SetTags(item.Tags)
		applied = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Applied = applied
	return result, nil
}

// BatchEdit is one entry in a bulk tagging request. Nil numeric fields are
// left untouched; zero values clear.
type BatchEdit struct {
	Key        string          `json:"key"`
	Rating     *int            `json:"rating,omitempty"`
	Energy     *int            `json:"energy,omitempty"`
	Tempo      *int            `json:"tempo,omitempty"`
	AddTags    []models.TagKey `json:"addTags,omitempty"`
	RemoveTags []models.TagKey `json:"removeTags,omitempty"`
}

// ApplyBatch applies every edit, then dispatches the surviving items as one
// batch of change events. A failing edit is logged and counted, it does not
// stop the batch.
func (t *Tagger) ApplyBatch(edits []BatchEdit) (*BatchResult, error) {
	result := &BatchResult{}

	var changed []models.Item
	for _, edit := range edits {
		res, err := t.applyEdit(edit.Key, true, func(p *models.PersistedItem) error {
			return t.applyBatchEdit(p, edit)
		})
		if err != nil {
			t.logger.Error("batch edit failed", "item", edit.Key, "error", err)
			result.Failed++
			continue
		}

		switch {
		case res.Pruned:
			result.Pruned++
			t.dispatch(edit.Key, nil)
		case !res.Item.Empty():
			result.Edited++
			changed = append(changed, res.Item)
		default:
			result.Skipped++
		}
	}

	if t.engine != nil && len(changed) > 0 {
		if _, err := t.engine.OnItemsChangedBatch(changed); err != nil {
			t.logger.Warn("failed to queue batch sync", "error", err)
		}
	}

	return result, nil
}

// applyBatchEdit applies one batch entry to the loaded item.
func (t *Tagger) applyBatchEdit(p *models.PersistedItem, edit BatchEdit) error {
	if edit.Rating != nil {
		if *edit.Rating < 0 || *edit.Rating > 10 {
			return fmt.Errorf("%w: rating %d out of range", shared.ErrInvalidInput, *edit.Rating)
		}
		p.SetRating(models.IntFrom(*edit.Rating))
	}

	if edit.Energy != nil {
		if *edit.Energy < 0 || *edit.Energy > 10 {
			return fmt.Errorf("%w: energy %d out of range", shared.ErrInvalidInput, *edit.Energy)
		}
		p.SetEnergy(models.IntFrom(*edit.Energy))
	}

	if edit.Tempo != nil {
		if *edit.Tempo < 0 {
			return fmt.Errorf("%w: tempo %d out of range", shared.ErrInvalidInput, *edit.Tempo)
		}
		p.SetTempo(models.IntFrom(*edit.Tempo))
	}

	item := p.Item()
	for _, tag := range edit.RemoveTags {
		item.RemoveTag(tag)
	}

	for _, tag := range edit.AddTags {
		if tag.Zero() {
			return fmt.Errorf("%w: incomplete tag key %q", shared.ErrInvalidInput, tag.String())
		}
		if item.AddTag(tag) && t.tags != nil {
			if _, err := t.tags.GetOrCreate(tag); err != nil {
				return fmt.Errorf("failed to register tag %s: %w", tag.String(), err)
			}
		}
	}
	p.SetTags(item.Tags)

	return nil
}

// mutate runs one edit and dispatches the resulting change event.
func (t *Tagger) mutate(key string, create bool, edit func(*models.PersistedItem) error) (*EditResult, error) {
	result, err := t.applyEdit(key, create, edit)
	if err != nil {
		return nil, err
	}

	switch {
	case result.Pruned:
		t.dispatch(key, nil)
	case !result.Item.Empty():
		item := result.Item
		t.dispatch(key, &item)
	}

	return result, nil
}

// applyEdit loads or creates the item, applies the edit, and stores or
// prunes the outcome. Dispatching is the caller's job.
func (t *Tagger) applyEdit(key string, create bool, edit func(*models.PersistedItem) error) (*EditResult, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: item has no key", shared.ErrInvalidInput)
	}

	isNew := false
	persisted, err := t.items.GetByKey(key)
	if err != nil {
		if !create || !errors.Is(err, shared.ErrItemNotFound) {
			return nil, err
		}
		persisted = models.NewPersistedItem(0, models.Item{Key: key})
		isNew = true
	}

	if err := edit(persisted); err != nil {
		return nil, err
	}

	item := persisted.Item()
	result := &EditResult{Item: item}

	switch {
	case item.Empty() && isNew:
		// The edit cleared the only value it would have set. Nothing to
		// store, nothing to sync.
		return result, nil
	case item.Empty():
		if err := t.items.DeleteByKey(key); err != nil {
			return nil, err
		}
		result.Pruned = true
	case isNew:
		if err := t.items.Create(persisted); err != nil {
			return nil, err
		}
		result.Created = true
	default:
		if err := t.items.Update(persisted); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// dispatch hands one change event to the engine when one is wired.
func (t *Tagger) dispatch(key string, item *models.Item) {
	if t.engine == nil {
		return
	}

	if _, err := t.engine.OnItemChanged(key, item); err != nil {
		t.logger.Warn("failed to queue sync for item change", "item", key, "error", err)
	}
}
