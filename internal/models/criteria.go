package models

import (
	"fmt"

	"github.com/machinemessiah/tagify-sub000/internal/shared"
)

// MatchMode controls how a criteria's include tags combine.
type MatchMode string

const (
	// MatchAll requires every include tag to be present on the item.
	MatchAll MatchMode = "all"
	// MatchAny requires at least one include tag to be present.
	MatchAny MatchMode = "any"
)

// Criteria is a declarative filter over the local catalog. A smart playlist
// owns exactly one. The zero value matches every item.
type Criteria struct {
	IncludeTags []TagKey  `json:"includeTags,omitempty"`
	ExcludeTags []TagKey  `json:"excludeTags,omitempty"`
	MatchMode   MatchMode `json:"matchMode,omitempty"`
	RatingSet   []int     `json:"ratingSet,omitempty"`
	EnergyMin   NullInt   `json:"energyMin"`
	EnergyMax   NullInt   `json:"energyMax"`
	TempoMin    NullInt   `json:"tempoMin"`
	TempoMax    NullInt   `json:"tempoMax"`
}

// Matches evaluates the item against every check in the criteria. All checks
// must pass.
func (c Criteria) Matches(item Item) bool {
	if !c.matchesIncludes(item) {
		return false
	}

	for _, key := range c.ExcludeTags {
		if item.HasTag(key) {
			return false
		}
	}

	if len(c.RatingSet) > 0 {
		// An unset rating never matches, even when 0 is listed.
		if !item.Rating.Valid {
			return false
		}

		if !containsInt(c.RatingSet, item.Rating.Value) {
			return false
		}
	}

	// Unset energy evaluates as 0 against the bounds.
	energy := item.Energy.Or(0)
	if c.EnergyMin.Valid && energy < c.EnergyMin.Value {
		return false
	}

	if c.EnergyMax.Valid && energy > c.EnergyMax.Value {
		return false
	}

	if c.TempoMin.Valid || c.TempoMax.Valid {
		// Tempo bounds require a measured tempo.
		if !item.Tempo.Valid {
			return false
		}

		if c.TempoMin.Valid && item.Tempo.Value < c.TempoMin.Value {
			return false
		}

		if c.TempoMax.Valid && item.Tempo.Value > c.TempoMax.Value {
			return false
		}
	}

	return true
}

func (c Criteria) matchesIncludes(item Item) bool {
	if len(c.IncludeTags) == 0 {
		return true
	}

	switch c.MatchMode {
	case MatchAny:
		for _, key := range c.IncludeTags {
			if item.HasTag(key) {
				return true
			}
		}
		return false
	default:
		for _, key := range c.IncludeTags {
			if !item.HasTag(key) {
				return false
			}
		}
		return true
	}
}

// Validate checks the criteria for internal consistency.
func (c Criteria) Validate() error {
	switch c.MatchMode {
	case "", MatchAll, MatchAny:
	default:
		return fmt.Errorf("%w: unknown match mode %q", shared.ErrInvalidCriteria, c.MatchMode)
	}

	for _, key := range c.IncludeTags {
		if key.Zero() {
			return fmt.Errorf("%w: incomplete include tag %q", shared.ErrInvalidCriteria, key.String())
		}
	}

	for _, key := range c.ExcludeTags {
		if key.Zero() {
			return fmt.Errorf("%w: incomplete exclude tag %q", shared.ErrInvalidCriteria, key.String())
		}
	}

	for _, r := range c.RatingSet {
		if r < 0 || r > 10 {
			return fmt.Errorf("%w: rating %d out of range", shared.ErrInvalidCriteria, r)
		}
	}

	if c.EnergyMin.Valid && c.EnergyMax.Valid && c.EnergyMin.Value > c.EnergyMax.Value {
		return fmt.Errorf("%w: energy bounds inverted", shared.ErrInvalidCriteria)
	}

	if c.TempoMin.Valid && c.TempoMax.Valid && c.TempoMin.Value > c.TempoMax.Value {
		return fmt.Errorf("%w: tempo bounds inverted", shared.ErrInvalidCriteria)
	}

	return nil
}

// Clone returns a deep copy safe to hand across goroutines.
func (c Criteria) Clone() Criteria {
	out := c
	out.IncludeTags = append([]TagKey(nil), c.IncludeTags...)
	out.ExcludeTags = append([]TagKey(nil), c.ExcludeTags...)
	out.RatingSet = append([]int(nil), c.RatingSet...)
	return out
}

func containsInt(values []int, v int) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
