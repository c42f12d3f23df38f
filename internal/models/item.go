package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// LocalKeyPrefix marks item keys that exist only in the local library and
// cannot be resolved against the remote catalog.
const LocalKeyPrefix = "local:"

// IsLocalKey reports whether key refers to a local-only item.
func IsLocalKey(key string) bool {
	return strings.HasPrefix(key, LocalKeyPrefix)
}

// TagKey is the 3-part compound key identifying a tag within the taxonomy,
// e.g. genre:electronic:house.
type TagKey struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	ID          string `json:"id"`
}

// ParseTagKey parses "category:subcategory:id" into a [TagKey].
func ParseTagKey(s string) (TagKey, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return TagKey{}, fmt.Errorf("invalid tag key %q: want category:subcategory:id", s)
	}
	return TagKey{Category: parts[0], Subcategory: parts[1], ID: parts[2]}, nil
}

func (k TagKey) String() string {
	return k.Category + ":" + k.Subcategory + ":" + k.ID
}

// Zero reports whether any part of the key is empty.
func (k TagKey) Zero() bool {
	return k.Category == "" || k.Subcategory == "" || k.ID == ""
}

// NullInt is an integer carrying an explicit unset state, mirroring the
// database/sql NullXxx convention. Ratings, energy and tempo all use it: a
// missing value is Valid=false, never a sentinel zero.
type NullInt struct {
	Value int
	Valid bool
}

// IntFrom returns a set NullInt. IntFrom(0) is unset, preserving the
// library-wide convention that a zero rating/energy/tempo means "no value".
func IntFrom(v int) NullInt {
	if v == 0 {
		return NullInt{}
	}
	return NullInt{Value: v, Valid: true}
}

// Or returns the value when set, otherwise the fallback.
func (n NullInt) Or(fallback int) int {
	if n.Valid {
		return n.Value
	}
	return fallback
}

// MarshalJSON encodes unset values as null.
func (n NullInt) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// UnmarshalJSON accepts a number or null; both null and a literal 0 decode
// to the unset state.
func (n *NullInt) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = NullInt{}
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid numeric value: %w", err)
	}
	*n = IntFrom(v)
	return nil
}

// Item is a unit of taggable content, identified by its remote key (or a
// local: key when it has no remote counterpart).
type Item struct {
	Key       string    `json:"key"`
	Rating    NullInt   `json:"rating"`
	Energy    NullInt   `json:"energy"`
	Tempo     NullInt   `json:"tempo"`
	Tags      []TagKey  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LocalOnly reports whether the item cannot be resolved remotely.
func (i Item) LocalOnly() bool {
	return IsLocalKey(i.Key)
}

// Empty reports whether the item carries no user-authored data and should
// leave the catalog. Tempo does not count: it is derived from audio
// features, not entered by the user.
func (i Item) Empty() bool {
	return !i.Rating.Valid && !i.Energy.Valid && len(i.Tags) == 0
}

// HasTag reports whether the tag is applied to the item.
func (i Item) HasTag(key TagKey) bool {
	for _, t := range i.Tags {
		if t == key {
			return true
		}
	}
	return false
}

// AddTag applies the tag if absent, reporting whether the set changed.
func (i *Item) AddTag(key TagKey) bool {
	if i.HasTag(key) {
		return false
	}
	i.Tags = append(i.Tags, key)
	return true
}

// RemoveTag removes the tag if present, reporting whether the set changed.
func (i *Item) RemoveTag(key TagKey) bool {
	for idx, t := range i.Tags {
		if t == key {
			i.Tags = append(i.Tags[:idx], i.Tags[idx+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to hand across goroutines.
func (i Item) Clone() Item {
	out := i
	out.Tags = append([]TagKey(nil), i.Tags...)
	return out
}
