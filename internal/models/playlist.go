package models

import (
	"fmt"
	"time"

	"github.com/machinemessiah/tagify-sub000/internal/shared"
)

// SmartPlaylist binds a remote collection to a criteria. The engine keeps the
// collection's membership equal to the set of local items matching the
// criteria.
//
// Expected holds the member keys the engine believes are on the remote after
// the last reconciliation. It is a cache of intent, not ground truth: the
// remote is re-read before every write.
type SmartPlaylist struct {
	CollectionID string    `json:"collectionId"`
	Name         string    `json:"name"`
	Criteria     Criteria  `json:"criteria"`
	Active       bool      `json:"active"`
	Expected     []string  `json:"expected,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	LastSyncAt   time.Time `json:"lastSyncAt"`
}

// Validate checks the playlist's identity and criteria.
func (p SmartPlaylist) Validate() error {
	if p.CollectionID == "" {
		return fmt.Errorf("%w: playlist has no collection id", shared.ErrInvalidInput)
	}

	if p.Name == "" {
		return fmt.Errorf("%w: playlist has no name", shared.ErrInvalidInput)
	}

	return p.Criteria.Validate()
}

// Expects reports whether the engine believes key is a member of the remote
// collection.
func (p SmartPlaylist) Expects(key string) bool {
	for _, k := range p.Expected {
		if k == key {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to hand across goroutines.
func (p SmartPlaylist) Clone() SmartPlaylist {
	out := p
	out.Criteria = p.Criteria.Clone()
	out.Expected = append([]string(nil), p.Expected...)
	return out
}
