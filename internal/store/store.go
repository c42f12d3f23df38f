// Package store owns the authoritative in-memory set of smart playlists.
//
// All reads return detached copies and all writes go through the store's
// lock, so engine operations always observe the latest committed state
// rather than values captured earlier. Every mutation is snapshotted to the
// persistence collaborator; a failed save is logged and tolerated, the
// in-memory state stays ahead of the durable copy until the next write.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/machinemessiah/tagify-sub000/internal/models"
	"github.com/machinemessiah/tagify-sub000/internal/shared"
)

// BlobKey is the persistence key the playlist snapshot is stored under.
const BlobKey = "smart_playlists"

// Persistence is the durable backend for the playlist snapshot.
// repositories.KVRepository implements it.
type Persistence interface {
	Get(key string) (string, error)
	Put(key, value string) error
}

// Store holds every smart playlist keyed by collection id.
type Store struct {
	mu        sync.Mutex
	playlists map[string]models.SmartPlaylist
	persist   Persistence
	logger    *log.Logger
}

// New creates an empty store backed by the given persistence. A nil
// persistence keeps the store in memory only.
func New(persist Persistence, logger *log.Logger) *Store {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &Store{
		playlists: make(map[string]models.SmartPlaylist),
		persist:   persist,
		logger:    logger,
	}
}

// Load reads the persisted snapshot into memory. A missing blob means a
// fresh install and is not an error. Records that fail to decode or
// validate are dropped with a warning instead of failing startup.
func (s *Store) Load() error {
	if s.persist == nil {
		return nil
	}

	blob, err := s.persist.Get(BlobKey)
	if errors.Is(err, shared.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load playlists: %w", err)
	}

	var records []json.RawMessage
	if err := json.Unmarshal([]byte(blob), &records); err != nil {
		return fmt.Errorf("failed to decode playlist snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range records {
		var playlist models.SmartPlaylist
		if err := json.Unmarshal(record, &playlist); err != nil {
			s.logger.Warn("dropping undecodable playlist record", "error", err)
			continue
		}

		if err := playlist.Validate(); err != nil {
			s.logger.Warn("dropping invalid playlist record", "id", playlist.CollectionID, "error", err)
			continue
		}

		s.playlists[playlist.CollectionID] = playlist
	}

	return nil
}

// Get returns a detached copy of one playlist.
func (s *Store) Get(id string) (models.SmartPlaylist, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	playlist, ok := s.playlists[id]
	if !ok {
		return models.SmartPlaylist{}, false
	}

	return playlist.Clone(), true
}

// Playlists returns detached copies of every playlist, ordered by name.
func (s *Store) Playlists() []models.SmartPlaylist {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.SmartPlaylist, 0, len(s.playlists))
	for _, playlist := range s.playlists {
		out = append(out, playlist.Clone())
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].CollectionID < out[j].CollectionID
	})

	return out
}

// Active returns detached copies of the playlists the dispatcher should
// consider, ordered by name.
func (s *Store) Active() []models.SmartPlaylist {
	all := s.Playlists()

	out := make([]models.SmartPlaylist, 0, len(all))
	for _, playlist := range all {
		if playlist.Active {
			out = append(out, playlist)
		}
	}

	return out
}

// Len returns the number of stored playlists.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.playlists)
}

// Put validates and stores a playlist, then persists the snapshot.
func (s *Store) Put(playlist models.SmartPlaylist) error {
	if err := playlist.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.playlists[playlist.CollectionID] = playlist.Clone()
	s.persistLocked()

	return nil
}

// Update applies mutate to the current state of one playlist under the
// store's lock, then persists the snapshot. The mutator receives the latest
// committed copy, never a value read earlier.
func (s *Store) Update(id string, mutate func(*models.SmartPlaylist)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	playlist, ok := s.playlists[id]
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}

	updated := playlist.Clone()
	mutate(&updated)
	updated.CollectionID = playlist.CollectionID

	s.playlists[id] = updated
	s.persistLocked()

	return nil
}

// Remove deletes a playlist and persists the snapshot.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.playlists[id]; !ok {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}

	delete(s.playlists, id)
	s.persistLocked()

	return nil
}

// Replace swaps in a whole new playlist set, validating every entry first.
// Used by library import.
func (s *Store) Replace(playlists []models.SmartPlaylist) error {
	for _, playlist := range playlists {
		if err := playlist.Validate(); err != nil {
			return fmt.Errorf("rejecting playlist set: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.playlists = make(map[string]models.SmartPlaylist, len(playlists))
	for _, playlist := range playlists {
		s.playlists[playlist.CollectionID] = playlist.Clone()
	}
	s.persistLocked()

	return nil
}

// persistLocked snapshots the current state to the persistence backend.
// Callers must hold the lock. Save failures are logged, not propagated: the
// in-memory state is authoritative and the next successful write repairs
// the durable copy.
func (s *Store) persistLocked() {
	if s.persist == nil {
		return
	}

	snapshot := make([]models.SmartPlaylist, 0, len(s.playlists))
	for _, playlist := range s.playlists {
		snapshot = append(snapshot, playlist)
	}

	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].CollectionID < snapshot[j].CollectionID
	})

	data, err := json.Marshal(snapshot)
	if err != nil {
		s.logger.Warn("failed to encode playlist snapshot", "error", err)
		return
	}

	if err := s.persist.Put(BlobKey, string(data)); err != nil {
		s.logger.Warn("failed to persist playlist snapshot", "error", err)
	}
}
