// Package models defines domain entities and persistence interfaces for the tagify sync engine.
//
// The package contains three categories of types:
//
// 1. Domain values evaluated by the sync engine:
//   - [Item] : A taggable unit of content with rating, energy, tempo and applied tags
//   - [TagKey] : The 3-part compound key (category:subcategory:id) identifying a tag
//   - [NullInt] : Integer option type distinguishing "unset" from a literal value
//   - [Criteria] : A declarative filter over the catalog with include/exclude tags and numeric bounds
//   - [SmartPlaylist] : A criteria bound to a remote collection plus expected membership state
//
// 2. Data Transfer Objects (DTOs): Lightweight structs for external service data and exports
//   - [Track] : Remote item metadata for display and the metadata cache
//   - [Library] : Export/import envelope holding items, playlists and the taxonomy
//   - [TagDef] : One flattened taxonomy entry inside a [Library]
//
// 3. Persistent Entities: Database-backed models with full lifecycle management
//   - [PersistedItem] : Catalog rows wrapping an [Item] DTO
//   - [PersistedTag] : Taxonomy entries backing tag validation and labels
//   - [SyncRun] : One audit record per sync operation with counters and status
//
// All persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
