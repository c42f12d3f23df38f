// Package repositories implements SQLite persistence for all domain entities.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// All repositories support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [ItemRepository] : Tagged catalog rows plus the item_tags junction table
//   - [TagRepository] : Tag taxonomy with lazy registration on first use
//   - [KVRepository] : Opaque blob storage backing the playlist store snapshot
//   - [MetadataRepository] : Disposable cache of remote track metadata
//   - [SyncLogRepository] : Sync audit history with status and outcome counters
//
// Sequence numbers provide stable, human-readable ordering (e.g., item #42, tag #15) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
