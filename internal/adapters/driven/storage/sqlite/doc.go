// Package sqlite provides the SQLite-backed MetadataStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO, enabling easy cross-compilation. Collection and chunk
// configuration is stored as JSON records keyed by collection ID and content
// hash; activation-history counters are stored relationally per chat.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.recall/data/metadata.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
