package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/recall-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.MetadataStore = (*Store)(nil)

// Store is the SQLite-backed metadata store. Collection and chunk records
// are stored as JSON; activation counters relationally.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.recall/data/metadata.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".recall", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "metadata.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Collections ====================

// Collection retrieves one collection's configuration.
func (s *Store) Collection(ctx context.Context, id string) (*domain.Collection, error) {
	row := s.db.QueryRowContext(ctx, "SELECT record FROM collections WHERE id = ?", id)

	var record string
	if err := row.Scan(&record); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning collection: %w", err)
	}

	var col domain.Collection
	if err := json.Unmarshal([]byte(record), &col); err != nil {
		return nil, fmt.Errorf("unmarshalling collection record: %w", err)
	}
	return &col, nil
}

// SaveCollection creates or replaces a collection's configuration.
func (s *Store) SaveCollection(ctx context.Context, col *domain.Collection) error {
	record, err := json.Marshal(col)
	if err != nil {
		return fmt.Errorf("marshalling collection record: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO collections (id, record, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			record = excluded.record,
			updated_at = excluded.updated_at
	`, col.ID, string(record), time.Now().UTC())

	if err != nil {
		return fmt.Errorf("saving collection: %w", err)
	}
	return nil
}

// DeleteCollection removes a collection's configuration and chunk records.
func (s *Store) DeleteCollection(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM collections WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting collection: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunk_meta WHERE collection_id = ?", id); err != nil {
		return fmt.Errorf("deleting chunk records: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ListCollections returns every configured collection.
func (s *Store) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT record FROM collections ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying collections: %w", err)
	}
	defer rows.Close()

	var cols []domain.Collection //nolint:prealloc // size unknown from query
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("scanning collection: %w", err)
		}
		var col domain.Collection
		if err := json.Unmarshal([]byte(record), &col); err != nil {
			return nil, fmt.Errorf("unmarshalling collection record: %w", err)
		}
		cols = append(cols, col)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating collections: %w", err)
	}

	return cols, nil
}

// ==================== Chunk metadata ====================

// ChunkMeta retrieves one chunk's stored metadata.
func (s *Store) ChunkMeta(ctx context.Context, collectionID string, hash uint32) (*domain.ChunkMeta, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT record FROM chunk_meta WHERE collection_id = ? AND hash = ?",
		collectionID, int64(hash))

	var record string
	if err := row.Scan(&record); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning chunk record: %w", err)
	}

	var meta domain.ChunkMeta
	if err := json.Unmarshal([]byte(record), &meta); err != nil {
		return nil, fmt.Errorf("unmarshalling chunk record: %w", err)
	}
	return &meta, nil
}

// SaveChunkMeta creates or replaces a chunk's metadata record.
func (s *Store) SaveChunkMeta(ctx context.Context, collectionID string, meta *domain.ChunkMeta) error {
	record, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshalling chunk record: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chunk_meta (collection_id, hash, record, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(collection_id, hash) DO UPDATE SET
			record = excluded.record,
			updated_at = excluded.updated_at
	`, collectionID, int64(meta.Hash), string(record), time.Now().UTC())

	if err != nil {
		return fmt.Errorf("saving chunk record: %w", err)
	}
	return nil
}

// ChunkMetaAll returns every chunk record of a collection keyed by hash.
func (s *Store) ChunkMetaAll(ctx context.Context, collectionID string) (map[uint32]domain.ChunkMeta, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT record FROM chunk_meta WHERE collection_id = ?", collectionID)
	if err != nil {
		return nil, fmt.Errorf("querying chunk records: %w", err)
	}
	defer rows.Close()

	out := make(map[uint32]domain.ChunkMeta)
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("scanning chunk record: %w", err)
		}
		var meta domain.ChunkMeta
		if err := json.Unmarshal([]byte(record), &meta); err != nil {
			return nil, fmt.Errorf("unmarshalling chunk record: %w", err)
		}
		out[meta.Hash] = meta
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunk records: %w", err)
	}

	return out, nil
}

// ==================== Activation history ====================

// ActivationCounters loads the persisted activation history for a chat.
func (s *Store) ActivationCounters(ctx context.Context, chatID string) (map[uint32]domain.ActivationCounter, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT hash, count, last_index FROM activation_counters WHERE chat_id = ?", chatID)
	if err != nil {
		return nil, fmt.Errorf("querying activation counters: %w", err)
	}
	defer rows.Close()

	out := make(map[uint32]domain.ActivationCounter)
	for rows.Next() {
		var hash int64
		var counter domain.ActivationCounter
		if err := rows.Scan(&hash, &counter.Count, &counter.LastIndex); err != nil {
			return nil, fmt.Errorf("scanning activation counter: %w", err)
		}
		out[uint32(hash)] = counter
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activation counters: %w", err)
	}

	return out, nil
}

// SaveActivationCounters persists a chat's activation history.
func (s *Store) SaveActivationCounters(ctx context.Context, chatID string, counters map[uint32]domain.ActivationCounter) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO activation_counters (chat_id, hash, count, last_index)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(chat_id, hash) DO UPDATE SET
			count = excluded.count,
			last_index = excluded.last_index
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for hash, counter := range counters {
		if _, err := stmt.ExecContext(ctx, chatID, int64(hash), counter.Count, counter.LastIndex); err != nil {
			return fmt.Errorf("saving activation counter: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
