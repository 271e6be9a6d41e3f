package driving

import "context"

// Vectorizer keeps the vector backend in step with the host chat.
type Vectorizer interface {
	// SyncChat diffs the current chat against the backend and applies
	// inserts and deletes. Concurrent calls for the same chat wait for the
	// running sync up to the configured timeout.
	SyncChat(ctx context.Context) (*SyncResult, error)

	// Purge removes the current chat's collection from the backend.
	Purge(ctx context.Context) error
}

// SyncResult summarises one sync run.
type SyncResult struct {
	// ChatID is the chat that was synced.
	ChatID string

	// Inserted and Deleted count the applied changes.
	Inserted int
	Deleted  int

	// Unchanged counts hashes already present in the backend.
	Unchanged int

	// Aborted is true when a host generation interrupted the run.
	Aborted bool
}
