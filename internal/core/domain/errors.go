package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoChat indicates no chat is selected; the pipeline exits silently
	// but sync surfaces it to the caller.
	ErrNoChat = errors.New("no chat selected")

	// ErrRetrievalFailure indicates one collection's backend query failed.
	// The collection is treated as empty; the pipeline continues.
	ErrRetrievalFailure = errors.New("retrieval failure")

	// ErrConfigInvalid indicates a malformed trigger regex or condition
	// rule. The offending item evaluates false; it never aborts a run.
	ErrConfigInvalid = errors.New("configuration invalid")

	// ErrSyncInProgress indicates a sync is already running for the chat.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrSyncTimeout indicates the wait for an in-progress sync exceeded
	// its bound. Surfaced as a blocked result, not a crash.
	ErrSyncTimeout = errors.New("sync wait timed out")

	// ErrGenerationInProgress indicates a sync loop aborted because the
	// host started generating.
	ErrGenerationInProgress = errors.New("generation in progress")

	// ErrBackendUnavailable indicates the vector backend failed its
	// pre-flight health check. The run does not start.
	ErrBackendUnavailable = errors.New("vector backend unavailable")

	// ErrBackendUnconfigured indicates no vector backend is wired.
	ErrBackendUnconfigured = errors.New("vector backend not configured")
)
