package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/recall-cli/internal/core/ports/driving"
)

// mockVectorizer implements driving.Vectorizer for testing.
type mockVectorizer struct {
	result *driving.SyncResult
	err    error
	purged bool
}

func (m *mockVectorizer) SyncChat(_ context.Context) (*driving.SyncResult, error) {
	return m.result, m.err
}

func (m *mockVectorizer) Purge(_ context.Context) error {
	m.purged = true
	return m.err
}

func setupSyncTest(result *driving.SyncResult) (*mockVectorizer, func()) {
	oldVectorizer := vectorizer
	mock := &mockVectorizer{result: result}
	vectorizer = mock
	return mock, func() {
		vectorizer = oldVectorizer
	}
}

func TestSyncCmd_Use(t *testing.T) {
	assert.Equal(t, "sync", syncCmd.Use)
}

func TestSyncCmd_Short(t *testing.T) {
	assert.Equal(t, "Synchronise the chat transcript with the vector backend", syncCmd.Short)
}

func TestSyncCmd_Long(t *testing.T) {
	assert.Contains(t, syncCmd.Long, "inserts and deletes")
	assert.Contains(t, syncCmd.Long, "aborts cleanly")
}

func TestSyncCmd_ReportsCounts(t *testing.T) {
	_, cleanup := setupSyncTest(&driving.SyncResult{
		ChatID:    "chat-1",
		Inserted:  3,
		Deleted:   1,
		Unchanged: 40,
	})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"sync"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Synchronising chat...")
	assert.Contains(t, buf.String(), "Chat chat-1 synchronised: 3 inserted, 1 deleted, 40 unchanged.")
}

func TestSyncCmd_ReportsAbort(t *testing.T) {
	_, cleanup := setupSyncTest(&driving.SyncResult{
		ChatID:  "chat-2",
		Aborted: true,
	})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"sync"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Sync of chat chat-2 aborted")
}

func TestSyncCmd_ServiceNotConfigured(t *testing.T) {
	oldVectorizer := vectorizer
	vectorizer = nil
	defer func() {
		vectorizer = oldVectorizer
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"sync"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sync service not configured")
}

func TestSyncPurgeCmd_Use(t *testing.T) {
	assert.Equal(t, "purge", syncPurgeCmd.Use)
}

func TestSyncPurgeCmd_PurgesBackend(t *testing.T) {
	mock, cleanup := setupSyncTest(nil)
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"sync", "purge"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.True(t, mock.purged)
	assert.Contains(t, buf.String(), "Chat data purged from backend.")
}
