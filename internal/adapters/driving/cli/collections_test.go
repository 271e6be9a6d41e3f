package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// mockCollectionService implements driving.CollectionService for testing.
type mockCollectionService struct {
	collections []domain.Collection

	added   []domain.Collection
	updated []domain.Collection
	removed []string
}

func (m *mockCollectionService) Add(_ context.Context, col domain.Collection) error {
	m.added = append(m.added, col)
	return nil
}

func (m *mockCollectionService) Get(_ context.Context, id string) (*domain.Collection, error) {
	for i := range m.collections {
		if m.collections[i].ID == id {
			return &m.collections[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockCollectionService) List(_ context.Context) ([]domain.Collection, error) {
	return m.collections, nil
}

func (m *mockCollectionService) Update(_ context.Context, col domain.Collection) error {
	m.updated = append(m.updated, col)
	return nil
}

func (m *mockCollectionService) Remove(_ context.Context, id string) error {
	m.removed = append(m.removed, id)
	return nil
}

func setupCollectionsTest(collections []domain.Collection) (*mockCollectionService, func()) {
	oldService := collectionService
	mock := &mockCollectionService{collections: collections}
	collectionService = mock
	return mock, func() {
		collectionService = oldService
	}
}

// writeCollectionFile writes a collection definition to a temp file.
func writeCollectionFile(t *testing.T, col domain.Collection) string {
	t.Helper()
	data, err := json.Marshal(col)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "collection.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestCollectionsCmd_Use(t *testing.T) {
	assert.Equal(t, "collections", collectionsCmd.Use)
}

func TestCollectionsCmd_Short(t *testing.T) {
	assert.Equal(t, "Manage content collections", collectionsCmd.Short)
}

func TestCollectionsCmd_ListsCollections(t *testing.T) {
	_, cleanup := setupCollectionsTest([]domain.Collection{
		{ID: "lore", Enabled: true, Activation: domain.ActivationConfig{AlwaysActive: true}},
		{ID: "scenes", Enabled: false, Activation: domain.ActivationConfig{Triggers: []string{"dragon", "castle"}}},
	})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"collections"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "lore")
	assert.Contains(t, buf.String(), "always")
	assert.Contains(t, buf.String(), "scenes")
	assert.Contains(t, buf.String(), "2 trigger(s)")
}

func TestCollectionsCmd_ListEmpty(t *testing.T) {
	_, cleanup := setupCollectionsTest(nil)
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"collections", "list"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "No collections configured.")
}

func TestCollectionsCmd_ShowPrintsJSON(t *testing.T) {
	_, cleanup := setupCollectionsTest([]domain.Collection{
		{ID: "lore", Enabled: true, Tag: "memories"},
	})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"collections", "show", "lore"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), `"id": "lore"`)
	assert.Contains(t, buf.String(), `"tag": "memories"`)
}

func TestCollectionsCmd_ShowUnknown(t *testing.T) {
	_, cleanup := setupCollectionsTest(nil)
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"collections", "show", "ghost"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
}

func TestCollectionsCmd_AddFromFile(t *testing.T) {
	mock, cleanup := setupCollectionsTest(nil)
	defer cleanup()

	path := writeCollectionFile(t, domain.Collection{ID: "lore", Enabled: true})

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"collections", "add", path})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	require.Len(t, mock.added, 1)
	assert.Equal(t, "lore", mock.added[0].ID)
	assert.Contains(t, buf.String(), "Collection lore added.")
}

func TestCollectionsCmd_AddRejectsMalformedFile(t *testing.T) {
	_, cleanup := setupCollectionsTest(nil)
	defer cleanup()

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"collections", "add", path})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse definition")
}

func TestCollectionsCmd_UpdateFromFile(t *testing.T) {
	mock, cleanup := setupCollectionsTest(nil)
	defer cleanup()

	path := writeCollectionFile(t, domain.Collection{ID: "lore", Enabled: false})

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"collections", "update", path})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	require.Len(t, mock.updated, 1)
	assert.False(t, mock.updated[0].Enabled)
}

func TestCollectionsCmd_Remove(t *testing.T) {
	mock, cleanup := setupCollectionsTest(nil)
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"collections", "remove", "lore"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Equal(t, []string{"lore"}, mock.removed)
	assert.Contains(t, buf.String(), "Collection lore removed.")
}

func TestCollectionsCmd_ServiceNotConfigured(t *testing.T) {
	oldService := collectionService
	collectionService = nil
	defer func() {
		collectionService = oldService
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"collections"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "collection service not configured")
}

func TestDescribeActivation(t *testing.T) {
	tests := []struct {
		name   string
		config domain.ActivationConfig
		want   string
	}{
		{
			name:   "always active",
			config: domain.ActivationConfig{AlwaysActive: true},
			want:   "always",
		},
		{
			name:   "chat locked",
			config: domain.ActivationConfig{ChatLocks: []string{"chat-1"}},
			want:   "locked",
		},
		{
			name:   "triggers",
			config: domain.ActivationConfig{Triggers: []string{"dragon"}},
			want:   "1 trigger(s)",
		},
		{
			name: "conditions",
			config: domain.ActivationConfig{Conditions: domain.ConditionConfig{
				Enabled: true,
				Rules:   []domain.ConditionRule{{Kind: "character"}, {Kind: "chance"}},
			}},
			want: "2 condition(s)",
		},
		{
			name:   "default inactive",
			config: domain.ActivationConfig{},
			want:   "inactive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, describeActivation(tt.config))
		})
	}
}
