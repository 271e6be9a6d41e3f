package file

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

func TestInjectAndReadBack(t *testing.T) {
	sink := NewSink(filepath.Join(t.TempDir(), "segments.json"))
	segments := []domain.PromptSegment{
		{Position: domain.PositionInChat, Depth: 4, Content: "the dragon sleeps"},
		{Position: domain.PositionBeforePrompt, Content: "lore block"},
	}

	require.NoError(t, sink.Inject(context.Background(), segments))

	got, err := sink.Injected(context.Background())
	require.NoError(t, err)
	assert.Equal(t, segments, got)
}

func TestInjectReplacesPreviousRun(t *testing.T) {
	sink := NewSink(filepath.Join(t.TempDir(), "segments.json"))

	require.NoError(t, sink.Inject(context.Background(), []domain.PromptSegment{
		{Position: domain.PositionInChat, Depth: 2, Content: "stale"},
	}))
	require.NoError(t, sink.Inject(context.Background(), []domain.PromptSegment{
		{Position: domain.PositionInChat, Depth: 2, Content: "fresh"},
	}))

	got, err := sink.Injected(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "fresh", got[0].Content)
}

func TestInjectedBeforeAnyRun(t *testing.T) {
	sink := NewSink(filepath.Join(t.TempDir(), "segments.json"))

	got, err := sink.Injected(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}
