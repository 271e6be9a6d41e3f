package yake

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractMapsScoresToWeights(t *testing.T) {
	var gotReq extractRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/extract", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		fmt.Fprint(w, `{"keywords":[{"text":"dragon","score":0.1},{"text":"harvest","score":0.8}],"count":2}`)
	}))
	defer server.Close()

	extractor := NewExtractor(Config{BaseURL: server.URL})
	keywords, err := extractor.Extract(context.Background(), "the dragon harvest", 8)

	require.NoError(t, err)
	assert.Equal(t, "the dragon harvest", gotReq.Text)
	assert.Equal(t, 8, gotReq.MaxKeywords)
	assert.Equal(t, "en", gotReq.Language)
	require.Len(t, keywords, 2)
	assert.Equal(t, "dragon", keywords[0].Text)
	assert.InDelta(t, 1.9, keywords[0].Weight, 1e-9)
	assert.InDelta(t, 1.2, keywords[1].Weight, 1e-9)
}

func TestExtractSkipsBlankKeywords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"keywords":[{"text":"","score":0.2},{"text":"real","score":0.5}],"count":2}`)
	}))
	defer server.Close()

	extractor := NewExtractor(Config{BaseURL: server.URL})
	keywords, err := extractor.Extract(context.Background(), "some text", 8)

	require.NoError(t, err)
	require.Len(t, keywords, 1)
	assert.Equal(t, "real", keywords[0].Text)
}

func TestExtractServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"Missing required field: text"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	extractor := NewExtractor(Config{BaseURL: server.URL})
	_, err := extractor.Extract(context.Background(), "", 8)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

func TestWeightFromScoreClamps(t *testing.T) {
	assert.Equal(t, 2.0, weightFromScore(-3))
	assert.Equal(t, 2.0, weightFromScore(0))
	assert.Equal(t, 1.0, weightFromScore(1))
	assert.Equal(t, 1.0, weightFromScore(42))
	assert.InDelta(t, 1.5, weightFromScore(0.5), 1e-9)
}

func TestExtractorPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		fmt.Fprint(w, `{"status":"healthy"}`)
	}))
	defer server.Close()

	extractor := NewExtractor(Config{BaseURL: server.URL})
	assert.NoError(t, extractor.Ping(context.Background()))
}
