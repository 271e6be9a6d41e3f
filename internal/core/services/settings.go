package services

import (
	"fmt"
	"time"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driving"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Configuration keys.
const (
	keyTopK           = "pipeline.top_k"
	keyScoreThreshold = "pipeline.score_threshold"
	keyMinChatLength  = "pipeline.min_chat_length"
	keyQueryDepth     = "pipeline.query_depth"
	keyDedupWindow    = "pipeline.dedup_window"
	keyFusionMode     = "fusion.mode"
	keyRRFK           = "fusion.rrf_k"
	keyVectorWeight   = "fusion.vector_weight"
	keyLexicalWeight  = "fusion.lexical_weight"
	keyForceKeyword   = "keywords.force_score"
	keyRerank         = "rerank.enabled"
	keyPosition       = "inject.position"
	keyDepth          = "inject.depth"
	keyTemplate       = "inject.template"
	keySyncTimeout    = "sync.wait_timeout_seconds"
)

// SettingsService maps the configuration store onto typed pipeline settings
// with defaults for everything unset.
type SettingsService struct {
	config driven.ConfigStore
}

// NewSettingsService creates a settings service.
func NewSettingsService(config driven.ConfigStore) *SettingsService {
	return &SettingsService{config: config}
}

// Get retrieves the current settings, falling back to defaults for unset
// keys.
func (s *SettingsService) Get() (*domain.Settings, error) {
	settings := domain.DefaultSettings()
	if s.config == nil {
		return &settings, nil
	}

	if v, ok := s.config.Get(keyTopK); ok {
		settings.TopK = asInt(v, settings.TopK)
	}
	if v, ok := s.config.Get(keyScoreThreshold); ok {
		settings.ScoreThreshold = asFloat(v, settings.ScoreThreshold)
	}
	if v, ok := s.config.Get(keyMinChatLength); ok {
		settings.MinChatLength = asInt(v, settings.MinChatLength)
	}
	if v, ok := s.config.Get(keyQueryDepth); ok {
		settings.QueryDepth = asInt(v, settings.QueryDepth)
	}
	if v, ok := s.config.Get(keyDedupWindow); ok {
		settings.DedupWindow = asInt(v, settings.DedupWindow)
	}
	if v := s.config.GetString(keyFusionMode); v != "" {
		settings.Fusion = domain.FusionMode(v)
	}
	if v, ok := s.config.Get(keyRRFK); ok {
		settings.RRFK = asInt(v, settings.RRFK)
	}
	if v, ok := s.config.Get(keyVectorWeight); ok {
		settings.VectorWeight = asFloat(v, settings.VectorWeight)
	}
	if v, ok := s.config.Get(keyLexicalWeight); ok {
		settings.LexicalWeight = asFloat(v, settings.LexicalWeight)
	}
	if v, ok := s.config.Get(keyForceKeyword); ok {
		settings.ForceKeywordScore = asBool(v, settings.ForceKeywordScore)
	}
	if v, ok := s.config.Get(keyRerank); ok {
		settings.Rerank = asBool(v, settings.Rerank)
	}
	if v := s.config.GetString(keyPosition); v != "" {
		settings.Position = domain.InjectPosition(v)
	}
	if v, ok := s.config.Get(keyDepth); ok {
		settings.Depth = asInt(v, settings.Depth)
	}
	if v := s.config.GetString(keyTemplate); v != "" {
		settings.Template = v
	}
	if v, ok := s.config.Get(keySyncTimeout); ok {
		settings.SyncWaitTimeout = time.Duration(asInt(v, int(settings.SyncWaitTimeout/time.Second))) * time.Second
	}

	if err := s.Validate(&settings); err != nil {
		logger.Warn("Stored settings invalid: %v (using defaults)", err)
		defaults := domain.DefaultSettings()
		return &defaults, nil
	}
	return &settings, nil
}

// Save validates and persists settings.
func (s *SettingsService) Save(settings *domain.Settings) error {
	if err := s.Validate(settings); err != nil {
		return err
	}
	if s.config == nil {
		return fmt.Errorf("%w: no config store", domain.ErrConfigInvalid)
	}

	pairs := map[string]any{
		keyTopK:           settings.TopK,
		keyScoreThreshold: settings.ScoreThreshold,
		keyMinChatLength:  settings.MinChatLength,
		keyQueryDepth:     settings.QueryDepth,
		keyDedupWindow:    settings.DedupWindow,
		keyFusionMode:     string(settings.Fusion),
		keyRRFK:           settings.RRFK,
		keyVectorWeight:   settings.VectorWeight,
		keyLexicalWeight:  settings.LexicalWeight,
		keyForceKeyword:   settings.ForceKeywordScore,
		keyRerank:         settings.Rerank,
		keyPosition:       string(settings.Position),
		keyDepth:          settings.Depth,
		keyTemplate:       settings.Template,
		keySyncTimeout:    int(settings.SyncWaitTimeout / time.Second),
	}
	for key, value := range pairs {
		if err := s.config.Set(key, value); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	if err := s.config.Save(); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	logger.Info("Settings saved to %s", s.config.Path())
	return nil
}

// GetDefaults returns the standard settings.
func (s *SettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings()
}

// Validate checks settings for internal consistency.
func (s *SettingsService) Validate(settings *domain.Settings) error {
	if settings.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive", domain.ErrConfigInvalid)
	}
	if settings.ScoreThreshold < 0 || settings.ScoreThreshold > 1 {
		return fmt.Errorf("%w: score_threshold must be in [0,1]", domain.ErrConfigInvalid)
	}
	if !settings.Fusion.IsValid() {
		return fmt.Errorf("%w: unknown fusion mode %q", domain.ErrConfigInvalid, settings.Fusion)
	}
	if settings.VectorWeight < 0 || settings.LexicalWeight < 0 {
		return fmt.Errorf("%w: fusion weights must be non-negative", domain.ErrConfigInvalid)
	}
	if !settings.Position.IsValid() {
		return fmt.Errorf("%w: unknown inject position %q", domain.ErrConfigInvalid, settings.Position)
	}
	if settings.Depth < 0 {
		return fmt.Errorf("%w: inject depth must be non-negative", domain.ErrConfigInvalid)
	}
	if settings.SyncWaitTimeout <= 0 {
		return fmt.Errorf("%w: sync wait timeout must be positive", domain.ErrConfigInvalid)
	}
	return nil
}

// asInt coerces config values that may arrive as int, int64 or float64
// depending on the decoder.
func asInt(v any, fallback int) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return fallback
	}
}

func asFloat(v any, fallback float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return fallback
	}
}

func asBool(v any, fallback bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return fallback
}
