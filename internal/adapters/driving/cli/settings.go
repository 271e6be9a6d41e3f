package cli

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage pipeline settings",
	Long: `View and configure the global pipeline parameters: retrieval depth,
score thresholds, fusion weights, placement defaults and sync behaviour.

Collection and chunk overrides cascade above the global placement values.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a settings value",
	Long: `Set a single settings value and persist the result.

Available keys:
  top-k                chunks requested per collection
  score-threshold      minimum score to keep a chunk
  min-chat-length      minimum message count before the pipeline runs
  query-depth          trailing messages forming the query text
  dedup-window         trailing messages checked for duplicates
  fusion               rrf or weighted
  rrf-k                reciprocal rank fusion constant
  vector-weight        weighted fusion: semantic share
  lexical-weight       weighted fusion: keyword share
  force-keyword-score  pin keyword matches to score 1.0 (true/false)
  rerank               enable the external rerank stage (true/false)
  position             before_prompt, after_prompt or in_chat
  depth                in_chat placement depth
  template             block template; {{text}} is the content
  sync-wait-timeout    how long a sync waits for a running sync (e.g. 30s)`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore default settings",
	RunE:  runSettingsReset,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsResetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Top K: %d\n", settings.TopK)
	cmd.Printf("  Score threshold: %.2f\n", settings.ScoreThreshold)
	cmd.Printf("  Min chat length: %d\n", settings.MinChatLength)
	cmd.Printf("  Query depth: %d\n", settings.QueryDepth)
	cmd.Printf("  Dedup window: %d\n", settings.DedupWindow)
	cmd.Println()

	cmd.Println("[Fusion]")
	cmd.Printf("  Mode: %s\n", settings.Fusion)
	if settings.Fusion == domain.FusionRRF {
		cmd.Printf("  RRF k: %d\n", settings.RRFK)
	} else {
		cmd.Printf("  Vector weight: %.2f\n", settings.VectorWeight)
		cmd.Printf("  Lexical weight: %.2f\n", settings.LexicalWeight)
	}
	cmd.Printf("  Force keyword score: %t\n", settings.ForceKeywordScore)
	cmd.Printf("  Rerank: %t\n", settings.Rerank)
	cmd.Println()

	cmd.Println("[Placement]")
	cmd.Printf("  Position: %s\n", settings.Position)
	cmd.Printf("  Depth: %d\n", settings.Depth)
	cmd.Printf("  Template: %s\n", settings.Template)
	cmd.Println()

	cmd.Println("[Sync]")
	cmd.Printf("  Wait timeout: %s\n", settings.SyncWaitTimeout)

	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	key, value := args[0], args[1]
	if err := applySetting(settings, key, value); err != nil {
		return err
	}

	if err := settingsService.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	cmd.Printf("Set %s to %s.\n", key, value)
	return nil
}

func runSettingsReset(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	defaults := settingsService.GetDefaults()
	if err := settingsService.Save(&defaults); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	cmd.Println("Settings restored to defaults.")
	return nil
}

// applySetting writes one key's value into the settings struct. Validation
// of the combined result happens on save.
func applySetting(settings *domain.Settings, key, value string) error {
	switch key {
	case "top-k":
		return setInt(&settings.TopK, value)
	case "score-threshold":
		return setFloat(&settings.ScoreThreshold, value)
	case "min-chat-length":
		return setInt(&settings.MinChatLength, value)
	case "query-depth":
		return setInt(&settings.QueryDepth, value)
	case "dedup-window":
		return setInt(&settings.DedupWindow, value)
	case "fusion":
		settings.Fusion = domain.FusionMode(value)
	case "rrf-k":
		return setInt(&settings.RRFK, value)
	case "vector-weight":
		return setFloat(&settings.VectorWeight, value)
	case "lexical-weight":
		return setFloat(&settings.LexicalWeight, value)
	case "force-keyword-score":
		return setBool(&settings.ForceKeywordScore, value)
	case "rerank":
		return setBool(&settings.Rerank, value)
	case "position":
		settings.Position = domain.InjectPosition(value)
	case "depth":
		return setInt(&settings.Depth, value)
	case "template":
		settings.Template = value
	case "sync-wait-timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		settings.SyncWaitTimeout = d
	default:
		return fmt.Errorf("unknown settings key: %s", key)
	}
	return nil
}

func setInt(dst *int, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid integer %q: %w", value, err)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q: %w", value, err)
	}
	*dst = f
	return nil
}

func setBool(dst *bool, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid boolean %q: %w", value, err)
	}
	*dst = b
	return nil
}
