package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "Manage content collections",
	Long: `List, inspect and configure the collections the pipeline retrieves from.

Collection definitions are JSON documents describing activation rules,
temporal weighting, groups and placement overrides.`,
	RunE: runCollectionsList,
}

var collectionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured collections",
	RunE:  runCollectionsList,
}

var collectionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a collection's configuration",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollectionsShow,
}

var collectionsAddCmd = &cobra.Command{
	Use:   "add <file>",
	Short: "Add a collection from a JSON definition",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollectionsAdd,
}

var collectionsUpdateCmd = &cobra.Command{
	Use:   "update <file>",
	Short: "Update an existing collection from a JSON definition",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollectionsUpdate,
}

var collectionsRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a collection and its backend data",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollectionsRemove,
}

func init() {
	collectionsCmd.AddCommand(collectionsListCmd)
	collectionsCmd.AddCommand(collectionsShowCmd)
	collectionsCmd.AddCommand(collectionsAddCmd)
	collectionsCmd.AddCommand(collectionsUpdateCmd)
	collectionsCmd.AddCommand(collectionsRemoveCmd)
	rootCmd.AddCommand(collectionsCmd)
}

func runCollectionsList(cmd *cobra.Command, _ []string) error {
	if collectionService == nil {
		return errors.New("collection service not configured")
	}

	cols, err := collectionService.List(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	if len(cols) == 0 {
		cmd.Println("No collections configured.")
		return nil
	}

	cmd.Printf("%-20s %-8s %s\n", "ID", "ENABLED", "ACTIVATION")
	for _, col := range cols {
		cmd.Printf("%-20s %-8t %s\n", col.ID, col.Enabled, describeActivation(col.Activation))
	}
	return nil
}

func runCollectionsShow(cmd *cobra.Command, args []string) error {
	if collectionService == nil {
		return errors.New("collection service not configured")
	}

	col, err := collectionService.Get(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get collection: %w", err)
	}

	encoded, err := json.MarshalIndent(col, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode collection: %w", err)
	}
	cmd.Println(string(encoded))
	return nil
}

func runCollectionsAdd(cmd *cobra.Command, args []string) error {
	if collectionService == nil {
		return errors.New("collection service not configured")
	}

	col, err := readCollectionFile(args[0])
	if err != nil {
		return err
	}

	if err := collectionService.Add(context.Background(), *col); err != nil {
		return fmt.Errorf("failed to add collection: %w", err)
	}

	cmd.Printf("Collection %s added.\n", col.ID)
	return nil
}

func runCollectionsUpdate(cmd *cobra.Command, args []string) error {
	if collectionService == nil {
		return errors.New("collection service not configured")
	}

	col, err := readCollectionFile(args[0])
	if err != nil {
		return err
	}

	if err := collectionService.Update(context.Background(), *col); err != nil {
		return fmt.Errorf("failed to update collection: %w", err)
	}

	cmd.Printf("Collection %s updated.\n", col.ID)
	return nil
}

func runCollectionsRemove(cmd *cobra.Command, args []string) error {
	if collectionService == nil {
		return errors.New("collection service not configured")
	}

	if err := collectionService.Remove(context.Background(), args[0]); err != nil {
		return fmt.Errorf("failed to remove collection: %w", err)
	}

	cmd.Printf("Collection %s removed.\n", args[0])
	return nil
}

// readCollectionFile loads and decodes a collection definition.
func readCollectionFile(path string) (*domain.Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition: %w", err)
	}

	var col domain.Collection
	if err := json.Unmarshal(data, &col); err != nil {
		return nil, fmt.Errorf("failed to parse definition: %w", err)
	}
	return &col, nil
}

// describeActivation summarises how a collection activates for list output.
func describeActivation(a domain.ActivationConfig) string {
	switch {
	case a.AlwaysActive:
		return "always"
	case len(a.ChatLocks) > 0 || len(a.CharacterLocks) > 0:
		return "locked"
	case len(a.Triggers) > 0:
		return fmt.Sprintf("%d trigger(s)", len(a.Triggers))
	case a.Conditions.Enabled:
		return fmt.Sprintf("%d condition(s)", len(a.Conditions.Rules))
	default:
		return "inactive"
	}
}
