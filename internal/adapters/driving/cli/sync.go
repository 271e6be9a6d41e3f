package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronise the chat transcript with the vector backend",
	Long: `Diffs the current chat against the backend's stored hashes and applies
inserts and deletes so retrieved chat history stays current. A sync that
is interrupted by a host generation aborts cleanly and reports it.`,
	RunE: runSync,
}

var syncPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove the current chat's data from the vector backend",
	RunE:  runSyncPurge,
}

func init() {
	syncCmd.AddCommand(syncPurgeCmd)
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	if vectorizer == nil {
		return errors.New("sync service not configured")
	}

	cmd.Println("Synchronising chat...")

	result, err := vectorizer.SyncChat(context.Background())
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	if result.Aborted {
		cmd.Printf("Sync of chat %s aborted: a generation started mid-run.\n", result.ChatID)
		return nil
	}

	cmd.Printf("Chat %s synchronised: %d inserted, %d deleted, %d unchanged.\n",
		result.ChatID, result.Inserted, result.Deleted, result.Unchanged)
	return nil
}

func runSyncPurge(cmd *cobra.Command, _ []string) error {
	if vectorizer == nil {
		return errors.New("sync service not configured")
	}

	if err := vectorizer.Purge(context.Background()); err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}

	cmd.Println("Chat data purged from backend.")
	return nil
}
