package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	injectGenerationType string
	injectJSON           bool
)

var injectCmd = &cobra.Command{
	Use:   "inject",
	Short: "Run the retrieval pipeline and inject prompt segments",
	Long: `Runs one full pipeline pass for the current chat: builds the query from
trailing messages, activates collections, retrieves and scores chunks,
resolves groups and links, and writes the resulting prompt segments.

A run that injects nothing is still successful; the outcome explains why.`,
	RunE: runInject,
}

func init() {
	injectCmd.Flags().StringVar(&injectGenerationType, "type", "normal", "generation type reported to condition rules")
	injectCmd.Flags().BoolVar(&injectJSON, "json", false, "print the full run report as JSON")
	rootCmd.AddCommand(injectCmd)
}

func runInject(cmd *cobra.Command, _ []string) error {
	if injector == nil {
		return errors.New("inject service not configured")
	}

	report, err := injector.Run(context.Background(), injectGenerationType)
	if err != nil {
		return fmt.Errorf("pipeline run failed: %w", err)
	}

	if injectJSON {
		encoded, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		cmd.Println(string(encoded))
		return nil
	}

	cmd.Printf("Run %s: %s\n", report.RunID, report.Outcome)
	if report.Reason != "" {
		cmd.Printf("Reason: %s\n", report.Reason)
	}

	for _, stage := range report.Stages {
		cmd.Printf("  %-12s %d -> %d\n", stage.Name, stage.In, stage.Out)
		for _, note := range stage.Notes {
			cmd.Printf("    - %s\n", note)
		}
	}

	if len(report.Segments) > 0 {
		cmd.Printf("Injected %d segment(s):\n", len(report.Segments))
		for _, seg := range report.Segments {
			cmd.Printf("  [%s depth=%d] %d bytes\n", seg.Position, seg.Depth, len(seg.Content))
		}
		if !report.Verified {
			cmd.Println("Warning: readback verification failed; segments may have been altered by the host.")
		}
	}

	return nil
}
