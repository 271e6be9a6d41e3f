// Package file provides a file-based PromptSink. Segments are written as a
// JSON document for the host to pick up, and read back from the same file
// for injection verification.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
)

// Ensure Sink implements the interface.
var _ driven.PromptSink = (*Sink)(nil)

// Sink hands prompt segments to the host through a JSON file.
type Sink struct {
	path string
}

// NewSink creates a prompt sink writing to the given path.
func NewSink(path string) *Sink {
	return &Sink{path: path}
}

// Inject writes the segments, replacing whatever a previous run left.
func (s *Sink) Inject(_ context.Context, segments []domain.PromptSegment) error {
	data, err := json.MarshalIndent(segments, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding segments: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("writing segments: %w", err)
	}
	return nil
}

// Injected reads the segments currently held by the host file.
func (s *Sink) Injected(_ context.Context) ([]domain.PromptSegment, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading segments: %w", err)
	}

	var segments []domain.PromptSegment
	if err := json.Unmarshal(data, &segments); err != nil {
		return nil, fmt.Errorf("decoding segments: %w", err)
	}
	return segments, nil
}
