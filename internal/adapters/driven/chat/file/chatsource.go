// Package file provides a file-based ChatSource for hosts that export the
// chat transcript as JSON. The generation state is signalled through a
// marker file next to the transcript, which the host creates while its
// model is producing a reply.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
)

// Ensure ChatSource implements the interface.
var _ driven.ChatSource = (*ChatSource)(nil)

// GeneratingSuffix marks the file whose presence means the host is mid-
// generation.
const GeneratingSuffix = ".generating"

// ChatSource reads the current chat from a JSON transcript file.
type ChatSource struct {
	path string
}

// NewChatSource creates a chat source for the given transcript path.
func NewChatSource(path string) *ChatSource {
	return &ChatSource{path: path}
}

// Chat loads and decodes the transcript. Message indexes are filled in from
// list position when the host leaves them zero.
func (s *ChatSource) Chat(_ context.Context) (*domain.Chat, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading chat transcript: %w", err)
	}

	var chat domain.Chat
	if err := json.Unmarshal(data, &chat); err != nil {
		return nil, fmt.Errorf("decoding chat transcript: %w", err)
	}

	for i := range chat.Messages {
		if chat.Messages[i].Index == 0 {
			chat.Messages[i].Index = i
		}
	}
	return &chat, nil
}

// GenerationInProgress reports whether the host's generation marker exists.
func (s *ChatSource) GenerationInProgress(_ context.Context) bool {
	_, err := os.Stat(s.path + GeneratingSuffix)
	return err == nil
}
