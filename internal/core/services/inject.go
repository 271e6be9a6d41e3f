package services

import (
	"sort"
	"strings"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// templatePlaceholder is replaced with the block content when rendering
// collection and global templates.
const templatePlaceholder = "{{text}}"

// placementKey buckets chunks by resolved position and depth. Depth is only
// meaningful for the in-chat position and is zeroed elsewhere so that
// before/after buckets collapse to one segment each.
type placementKey struct {
	position domain.InjectPosition
	depth    int
}

// buildSegments turns the final chunk set into position/depth-tagged prompt
// segments. Each chunk resolves its placement through the chunk ->
// collection -> global cascade; chunks sharing a placement merge into one
// segment, formatted per collection and wrapped by the global template.
func buildSegments(chunks []domain.Chunk, collections map[string]*domain.Collection, settings domain.Settings) []domain.PromptSegment {
	buckets := make(map[placementKey][]domain.Chunk)
	for _, c := range chunks {
		placement := domain.ResolvePlacement(&c, collections[c.CollectionID], settings)
		key := placementKey{position: placement.Position}
		if placement.Position == domain.PositionInChat {
			key.depth = placement.Depth
		}
		buckets[key] = append(buckets[key], c)
	}

	keys := make([]placementKey, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].position != keys[j].position {
			return keys[i].position < keys[j].position
		}
		return keys[i].depth < keys[j].depth
	})

	segments := make([]domain.PromptSegment, 0, len(keys))
	for _, key := range keys {
		content := formatBucket(buckets[key], collections, settings)
		if content == "" {
			continue
		}
		segments = append(segments, domain.PromptSegment{
			Position: key.position,
			Depth:    key.depth,
			Content:  content,
		})
	}
	return segments
}

// formatBucket renders one placement bucket: chunks are grouped by
// collection (best score first within each group), each group is wrapped by
// its collection's template and tag, and the joined blocks pass through the
// global template.
func formatBucket(chunks []domain.Chunk, collections map[string]*domain.Collection, settings domain.Settings) string {
	sortChunksByScore(chunks)

	order := make([]string, 0)
	grouped := make(map[string][]string)
	for _, c := range chunks {
		if _, seen := grouped[c.CollectionID]; !seen {
			order = append(order, c.CollectionID)
		}
		grouped[c.CollectionID] = append(grouped[c.CollectionID], c.Text)
	}

	blocks := make([]string, 0, len(order))
	for _, id := range order {
		block := strings.Join(grouped[id], "\n")
		if col := collections[id]; col != nil {
			block = applyTemplate(col.Template, block)
			if col.Tag != "" {
				block = "<" + col.Tag + ">\n" + block + "\n</" + col.Tag + ">"
			}
		}
		blocks = append(blocks, block)
	}

	return applyTemplate(settings.Template, strings.Join(blocks, "\n"))
}

// applyTemplate substitutes the content into the template's placeholder.
// An empty template or one without the placeholder passes content through.
func applyTemplate(template, content string) string {
	if template == "" || !strings.Contains(template, templatePlaceholder) {
		return content
	}
	return strings.ReplaceAll(template, templatePlaceholder, content)
}

// sortChunksByScore orders chunks descending by score, ties broken by hash
// for determinism.
func sortChunksByScore(chunks []domain.Chunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].Score != chunks[j].Score {
			return chunks[i].Score > chunks[j].Score
		}
		return chunks[i].Hash < chunks[j].Hash
	})
}
