package domain

import (
	"hash/fnv"
	"strings"
)

// NoMessageIndex marks a chunk without a chat origin.
// Such chunks never receive temporal weighting.
const NoMessageIndex = -1

// Chunk is a unit of retrievable text reconstituted from backend results
// for the duration of one pipeline run. Identity is the content hash; the
// score and trace are mutated in place by pipeline stages and never
// persisted back.
type Chunk struct {
	// Hash is the stable content hash derived from normalised text.
	Hash uint32

	// CollectionID is the source collection.
	CollectionID string

	// Text is the raw chunk text.
	Text string

	// Score is the current relevance score, updated stage by stage.
	Score float64

	// VectorScore is the original vector similarity in [0,1].
	VectorScore float64

	// LexicalScore is the BM25 score against the query.
	LexicalScore float64

	// Trace records every score adjustment applied during the run.
	Trace []TraceStep

	// MessageIndex is the originating message position, or NoMessageIndex.
	MessageIndex int

	// IsSummary marks a condensed chunk whose full text lives in the
	// parent chunk identified by ParentHash.
	IsSummary bool

	// ParentHash identifies the parent of a summary chunk (0 when unset).
	ParentHash uint32

	// TemporallyBlind exempts the chunk from temporal weighting.
	TemporallyBlind bool

	// Keywords are precomputed (keyword, weight) pairs for query boosting.
	Keywords []Keyword

	// Links are explicit relations stored on the chunk.
	Links []Link

	// Conditions optionally gate the chunk's visibility per query.
	Conditions *ConditionConfig

	// Position and Depth override the collection and global placement.
	Position *InjectPosition
	Depth    *int
}

// Keyword is a precomputed boost keyword with weight >= 1.0.
type Keyword struct {
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

// LinkKind distinguishes forced inclusion from score boosting.
type LinkKind string

// Available link kinds.
const (
	// LinkHard forces the target into the result set when the source survives.
	LinkHard LinkKind = "hard"

	// LinkSoft boosts the target's score when the source survives.
	LinkSoft LinkKind = "soft"
)

// Link is a directed chunk-to-chunk relation. Links are either stored on a
// chunk's metadata or generated virtually by group resolution for one run.
type Link struct {
	Target uint32   `json:"target"`
	Kind   LinkKind `json:"kind"`

	// Boost is the soft-boost magnitude; 0 falls back to the collection default.
	Boost float64 `json:"boost,omitempty"`
}

// ChunkMeta is the per-chunk JSON record held by the metadata store.
// It carries everything about a chunk that is not derivable from the
// backend item itself.
type ChunkMeta struct {
	Hash            uint32           `json:"hash"`
	Disabled        bool             `json:"disabled,omitempty"`
	IsSummary       bool             `json:"isSummary,omitempty"`
	ParentHash      uint32           `json:"parentHash,omitempty"`
	TemporallyBlind bool             `json:"temporallyBlind,omitempty"`
	Keywords        []Keyword        `json:"keywords,omitempty"`
	Links           []Link           `json:"links,omitempty"`
	Conditions      *ConditionConfig `json:"conditions,omitempty"`
	Position        *InjectPosition  `json:"position,omitempty"`
	Depth           *int             `json:"depth,omitempty"`
}

// ApplyMeta copies stored metadata onto a reconstituted chunk.
func (c *Chunk) ApplyMeta(meta *ChunkMeta) {
	if meta == nil {
		return
	}
	c.IsSummary = meta.IsSummary
	c.ParentHash = meta.ParentHash
	c.TemporallyBlind = meta.TemporallyBlind
	c.Keywords = meta.Keywords
	c.Links = meta.Links
	c.Conditions = meta.Conditions
	c.Position = meta.Position
	c.Depth = meta.Depth
}

// NormaliseText canonicalises text for hashing: surrounding whitespace is
// trimmed and internal whitespace runs collapse to a single space. Case is
// preserved - differently-cased text is different content.
func NormaliseText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// HashText returns the stable content hash for text. Identical normalised
// text always hashes to the same value regardless of message position, so
// duplicates dedupe to one entity for sync and injection purposes.
func HashText(text string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(NormaliseText(text)))
	return h.Sum32()
}
