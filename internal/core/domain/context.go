package domain

import (
	"math/rand"
	"time"
)

// Message is one entry of the host chat's ordered message list.
type Message struct {
	// Index is the absolute position within the chat.
	Index int `json:"index"`

	// Speaker is the display name of the author.
	Speaker string `json:"speaker"`

	// IsUser distinguishes user messages from character messages.
	IsUser bool `json:"isUser"`

	Text string `json:"text"`
}

// Chat is the host's view of the current session.
type Chat struct {
	ID          string    `json:"id"`
	CharacterID string    `json:"characterId"`
	IsGroup     bool      `json:"isGroup"`
	Messages    []Message `json:"messages"`

	// SceneBreaks are message indexes where a new scene starts.
	SceneBreaks []int `json:"sceneBreaks,omitempty"`
}

// SearchContext is built once per pipeline run and consumed by condition
// evaluation. It is never persisted beyond the run except the activation
// history counters the caller chooses to keep.
type SearchContext struct {
	// Messages is the recent message window, oldest first.
	Messages []Message

	GenerationType string
	IsGroupChat    bool
	ChatID         string
	CharacterID    string

	// CurrentIndex is the absolute index the query is issued at.
	CurrentIndex int

	// SceneBreaks mirror the chat's scene boundaries.
	SceneBreaks []int

	// Now anchors time-of-day rules; zero means time.Now.
	Now time.Time

	// Rand drives chance-based rules; nil falls back to the global source.
	Rand *rand.Rand

	// History tracks per-chunk activation counters for the run.
	History *ActivationHistory
}

// Clock returns the context's time anchor.
func (sc *SearchContext) Clock() time.Time {
	if sc.Now.IsZero() {
		return time.Now()
	}
	return sc.Now
}

// Chance returns a uniform sample in [0,1) from the context's random source.
func (sc *SearchContext) Chance() float64 {
	if sc.Rand != nil {
		return sc.Rand.Float64()
	}
	return rand.Float64()
}

// LastMessage returns the newest message in the window, or nil when empty.
func (sc *SearchContext) LastMessage() *Message {
	if len(sc.Messages) == 0 {
		return nil
	}
	return &sc.Messages[len(sc.Messages)-1]
}

// ActivationCounter records how often and how recently a chunk activated.
type ActivationCounter struct {
	Count     int `json:"count"`
	LastIndex int `json:"lastIndex"`
}

// ActivationHistory holds per-chunk activation counters. It is owned by the
// orchestrator for one run; the derived counters may be persisted afterwards.
type ActivationHistory struct {
	counters map[uint32]ActivationCounter
}

// NewActivationHistory creates a history seeded with previously persisted
// counters. A nil seed starts empty.
func NewActivationHistory(seed map[uint32]ActivationCounter) *ActivationHistory {
	counters := make(map[uint32]ActivationCounter, len(seed))
	for hash, c := range seed {
		counters[hash] = c
	}
	return &ActivationHistory{counters: counters}
}

// Record notes an activation of the given chunk at messageIndex.
func (h *ActivationHistory) Record(hash uint32, messageIndex int) {
	c := h.counters[hash]
	c.Count++
	c.LastIndex = messageIndex
	h.counters[hash] = c
}

// Get returns the counter for a chunk hash.
func (h *ActivationHistory) Get(hash uint32) ActivationCounter {
	return h.counters[hash]
}

// Counters returns a copy of all counters for persistence.
func (h *ActivationHistory) Counters() map[uint32]ActivationCounter {
	out := make(map[uint32]ActivationCounter, len(h.counters))
	for hash, c := range h.counters {
		out[hash] = c
	}
	return out
}
