// Package grouping resolves chunk groups and links after scoring and
// filtering. Exclusive groups suppress all but their best surviving member,
// inclusive groups generate virtual links between members, and hard/soft
// links force or boost related chunks into the final set.
package grouping

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// Stage names recorded on chunk traces and audit events.
const (
	StageExclusive = "groups.exclusive"
	StageMandatory = "groups.mandatory"
	StageHardLink  = "links.hard"
	StageSoftLink  = "links.soft"
)

// Lookup fetches a chunk by hash from the backing store when it was not
// retrieved during the current run. It returns false when the chunk does
// not exist or the fetch fails.
type Lookup func(collectionID string, hash uint32) (*domain.Chunk, bool)

// Event is one audit record emitted during resolution.
type Event struct {
	Stage      string
	Collection string
	Group      string
	Source     uint32
	Target     uint32
	Note       string
}

// Result is the resolved chunk set plus the audit trail.
type Result struct {
	Chunks []domain.Chunk
	Events []Event
}

// Resolve applies group and link semantics to the surviving chunks.
//
// Exclusive groups keep only their highest-scoring surviving member; a
// mandatory exclusive group with no survivor pulls its best member back in,
// preferring the retrieved set over a backend lookup. Inclusive groups
// link each surviving member to every other member, and all links (stored
// and virtual) are then applied: hard links force their target into the
// set, soft links multiply the target's score by 1+boost.
//
// The retrieved map holds every chunk fetched this run keyed by hash; it is
// the first source for forced inclusions. Resolution never fails: targets
// that cannot be materialised are reported as events and skipped.
func Resolve(survivors []domain.Chunk, retrieved map[uint32]domain.Chunk, collections map[string]*domain.Collection, lookup Lookup) Result {
	r := &resolver{
		retrieved:   retrieved,
		collections: collections,
		lookup:      lookup,
		index:       make(map[uint32]int, len(survivors)),
	}
	for _, c := range survivors {
		r.add(c)
	}

	r.resolveGroups()
	r.applyLinks()

	return Result{Chunks: r.chunks, Events: r.events}
}

type resolver struct {
	retrieved   map[uint32]domain.Chunk
	collections map[string]*domain.Collection
	lookup      Lookup

	chunks []domain.Chunk
	index  map[uint32]int
	events []Event

	// virtual holds group-generated links keyed by source hash.
	virtual map[uint32][]domain.Link
}

func (r *resolver) add(c domain.Chunk) {
	if _, ok := r.index[c.Hash]; ok {
		return
	}
	r.index[c.Hash] = len(r.chunks)
	r.chunks = append(r.chunks, c)
}

func (r *resolver) remove(hash uint32) {
	i, ok := r.index[hash]
	if !ok {
		return
	}
	r.chunks = append(r.chunks[:i], r.chunks[i+1:]...)
	delete(r.index, hash)
	for h, j := range r.index {
		if j > i {
			r.index[h] = j - 1
		}
	}
}

func (r *resolver) event(e Event) {
	r.events = append(r.events, e)
}

// resolveGroups walks every group of every known collection once.
func (r *resolver) resolveGroups() {
	r.virtual = make(map[uint32][]domain.Link)

	ids := make([]string, 0, len(r.collections))
	for id := range r.collections {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		col := r.collections[id]
		for i := range col.Groups {
			g := &col.Groups[i]
			switch g.Mode {
			case domain.GroupExclusive:
				r.resolveExclusive(col, g)
			case domain.GroupInclusive:
				r.resolveInclusive(col, g)
			default:
				logger.Warn("Group %q in collection %s has unknown mode %q, skipping", g.Name, col.ID, g.Mode)
			}
		}
	}
}

// resolveExclusive keeps only the best surviving member and, for mandatory
// groups with no survivor, injects the best available member.
func (r *resolver) resolveExclusive(col *domain.Collection, g *domain.Group) {
	var present []uint32
	for _, h := range g.Members {
		if _, ok := r.index[h]; ok {
			present = append(present, h)
		}
	}

	if len(present) > 1 {
		best := present[0]
		for _, h := range present[1:] {
			if r.chunks[r.index[h]].Score > r.chunks[r.index[best]].Score {
				best = h
			}
		}
		for _, h := range present {
			if h == best {
				continue
			}
			r.remove(h)
			r.event(Event{Stage: StageExclusive, Collection: col.ID, Group: g.Name,
				Source: best, Target: h, Note: "suppressed by higher-scoring member"})
		}
		return
	}

	if len(present) == 1 || !g.Mandatory {
		return
	}

	// Mandatory group with no survivor: pull the best member back in.
	r.injectMandatory(col, g)
}

func (r *resolver) injectMandatory(col *domain.Collection, g *domain.Group) {
	var best *domain.Chunk
	for _, h := range g.Members {
		if c, ok := r.retrieved[h]; ok {
			if best == nil || c.Score > best.Score {
				found := c
				best = &found
			}
		}
	}
	if best == nil && r.lookup != nil {
		for _, h := range g.Members {
			if c, ok := r.lookup(col.ID, h); ok {
				best = c
				break
			}
		}
	}
	if best == nil {
		logger.Warn("Mandatory group %q in collection %s has no reachable member", g.Name, col.ID)
		r.event(Event{Stage: StageMandatory, Collection: col.ID, Group: g.Name,
			Note: "no member could be materialised"})
		return
	}

	best.Trace = append(best.Trace, domain.TraceStep{
		Stage: StageMandatory,
		Note:  fmt.Sprintf("injected for mandatory group %q", g.Name),
	})
	r.add(*best)
	r.event(Event{Stage: StageMandatory, Collection: col.ID, Group: g.Name,
		Target: best.Hash, Note: "member injected"})
}

// resolveInclusive generates virtual links from every surviving member to
// every other member of the group.
func (r *resolver) resolveInclusive(col *domain.Collection, g *domain.Group) {
	kind := domain.LinkSoft
	var boost float64
	if g.HardLinks {
		kind = domain.LinkHard
	} else {
		boost = col.SoftBoostFor(g)
	}

	for _, src := range g.Members {
		if _, ok := r.index[src]; !ok {
			continue
		}
		for _, dst := range g.Members {
			if dst == src {
				continue
			}
			r.virtual[src] = append(r.virtual[src], domain.Link{Target: dst, Kind: kind, Boost: boost})
		}
	}
}

// applyLinks applies stored and virtual links for every chunk in the set.
// Hard links may pull in new chunks whose own links are then processed too;
// the seen set keeps cycles harmless.
func (r *resolver) applyLinks() {
	seen := make(map[uint32]bool)
	queue := make([]uint32, 0, len(r.chunks))
	for _, c := range r.chunks {
		queue = append(queue, c.Hash)
	}

	for len(queue) > 0 {
		src := queue[0]
		queue = queue[1:]
		if seen[src] {
			continue
		}
		seen[src] = true

		i, ok := r.index[src]
		if !ok {
			// Removed by a group between queueing and processing.
			continue
		}

		links := append([]domain.Link{}, r.chunks[i].Links...)
		links = append(links, r.virtual[src]...)

		for _, link := range links {
			switch link.Kind {
			case domain.LinkHard:
				if added := r.applyHardLink(src, link); added {
					queue = append(queue, link.Target)
				}
			case domain.LinkSoft:
				r.applySoftLink(src, link)
			default:
				logger.Warn("Chunk %d carries link with unknown kind %q, skipping", src, link.Kind)
			}
		}
	}
}

// applyHardLink forces the link target into the set from the retrieved map.
// It returns true when a new chunk was added.
func (r *resolver) applyHardLink(src uint32, link domain.Link) bool {
	if _, ok := r.index[link.Target]; ok {
		return false
	}
	target, ok := r.retrieved[link.Target]
	if !ok {
		r.event(Event{Stage: StageHardLink, Source: src, Target: link.Target,
			Note: "target not fetched this run"})
		return false
	}
	target.Trace = append(target.Trace, domain.TraceStep{
		Stage: StageHardLink,
		Note:  fmt.Sprintf("forced in by chunk %d", src),
	})
	r.add(target)
	r.event(Event{Stage: StageHardLink, Collection: target.CollectionID,
		Source: src, Target: link.Target, Note: "target forced in"})
	return true
}

// applySoftLink boosts the target's score when it is present in the set.
func (r *resolver) applySoftLink(src uint32, link domain.Link) {
	i, ok := r.index[link.Target]
	if !ok {
		return
	}
	boost := link.Boost
	if boost <= 0 {
		if col, ok := r.collections[r.chunks[i].CollectionID]; ok {
			boost = col.SoftBoostFor(nil)
		} else {
			boost = domain.DefaultSoftLinkBoost
		}
	}
	r.chunks[i].ApplyFactor(StageSoftLink, 1+boost,
		fmt.Sprintf("soft link from chunk %d", src))
	r.event(Event{Stage: StageSoftLink, Collection: r.chunks[i].CollectionID,
		Source: src, Target: link.Target,
		Note: fmt.Sprintf("score boosted by %.2f", boost)})
}
