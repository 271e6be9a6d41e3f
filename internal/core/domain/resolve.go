package domain

// ResolveOverride returns the first defined value in the chunk ->
// collection -> global settings cascade. A nil pointer means "not set at
// this level".
func ResolveOverride[T any](chunkVal, collectionVal *T, globalVal T) T {
	if chunkVal != nil {
		return *chunkVal
	}
	if collectionVal != nil {
		return *collectionVal
	}
	return globalVal
}

// Placement is the resolved (position, depth) pair for one chunk.
type Placement struct {
	Position InjectPosition
	Depth    int
}

// ResolvePlacement applies the override cascade for a chunk's injection
// position and depth.
func ResolvePlacement(chunk *Chunk, collection *Collection, settings Settings) Placement {
	var colPos *InjectPosition
	var colDepth *int
	if collection != nil {
		colPos = collection.Position
		colDepth = collection.Depth
	}
	return Placement{
		Position: ResolveOverride(chunk.Position, colPos, settings.Position),
		Depth:    ResolveOverride(chunk.Depth, colDepth, settings.Depth),
	}
}
