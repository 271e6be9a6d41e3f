// Package domain holds the core business entities of the retrieval
// pipeline: chunks with content-hash identity, collections with activation
// and temporal configuration, groups and links, the per-run search context
// and audit trail, and the settings override cascade.
//
// Domain types have no dependencies on infrastructure.
package domain
