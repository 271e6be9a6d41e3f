// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - VectorBackend: Vector storage and similarity search over chunk content
//   - MetadataStore: Collection and chunk metadata persistence
//   - ChatSource: The host chat's message list and generation state
//   - PromptSink: Receives injected prompt segments
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the pipeline degrades gracefully:
//
//   - RerankService: Cross-encoder reranking of fused candidates
//   - KeywordExtractor: Keyword extraction during sync
//   - EmbeddingService: Precomputed query vectors for the backend
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
