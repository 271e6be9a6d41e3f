// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// PipelineService runs the retrieval pipeline, RetrievalService handles the
// per-collection hybrid search, VectorizeService keeps the backend in step
// with the chat, and SettingsService/CollectionsService manage
// configuration.
package services
