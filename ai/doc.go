// Package ai provides abstractions for the AI services behind the query
// pipeline: text embedding and answer generation.
//
// The package defines interfaces only; implementations live in sub-packages:
//
//   - ai/openai: production implementation for OpenAI-compatible APIs
//   - ai/mock: test doubles for unit testing without external dependencies
//
// Constructors in implementation packages return interface types to enforce
// abstraction, while mock constructors return concrete types so tests can
// inject behavior and make assertions.
//
// Providers are cheap to construct and are built per query from the active
// settings snapshot (see the settings package), so a configuration change
// takes effect on the next query without a restart.
package ai
