// Package mock provides deterministic test doubles for the ai interfaces.
// The default embedder derives vectors from a text hash so identical input
// always produces identical embeddings.
package mock
