// Package store keeps projects, scenes, credential keys, and approval
// requests in a private in-memory SQLite database.
//
// Open creates a fresh database per call; nothing survives Close. The
// connection pool is pinned to a single connection, so every statement is
// serialized and multi-statement writes (scene batches, credential claims)
// run inside one transaction.
//
// Lookups of missing rows return nil, nil. Callers translate that into
// their own not-found errors.
package store
