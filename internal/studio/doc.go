// Package studio assembles a runnable reelsmith instance from configuration.
//
// Open takes an exclusive file lock in the data directory, opens the
// in-memory store, seeds the credential pool from the configured keys, and
// connects the generation engine, pipeline orchestrator, placeholder asset
// collaborators, and ntfy notifier. Produce runs every pipeline stage for a
// new project; CheckKeys verifies each active key against the provider.
package studio
