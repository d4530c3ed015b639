// Package pipeline drives a project through the production stages.
//
// Stages run in order: script, metadata, scenes, voice, images. Each
// Advance* method validates its preconditions against the store, calls the
// generation engine (which leases a credential per call), and writes the
// results back. Every run logs stage_start, stage_complete, or stage_failure
// with a fresh correlation id.
//
// The scenes stage is destructive: it deletes the existing scene set before
// requesting a new breakdown. The voice and image stages only fill scenes
// that lack the asset and collect per-scene failures instead of aborting.
//
// Project status is derived from scenes on demand by RefreshStatus and is
// never trusted from a previous run.
package pipeline
