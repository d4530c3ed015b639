// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp project IDs, stage names, and correlation
//     identifiers for logging.
//   - Sentinel error markers plus the Wrap helper. Callers distinguish a
//     drained credential pool (ErrNoCredentialAvailable, operator action
//     required) from a failed provider call (ErrUpstreamGeneration, safe to
//     retry) with errors.Is, or with Classify/Retryable.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
