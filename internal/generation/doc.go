// Package generation builds stage prompts and parses provider responses.
//
// Each Engine method acquires a credential lease, issues exactly one provider
// call, and shapes the reply (line split titles, comma split tags, JSON scene
// breakdowns). Provider failures are wrapped with
// services.ErrUpstreamGeneration; credential pool failures pass through
// untouched so callers can tell an exhausted pool from a flaky provider.
//
// ParseSceneBreakdown and AssignOrder are pure and carry the scene
// extraction rules.
package generation
