// Package llm provides an OpenRouter chat client for text generation.
//
// The generation engine uses it for every provider call: scripts, titles,
// descriptions, tags, scene breakdowns, and image prompts.
//
// # Credentials
//
// The client holds no API key. Each call receives the key leased from the
// credential pool, so consecutive calls may authenticate as different keys.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Complete: send a single user prompt, receive the text reply.
// Client.HealthCheck: verify an API key and the model are usable.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/5xx errors, empty completions, and network
// timeouts with exponential backoff (base 1s, max 10s, 3 attempts by
// default). HTTP 429 is returned immediately so the caller can rotate to a
// less used key. Context cancellation aborts retries immediately.
package llm
