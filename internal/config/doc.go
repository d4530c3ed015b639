// Package config loads, normalizes, and validates reelsmith configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads a local .env file, and honours
// environment fallbacks such as REELSMITH_LLM_API_KEYS. Credential entries
// seed the in-memory credential pool at startup; they are never written back.
package config
