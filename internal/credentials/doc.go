// Package credentials implements the credential pool that rations provider
// API keys.
//
// Every generation call acquires a Lease from the Pool. The pool always hands
// out the active key with the lowest usage count (ties go to the oldest key)
// and increments that count before returning, so load spreads evenly across
// keys. Counters only move forward except through Reset.
//
// Metering is per process; the studio runtime holds a lock file so only one
// process meters a given data directory.
package credentials
