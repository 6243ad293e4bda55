// Package digest derives content-addressed keys for cached KV blocks.
//
// A prefix of tokens, together with the model id and the block size it was
// produced under, is canonically encoded and hashed with XXH3-128. Identical
// prefixes therefore resolve to identical object keys on every machine,
// which is what makes the cache shareable between workers.
package digest
