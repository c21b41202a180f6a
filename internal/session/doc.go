// Package session owns per-conversation state for the relay bot.
//
// A Session holds the ordered turn history, the visibility mode, and the
// selected persona for one conversation. The [Store] is the exclusive owner
// of all sessions and hands out access only through [Store.WithSession],
// which serializes work per conversation key while letting unrelated
// conversations proceed independently.
//
// # Concurrency
//
// The Store uses two levels of synchronization: a store-level mutex guarding
// the key→entry map (insertion of new keys never blocks unrelated lookups
// for long), and a per-entry semaphore providing mutual exclusion for the
// session itself. The per-entry lock is intentionally held across the
// upstream completion call so that at most one request per conversation is
// in flight at a time.
//
// Session methods themselves are not thread-safe; they must only be called
// from inside a WithSession callback.
//
// # Eviction
//
// [Store.Sweep] reclaims sessions idle longer than the configured TTL.
// Entries with an in-flight or waiting WithSession are pinned and never
// swept, so eviction cannot race guarded access.
package session
