package blacklist

import "context"

// Entry is one blacklisted identifier with its insertion time in epoch
// seconds. Re-adding an identifier refreshes InsertedAt rather than
// creating a duplicate.
type Entry struct {
	Identifier string
	InsertedAt int64
}

// Store is the durable blacklist. Implementations must be safe for
// concurrent use from multiple in-flight event handlers: Add is an
// idempotent upsert and Remove of an absent identifier is a successful
// no-op, so racing handlers converge to the same final state regardless
// of interleaving.
//
// Persistence faults never escape the store. Writes report false and log
// the cause; reads fail open (Contains returns false, List returns nil).
// Fail-open reads are a deliberate policy choice: a storage outage weakens
// duplicate-detection replies and lets non-blacklisted checks through, it
// does not corrupt state.
type Store interface {
	// Add inserts the identifier or refreshes its timestamp to now.
	Add(ctx context.Context, identifier string) bool
	// Remove deletes the identifier if present. Removing an absent
	// identifier returns true; callers that need to report "not found"
	// must check Contains first.
	Remove(ctx context.Context, identifier string) bool
	// Contains reports whether the identifier is blacklisted.
	Contains(ctx context.Context, identifier string) bool
	// List returns all entries, newest insertion/refresh first.
	List(ctx context.Context) []Entry
}
