// Package ledger implements the attestation registry state machine.
//
// A Ledger holds messages published by authenticated accounts together with a
// recoverable secp256k1 signature over the text, and a weighted tally of
// approval and disapproval votes for every message. Writes are applied one at
// a time and committed to a Store as a single Changeset, so a failed write
// never leaves partial state behind. Every accepted write appends one Event
// to an ordered log that can be replayed with Events or followed live with
// Subscribe and Follower.
//
// Three stores are provided: InmemStore, BadgerStore and SQLStore (SQLite or
// MySQL).
package ledger
