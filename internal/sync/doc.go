// Package sync reconciles the local JSON task document with the remote
// relational repository.
//
// Reconciliation is hash based. For every record the coordinator
// computes the canonical content hash of the local copy and of the
// remote copy, compares both against the hash pair persisted at the
// previous reconciliation, and classifies the record as unchanged,
// push (local changed), pull (remote changed), or conflict (both
// changed). Pushes and pulls are applied immediately; conflicts are
// flagged in the metadata table and left for the caller to resolve.
// Clock skew never matters because timestamps are not consulted for
// classification.
package sync
