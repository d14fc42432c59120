// Package store provides SQLite-backed run history for schemasan.
//
// Every sanitize or dedupe run can be recorded as one row in the runs table:
// what was read, what was written, whether it succeeded, at which stage it
// failed, how many records were removed, and fingerprints of the input and
// output documents.
//
// # Ordering
//
// Each run gets a logical sequence number (seq) on insert. Listings order by
// seq DESC, id ASC COLLATE BINARY so results are identical across reads.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Fingerprints are computed by value.Fingerprint over canonical JSON.
package store
