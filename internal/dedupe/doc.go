// Package dedupe removes duplicate records from JSON arrays.
//
// A record is a JSON object identified by one of its fields (the key field).
// Deduplication keeps the first record for each key value, discards later
// ones wholesale (no merging), and preserves the relative order of what is
// kept. It can optionally descend into a named array inside every kept
// record and apply the same rule there with that level's own key field.
//
// The input is deep-copied before filtering, so a caller's array and the
// result never share containers. Functions in this package are pure and
// safe to call concurrently on disjoint or shared inputs.
//
// # Failure
//
// A records argument that is present but not an array (a string, a number,
// null) fails with ErrNotSequence and a nil result. An absent argument is an
// empty array. Callers distinguish the two by the error, not by the length
// of the result.
package dedupe
