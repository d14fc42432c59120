// Package docio reads source documents and persists sanitized ones.
//
// Failures are reported as wrapped sentinel errors (ErrUnreadable,
// ErrMalformed, ErrUnwritable) together with a nil result, never as panics.
// Writes are atomic: a failed Store leaves no file at the destination.
package docio
