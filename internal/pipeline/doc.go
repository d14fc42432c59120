// Package pipeline ties loading, sanitizing, and storing a document into
// one run.
//
// A sanitize run has three stages:
//
//  1. load: read and parse the source document (docio.Loader)
//  2. sanitize: deduplicate the configured collections (sanitize.Sanitizer)
//  3. store: serialize and persist the result (docio.Writer)
//
// A failure at any stage stops the run. Nothing is written to the
// destination, the failure is logged, and the Outcome names the stage that
// failed. Success and failure are both reported to the optional Recorder,
// which is how run history ends up in the SQLite store.
package pipeline
