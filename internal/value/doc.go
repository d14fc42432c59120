// Package value provides the JSON document model used by schemasan.
//
// This package contains type definitions and codecs only. All other internal
// packages import value; value imports nothing internal.
//
// Key design constraints:
//   - Object keys keep their source order so sanitized output diffs cleanly
//     against its input
//   - Numbers keep their literal text (no float64 round-trip on output)
//   - A Go nil Value means "absent", distinct from JSON null
//   - Fingerprints use canonical JSON (sorted keys, NFC strings, normalized
//     numbers) with SHA-256 domain separation
package value
