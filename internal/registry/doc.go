// Package registry provides SQLite-backed storage for gate approvals.
//
// An approval records that a specific revision of a template passed the
// compliance gate: the template fingerprint, the policy version it was
// checked against, the run that recorded it, and the canonical report.
//
// # Identity
//
//   - Fingerprint: SHA-256 with domain separation over the canonical JSON of
//     {template_id, NFC-normalized SQL, metadata}. Any change to the template
//     or its sidecar changes the fingerprint.
//   - UNIQUE(template_id, fingerprint): re-registering an unchanged template
//     is a silent no-op.
//
// # Determinism
//
//   - recorded_at is caller-supplied; the store never reads a clock.
//   - All list queries order by template_id, fingerprint COLLATE BINARY so
//     identical registries render identically.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - single open connection: SQLite allows one writer at a time
package registry
