// Package journal provides durable storage for long-running range scans.
//
// A scan run is split into contiguous segments before any work starts; the
// run, its segments, and the records each segment finds are written to a
// SQLite database as the scan progresses. A run interrupted by a crash or
// cancellation resumes from its pending segments; completed segments are
// never recomputed.
//
// # Idempotency
//
// Every write uses INSERT ... ON CONFLICT DO NOTHING or an UPDATE keyed by
// primary key, so replaying a write after a partial failure is always safe.
// Re-running a finished segment produces identical rows that the conflict
// clause silently drops.
//
// # Value encoding
//
// Scanned values and step counts are unsigned 64-bit; SQLite INTEGER is
// signed 64-bit. Every such value is stored as decimal TEXT and converted
// at the boundary, which keeps the full uint64 range addressable and sorts
// correctly only through ORDER BY on the integer columns (seq, idx, pos),
// never on the TEXT values themselves.
package journal
