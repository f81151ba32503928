// Package store provides the SQLite-backed game journal.
//
// The journal is an append-only audit trail of every game the coordinator
// runs:
//   - Games: one row per game, keyed by its UUIDv7 id
//   - Joins: every join request and whether it was accepted
//   - Plays: every adjudicated play, the card, and the verdict
//   - Endings: the single ending of a game (winner or none, and why)
//
// # Ordering
//
// Rows within a game are ordered by seq, the coordinator's logical clock,
// never by wall time. All reads ORDER BY seq ASC.
//
// # Single termination
//
// endings.game_id is a primary key, so a game can record at most one ending.
// Writes use ON CONFLICT DO NOTHING and are idempotent.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// The journal is never read back to resume a game.
package store
