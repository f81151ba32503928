// Package coordinator implements the authoritative game loop.
//
// The coordinator owns the player registry and the game phase. It is the only
// reader of the control tags (join, pile exhausted, play) and the only writer
// of the private reply tags.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// Run receives one message at a time from the mailbox and handles it to
// completion before receiving the next. This ensures:
// - Exactly one play is adjudicated at a time
// - The registry and phase are never mutated concurrently
// - Exactly one game end is broadcast
//
// Phases:
//
//	WaitingForPlayers -> InProgress -> Finished
//
// InProgress starts with the first accepted join. Finished is terminal: Run
// returns nil and the owner tears down the mailbox and the table.
//
// ERROR HANDLING:
// Malformed payloads and plays from unregistered players are logged at warn
// and dropped. Journal write failures are logged and the game continues.
//
// Journal events are stamped with a monotonic seq from Clock.Next(), never
// with wall-clock time.
package coordinator
