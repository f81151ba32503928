// Package session runs one player's side of a game.
//
// A Session owns the player's Hand and runs three cooperating tasks that
// share it:
//   - Renderer: redraws the board top and the hand on a fixed period
//   - InputHandler: turns keys into plays and cursor moves, and draws a
//     penalty card when the player stays idle too long
//   - EventListener: handles the coordinator's replies on the player's
//     private tag
//
// The tasks share one cancellable context. Whichever task first learns that
// the game is over records the Outcome and cancels it; the other two exit on
// cancellation.
package session
