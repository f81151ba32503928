// Package harness runs scripted games against a real coordinator.
//
// A scenario stacks the deck, sends the messages players would send and
// checks the coordinator's replies, then asserts on the final table,
// coordinator and journal state.
//
// # Scenario Format
//
//	name: last_card_wins
//	description: "Playing the last card wins for everyone"
//	stacking: adjacent        # default adjacent
//	max_players: 2            # default 4
//	seed: BLUE 9              # board seed
//	pile: [RED 9, BLUE 8]     # draw order
//	steps:
//	  - join: 5
//	    expect:
//	      - {pid: 5, status: joined}
//	  - play: {pid: 5, card: RED 9, last: true}
//	    expect:
//	      - {pid: 5, status: valid}
//	      - {pid: 5, status: end, winner: 5}
//	  - pile_exhausted: true
//	  - raw: {tag: 4, payload: "garbage"}
//	assertions:
//	  - {type: board_top, card: RED 9}
//	  - {type: counts, pile: 2, board: 2}
//	  - {type: winner, pid: 5}
//	  - {type: phase, phase: finished}
//	  - {type: players, players: [5]}
//	  - {type: journal_plays, count: 1, accepted: 1}
//
// Steps without expectations are fire-and-forget. A winner assertion without
// pid expects a game without winner.
//
// # Determinism
//
// Each run uses a fresh in-memory journal, the scenario name as game id, a
// fixed start time and a logical clock for the trace, so the same scenario
// always yields the same trace. RunWithGolden compares that trace against
// testdata/golden/{name}.golden.
package harness
