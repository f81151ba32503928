// Package testutil holds fixtures shared by the game's tests.
package testutil

import "github.com/roach88/cardstack/internal/card"

// StackedDeck returns a deck for table.New whose board is seeded with seed and
// whose pile yields draws in the given order.
//
//	deck := StackedDeck(card.Card{Color: card.Blue, Rank: 0},
//		card.Card{Color: card.Red, Rank: 5})
//	// board: BLUE 0, first Draw: RED 5, second Draw: pile empty
func StackedDeck(seed card.Card, draws ...card.Card) []card.Card {
	deck := make([]card.Card, 0, len(draws)+1)
	for i := len(draws) - 1; i >= 0; i-- {
		deck = append(deck, draws[i])
	}
	return append(deck, seed)
}

// MustParse parses cards written as "RED 3". Panics on a malformed card.
func MustParse(cards ...string) []card.Card {
	out := make([]card.Card, len(cards))
	for i, s := range cards {
		c, err := card.Parse(s)
		if err != nil {
			panic(err)
		}
		out[i] = c
	}
	return out
}
