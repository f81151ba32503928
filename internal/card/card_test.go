package card

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeck_HasEveryCardOnce(t *testing.T) {
	deck := NewDeck()
	require.Len(t, deck, DeckSize)

	seen := make(map[Card]bool)
	for _, c := range deck {
		require.NoError(t, c.Validate())
		assert.False(t, seen[c], "duplicate card %s", c)
		seen[c] = true
	}
}

func TestShuffle_KeepsCardsAndLeavesInputAlone(t *testing.T) {
	deck := NewDeck()
	shuffled := Shuffle(deck, rand.New(rand.NewSource(7)))

	assert.ElementsMatch(t, deck, shuffled)
	assert.Equal(t, NewDeck(), deck, "input deck must not be reordered")
}

func TestShuffle_Deterministic(t *testing.T) {
	a := Shuffle(NewDeck(), rand.New(rand.NewSource(42)))
	b := Shuffle(NewDeck(), rand.New(rand.NewSource(42)))
	assert.Equal(t, a, b)
}

func TestNew_RejectsOutOfRange(t *testing.T) {
	_, err := New(Red, 10)
	assert.ErrorIs(t, err, ErrInvalidCard)

	_, err = New(Color("GREEN"), 3)
	assert.ErrorIs(t, err, ErrInvalidCard)

	c, err := New(Blue, 0)
	require.NoError(t, err)
	assert.Equal(t, Card{Color: Blue, Rank: 0}, c)
}

func TestParse(t *testing.T) {
	c, err := Parse("red 7")
	require.NoError(t, err)
	assert.Equal(t, Card{Color: Red, Rank: 7}, c)
	assert.Equal(t, "RED 7", c.String())
	assert.Equal(t, "Red 7", c.Label())

	for _, bad := range []string{"", "RED", "RED x", "PINK 1", "BLUE 12", "RED 1 2"} {
		_, err := Parse(bad)
		assert.ErrorIs(t, err, ErrInvalidCard, "input %q", bad)
	}
}

func TestColor_Title(t *testing.T) {
	assert.Equal(t, "Red", Red.Title())
	assert.Equal(t, "Blue", Blue.Title())
}
