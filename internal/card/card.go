package card

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Color is one of the two card colors.
type Color string

const (
	Red  Color = "RED"
	Blue Color = "BLUE"
)

// Colors lists every color in deck order.
var Colors = []Color{Red, Blue}

// MaxRank is the highest rank printed on a card. Ranks start at 0.
const MaxRank = 9

// DeckSize is the number of cards in a full deck.
const DeckSize = 20

// ErrInvalidCard is returned when a card fails validation or parsing.
var ErrInvalidCard = errors.New("invalid card")

// Valid reports whether c is one of the known colors.
func (c Color) Valid() bool {
	return c == Red || c == Blue
}

// Title returns the color in title case for display ("Red", "Blue").
// A Caser is stateful, so each call builds its own.
func (c Color) Title() string {
	return cases.Title(language.English).String(strings.ToLower(string(c)))
}

// Card is a single playing card.
type Card struct {
	Color Color `json:"color"`
	Rank  int   `json:"rank"`
}

// New returns a validated card.
func New(color Color, rank int) (Card, error) {
	c := Card{Color: color, Rank: rank}
	if err := c.Validate(); err != nil {
		return Card{}, err
	}
	return c, nil
}

// Validate checks that the color is known and the rank is in range.
func (c Card) Validate() error {
	if !c.Color.Valid() {
		return fmt.Errorf("%w: unknown color %q", ErrInvalidCard, c.Color)
	}
	if c.Rank < 0 || c.Rank > MaxRank {
		return fmt.Errorf("%w: rank %d out of range 0..%d", ErrInvalidCard, c.Rank, MaxRank)
	}
	return nil
}

// String renders the card as "RED 3".
func (c Card) String() string {
	return fmt.Sprintf("%s %d", c.Color, c.Rank)
}

// Label renders the card for the player view ("Red 3").
func (c Card) Label() string {
	return fmt.Sprintf("%s %d", c.Color.Title(), c.Rank)
}

// Parse reads the String form of a card. Color matching is case-insensitive.
func Parse(s string) (Card, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return Card{}, fmt.Errorf("%w: %q", ErrInvalidCard, s)
	}
	rank, err := strconv.Atoi(fields[1])
	if err != nil {
		return Card{}, fmt.Errorf("%w: rank %q", ErrInvalidCard, fields[1])
	}
	return New(Color(strings.ToUpper(fields[0])), rank)
}

// NewDeck returns the full deck in a fixed order: ranks ascending, colors
// interleaved.
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for rank := 0; rank <= MaxRank; rank++ {
		for _, color := range Colors {
			deck = append(deck, Card{Color: color, Rank: rank})
		}
	}
	return deck
}

// Shuffle returns a shuffled copy of deck using rng.
// A nil rng uses the package-level source.
func Shuffle(deck []Card, rng *rand.Rand) []Card {
	out := make([]Card, len(deck))
	copy(out, deck)
	swap := func(i, j int) { out[i], out[j] = out[j], out[i] }
	if rng == nil {
		rand.Shuffle(len(out), swap)
	} else {
		rng.Shuffle(len(out), swap)
	}
	return out
}
