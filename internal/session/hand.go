package session

import (
	"sync"

	"golang.org/x/exp/slices"

	"github.com/roach88/cardstack/internal/card"
)

// Hand is the player's cards plus the selection cursor.
//
// Thread-safety: all methods are safe for concurrent use. The cursor stays in
// [0, len) whenever the hand is non-empty.
type Hand struct {
	mu       sync.Mutex
	cards    []card.Card
	selected int
}

// HandView is a point-in-time copy of a Hand.
type HandView struct {
	Cards    []card.Card
	Selected int
}

// NewHand returns a hand holding cards with the cursor on the first card.
func NewHand(cards ...card.Card) *Hand {
	return &Hand{cards: slices.Clone(cards)}
}

// Len returns the number of cards held.
func (h *Hand) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.cards)
}

// Add appends c to the hand.
func (h *Hand) Add(c card.Card) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cards = append(h.cards, c)
}

// Snapshot returns a copy of the cards and the cursor.
func (h *Hand) Snapshot() HandView {
	h.mu.Lock()
	defer h.mu.Unlock()
	return HandView{Cards: slices.Clone(h.cards), Selected: h.selected}
}

// Prev moves the cursor one card left, wrapping around.
func (h *Hand) Prev() {
	h.move(-1)
}

// Next moves the cursor one card right, wrapping around.
func (h *Hand) Next() {
	h.move(1)
}

func (h *Hand) move(delta int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.cards)
	if n == 0 {
		return
	}
	h.selected = ((h.selected+delta)%n + n) % n
}

// TakeSelected removes the selected card. last reports whether it was the only
// card held; ok is false when the hand is empty.
func (h *Hand) TakeSelected() (c card.Card, last bool, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.cards) == 0 {
		return card.Card{}, false, false
	}
	c = h.cards[h.selected]
	last = len(h.cards) == 1
	h.cards = slices.Delete(h.cards, h.selected, h.selected+1)
	if h.selected >= len(h.cards) {
		h.selected = max(len(h.cards)-1, 0)
	}
	return c, last, true
}
