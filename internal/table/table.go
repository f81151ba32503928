package table

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/roach88/cardstack/internal/card"
)

var (
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("table closed")
	// ErrEmptyDeck is returned by New when there is no card to seed the board.
	ErrEmptyDeck = errors.New("deck is empty")
)

// Counts reports the pile and board sizes.
type Counts struct {
	Pile  int `json:"pile"`
	Board int `json:"board"`
}

// Total returns the number of cards held by the table.
func (c Counts) Total() int {
	return c.Pile + c.Board
}

// Table owns the draw pile and the discard board.
//
// Thread-safety: all methods are safe for concurrent use.
type Table struct {
	pileGuard  *guard
	boardGuard *guard

	pile  []card.Card // top of the pile is the last element
	board []card.Card // top of the board is the last element

	closed atomic.Bool
}

// New builds a table from deck. The last card of the deck is moved onto the
// board so the board is never empty; the rest becomes the pile.
func New(deck []card.Card) (*Table, error) {
	if len(deck) == 0 {
		return nil, ErrEmptyDeck
	}
	pile := make([]card.Card, len(deck)-1, len(deck))
	copy(pile, deck[:len(deck)-1])
	return &Table{
		pileGuard:  newGuard(),
		boardGuard: newGuard(),
		pile:       pile,
		board:      []card.Card{deck[len(deck)-1]},
	}, nil
}

// Draw removes and returns the top card of the pile. The boolean is false when
// the pile is empty.
func (t *Table) Draw(ctx context.Context) (card.Card, bool, error) {
	var (
		drawn card.Card
		ok    bool
	)
	err := t.pileGuard.with(ctx, func() error {
		if t.closed.Load() {
			return ErrClosed
		}
		if len(t.pile) == 0 {
			return nil
		}
		last := len(t.pile) - 1
		drawn, ok = t.pile[last], true
		t.pile = t.pile[:last]
		return nil
	})
	if err != nil {
		return card.Card{}, false, err
	}
	return drawn, ok, nil
}

// AppendPile puts c on top of the pile.
func (t *Table) AppendPile(ctx context.Context, c card.Card) error {
	return t.pileGuard.with(ctx, func() error {
		if t.closed.Load() {
			return ErrClosed
		}
		t.pile = append(t.pile, c)
		return nil
	})
}

// AppendBoard puts c on top of the board without consulting any rule.
func (t *Table) AppendBoard(ctx context.Context, c card.Card) error {
	return t.boardGuard.with(ctx, func() error {
		if t.closed.Load() {
			return ErrClosed
		}
		t.board = append(t.board, c)
		return nil
	})
}

// Top returns the most recently played card.
func (t *Table) Top(ctx context.Context) (card.Card, error) {
	var top card.Card
	err := t.boardGuard.with(ctx, func() error {
		if t.closed.Load() {
			return ErrClosed
		}
		top = t.board[len(t.board)-1]
		return nil
	})
	return top, err
}

// Board returns a copy of the board, oldest card first.
func (t *Table) Board(ctx context.Context) ([]card.Card, error) {
	var out []card.Card
	err := t.boardGuard.with(ctx, func() error {
		if t.closed.Load() {
			return ErrClosed
		}
		out = make([]card.Card, len(t.board))
		copy(out, t.board)
		return nil
	})
	return out, err
}

// Counts returns the pile and board sizes. Each size is read under its own
// guard, so the pair is not an atomic snapshot while draws are in flight.
func (t *Table) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	if err := t.pileGuard.with(ctx, func() error {
		if t.closed.Load() {
			return ErrClosed
		}
		c.Pile = len(t.pile)
		return nil
	}); err != nil {
		return Counts{}, err
	}
	if err := t.boardGuard.with(ctx, func() error {
		c.Board = len(t.board)
		return nil
	}); err != nil {
		return Counts{}, err
	}
	return c, nil
}

// Adjudicate decides whether c may be stacked on the current top under rule
// and, if so, appends it to the board. Both guards are held, pile first, for
// the whole decision and released on every path.
func (t *Table) Adjudicate(ctx context.Context, rule card.Rule, c card.Card) (bool, error) {
	var accepted bool
	err := t.pileGuard.with(ctx, func() error {
		return t.boardGuard.with(ctx, func() error {
			if t.closed.Load() {
				return ErrClosed
			}
			top := t.board[len(t.board)-1]
			if !rule.Allows(top, c) {
				return nil
			}
			t.board = append(t.board, c)
			accepted = true
			return nil
		})
	})
	return accepted, err
}

// Close tears the service down. Operations in progress finish; later ones
// return ErrClosed.
func (t *Table) Close() {
	t.closed.Store(true)
}
