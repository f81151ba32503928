package table

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cardstack/internal/card"
)

func newTestTable(t *testing.T, deck ...card.Card) *Table {
	t.Helper()
	if len(deck) == 0 {
		deck = card.NewDeck()
	}
	tbl, err := New(deck)
	require.NoError(t, err)
	return tbl
}

func TestNew_SeedsBoard(t *testing.T) {
	tbl := newTestTable(t)
	ctx := context.Background()

	counts, err := tbl.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Pile: card.DeckSize - 1, Board: 1}, counts)

	top, err := tbl.Top(ctx)
	require.NoError(t, err)
	assert.Equal(t, card.NewDeck()[card.DeckSize-1], top)
}

func TestNew_EmptyDeck(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrEmptyDeck)
}

func TestDraw_PopsLastCard(t *testing.T) {
	tbl := newTestTable(t, card.Card{Color: card.Red, Rank: 1}, card.Card{Color: card.Blue, Rank: 2}, card.Card{Color: card.Red, Rank: 3})
	ctx := context.Background()

	c, ok, err := tbl.Draw(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, card.Card{Color: card.Blue, Rank: 2}, c)
}

func TestDraw_EmptyPileReleasesGuard(t *testing.T) {
	tbl := newTestTable(t, card.Card{Color: card.Red, Rank: 1})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < 3; i++ {
		_, ok, err := tbl.Draw(ctx)
		require.NoError(t, err, "draw %d must not block on a leaked guard", i)
		assert.False(t, ok)
	}

	require.NoError(t, tbl.AppendPile(ctx, card.Card{Color: card.Blue, Rank: 5}))
	c, ok, err := tbl.Draw(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, card.Card{Color: card.Blue, Rank: 5}, c)
}

func TestDraw_ConcurrentDrawsConserveCards(t *testing.T) {
	tbl := newTestTable(t)
	ctx := context.Background()

	var (
		mu    sync.Mutex
		drawn []card.Card
		wg    sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				c, ok, err := tbl.Draw(ctx)
				if err != nil || !ok {
					return
				}
				mu.Lock()
				drawn = append(drawn, c)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	board, err := tbl.Board(ctx)
	require.NoError(t, err)
	assert.Len(t, drawn, card.DeckSize-1)
	assert.ElementsMatch(t, card.NewDeck(), append(drawn, board...))
}

func TestAdjudicate(t *testing.T) {
	ctx := context.Background()
	tbl := newTestTable(t, card.Card{Color: card.Blue, Rank: 0}, card.Card{Color: card.Red, Rank: 4})

	accepted, err := tbl.Adjudicate(ctx, card.Adjacent, card.Card{Color: card.Blue, Rank: 7})
	require.NoError(t, err)
	assert.False(t, accepted)

	accepted, err = tbl.Adjudicate(ctx, card.Adjacent, card.Card{Color: card.Red, Rank: 5})
	require.NoError(t, err)
	assert.True(t, accepted)

	top, err := tbl.Top(ctx)
	require.NoError(t, err)
	assert.Equal(t, card.Card{Color: card.Red, Rank: 5}, top)

	counts, err := tbl.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Board)
	assert.Equal(t, 1, counts.Pile)
}

func TestAdjudicate_ReleasesBothGuards(t *testing.T) {
	tbl := newTestTable(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < 5; i++ {
		_, err := tbl.Adjudicate(ctx, card.Adjacent, card.Card{Color: card.Red, Rank: i})
		require.NoError(t, err)
	}
	_, _, err := tbl.Draw(ctx)
	require.NoError(t, err)
	_, err = tbl.Top(ctx)
	require.NoError(t, err)
}

func TestGuard_AcquireHonoursContext(t *testing.T) {
	g := newGuard()
	require.NoError(t, g.acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, g.acquire(ctx), context.DeadlineExceeded)

	g.release()
	require.NoError(t, g.acquire(context.Background()))
	g.release()
}

func TestClose(t *testing.T) {
	tbl := newTestTable(t)
	tbl.Close()
	ctx := context.Background()

	_, _, err := tbl.Draw(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = tbl.Top(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = tbl.Adjudicate(ctx, card.Anything, card.Card{Color: card.Red, Rank: 1})
	assert.ErrorIs(t, err, ErrClosed)

	// Guards are still free after the failed calls.
	assert.NoError(t, tbl.pileGuard.acquire(ctx))
	assert.NoError(t, tbl.boardGuard.acquire(ctx))
}
