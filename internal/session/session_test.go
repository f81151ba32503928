package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cardstack/internal/card"
	"github.com/roach88/cardstack/internal/coordinator"
	"github.com/roach88/cardstack/internal/mailbox"
	"github.com/roach88/cardstack/internal/protocol"
	"github.com/roach88/cardstack/internal/table"
)

const (
	waitTimeout = 2 * time.Second
	tick        = 5 * time.Millisecond
)

type fakeScreen struct {
	mu   sync.Mutex
	last []string
}

func (f *fakeScreen) Show(lines []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = lines
	return nil
}

func (f *fakeScreen) Last() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

type testServer struct {
	box   *mailbox.Mailbox
	tbl   *table.Table
	coord *coordinator.Coordinator
	done  chan error
}

// startServer runs a coordinator over deck. With card.NewDeck() the board is
// seeded with BLUE 9 and the pile draws RED 9, BLUE 8, RED 8, BLUE 7, ...
func startServer(t *testing.T, deck []card.Card, opts ...coordinator.Option) *testServer {
	t.Helper()

	tbl, err := table.New(deck)
	require.NoError(t, err)
	box := mailbox.New(mailbox.DefaultKey)

	opts = append([]coordinator.Option{coordinator.WithIDGenerator(coordinator.NewFixedGenerator("game-1"))}, opts...)
	srv := &testServer{
		box:   box,
		tbl:   tbl,
		coord: coordinator.New(box, tbl, opts...),
		done:  make(chan error, 1),
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() { srv.done <- srv.coord.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		box.Close()
		tbl.Close()
	})
	return srv
}

func (srv *testServer) counts(t *testing.T) table.Counts {
	t.Helper()
	c, err := srv.tbl.Counts(context.Background())
	require.NoError(t, err)
	return c
}

type result struct {
	outcome Outcome
	err     error
}

type player struct {
	session *Session
	screen  *fakeScreen
	keys    chan Key
	done    chan result
}

func newPlayer(t *testing.T, srv *testServer, pid int64, handSize int, opts ...Option) *player {
	t.Helper()
	ctx := context.Background()

	hand, err := Join(ctx, srv.box, srv.tbl, pid, handSize)
	require.NoError(t, err)

	opts = append([]Option{WithRenderPeriod(tick), WithIdleTimeout(time.Minute)}, opts...)
	p := &player{
		screen: &fakeScreen{},
		keys:   make(chan Key, 16),
		done:   make(chan result, 1),
	}
	p.session = New(srv.box, srv.tbl, pid, hand, p.screen, p.keys, opts...)
	return p
}

func (p *player) start(ctx context.Context) {
	go func() {
		o, err := p.session.Run(ctx)
		p.done <- result{o, err}
	}()
}

func (p *player) wait(t *testing.T) result {
	t.Helper()
	select {
	case r := <-p.done:
		return r
	case <-time.After(waitTimeout):
		t.Fatal("session did not stop")
		return result{}
	}
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "won", Won.String())
	assert.Equal(t, "lost", Lost.String())
	assert.Equal(t, "no_winner", NoWinner.String())
	assert.Equal(t, "quit", Quit.String())
	assert.Equal(t, "disconnected", Disconnected.String())
	assert.Equal(t, "unknown", OutcomeUnknown.String())
}

func TestJoin_DealsHand(t *testing.T) {
	srv := startServer(t, card.NewDeck())

	hand, err := Join(context.Background(), srv.box, srv.tbl, 5, DefaultHandSize)
	require.NoError(t, err)

	assert.Equal(t, []card.Card{
		{Color: card.Red, Rank: 9},
		{Color: card.Blue, Rank: 8},
		{Color: card.Red, Rank: 8},
		{Color: card.Blue, Rank: 7},
		{Color: card.Red, Rank: 7},
	}, hand.Snapshot().Cards)
	assert.Equal(t, table.Counts{Pile: 14, Board: 1}, srv.counts(t))
}

func TestJoin_ShortDealWhenPileRunsDry(t *testing.T) {
	deck := []card.Card{{Color: card.Red, Rank: 1}, {Color: card.Red, Rank: 5}, {Color: card.Blue, Rank: 7}}
	srv := startServer(t, deck)

	hand, err := Join(context.Background(), srv.box, srv.tbl, 5, DefaultHandSize)
	require.NoError(t, err)

	assert.Equal(t, 2, hand.Len())
	assert.Equal(t, table.Counts{Pile: 0, Board: 1}, srv.counts(t))
}

func TestJoin_LobbyFull(t *testing.T) {
	srv := startServer(t, card.NewDeck(), coordinator.WithMaxPlayers(1))
	ctx := context.Background()

	_, err := Join(ctx, srv.box, srv.tbl, 5, DefaultHandSize)
	require.NoError(t, err)

	_, err = Join(ctx, srv.box, srv.tbl, 6, DefaultHandSize)
	assert.ErrorIs(t, err, ErrLobbyFull)
	assert.Equal(t, 14, srv.counts(t).Pile, "rejected player draws nothing")
}

func TestJoin_ChannelClosed(t *testing.T) {
	box := mailbox.New(mailbox.DefaultKey)
	box.Close()
	tbl, err := table.New(card.NewDeck())
	require.NoError(t, err)

	_, err = Join(context.Background(), box, tbl, 5, DefaultHandSize)
	assert.ErrorIs(t, err, mailbox.ErrClosed)
}

func TestRun_ValidPlay(t *testing.T) {
	srv := startServer(t, card.NewDeck())
	a := newPlayer(t, srv, 5, DefaultHandSize)
	b := newPlayer(t, srv, 6, DefaultHandSize)
	require.Equal(t, 9, srv.counts(t).Pile)

	a.start(context.Background())
	a.keys <- KeyPlay

	require.Eventually(t, func() bool {
		return a.session.Status() == StatusGoodMove
	}, waitTimeout, tick)
	assert.Equal(t, table.Counts{Pile: 9, Board: 2}, srv.counts(t))
	assert.Equal(t, 4, a.session.Hand().Len())
	assert.Equal(t, card.DeckSize, srv.counts(t).Total()+a.session.Hand().Len()+b.session.Hand().Len())

	a.keys <- KeyQuit
	assert.Equal(t, result{Quit, nil}, a.wait(t))
}

func TestRun_InvalidPlayReturnsCardAndDrawsPenalty(t *testing.T) {
	srv := startServer(t, card.NewDeck())
	a := newPlayer(t, srv, 5, DefaultHandSize)

	a.start(context.Background())
	// RED 7 on BLUE 9 is not allowed.
	a.keys <- KeyPrev
	a.keys <- KeyPlay

	require.Eventually(t, func() bool {
		return a.session.Hand().Len() == 6
	}, waitTimeout, tick)
	assert.Equal(t, StatusBadMove, a.session.Status())
	assert.Contains(t, a.session.Hand().Snapshot().Cards, card.Card{Color: card.Red, Rank: 7})

	counts := srv.counts(t)
	assert.Equal(t, table.Counts{Pile: 13, Board: 1}, counts)
	assert.Equal(t, card.DeckSize, counts.Total()+a.session.Hand().Len())

	a.keys <- KeyQuit
	assert.Equal(t, result{Quit, nil}, a.wait(t))
}

func TestRun_PlayIgnoredWhenHandEmpty(t *testing.T) {
	box := mailbox.New(mailbox.DefaultKey)
	tbl, err := table.New(card.NewDeck())
	require.NoError(t, err)
	keys := make(chan Key, 2)
	s := New(box, tbl, 5, NewHand(), &fakeScreen{}, keys, WithRenderPeriod(tick), WithIdleTimeout(time.Minute))

	keys <- KeyPlay
	keys <- KeyQuit
	o, err := s.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Quit, o)
	_, ok := box.TryReceive(protocol.TagPlay)
	assert.False(t, ok)
}

func TestRun_IdleDrawsPenalty(t *testing.T) {
	srv := startServer(t, card.NewDeck())
	a := newPlayer(t, srv, 5, DefaultHandSize, WithIdleTimeout(20*time.Millisecond))

	a.start(context.Background())

	require.Eventually(t, func() bool {
		return a.session.Hand().Len() >= 6
	}, waitTimeout, tick)
	a.keys <- KeyQuit
	a.wait(t)

	assert.Equal(t, StatusTooSlow, a.session.Status())
	assert.Equal(t, card.DeckSize, srv.counts(t).Total()+a.session.Hand().Len())
}

func TestRun_PileExhaustedEndsGameForEveryone(t *testing.T) {
	deck := []card.Card{
		{Color: card.Red, Rank: 1},
		{Color: card.Red, Rank: 2},
		{Color: card.Blue, Rank: 4},
		{Color: card.Blue, Rank: 7},
	}
	srv := startServer(t, deck)
	a := newPlayer(t, srv, 5, 2, WithIdleTimeout(20*time.Millisecond))
	b := newPlayer(t, srv, 6, 2)
	require.Equal(t, 2, a.session.Hand().Len())
	require.Equal(t, 1, b.session.Hand().Len())

	ctx := context.Background()
	a.start(ctx)
	b.start(ctx)

	assert.Equal(t, result{NoWinner, nil}, a.wait(t))
	assert.Equal(t, result{NoWinner, nil}, b.wait(t))
	select {
	case err := <-srv.done:
		assert.NoError(t, err)
	case <-time.After(waitTimeout):
		t.Fatal("coordinator did not stop")
	}

	counts := srv.counts(t)
	assert.Equal(t, 0, counts.Pile)
	assert.Equal(t, len(deck), counts.Total()+a.session.Hand().Len()+b.session.Hand().Len())
}

func TestRun_LastCardWins(t *testing.T) {
	srv := startServer(t, card.NewDeck())
	a := newPlayer(t, srv, 5, 1)
	b := newPlayer(t, srv, 6, 1)

	ctx := context.Background()
	a.start(ctx)
	b.start(ctx)
	// RED 9 on BLUE 9.
	a.keys <- KeyPlay

	assert.Equal(t, result{Won, nil}, a.wait(t))
	assert.Equal(t, result{Lost, nil}, b.wait(t))
	assert.Equal(t, 0, a.session.Hand().Len())
	assert.Equal(t, 2, srv.counts(t).Board)
}

func TestRun_KeysClosedIsQuit(t *testing.T) {
	srv := startServer(t, card.NewDeck())
	a := newPlayer(t, srv, 5, DefaultHandSize)

	a.start(context.Background())
	close(a.keys)

	assert.Equal(t, result{Quit, nil}, a.wait(t))
}

func TestRun_MailboxClosedIsDisconnected(t *testing.T) {
	srv := startServer(t, card.NewDeck())
	a := newPlayer(t, srv, 5, DefaultHandSize)

	a.start(context.Background())
	srv.box.Close()

	assert.Equal(t, result{Disconnected, nil}, a.wait(t))
}

func TestRun_ParentCancelIsQuit(t *testing.T) {
	srv := startServer(t, card.NewDeck())
	a := newPlayer(t, srv, 5, DefaultHandSize)

	ctx, cancel := context.WithCancel(context.Background())
	a.start(ctx)
	cancel()

	assert.Equal(t, result{Quit, nil}, a.wait(t))
}

func TestRun_RendersView(t *testing.T) {
	srv := startServer(t, card.NewDeck())
	a := newPlayer(t, srv, 5, DefaultHandSize)

	a.start(context.Background())

	require.Eventually(t, func() bool {
		lines := a.screen.Last()
		return len(lines) > 3 && lines[3] == "[*]Red 9; [ ]Blue 8; [ ]Red 8; [ ]Blue 7; [ ]Red 7"
	}, waitTimeout, tick)
	lines := a.screen.Last()
	assert.Equal(t, "Player 5", lines[0])
	assert.Equal(t, "Last card on table: Blue 9", lines[1])

	a.keys <- KeyQuit
	a.wait(t)
}
