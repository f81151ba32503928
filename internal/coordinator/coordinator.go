package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/exp/slices"

	"github.com/roach88/cardstack/internal/card"
	"github.com/roach88/cardstack/internal/mailbox"
	"github.com/roach88/cardstack/internal/protocol"
	"github.com/roach88/cardstack/internal/store"
)

// MaxPlayers is the hard upper bound on the lobby size.
const MaxPlayers = 4

// Ending reasons recorded in the journal.
const (
	ReasonWon           = "won"
	ReasonPileExhausted = "pile_exhausted"
)

var (
	// ErrUnknownPlayer is returned for plays from ids that never joined.
	ErrUnknownPlayer = errors.New("unknown player")

	// ErrInboxClosed is returned by Run when the mailbox is torn down before
	// the game finished.
	ErrInboxClosed = errors.New("inbox closed before game finished")
)

// Phase is the coordinator's game state.
type Phase int

const (
	WaitingForPlayers Phase = iota
	InProgress
	Finished
)

func (p Phase) String() string {
	switch p {
	case WaitingForPlayers:
		return "waiting_for_players"
	case InProgress:
		return "in_progress"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Inbox is the coordinator's view of the mailbox.
type Inbox interface {
	Send(tag int64, payload []byte) error
	ReceiveAny(ctx context.Context, tags ...int64) (mailbox.Message, error)
}

// Board is the coordinator's view of the shared table.
type Board interface {
	Top(ctx context.Context) (card.Card, error)
	Adjudicate(ctx context.Context, rule card.Rule, c card.Card) (bool, error)
}

// Journal records the course of a game. Implemented by *store.Store.
type Journal interface {
	WriteGame(ctx context.Context, g store.Game) error
	WriteJoin(ctx context.Context, j store.Join) error
	WritePlay(ctx context.Context, p store.Play) error
	WriteEnding(ctx context.Context, e store.Ending) error
}

// Coordinator is the single-writer game loop.
//
// Thread-safety model:
//   - Run(): must be called from exactly one goroutine
//   - Phase(), Players(), Winner(), GameID(): safe from any goroutine
type Coordinator struct {
	inbox      Inbox
	board      Board
	rule       card.Rule
	maxPlayers int
	journal    Journal
	ids        IDGenerator
	clock      *Clock
	now        func() time.Time

	gameID string

	mu      sync.Mutex
	phase   Phase
	players []int64
	winner  *int64
}

// Option allows configuration of coordinator parameters.
type Option func(*Coordinator)

// WithRule sets the stacking rule. Default: card.Adjacent.
func WithRule(r card.Rule) Option {
	return func(c *Coordinator) {
		c.rule = r
	}
}

// WithMaxPlayers bounds the lobby. Values outside 1..MaxPlayers are clamped.
func WithMaxPlayers(n int) Option {
	return func(c *Coordinator) {
		c.maxPlayers = min(max(n, 1), MaxPlayers)
	}
}

// WithJournal records the game in j.
func WithJournal(j Journal) Option {
	return func(c *Coordinator) {
		c.journal = j
	}
}

// WithIDGenerator sets the game id source. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(c *Coordinator) {
		c.ids = g
	}
}

// WithClock sets the journal clock.
func WithClock(clock *Clock) Option {
	return func(c *Coordinator) {
		c.clock = clock
	}
}

// WithNow sets the wall clock used for the game start time.
func WithNow(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// New creates a Coordinator reading from inbox and adjudicating on board.
func New(inbox Inbox, board Board, opts ...Option) *Coordinator {
	c := &Coordinator{
		inbox:      inbox,
		board:      board,
		rule:       card.Adjacent,
		maxPlayers: MaxPlayers,
		ids:        UUIDv7Generator{},
		clock:      NewClock(),
		now:        time.Now,
		phase:      WaitingForPlayers,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.gameID = c.ids.Generate()
	return c
}

// GameID returns the id under which this game is journaled.
func (c *Coordinator) GameID() string {
	return c.gameID
}

// Phase returns the current phase.
func (c *Coordinator) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Players returns the registered player ids in join order.
func (c *Coordinator) Players() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.players)
}

// Winner returns the winning player once the game is Finished. The boolean is
// false while the game runs and when it ended without a winner.
func (c *Coordinator) Winner() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.winner == nil {
		return 0, false
	}
	return *c.winner, true
}

// Run starts the game loop.
// Blocks until the game finishes, the context is cancelled or the inbox is
// closed.
//
// Returns nil once the game is Finished.
func (c *Coordinator) Run(ctx context.Context) error {
	slog.Info("coordinator starting",
		"game", c.gameID,
		"max_players", c.maxPlayers,
		"stacking", c.rule.Name(),
	)
	c.recordGame(ctx)

	for c.Phase() != Finished {
		msg, err := c.inbox.ReceiveAny(ctx, protocol.ControlTags...)
		if err != nil {
			if errors.Is(err, mailbox.ErrClosed) {
				slog.Info("coordinator stopping: inbox closed", "game", c.gameID)
				return ErrInboxClosed
			}
			slog.Info("coordinator stopping: context cancelled", "game", c.gameID)
			return err
		}

		if err := c.handle(ctx, msg); err != nil {
			logMessageError(msg, err)
		}
	}

	slog.Info("coordinator finished", "game", c.gameID)
	return nil
}

// handle routes a message to its handler.
// Called only from Run.
func (c *Coordinator) handle(ctx context.Context, msg mailbox.Message) error {
	switch msg.Tag {
	case protocol.TagJoin:
		return c.handleJoin(ctx, msg.Payload)
	case protocol.TagPileExhausted:
		return c.handlePileExhausted(ctx)
	case protocol.TagPlay:
		return c.handlePlay(ctx, msg.Payload)
	default:
		return fmt.Errorf("%w: unexpected tag %d", protocol.ErrMalformed, msg.Tag)
	}
}

func (c *Coordinator) handleJoin(ctx context.Context, payload []byte) error {
	join, err := protocol.DecodeJoin(payload)
	if err != nil {
		return err
	}

	accepted := c.register(join.PID)
	c.record(ctx, func(seq int64) error {
		return c.journal.WriteJoin(ctx, store.Join{
			GameID:   c.gameID,
			Seq:      seq,
			PID:      join.PID,
			Accepted: accepted,
		})
	})

	if !accepted {
		slog.Info("join rejected: lobby full", "game", c.gameID, "pid", join.PID)
		return c.reply(join.PID, protocol.Rejected())
	}
	slog.Info("player joined", "game", c.gameID, "pid", join.PID)
	return c.reply(join.PID, protocol.Joined())
}

// register adds pid to the registry if there is room. A pid that is already
// registered is accepted again without taking another seat.
func (c *Coordinator) register(pid int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if slices.Contains(c.players, pid) {
		return true
	}
	if len(c.players) >= c.maxPlayers {
		return false
	}
	c.players = append(c.players, pid)
	if c.phase == WaitingForPlayers {
		c.phase = InProgress
	}
	return true
}

func (c *Coordinator) registered(pid int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Contains(c.players, pid)
}

func (c *Coordinator) handlePileExhausted(ctx context.Context) error {
	slog.Info("pile exhausted: game ends without a winner", "game", c.gameID)
	return c.finish(ctx, nil, ReasonPileExhausted)
}

func (c *Coordinator) handlePlay(ctx context.Context, payload []byte) error {
	play, err := protocol.DecodePlay(payload)
	if err != nil {
		return err
	}
	if !c.registered(play.PID) {
		return fmt.Errorf("%w: play from %d", ErrUnknownPlayer, play.PID)
	}

	accepted, err := c.board.Adjudicate(ctx, c.rule, play.Card)
	if err != nil {
		return fmt.Errorf("adjudicate %s from %d: %w", play.Card, play.PID, err)
	}

	c.record(ctx, func(seq int64) error {
		return c.journal.WritePlay(ctx, store.Play{
			GameID:   c.gameID,
			Seq:      seq,
			PID:      play.PID,
			Card:     play.Card,
			LastCard: play.IsLastCard,
			Accepted: accepted,
		})
	})

	if !accepted {
		slog.Debug("play rejected", "game", c.gameID, "pid", play.PID, "card", play.Card)
		return c.reply(play.PID, protocol.Invalid(play.Card))
	}

	slog.Debug("play accepted", "game", c.gameID, "pid", play.PID, "card", play.Card)
	if err := c.reply(play.PID, protocol.Valid(play.Card)); err != nil {
		return err
	}
	if play.IsLastCard {
		winner := play.PID
		slog.Info("player won", "game", c.gameID, "pid", winner)
		return c.finish(ctx, &winner, ReasonWon)
	}
	return nil
}

// finish broadcasts the game end to every registered player and moves to
// Finished. Every player is attempted even if a send fails.
func (c *Coordinator) finish(ctx context.Context, winner *int64, reason string) error {
	c.mu.Lock()
	c.phase = Finished
	c.winner = winner
	players := slices.Clone(c.players)
	c.mu.Unlock()

	c.record(ctx, func(seq int64) error {
		return c.journal.WriteEnding(ctx, store.Ending{
			GameID: c.gameID,
			Seq:    seq,
			Winner: winner,
			Reason: reason,
		})
	})

	var errs []error
	for _, pid := range players {
		if err := c.reply(pid, protocol.End(winner)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Coordinator) reply(pid int64, r protocol.Reply) error {
	payload, err := protocol.Encode(r)
	if err != nil {
		return err
	}
	if err := c.inbox.Send(pid, payload); err != nil {
		return fmt.Errorf("reply %s to %d: %w", r.Status, pid, err)
	}
	return nil
}

func (c *Coordinator) recordGame(ctx context.Context) {
	if c.journal == nil {
		return
	}
	top, err := c.board.Top(ctx)
	if err != nil {
		slog.Error("journal: read seed card failed", "game", c.gameID, "error", err)
		return
	}
	err = c.journal.WriteGame(ctx, store.Game{
		ID:        c.gameID,
		StartedAt: c.now().UTC(),
		Stacking:  c.rule.Name(),
		SeedCard:  top,
	})
	if err != nil {
		slog.Error("journal: write game failed", "game", c.gameID, "error", err)
	}
}

// record stamps a journal write with the next seq. Failures are logged and
// the game continues.
func (c *Coordinator) record(ctx context.Context, write func(seq int64) error) {
	if c.journal == nil {
		return
	}
	seq := c.clock.Next()
	if err := write(seq); err != nil {
		slog.Error("journal write failed", "game", c.gameID, "seq", seq, "error", err)
	}
}

// logMessageError logs a dropped message with enough context to diagnose it.
func logMessageError(msg mailbox.Message, err error) {
	level := slog.LevelError
	if errors.Is(err, protocol.ErrMalformed) || errors.Is(err, ErrUnknownPlayer) {
		level = slog.LevelWarn
	}
	slog.Log(context.Background(), level, "message dropped",
		"error", err,
		"tag", msg.Tag,
		"payload_bytes", len(msg.Payload),
	)
}
