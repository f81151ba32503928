package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/cardstack/internal/card"
	"github.com/roach88/cardstack/internal/mailbox"
	"github.com/roach88/cardstack/internal/protocol"
)

// Defaults for a Session.
const (
	DefaultHandSize     = 5
	DefaultRenderPeriod = 500 * time.Millisecond
	DefaultIdleTimeout  = 8 * time.Second
)

// Status lines shown under the hand.
const (
	StatusTooSlow  = "Too slow"
	StatusGoodMove = "Good move"
	StatusBadMove  = "Bad move"
	StatusWaiting  = "Your move"
)

var (
	// ErrLobbyFull is returned by Join when the coordinator rejects the player.
	ErrLobbyFull = errors.New("lobby full")

	// ErrUnexpectedReply is returned by Join for any reply other than joined
	// or rejected.
	ErrUnexpectedReply = errors.New("unexpected join reply")
)

// Channel is the player's attachment to the mailbox.
// Implemented by *mailbox.Mailbox and *mailbox.Conn.
type Channel interface {
	Send(tag int64, payload []byte) error
	Receive(ctx context.Context, tag int64) ([]byte, error)
}

// Table is the player's view of the shared table.
// Implemented by *table.Table and *table.Client.
type Table interface {
	Draw(ctx context.Context) (card.Card, bool, error)
	Top(ctx context.Context) (card.Card, error)
}

// Outcome is how a session ended for the player.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	Won
	Lost
	NoWinner
	Quit
	Disconnected
)

func (o Outcome) String() string {
	switch o {
	case Won:
		return "won"
	case Lost:
		return "lost"
	case NoWinner:
		return "no_winner"
	case Quit:
		return "quit"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Join asks the coordinator for a seat and, once accepted, deals up to
// handSize cards. The hand is smaller when the pile runs dry during the deal.
func Join(ctx context.Context, ch Channel, tbl Table, pid int64, handSize int) (*Hand, error) {
	payload, err := protocol.Encode(protocol.Join{PID: pid})
	if err != nil {
		return nil, err
	}
	if err := ch.Send(protocol.TagJoin, payload); err != nil {
		return nil, fmt.Errorf("send join: %w", err)
	}

	raw, err := ch.Receive(ctx, pid)
	if err != nil {
		return nil, fmt.Errorf("await join reply: %w", err)
	}
	reply, err := protocol.DecodeReply(raw)
	if err != nil {
		return nil, err
	}
	switch reply.Status {
	case protocol.StatusJoined:
	case protocol.StatusRejected:
		return nil, ErrLobbyFull
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedReply, reply.Status)
	}

	hand := NewHand()
	for hand.Len() < handSize {
		c, ok, err := tbl.Draw(ctx)
		if err != nil {
			return nil, fmt.Errorf("deal: %w", err)
		}
		if !ok {
			slog.Warn("pile ran dry during the deal", "pid", pid, "cards", hand.Len())
			break
		}
		hand.Add(c)
	}
	slog.Info("joined", "pid", pid, "cards", hand.Len())
	return hand, nil
}

// Session runs one player's game.
type Session struct {
	ch     Channel
	tbl    Table
	pid    int64
	hand   *Hand
	screen Screen
	keys   <-chan Key

	renderPeriod time.Duration
	idleTimeout  time.Duration

	mu      sync.Mutex
	status  string
	outcome Outcome
	cancel  context.CancelFunc
}

// Option allows configuration of session parameters.
type Option func(*Session)

// WithRenderPeriod sets how often the screen is redrawn.
func WithRenderPeriod(d time.Duration) Option {
	return func(s *Session) {
		s.renderPeriod = d
	}
}

// WithIdleTimeout sets how long the player may stay idle before a penalty
// card is drawn.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.idleTimeout = d
	}
}

// New creates a Session for pid holding hand. keys is closed by its producer
// when the input source goes away.
func New(ch Channel, tbl Table, pid int64, hand *Hand, screen Screen, keys <-chan Key, opts ...Option) *Session {
	s := &Session{
		ch:           ch,
		tbl:          tbl,
		pid:          pid,
		hand:         hand,
		screen:       screen,
		keys:         keys,
		renderPeriod: DefaultRenderPeriod,
		idleTimeout:  DefaultIdleTimeout,
		status:       StatusWaiting,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hand returns the session's hand.
func (s *Session) Hand() *Hand {
	return s.hand
}

// Status returns the current status line.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) setStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// end records o unless an outcome was already recorded, then stops every
// task.
func (s *Session) end(o Outcome) {
	s.mu.Lock()
	if s.outcome == OutcomeUnknown {
		s.outcome = o
		slog.Info("session ending", "pid", s.pid, "outcome", o)
	}
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Run plays the game until it ends, the player quits or ctx is cancelled.
// It returns after all three tasks have finished. Cancelling ctx counts as
// Quit.
func (s *Session) Run(ctx context.Context) (Outcome, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.render(gctx) })
	g.Go(func() error { return s.handleInput(gctx) })
	g.Go(func() error { return s.listen(gctx) })
	err := g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome == OutcomeUnknown {
		if err != nil {
			s.outcome = Disconnected
		} else {
			s.outcome = Quit
		}
	}
	return s.outcome, err
}

// render redraws the view every renderPeriod. It never mutates the hand.
func (s *Session) render(ctx context.Context) error {
	ticker := time.NewTicker(s.renderPeriod)
	defer ticker.Stop()

	for {
		s.draw(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Session) draw(ctx context.Context) {
	v := View{PID: s.pid, Hand: s.hand.Snapshot(), Status: s.Status()}
	top, err := s.tbl.Top(ctx)
	switch {
	case err == nil:
		v.Top = &top
	case ctx.Err() != nil:
		return
	default:
		slog.Debug("render: read board top failed", "pid", s.pid, "error", err)
	}
	if err := s.screen.Show(FormatView(v)); err != nil {
		slog.Debug("render: show failed", "pid", s.pid, "error", err)
	}
}

// handleInput reacts to keys and to the idle timer.
func (s *Session) handleInput(ctx context.Context) error {
	idle := time.NewTimer(s.idleTimeout)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-idle.C:
			ok, err := s.drawPenalty(ctx)
			if err != nil || !ok {
				return err
			}
			s.setStatus(StatusTooSlow)
			idle.Reset(s.idleTimeout)

		case k, open := <-s.keys:
			if !open {
				s.end(Quit)
				return nil
			}
			switch k {
			case KeyPrev:
				s.hand.Prev()
			case KeyNext:
				s.hand.Next()
			case KeyPlay:
				played, err := s.play()
				if err != nil {
					return err
				}
				if played {
					idle.Reset(s.idleTimeout)
				}
			case KeyQuit:
				s.end(Quit)
				return nil
			}
		}
	}
}

// play submits the selected card and removes it from the hand. It reports
// false when the hand is empty.
func (s *Session) play() (bool, error) {
	c, last, ok := s.hand.TakeSelected()
	if !ok {
		return false, nil
	}
	payload, err := protocol.Encode(protocol.Play{Card: c, IsLastCard: last, PID: s.pid})
	if err != nil {
		s.hand.Add(c)
		return false, err
	}
	if err := s.ch.Send(protocol.TagPlay, payload); err != nil {
		s.hand.Add(c)
		s.end(Disconnected)
		if errors.Is(err, mailbox.ErrClosed) {
			return false, nil
		}
		return false, fmt.Errorf("send play: %w", err)
	}
	slog.Debug("played", "pid", s.pid, "card", c, "last", last)
	return true, nil
}

// drawPenalty adds one card from the pile to the hand. When the pile is empty
// it announces the exhaustion to the coordinator, ends the session with
// NoWinner and reports false.
func (s *Session) drawPenalty(ctx context.Context) (bool, error) {
	c, ok, err := s.tbl.Draw(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false, nil
		}
		s.end(Disconnected)
		return false, fmt.Errorf("draw: %w", err)
	}
	if ok {
		s.hand.Add(c)
		slog.Debug("drew penalty card", "pid", s.pid, "card", c)
		return true, nil
	}

	slog.Info("pile exhausted", "pid", s.pid)
	if err := s.ch.Send(protocol.TagPileExhausted, protocol.PileExhaustedMarker); err != nil {
		slog.Warn("announce pile exhausted failed", "pid", s.pid, "error", err)
	}
	s.end(NoWinner)
	return false, nil
}

// listen handles the coordinator's replies on the player's private tag.
func (s *Session) listen(ctx context.Context) error {
	for {
		payload, err := s.ch.Receive(ctx, s.pid)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.end(Disconnected)
			if errors.Is(err, mailbox.ErrClosed) {
				return nil
			}
			return fmt.Errorf("receive: %w", err)
		}

		reply, err := protocol.DecodeReply(payload)
		if err != nil {
			slog.Warn("reply dropped", "pid", s.pid, "error", err)
			continue
		}

		switch reply.Status {
		case protocol.StatusValid:
			s.setStatus(StatusGoodMove)

		case protocol.StatusInvalid:
			s.hand.Add(*reply.Card)
			s.setStatus(StatusBadMove)
			ok, err := s.drawPenalty(ctx)
			if err != nil || !ok {
				return err
			}

		case protocol.StatusEnd:
			switch {
			case reply.Winner == nil:
				s.end(NoWinner)
			case *reply.Winner == s.pid:
				s.end(Won)
			default:
				s.end(Lost)
			}
			return nil

		default:
			slog.Warn("unexpected reply", "pid", s.pid, "status", reply.Status)
		}
	}
}
